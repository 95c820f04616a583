package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	rules     map[int64]*CommissionRule
	overrides map[[2]int64]*PriceOverride
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rules:     make(map[int64]*CommissionRule),
		overrides: make(map[[2]int64]*PriceOverride),
	}
}

func (r *memoryRepo) ListRules(_ context.Context, locationID int64) ([]CommissionRule, error) {
	var result []CommissionRule
	for _, rule := range r.rules {
		if rule.LocationID == locationID {
			result = append(result, *rule)
		}
	}
	return result, nil
}

func (r *memoryRepo) RuleAt(_ context.Context, locationID int64, at time.Time) (*CommissionRule, error) {
	var best *CommissionRule
	for _, rule := range r.rules {
		if rule.LocationID != locationID || rule.EffectiveFrom.After(at) {
			continue
		}
		if rule.EffectiveTo != nil && !rule.EffectiveTo.After(at) {
			continue
		}
		if best == nil || rule.EffectiveFrom.After(best.EffectiveFrom) {
			copied := *rule
			best = &copied
		}
	}
	if best == nil {
		return nil, ErrRuleNotFound
	}
	return best, nil
}

func (r *memoryRepo) HasOverlap(_ context.Context, locationID int64, from time.Time, to *time.Time) (bool, error) {
	for _, rule := range r.rules {
		if rule.LocationID != locationID {
			continue
		}
		if to != nil && !rule.EffectiveFrom.Before(*to) {
			continue
		}
		if rule.EffectiveTo != nil && !rule.EffectiveTo.After(from) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (r *memoryRepo) CreateRule(_ context.Context, rule CommissionRule) (int64, error) {
	r.nextID++
	rule.ID = r.nextID
	r.rules[rule.ID] = &rule
	return rule.ID, nil
}

func (r *memoryRepo) GetRule(_ context.Context, id int64) (*CommissionRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	copied := *rule
	return &copied, nil
}

func (r *memoryRepo) ListOverrides(_ context.Context, machineID int64) ([]PriceOverride, error) {
	var result []PriceOverride
	for _, o := range r.overrides {
		if o.MachineID == machineID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (r *memoryRepo) UpsertOverride(_ context.Context, o PriceOverride) (*PriceOverride, error) {
	key := [2]int64{o.MachineID, o.ProductID}
	if existing, ok := r.overrides[key]; ok {
		existing.PriceCents = o.PriceCents
		copied := *existing
		return &copied, nil
	}
	r.nextID++
	o.ID = r.nextID
	r.overrides[key] = &o
	copied := o
	return &copied, nil
}

func (r *memoryRepo) DeleteOverride(_ context.Context, machineID, productID int64) error {
	key := [2]int64{machineID, productID}
	if _, ok := r.overrides[key]; !ok {
		return ErrRuleNotFound
	}
	delete(r.overrides, key)
	return nil
}

func jan(day int) time.Time {
	return time.Date(2026, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestCommissionPercentOfGross(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		LocationID:    5,
		Basis:         "percent_gross",
		RateBps:       1500,
		EffectiveFrom: jan(1),
	})
	require.NoError(t, err)

	// 15% of $1,234.56 truncated to whole cents.
	amount, err := svc.CommissionFor(context.Background(), 5, jan(15), 123456)
	require.NoError(t, err)
	require.Equal(t, int64(18518), amount)
}

func TestCommissionFlatMonthlyIgnoresGross(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		LocationID:    5,
		Basis:         "flat_monthly",
		FlatCents:     20000,
		EffectiveFrom: jan(1),
	})
	require.NoError(t, err)

	amount, err := svc.CommissionFor(context.Background(), 5, jan(15), 999999)
	require.NoError(t, err)
	require.Equal(t, int64(20000), amount)
}

func TestRuleOverlapRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	end := jan(31)
	_, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		LocationID:    5,
		Basis:         "percent_gross",
		RateBps:       1000,
		EffectiveFrom: jan(1),
		EffectiveTo:   &end,
	})
	require.NoError(t, err)

	_, err = svc.CreateRule(context.Background(), CreateRuleRequest{
		LocationID:    5,
		Basis:         "percent_gross",
		RateBps:       2000,
		EffectiveFrom: jan(15),
	})
	require.ErrorIs(t, err, ErrRuleOverlap)

	// A rule starting after the first one ends is fine.
	_, err = svc.CreateRule(context.Background(), CreateRuleRequest{
		LocationID:    5,
		Basis:         "percent_gross",
		RateBps:       2000,
		EffectiveFrom: jan(31),
	})
	require.NoError(t, err)
}

func TestZeroRateRejected(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		LocationID:    5,
		Basis:         "percent_gross",
		EffectiveFrom: jan(1),
	})
	require.ErrorIs(t, err, ErrZeroRate)
}

func TestNoRuleInEffect(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.CommissionFor(context.Background(), 5, jan(15), 1000)
	require.ErrorIs(t, err, ErrRuleNotFound)
}

func TestOverrideUpsertReplacesPrice(t *testing.T) {
	svc := NewService(newMemoryRepo())

	first, err := svc.SetOverride(context.Background(), SetOverrideRequest{
		MachineID: 1, ProductID: 2, PriceCents: 250,
	})
	require.NoError(t, err)

	second, err := svc.SetOverride(context.Background(), SetOverrideRequest{
		MachineID: 1, ProductID: 2, PriceCents: 300,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int64(300), second.PriceCents)

	overrides, err := svc.ListOverrides(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
}
