package pricing

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateRule(ctx context.Context, req CreateRuleRequest) (*CommissionRule, error) {
	basis := CommissionBasis(req.Basis)
	if !basis.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBasis, req.Basis)
	}
	switch basis {
	case BasisPercentGross:
		if req.RateBps <= 0 {
			return nil, ErrZeroRate
		}
	case BasisFlatMonthly:
		if req.FlatCents <= 0 {
			return nil, ErrZeroRate
		}
	}

	overlap, err := s.repo.HasOverlap(ctx, req.LocationID, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlap {
		return nil, ErrRuleOverlap
	}

	id, err := s.repo.CreateRule(ctx, CommissionRule{
		LocationID:    req.LocationID,
		Basis:         basis,
		RateBps:       req.RateBps,
		FlatCents:     req.FlatCents,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	})
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return s.repo.GetRule(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, locationID int64) ([]CommissionRule, error) {
	return s.repo.ListRules(ctx, locationID)
}

// CommissionFor computes the venue payout for one month of sales at a
// location. Percent rules apply basis points to gross; flat rules ignore
// gross entirely. Integer cents in, integer cents out.
func (s *Service) CommissionFor(ctx context.Context, locationID int64, at time.Time, grossCents int64) (int64, error) {
	rule, err := s.repo.RuleAt(ctx, locationID, at)
	if err != nil {
		return 0, err
	}
	return CommissionAmount(rule, grossCents), nil
}

// CommissionAmount applies a rule to a gross total. Basis points divide by
// 10000 with truncation toward zero, matching how settlements round payouts.
func CommissionAmount(rule *CommissionRule, grossCents int64) int64 {
	switch rule.Basis {
	case BasisPercentGross:
		return grossCents * rule.RateBps / 10_000
	case BasisFlatMonthly:
		return rule.FlatCents
	}
	return 0
}

func (s *Service) ListOverrides(ctx context.Context, machineID int64) ([]PriceOverride, error) {
	return s.repo.ListOverrides(ctx, machineID)
}

func (s *Service) SetOverride(ctx context.Context, req SetOverrideRequest) (*PriceOverride, error) {
	o, err := s.repo.UpsertOverride(ctx, PriceOverride{
		MachineID:  req.MachineID,
		ProductID:  req.ProductID,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		return nil, fmt.Errorf("set override: %w", err)
	}
	return o, nil
}

func (s *Service) RemoveOverride(ctx context.Context, machineID, productID int64) error {
	return s.repo.DeleteOverride(ctx, machineID, productID)
}
