package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListRules(ctx context.Context, locationID int64) ([]CommissionRule, error)
	RuleAt(ctx context.Context, locationID int64, at time.Time) (*CommissionRule, error)
	HasOverlap(ctx context.Context, locationID int64, from time.Time, to *time.Time) (bool, error)
	CreateRule(ctx context.Context, rule CommissionRule) (int64, error)
	GetRule(ctx context.Context, id int64) (*CommissionRule, error)
	ListOverrides(ctx context.Context, machineID int64) ([]PriceOverride, error)
	UpsertOverride(ctx context.Context, o PriceOverride) (*PriceOverride, error)
	DeleteOverride(ctx context.Context, machineID, productID int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const ruleColumns = "id, location_id, basis, rate_bps, flat_cents, effective_from, effective_to, created_at"

func (r *repository) ListRules(ctx context.Context, locationID int64) ([]CommissionRule, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+ruleColumns+" FROM commission_rules WHERE location_id = $1 ORDER BY effective_from DESC",
		locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CommissionRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

// RuleAt finds the rule in effect at a point in time. An open-ended rule
// (effective_to NULL) covers everything from its start onward.
func (r *repository) RuleAt(ctx context.Context, locationID int64, at time.Time) (*CommissionRule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM commission_rules
		WHERE location_id = $1 AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to > $2)
		ORDER BY effective_from DESC
		LIMIT 1`,
		locationID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (r *repository) HasOverlap(ctx context.Context, locationID int64, from time.Time, to *time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM commission_rules
			WHERE location_id = $1
			  AND effective_from < COALESCE($3::timestamptz, 'infinity'::timestamptz)
			  AND COALESCE(effective_to, 'infinity'::timestamptz) > $2
		)`,
		locationID, from, to).Scan(&exists)
	return exists, err
}

func (r *repository) CreateRule(ctx context.Context, rule CommissionRule) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO commission_rules (location_id, basis, rate_bps, flat_cents, effective_from, effective_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		rule.LocationID, rule.Basis, rule.RateBps, rule.FlatCents, rule.EffectiveFrom, rule.EffectiveTo,
	).Scan(&id)
	return id, err
}

func (r *repository) GetRule(ctx context.Context, id int64) (*CommissionRule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx,
		"SELECT "+ruleColumns+" FROM commission_rules WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

const overrideColumns = "id, machine_id, product_id, price_cents, created_at, updated_at"

func (r *repository) ListOverrides(ctx context.Context, machineID int64) ([]PriceOverride, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+overrideColumns+" FROM price_overrides WHERE machine_id = $1 ORDER BY product_id",
		machineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriceOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	return result, rows.Err()
}

func (r *repository) UpsertOverride(ctx context.Context, o PriceOverride) (*PriceOverride, error) {
	return scanOverride(r.db.QueryRow(ctx, `
		INSERT INTO price_overrides (machine_id, product_id, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (machine_id, product_id)
		DO UPDATE SET price_cents = EXCLUDED.price_cents, updated_at = NOW()
		RETURNING `+overrideColumns,
		o.MachineID, o.ProductID, o.PriceCents))
}

func (r *repository) DeleteOverride(ctx context.Context, machineID, productID int64) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM price_overrides WHERE machine_id = $1 AND product_id = $2",
		machineID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*CommissionRule, error) {
	var rule CommissionRule
	var effectiveTo pgtype.Timestamptz
	var createdAt pgtype.Timestamptz
	err := row.Scan(&rule.ID, &rule.LocationID, &rule.Basis, &rule.RateBps,
		&rule.FlatCents, &rule.EffectiveFrom, &effectiveTo, &createdAt)
	if err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		to := effectiveTo.Time
		rule.EffectiveTo = &to
	}
	if createdAt.Valid {
		rule.CreatedAt = createdAt.Time
	}
	return &rule, nil
}

func scanOverride(row rowScanner) (*PriceOverride, error) {
	var o PriceOverride
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&o.ID, &o.MachineID, &o.ProductID, &o.PriceCents, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	return &o, nil
}
