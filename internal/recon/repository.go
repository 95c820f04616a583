package recon

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
	InsertSettlement(ctx context.Context, s Settlement) (int64, error)
	ListSettlements(ctx context.Context, from, to time.Time) ([]Settlement, error)
	SalesTotals(ctx context.Context, from, to time.Time) (map[DayKey]int64, error)
	SettlementTotals(ctx context.Context, from, to time.Time) (map[DayKey]int64, error)
}

// DayKey identifies one processor on one UTC day.
type DayKey struct {
	Processor string
	Day       time.Time
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

func (r *repository) InsertSettlement(ctx context.Context, s Settlement) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO settlements (processor, settled_on, gross_cents, fee_cents, net_cents, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		s.Processor, s.SettledOn, s.GrossCents, s.FeeCents, s.NetCents, s.Reference,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateReference
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) ListSettlements(ctx context.Context, from, to time.Time) ([]Settlement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, processor, settled_on, gross_cents, fee_cents, net_cents, reference, created_at
		FROM settlements
		WHERE settled_on >= $1 AND settled_on < $2
		ORDER BY settled_on, processor`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Settlement
	for rows.Next() {
		var s Settlement
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&s.ID, &s.Processor, &s.SettledOn, &s.GrossCents,
			&s.FeeCents, &s.NetCents, &s.Reference, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			s.CreatedAt = createdAt.Time
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// SalesTotals sums gross sale amounts per processor per UTC day.
func (r *repository) SalesTotals(ctx context.Context, from, to time.Time) (map[DayKey]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT processor, date_trunc('day', occurred_at AT TIME ZONE 'UTC'),
		       COALESCE(SUM(quantity * unit_price_cents), 0)
		FROM sales
		WHERE occurred_at >= $1 AND occurred_at < $2 AND processor IS NOT NULL
		GROUP BY 1, 2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTotals(rows)
}

func (r *repository) SettlementTotals(ctx context.Context, from, to time.Time) (map[DayKey]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT processor, date_trunc('day', settled_on), COALESCE(SUM(gross_cents), 0)
		FROM settlements
		WHERE settled_on >= $1 AND settled_on < $2
		GROUP BY 1, 2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTotals(rows)
}

func scanTotals(rows pgx.Rows) (map[DayKey]int64, error) {
	totals := make(map[DayKey]int64)
	for rows.Next() {
		var processor string
		var day time.Time
		var cents int64
		if err := rows.Scan(&processor, &day, &cents); err != nil {
			return nil, err
		}
		totals[DayKey{Processor: processor, Day: day.UTC()}] = cents
	}
	return totals, rows.Err()
}
