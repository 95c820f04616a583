package machines

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Machine, error)
	GetByCode(ctx context.Context, code string) (*Machine, error)
	List(ctx context.Context, req ListMachinesRequest) ([]Machine, int, error)
	Create(ctx context.Context, m Machine) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	AcquisitionCosts(ctx context.Context) (map[string]int64, error)
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

const machineColumns = "id, code, model, location_id, acquisition_cost_cents, status, installed_at, created_at, updated_at"

func (r *repository) Get(ctx context.Context, id int64) (*Machine, error) {
	query := fmt.Sprintf("SELECT %s FROM machines WHERE id = $1", machineColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Machine, error) {
	query := fmt.Sprintf("SELECT %s FROM machines WHERE code = $1", machineColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, code))
}

func (r *repository) scanOne(row pgx.Row) (*Machine, error) {
	m, err := scanMachine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *repository) List(ctx context.Context, req ListMachinesRequest) ([]Machine, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", argPos))
		args = append(args, *req.LocationID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = "WHERE " + cond
			continue
		}
		whereClause += " AND " + cond
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM machines %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM machines %s ORDER BY code LIMIT $%d OFFSET $%d",
		machineColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *m)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, m Machine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO machines (code, model, location_id, acquisition_cost_cents, status, installed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		m.Code, m.Model, m.LocationID, m.AcquisitionCostCents, string(m.Status), m.InstalledAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCode
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE machines SET updated_at = NOW()"
	var args []any
	argPos := 1

	for _, col := range []string{"model", "location_id", "acquisition_cost_cents", "status", "installed_at"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AcquisitionCosts returns acquisition cost per machine id, keyed the same way
// sales rows key machines, for the ROI report's payback derivation.
func (r *repository) AcquisitionCosts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT id::text, acquisition_cost_cents FROM machines")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	costs := make(map[string]int64)
	for rows.Next() {
		var key string
		var cents int64
		if err := rows.Scan(&key, &cents); err != nil {
			return nil, err
		}
		costs[key] = cents
	}
	return costs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner) (*Machine, error) {
	var m Machine
	var status string
	var locationID pgtype.Int8
	var installedAt, createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&m.ID, &m.Code, &m.Model, &locationID, &m.AcquisitionCostCents,
		&status, &installedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Status = Status(status)
	if locationID.Valid {
		m.LocationID = &locationID.Int64
	}
	if installedAt.Valid {
		t := installedAt.Time
		m.InstalledAt = &t
	}
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		m.UpdatedAt = updatedAt.Time
	}
	return &m, nil
}
