package locations

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
	Get(ctx context.Context, id int64) (*Location, error)
	List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error)
	Create(ctx context.Context, l Location) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
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

const locationColumns = "id, name, address, city, foot_traffic, is_active, notes, created_at, updated_at"

func (r *repository) Get(ctx context.Context, id int64) (*Location, error) {
	query := fmt.Sprintf("SELECT %s FROM locations WHERE id = $1", locationColumns)
	l, err := scanLocation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *repository) List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR city ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
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
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM locations %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM locations %s ORDER BY name LIMIT $%d OFFSET $%d",
		locationColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *l)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, l Location) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO locations (name, address, city, foot_traffic, is_active, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		l.Name, l.Address, l.City, l.FootTraffic, l.IsActive, l.Notes,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE locations SET updated_at = NOW()"
	var args []any
	argPos := 1

	for _, col := range []string{"name", "address", "city", "foot_traffic", "is_active", "notes"} {
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*Location, error) {
	var l Location
	var address, city, notes pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&l.ID, &l.Name, &address, &city, &l.FootTraffic, &l.IsActive, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if address.Valid {
		l.Address = &address.String
	}
	if city.Valid {
		l.City = &city.String
	}
	if notes.Valid {
		l.Notes = &notes.String
	}
	if createdAt.Valid {
		l.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		l.UpdatedAt = updatedAt.Time
	}
	return &l, nil
}
