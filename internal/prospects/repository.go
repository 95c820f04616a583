package prospects

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
	Get(ctx context.Context, id int64) (*Prospect, error)
	List(ctx context.Context, req ListProspectsRequest) ([]Prospect, int, error)
	Create(ctx context.Context, p Prospect) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	CountByStage(ctx context.Context) ([]StageCount, error)
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

const prospectColumns = `id, business_name, contact_name, phone, email, source, stage,
	estimated_monthly_cents, location_id, notes, decided_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Prospect, error) {
	query := fmt.Sprintf("SELECT %s FROM prospects WHERE id = $1", prospectColumns)
	p, err := scanProspect(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, req ListProspectsRequest) ([]Prospect, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if req.Stage != nil {
		conditions = append(conditions, fmt.Sprintf("stage = $%d", argPos))
		args = append(args, string(*req.Stage))
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(business_name ILIKE $%d OR contact_name ILIKE $%d)", argPos, argPos))
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
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM prospects %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM prospects %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		prospectColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Prospect) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO prospects (business_name, contact_name, phone, email, source, stage,
			estimated_monthly_cents, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		p.BusinessName, p.ContactName, p.Phone, p.Email, p.Source, string(p.Stage),
		p.EstimatedMonthlyCents, p.Notes,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE prospects SET updated_at = NOW()"
	var args []any
	argPos := 1

	for _, col := range []string{"business_name", "contact_name", "phone", "email", "source", "stage",
		"estimated_monthly_cents", "location_id", "notes", "decided_at"} {
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

func (r *repository) CountByStage(ctx context.Context) ([]StageCount, error) {
	rows, err := r.db.Query(ctx, "SELECT stage, COUNT(*) FROM prospects GROUP BY stage")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byStage := make(map[Stage]int64)
	for rows.Next() {
		var stage string
		var count int64
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		byStage[Stage(stage)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make([]StageCount, 0, len(Stages()))
	for _, stage := range Stages() {
		counts = append(counts, StageCount{Stage: stage, Count: byStage[stage]})
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProspect(row rowScanner) (*Prospect, error) {
	var p Prospect
	var stage string
	var contact, phone, email, source, notes pgtype.Text
	var locationID pgtype.Int8
	var decidedAt pgtype.Timestamptz
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&p.ID, &p.BusinessName, &contact, &phone, &email, &source, &stage,
		&p.EstimatedMonthlyCents, &locationID, &notes, &decidedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.Stage = Stage(stage)
	if contact.Valid {
		p.ContactName = &contact.String
	}
	if phone.Valid {
		p.Phone = &phone.String
	}
	if email.Valid {
		p.Email = &email.String
	}
	if source.Valid {
		p.Source = &source.String
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	if locationID.Valid {
		p.LocationID = &locationID.Int64
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		p.DecidedAt = &t
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}
