package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Ticket, error)
	List(ctx context.Context, filter ListFilter) ([]Ticket, error)
	Create(ctx context.Context, t Ticket) (int64, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
}

// ListFilter narrows ticket listings; zero values mean no filtering.
type ListFilter struct {
	MachineID int64
	Status    Status
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

const ticketColumns = "id, code, machine_id, title, description, priority, status, assignee, closed_at, created_at, updated_at"

func (r *repository) Get(ctx context.Context, id int64) (*Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Ticket, error) {
	query := "SELECT " + ticketColumns + " FROM tickets"
	var conds []string
	var args []any
	if filter.MachineID > 0 {
		args = append(args, filter.MachineID)
		conds = append(conds, fmt.Sprintf("machine_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, t Ticket) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO tickets (code, machine_id, title, description, priority, status, assignee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`,
		t.Code, t.MachineID, t.Title, t.Description, t.Priority, t.Status, t.Assignee,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for col, val := range fields {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	tag, err := r.db.Exec(ctx,
		fmt.Sprintf("UPDATE tickets SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)),
		args...)
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

func scanTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var assignee pgtype.Text
	var closedAt, createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&t.ID, &t.Code, &t.MachineID, &t.Title, &t.Description,
		&t.Priority, &t.Status, &assignee, &closedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		t.Assignee = assignee.String
	}
	if closedAt.Valid {
		closed := closedAt.Time
		t.ClosedAt = &closed
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		t.UpdatedAt = updatedAt.Time
	}
	return &t, nil
}
