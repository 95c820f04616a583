package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendops/vendops/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	CreateProduct(ctx context.Context, p Product) (int64, error)
	GetSlot(ctx context.Context, id int64) (*Slot, error)
	ListSlots(ctx context.Context, machineID int64) ([]Slot, error)
	CreateSlot(ctx context.Context, s Slot) (int64, error)
	ListLowStock(ctx context.Context) ([]LowStockItem, error)
	StockLevels(ctx context.Context) (map[string]int64, error)
}

// TxRepository is the mutation surface available inside a restock transaction.
type TxRepository interface {
	GetSlotForUpdate(ctx context.Context, id int64) (*Slot, error)
	SetSlotLevel(ctx context.Context, id int64, level int) error
	InsertRestockEvent(ctx context.Context, ev RestockEvent) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx})
	})
}

const productColumns = "id, sku, name, unit_price_cents, unit_cost_cents, is_active, created_at, updated_at"

func (r *repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return scanProductRow(r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
}

func (r *repository) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	return scanProductRow(r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE sku = $1", sku))
}

func scanProductRow(row pgx.Row) (*Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := "SELECT " + productColumns + " FROM products"
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY sku"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *repository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (sku, name, unit_price_cents, unit_cost_cents, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		p.SKU, p.Name, p.UnitPriceCents, p.UnitCostCents, p.IsActive,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateSKU
		}
		return 0, err
	}
	return id, nil
}

const slotColumns = "id, machine_id, code, product_id, capacity, current_level, par_level, updated_at"

func (r *repository) GetSlot(ctx context.Context, id int64) (*Slot, error) {
	s, err := scanSlot(r.db.QueryRow(ctx, "SELECT "+slotColumns+" FROM machine_slots WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *repository) ListSlots(ctx context.Context, machineID int64) ([]Slot, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+slotColumns+" FROM machine_slots WHERE machine_id = $1 ORDER BY code", machineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *repository) CreateSlot(ctx context.Context, s Slot) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO machine_slots (machine_id, code, product_id, capacity, current_level, par_level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		s.MachineID, s.Code, s.ProductID, s.Capacity, s.CurrentLevel, s.ParLevel,
	).Scan(&id)
	return id, err
}

func (r *repository) ListLowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.code, s.machine_id, m.code, s.product_id, p.sku, s.current_level, s.par_level
		FROM machine_slots s
		JOIN machines m ON m.id = s.machine_id
		JOIN products p ON p.id = s.product_id
		WHERE s.current_level <= s.par_level
		ORDER BY m.code, s.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LowStockItem
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.SlotID, &item.SlotCode, &item.MachineID, &item.MachineCode,
			&item.ProductID, &item.SKU, &item.CurrentLevel, &item.ParLevel); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// StockLevels sums current levels per product id, keyed the same way sales
// rows key products, for the velocity report's days-of-stock derivation.
func (r *repository) StockLevels(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx,
		"SELECT product_id::text, COALESCE(SUM(current_level), 0) FROM machine_slots GROUP BY product_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make(map[string]int64)
	for rows.Next() {
		var key string
		var level int64
		if err := rows.Scan(&key, &level); err != nil {
			return nil, err
		}
		levels[key] = level
	}
	return levels, rows.Err()
}

type txRepository struct {
	db dbtx
}

func (t *txRepository) GetSlotForUpdate(ctx context.Context, id int64) (*Slot, error) {
	s, err := scanSlot(t.db.QueryRow(ctx,
		"SELECT "+slotColumns+" FROM machine_slots WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return s, nil
}

func (t *txRepository) SetSlotLevel(ctx context.Context, id int64, level int) error {
	_, err := t.db.Exec(ctx,
		"UPDATE machine_slots SET current_level = $1, updated_at = NOW() WHERE id = $2", level, id)
	return err
}

func (t *txRepository) InsertRestockEvent(ctx context.Context, ev RestockEvent) (int64, error) {
	var id int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO restock_events (reference, machine_id, slot_id, product_id, quantity, operator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		ev.Reference, ev.MachineID, ev.SlotID, ev.ProductID, ev.Quantity, ev.Operator,
	).Scan(&id)
	return id, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPriceCents, &p.UnitCostCents,
		&p.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}

func scanSlot(row rowScanner) (*Slot, error) {
	var s Slot
	var updatedAt pgtype.Timestamptz
	err := row.Scan(&s.ID, &s.MachineID, &s.Code, &s.ProductID, &s.Capacity,
		&s.CurrentLevel, &s.ParLevel, &updatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	return &s, nil
}
