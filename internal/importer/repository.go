package importer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// InsertSales copies one chunk into the sales table. CopyFrom keeps large
// imports off the single-insert path.
func (r *repository) InsertSales(ctx context.Context, batchID string, rows []SaleRow) error {
	source := make([][]any, 0, len(rows))
	for _, row := range rows {
		source = append(source, []any{
			row.OccurredAt,
			nullable(row.MachineID),
			nullable(row.LocationID),
			nullable(row.ProductID),
			nullable(row.Processor),
			row.Quantity,
			row.UnitPriceCents,
			row.UnitCostCents,
			row.FeeCents,
			batchID,
		})
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"sales"},
		[]string{"occurred_at", "machine_id", "location_id", "product_id", "processor",
			"quantity", "unit_price_cents", "unit_cost_cents", "fee_cents", "import_batch_id"},
		pgx.CopyFromRows(source))
	if err != nil {
		return fmt.Errorf("copy sales: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
