// Package reports builds the operator dashboard's report surface on top of the
// rollup engine: each report fetches time-windowed rows from one source table,
// folds them by a dimension, derives ratios, and presents an ordered view.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendops/vendops/internal/platform/db"
	"github.com/vendops/vendops/internal/rollup"
)

// Source describes one report source table: the window column and the DDL
// surfaced to the operator when the table has not been provisioned yet.
type Source struct {
	Table      string
	TimeColumn string
	DDL        string
}

var sources = map[string]Source{
	"sales": {
		Table:      "sales",
		TimeColumn: "occurred_at",
		DDL: `CREATE TABLE sales (
	id BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	machine_id TEXT,
	location_id TEXT,
	product_id TEXT,
	processor TEXT,
	quantity INT NOT NULL DEFAULT 1,
	unit_price_cents BIGINT NOT NULL DEFAULT 0,
	unit_cost_cents BIGINT NOT NULL DEFAULT 0,
	fee_cents BIGINT NOT NULL DEFAULT 0,
	import_batch_id TEXT
);
CREATE INDEX idx_sales_occurred_at ON sales (occurred_at);`,
	},
	"route_stops": {
		Table:      "route_stops",
		TimeColumn: "occurred_at",
		DDL: `CREATE TABLE route_stops (
	id BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	route_id BIGINT NOT NULL,
	machine_id BIGINT,
	duration_millis BIGINT NOT NULL DEFAULT 0,
	distance_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
	stops INT NOT NULL DEFAULT 0,
	quantity INT NOT NULL DEFAULT 0,
	unit_price_cents BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX idx_route_stops_occurred_at ON route_stops (occurred_at);`,
	},
	"prospects": {
		Table:      "prospects",
		TimeColumn: "created_at",
		DDL: `CREATE TABLE prospects (
	id BIGSERIAL PRIMARY KEY,
	business_name TEXT NOT NULL,
	contact_name TEXT,
	phone TEXT,
	email TEXT,
	source TEXT,
	stage TEXT NOT NULL DEFAULT 'new',
	estimated_monthly_cents BIGINT NOT NULL DEFAULT 0,
	location_id BIGINT,
	notes TEXT,
	decided_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
}

// Fetcher pulls raw rows for the rollup engine. Rows come back schema-flexible
// so the resolver layer, not SQL, decides which columns matter.
type Fetcher struct {
	pool    *pgxpool.Pool
	maxRows int
}

func NewFetcher(pool *pgxpool.Pool, maxRows int) *Fetcher {
	return &Fetcher{pool: pool, maxRows: maxRows}
}

// Fetch returns up to maxRows records since the given instant, oldest first.
// A missing source table is reported through the capability, not an error, so
// callers can render a provisioning notice instead of failing the report.
func (f *Fetcher) Fetch(ctx context.Context, source string, since time.Time) ([]rollup.Record, db.Capability, error) {
	src, ok := sources[source]
	if !ok {
		return nil, db.Capability{}, fmt.Errorf("reports: unknown source %q", source)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s >= $1 ORDER BY %s LIMIT %d",
		src.Table, src.TimeColumn, src.TimeColumn, f.maxRows)
	rows, err := f.pool.Query(ctx, query, since)
	if err != nil {
		if db.IsUndefinedTable(err) {
			return nil, db.Capability{Table: src.Table, Present: false, SchemaDDL: src.DDL}, nil
		}
		return nil, db.Capability{}, fmt.Errorf("reports: fetch %s: %w", src.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []rollup.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, db.Capability{}, fmt.Errorf("reports: scan %s: %w", src.Table, err)
		}
		rec := make(rollup.Record, len(fields))
		for i, fd := range fields {
			rec[fd.Name] = values[i]
		}
		// Reports key windows off occurred_at regardless of the source's
		// own timestamp column name.
		if src.TimeColumn != "occurred_at" {
			rec["occurred_at"] = rec[src.TimeColumn]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Capability{}, fmt.Errorf("reports: fetch %s: %w", src.Table, err)
	}
	return records, db.Capability{Table: src.Table, Present: true}, nil
}

// Probe checks a source table without fetching rows.
func (f *Fetcher) Probe(ctx context.Context, source string) (db.Capability, error) {
	src, ok := sources[source]
	if !ok {
		return db.Capability{}, fmt.Errorf("reports: unknown source %q", source)
	}
	return db.ProbeTable(ctx, f.pool, src.Table, src.DDL)
}
