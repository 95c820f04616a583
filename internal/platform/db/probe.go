package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// undefinedTable is the postgres error code raised when a relation is missing.
const undefinedTable = "42P01"

// Capability reports whether a source table is provisioned. When absent, the
// provisioning DDL travels with the result so the caller can surface it; a
// missing table is a notice, never a hard failure.
type Capability struct {
	Table     string `json:"table"`
	Present   bool   `json:"present"`
	SchemaDDL string `json:"schema_ddl,omitempty"`
}

// Querier is the minimal query surface shared by pools and transactions.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IsUndefinedTable reports whether err signals a missing relation.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// ProbeTable checks the catalog for a table and attaches ddl when it is absent.
func ProbeTable(ctx context.Context, q Querier, table, ddl string) (Capability, error) {
	var regclass *string
	if err := q.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&regclass); err != nil {
		return Capability{}, fmt.Errorf("platform/db: probe %s: %w", table, err)
	}
	if regclass == nil {
		return Capability{Table: table, Present: false, SchemaDDL: ddl}, nil
	}
	return Capability{Table: table, Present: true}, nil
}
