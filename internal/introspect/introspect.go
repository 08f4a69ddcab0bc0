// Package introspect reads the live engine catalog and produces the schema
// snapshot used for prompt grounding. Nothing is cached here: every call
// re-scans the catalog, and the caller decides how long to hold the result.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/db"
	"github.com/askdb/askdb/internal/schema"
)

type catalog interface {
	tables(ctx context.Context, conn *sql.DB) ([]string, error)
	table(ctx context.Context, conn *sql.DB, name string) (schema.Table, error)
}

func catalogFor(driver db.Driver) catalog {
	switch driver {
	case db.DriverPostgres:
		return postgresCatalog{}
	case db.DriverDuckDB:
		return duckdbCatalog{}
	default:
		return sqliteCatalog{}
	}
}

// Snapshot enumerates user tables and reads column, key and row-count
// metadata for each. A table dropped mid-scan surfaces as an error rather
// than a partial snapshot.
func Snapshot(ctx context.Context, conn *sql.DB, driver db.Driver) (schema.Model, error) {
	cat := catalogFor(driver)

	names, err := cat.tables(ctx, conn)
	if err != nil {
		return schema.Model{}, fmt.Errorf("enumerate tables: %w", err)
	}

	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		table, err := cat.table(ctx, conn, name)
		if err != nil {
			return schema.Model{}, fmt.Errorf("introspect table %q: %w", name, err)
		}
		tables = append(tables, table)
	}

	return schema.Model{
		Tables:        tables,
		Relationships: schema.DeriveRelationships(tables),
	}, nil
}

func rowCount(ctx context.Context, conn *sql.DB, table string) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM " + db.QuoteIdent(table)
	if err := conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
