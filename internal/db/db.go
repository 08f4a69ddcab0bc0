// Package db owns the supported engine drivers and the short-lived
// connection lifecycle. Every catalog scan and query execution opens its own
// connection and closes it within the call; there is no pooling across
// calls.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"
)

// Driver identifies the configured target engine. One deployment targets
// exactly one engine; the generated SQL dialect follows it.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverDuckDB   Driver = "duckdb"
)

func ParseDriver(raw string) (Driver, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(raw))) {
	case DriverSQLite:
		return DriverSQLite, nil
	case DriverPostgres:
		return DriverPostgres, nil
	case DriverDuckDB:
		return DriverDuckDB, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", raw)
	}
}

// DialectName is the engine name as written into the LLM policy prompt.
func (d Driver) DialectName() string {
	switch d {
	case DriverPostgres:
		return "PostgreSQL"
	case DriverDuckDB:
		return "DuckDB"
	default:
		return "SQLite"
	}
}

func (d Driver) sqlDriverName() string {
	switch d {
	case DriverPostgres:
		return "pgx"
	case DriverDuckDB:
		return "duckdb"
	default:
		return "sqlite3"
	}
}

// Open opens and pings a connection for one call. Callers own the returned
// handle and must close it before returning.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	handle, err := sql.Open(driver.sqlDriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	return handle, nil
}

// QuoteIdent wraps an identifier in double quotes, escaping embedded quotes.
// All three supported engines accept this form.
func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
