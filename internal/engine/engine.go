// Package engine runs catalog snapshots and read queries against the
// configured target database. Every operation opens its own connection and
// closes it before returning; there is no pooling or cross-call reuse.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/db"
	"github.com/askdb/askdb/internal/introspect"
	"github.com/askdb/askdb/internal/schema"
)

type Engine struct {
	driver db.Driver
	dsn    string
	open   func(ctx context.Context) (*sql.DB, error)
}

func New(driver db.Driver, dsn string) *Engine {
	e := &Engine{driver: driver, dsn: dsn}
	e.open = func(ctx context.Context) (*sql.DB, error) {
		return db.Open(ctx, driver, dsn)
	}
	return e
}

func (e *Engine) Driver() db.Driver {
	return e.driver
}

// Snapshot re-scans the live catalog. Callers hold the result for as long as
// they want a stable view.
func (e *Engine) Snapshot(ctx context.Context) (schema.Model, error) {
	conn, err := e.open(ctx)
	if err != nil {
		return schema.Model{}, err
	}
	defer func() { _ = conn.Close() }()
	return introspect.Snapshot(ctx, conn, e.driver)
}

// Query executes opaque SQL text and shapes the result as a column list plus
// one column-to-value mapping per row, in result order. The column list is empty
// when the statement returns no result set.
func (e *Engine) Query(ctx context.Context, sqlText string) ([]string, []map[string]any, error) {
	conn, err := e.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(map[string]any, len(columns))
		for i, column := range columns {
			record[column] = normalizeValue(values[i])
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, data, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}
