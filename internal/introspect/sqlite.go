package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/db"
	"github.com/askdb/askdb/internal/schema"
)

type sqliteCatalog struct{}

const sqliteTablesQuery = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

func (sqliteCatalog) tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, sqliteTablesQuery)
	if err != nil {
		return nil, err
	}
	return scanNames(rows)
}

func (c sqliteCatalog) table(ctx context.Context, conn *sql.DB, name string) (schema.Table, error) {
	table := schema.Table{Name: name}

	columns, primaryKeys, err := c.columns(ctx, conn, name)
	if err != nil {
		return schema.Table{}, fmt.Errorf("read columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKeys = primaryKeys

	foreignKeys, err := c.foreignKeys(ctx, conn, name)
	if err != nil {
		return schema.Table{}, fmt.Errorf("read foreign keys: %w", err)
	}
	table.ForeignKeys = foreignKeys

	count, err := rowCount(ctx, conn, name)
	if err != nil {
		return schema.Table{}, err
	}
	table.RowCount = count
	return table, nil
}

func (sqliteCatalog) columns(ctx context.Context, conn *sql.DB, name string) ([]schema.Column, []string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", db.QuoteIdent(name)))
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []schema.Column
	var primaryKeys []string
	for rows.Next() {
		var cid, notNull, pk int
		var colName, colType string
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}
		column := schema.Column{
			Name:       colName,
			Type:       colType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		}
		if defaultValue.Valid {
			column.Default = &defaultValue.String
		}
		columns = append(columns, column)
		if pk > 0 {
			primaryKeys = append(primaryKeys, colName)
		}
	}
	return columns, primaryKeys, rows.Err()
}

func (sqliteCatalog) foreignKeys(ctx context.Context, conn *sql.DB, name string) ([]schema.ForeignKey, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", db.QuoteIdent(name)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var id, seq int
		var referencedTable, fromColumn string
		var toColumn sql.NullString
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &referencedTable, &fromColumn, &toColumn, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		foreignKeys = append(foreignKeys, schema.ForeignKey{
			Column:           fromColumn,
			ReferencesTable:  referencedTable,
			ReferencesColumn: toColumn.String,
		})
	}
	return foreignKeys, rows.Err()
}
