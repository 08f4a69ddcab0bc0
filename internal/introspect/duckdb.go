package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/schema"
)

type duckdbCatalog struct{}

const duckdbTablesQuery = `
SELECT table_name FROM information_schema.tables
WHERE table_schema = 'main' AND table_type = 'BASE TABLE'
ORDER BY table_name`

const duckdbColumnsQuery = `
SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = 'main' AND table_name = ?
ORDER BY ordinal_position`

const duckdbPrimaryKeysQuery = `
SELECT unnest(constraint_column_names) AS column_name
FROM duckdb_constraints()
WHERE schema_name = 'main' AND table_name = ? AND constraint_type = 'PRIMARY KEY'`

// List columns are indexed so the values scan as scalars through
// database/sql. Composite foreign keys collapse to their first column.
const duckdbForeignKeysQuery = `
SELECT constraint_column_names[1] AS column_name,
       referenced_table,
       referenced_column_names[1] AS referenced_column
FROM duckdb_constraints()
WHERE schema_name = 'main' AND table_name = ? AND constraint_type = 'FOREIGN KEY'`

func (duckdbCatalog) tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, duckdbTablesQuery)
	if err != nil {
		return nil, err
	}
	return scanNames(rows)
}

func (c duckdbCatalog) table(ctx context.Context, conn *sql.DB, name string) (schema.Table, error) {
	table := schema.Table{Name: name}

	primaryKeys, err := c.primaryKeys(ctx, conn, name)
	if err != nil {
		return schema.Table{}, fmt.Errorf("read primary keys: %w", err)
	}
	table.PrimaryKeys = primaryKeys

	columns, err := c.columns(ctx, conn, name, primaryKeys)
	if err != nil {
		return schema.Table{}, fmt.Errorf("read columns: %w", err)
	}
	table.Columns = columns

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

func (duckdbCatalog) columns(ctx context.Context, conn *sql.DB, name string, primaryKeys []string) ([]schema.Column, error) {
	rows, err := conn.QueryContext(ctx, duckdbColumnsQuery, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pkSet := map[string]bool{}
	for _, key := range primaryKeys {
		pkSet[key] = true
	}

	var columns []schema.Column
	for rows.Next() {
		var colName, dataType, nullable string
		var defaultValue sql.NullString
		if err := rows.Scan(&colName, &dataType, &nullable, &defaultValue); err != nil {
			return nil, err
		}
		column := schema.Column{
			Name:       colName,
			Type:       dataType,
			Nullable:   nullable == "YES",
			PrimaryKey: pkSet[colName],
		}
		if defaultValue.Valid {
			column.Default = &defaultValue.String
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func (duckdbCatalog) primaryKeys(ctx context.Context, conn *sql.DB, name string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, duckdbPrimaryKeysQuery, name)
	if err != nil {
		return nil, err
	}
	return scanNames(rows)
}

func (duckdbCatalog) foreignKeys(ctx context.Context, conn *sql.DB, name string) ([]schema.ForeignKey, error) {
	rows, err := conn.QueryContext(ctx, duckdbForeignKeysQuery, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var column, referencedTable string
		var referencedColumn sql.NullString
		if err := rows.Scan(&column, &referencedTable, &referencedColumn); err != nil {
			return nil, err
		}
		foreignKeys = append(foreignKeys, schema.ForeignKey{
			Column:           column,
			ReferencesTable:  referencedTable,
			ReferencesColumn: referencedColumn.String,
		})
	}
	return foreignKeys, rows.Err()
}
