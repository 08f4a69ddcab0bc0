package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdb/askdb/internal/schema"
)

type postgresCatalog struct{}

const postgresTablesQuery = `
SELECT table_name FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

const postgresColumnsQuery = `
SELECT column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`

const postgresPrimaryKeysQuery = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = 'public'
  AND tc.table_name = $1
  AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.ordinal_position`

const postgresForeignKeysQuery = `
SELECT kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name
 AND tc.table_schema = ccu.table_schema
WHERE tc.table_schema = 'public'
  AND tc.table_name = $1
  AND tc.constraint_type = 'FOREIGN KEY'
ORDER BY kcu.ordinal_position`

func (postgresCatalog) tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, postgresTablesQuery)
	if err != nil {
		return nil, err
	}
	return scanNames(rows)
}

func (c postgresCatalog) table(ctx context.Context, conn *sql.DB, name string) (schema.Table, error) {
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

func (postgresCatalog) columns(ctx context.Context, conn *sql.DB, name string, primaryKeys []string) ([]schema.Column, error) {
	rows, err := conn.QueryContext(ctx, postgresColumnsQuery, name)
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

func (postgresCatalog) primaryKeys(ctx context.Context, conn *sql.DB, name string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, postgresPrimaryKeysQuery, name)
	if err != nil {
		return nil, err
	}
	return scanNames(rows)
}

func (postgresCatalog) foreignKeys(ctx context.Context, conn *sql.DB, name string) ([]schema.ForeignKey, error) {
	rows, err := conn.QueryContext(ctx, postgresForeignKeysQuery, name)
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
