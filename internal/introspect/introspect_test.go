package introspect

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/askdb/askdb/internal/db"
	"github.com/askdb/askdb/internal/schema"
)

func TestSnapshotSQLite(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(sqliteTablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("customers").
			AddRow("orders"))

	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("customers")`)).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "id", "INTEGER", 1, nil, 1).
			AddRow(1, "name", "TEXT", 1, nil, 0).
			AddRow(2, "tier", "TEXT", 0, "'basic'", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA foreign_key_list("customers")`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "customers"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("orders")`)).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "id", "INTEGER", 1, nil, 1).
			AddRow(1, "customer_id", "INTEGER", 1, nil, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA foreign_key_list("orders")`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"}).
			AddRow(0, 0, "customers", "customer_id", "id", "NO ACTION", "NO ACTION", "NONE"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

	model, err := Snapshot(context.Background(), conn, db.DriverSQLite)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if len(model.Tables) != 2 {
		t.Fatalf("len(Tables) = %d", len(model.Tables))
	}
	customers := model.Tables[0]
	if customers.Name != "customers" || customers.RowCount != 3 {
		t.Fatalf("customers = %+v", customers)
	}
	if len(customers.Columns) != 3 {
		t.Fatalf("len(customers.Columns) = %d", len(customers.Columns))
	}
	if !customers.Columns[0].PrimaryKey || customers.Columns[0].Nullable {
		t.Fatalf("id column = %+v", customers.Columns[0])
	}
	if customers.Columns[2].Default == nil || *customers.Columns[2].Default != "'basic'" {
		t.Fatalf("tier default = %v", customers.Columns[2].Default)
	}
	if len(customers.PrimaryKeys) != 1 || customers.PrimaryKeys[0] != "id" {
		t.Fatalf("customers.PrimaryKeys = %v", customers.PrimaryKeys)
	}

	orders := model.Tables[1]
	if len(orders.ForeignKeys) != 1 {
		t.Fatalf("orders.ForeignKeys = %v", orders.ForeignKeys)
	}
	fk := orders.ForeignKeys[0]
	if fk.Column != "customer_id" || fk.ReferencesTable != "customers" || fk.ReferencesColumn != "id" {
		t.Fatalf("fk = %+v", fk)
	}

	if len(model.Relationships) != 1 {
		t.Fatalf("Relationships = %v", model.Relationships)
	}
	rel := model.Relationships[0]
	if rel.FromTable != "orders" || rel.ToTable != "customers" || rel.Type != schema.RelationshipManyToOne {
		t.Fatalf("relationship = %+v", rel)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestSnapshotPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(postgresTablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("invoices"))
	mock.ExpectQuery(regexp.QuoteMeta(postgresPrimaryKeysQuery)).
		WithArgs("invoices").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery(regexp.QuoteMeta(postgresColumnsQuery)).
		WithArgs("invoices").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("id", "bigint", "NO", nil).
			AddRow("total", "numeric", "YES", "0"))
	mock.ExpectQuery(regexp.QuoteMeta(postgresForeignKeysQuery)).
		WithArgs("invoices").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "table_name", "column_name"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "invoices"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	model, err := Snapshot(context.Background(), conn, db.DriverPostgres)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(model.Tables) != 1 {
		t.Fatalf("len(Tables) = %d", len(model.Tables))
	}
	invoices := model.Tables[0]
	if !invoices.Columns[0].PrimaryKey {
		t.Fatal("id should be flagged primary key")
	}
	if invoices.Columns[1].Default == nil || *invoices.Columns[1].Default != "0" {
		t.Fatalf("total default = %v", invoices.Columns[1].Default)
	}
	if invoices.RowCount != 12 {
		t.Fatalf("RowCount = %d", invoices.RowCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestSnapshotSurfacesCatalogFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(sqliteTablesQuery)).
		WillReturnError(errors.New("database is locked"))

	if _, err := Snapshot(context.Background(), conn, db.DriverSQLite); err == nil {
		t.Fatal("Snapshot() expected error when catalog is unreachable")
	}
}

func TestSnapshotSurfacesTableDroppedMidScan(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(sqliteTablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("gone"))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("gone")`)).
		WillReturnError(errors.New("no such table: gone"))

	if _, err := Snapshot(context.Background(), conn, db.DriverSQLite); err == nil {
		t.Fatal("Snapshot() expected error when a table vanishes mid-scan")
	}
}
