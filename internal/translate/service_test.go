package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/schema"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
	last     llm.Request
}

func (p *fakeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.calls++
	p.last = req
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

type fakeDatabase struct {
	model    schema.Model
	modelErr error
	columns  []string
	rows     []map[string]any
	queryErr error
	lastSQL  string
}

func (d *fakeDatabase) Snapshot(context.Context) (schema.Model, error) {
	return d.model, d.modelErr
}

func (d *fakeDatabase) Query(_ context.Context, sqlText string) ([]string, []map[string]any, error) {
	d.lastSQL = sqlText
	if d.queryErr != nil {
		return nil, nil, d.queryErr
	}
	return d.columns, d.rows, nil
}

func testModel() schema.Model {
	return schema.Model{Tables: []schema.Table{{
		Name:    "customers",
		Columns: []schema.Column{{Name: "id", Type: "INTEGER", PrimaryKey: true}},
	}}}
}

func newTestService(t *testing.T, provider *fakeProvider, database *fakeDatabase, store *cache.Store) *Service {
	t.Helper()
	svc, err := New(context.Background(), Options{
		Database: database,
		Provider: provider,
		Cache:    store,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

func tempStore(t *testing.T) *cache.Store {
	t.Helper()
	backend, err := cache.NewFileBackend(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	return cache.NewStore(backend, cache.Config{})
}

func TestTranslateStripsFencesAndCaches(t *testing.T) {
	provider := &fakeProvider{response: "```sql\nSELECT name FROM customers\n```"}
	database := &fakeDatabase{model: testModel()}
	svc := newTestService(t, provider, database, tempStore(t))

	result, err := svc.Translate(context.Background(), "  List Customer Names ", true)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT name FROM customers" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Cached {
		t.Fatal("first translation should not be marked cached")
	}
	if provider.last.Temperature != 0.1 || provider.last.MaxTokens != 500 {
		t.Fatalf("request bounds = %+v", provider.last)
	}

	// Same question modulo case and whitespace replays from cache.
	again, err := svc.Translate(context.Background(), "list customer names", true)
	if err != nil {
		t.Fatalf("Translate() second call error = %v", err)
	}
	if !again.Cached || again.SQL != result.SQL {
		t.Fatalf("second call = %+v", again)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestTranslateBypassesCacheWhenDisabled(t *testing.T) {
	provider := &fakeProvider{response: "SELECT 1"}
	database := &fakeDatabase{model: testModel()}
	svc := newTestService(t, provider, database, tempStore(t))

	for i := 0; i < 2; i++ {
		if _, err := svc.Translate(context.Background(), "anything", false); err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
	}
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", provider.calls)
	}
}

func TestTranslateExtractsExplanation(t *testing.T) {
	provider := &fakeProvider{response: "```sql\nSELECT COUNT(*) FROM customers\n```\nExplanation: counts every customer\nincluding inactive ones"}
	database := &fakeDatabase{model: testModel()}
	svc := newTestService(t, provider, database, tempStore(t))

	result, err := svc.Translate(context.Background(), "how many customers", true)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT COUNT(*) FROM customers" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Explanation != "counts every customer including inactive ones" {
		t.Fatalf("Explanation = %q", result.Explanation)
	}
}

func TestTranslateProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	database := &fakeDatabase{model: testModel()}
	store := tempStore(t)
	svc := newTestService(t, provider, database, store)

	_, err := svc.Translate(context.Background(), "anything", true)
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if stats := store.Stats(); stats.Size != 0 {
		t.Fatalf("failed translation was cached: %+v", stats)
	}
}

func TestTranslateRejectsInvalidSQL(t *testing.T) {
	provider := &fakeProvider{response: "I cannot answer that question."}
	database := &fakeDatabase{model: testModel()}
	store := tempStore(t)
	svc := newTestService(t, provider, database, store)

	_, err := svc.Translate(context.Background(), "nonsense", true)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if !strings.Contains(validationErr.Reason, "SELECT or WITH") {
		t.Fatalf("Reason = %q", validationErr.Reason)
	}
	if stats := store.Stats(); stats.Size != 0 {
		t.Fatalf("invalid translation was cached: %+v", stats)
	}
}

func TestTranslateRejectsUnsafeSQL(t *testing.T) {
	provider := &fakeProvider{response: "SELECT * FROM customers; DROP TABLE customers"}
	database := &fakeDatabase{model: testModel()}
	store := tempStore(t)
	svc := newTestService(t, provider, database, store)

	_, err := svc.Translate(context.Background(), "wipe everything", true)
	var safetyErr *SafetyError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("err = %v, want SafetyError", err)
	}
	if stats := store.Stats(); stats.Size != 0 {
		t.Fatalf("unsafe translation was cached: %+v", stats)
	}
}

func TestNewSurfacesSnapshotFailure(t *testing.T) {
	database := &fakeDatabase{modelErr: errors.New("connection refused")}
	_, err := New(context.Background(), Options{
		Database: database,
		Provider: &fakeProvider{},
	})
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("err = %v, want DatabaseError", err)
	}
}

func TestRefreshSchemaReplacesSnapshot(t *testing.T) {
	database := &fakeDatabase{model: testModel()}
	svc := newTestService(t, &fakeProvider{response: "SELECT 1"}, database, nil)

	database.model = schema.Model{Tables: []schema.Table{{Name: "orders"}}}
	if err := svc.RefreshSchema(context.Background()); err != nil {
		t.Fatalf("RefreshSchema() error = %v", err)
	}
	if got := svc.Schema(); len(got.Tables) != 1 || got.Tables[0].Name != "orders" {
		t.Fatalf("Schema() = %+v", got)
	}
}

func TestExecuteInjectsLimit(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		limit   int
		wantSQL string
	}{
		{
			name:    "bare select gets default limit",
			sql:     "SELECT * FROM customers",
			limit:   0,
			wantSQL: "SELECT * FROM customers LIMIT 100",
		},
		{
			name:    "trailing semicolon trimmed before append",
			sql:     "SELECT * FROM customers;",
			limit:   25,
			wantSQL: "SELECT * FROM customers LIMIT 25",
		},
		{
			name:    "existing limit preserved",
			sql:     "SELECT * FROM customers LIMIT 5",
			limit:   25,
			wantSQL: "SELECT * FROM customers LIMIT 5",
		},
		{
			name:    "limit clamped to maximum",
			sql:     "SELECT * FROM customers",
			limit:   50000,
			wantSQL: "SELECT * FROM customers LIMIT 1000",
		},
		{
			name:    "with query passes through unchanged",
			sql:     "WITH t AS (SELECT 1) SELECT * FROM t",
			limit:   10,
			wantSQL: "WITH t AS (SELECT 1) SELECT * FROM t",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			database := &fakeDatabase{
				model:   testModel(),
				columns: []string{"id"},
				rows:    []map[string]any{{"id": int64(1)}},
			}
			svc := newTestService(t, &fakeProvider{response: "SELECT 1"}, database, nil)

			result, err := svc.Execute(context.Background(), tc.sql, tc.limit)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if database.lastSQL != tc.wantSQL {
				t.Fatalf("executed SQL = %q, want %q", database.lastSQL, tc.wantSQL)
			}
			if result.RowCount != 1 || result.Columns[0] != "id" {
				t.Fatalf("result = %+v", result)
			}
		})
	}
}

func TestExecuteRejectsUnsafeSQL(t *testing.T) {
	database := &fakeDatabase{model: testModel()}
	svc := newTestService(t, &fakeProvider{response: "SELECT 1"}, database, nil)

	_, err := svc.Execute(context.Background(), "DELETE FROM customers", 10)
	var safetyErr *SafetyError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("err = %v, want SafetyError", err)
	}
	if database.lastSQL != "" {
		t.Fatalf("unsafe SQL reached the database: %q", database.lastSQL)
	}
}

func TestExecuteSurfacesDatabaseFailure(t *testing.T) {
	database := &fakeDatabase{model: testModel(), queryErr: errors.New("no such table")}
	svc := newTestService(t, &fakeProvider{response: "SELECT 1"}, database, nil)

	_, err := svc.Execute(context.Background(), "SELECT * FROM missing", 10)
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("err = %v, want DatabaseError", err)
	}
}

func TestCacheKeyNormalizes(t *testing.T) {
	if CacheKey("  Show Totals ") != CacheKey("show totals") {
		t.Fatal("keys should match after normalization")
	}
	if CacheKey("show totals") == CacheKey("show sums") {
		t.Fatal("distinct questions should not collide")
	}
}
