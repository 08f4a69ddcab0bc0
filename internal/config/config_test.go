package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("askdb-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Backend != "file" {
		t.Fatalf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != 24*time.Hour || cfg.Cache.MaxSize != 1000 {
		t.Fatalf("Cache bounds = %+v", cfg.Cache)
	}
	if cfg.AI.Model != "gpt-4" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.1 || cfg.AI.MaxTokens != 500 {
		t.Fatalf("AI bounds = %+v", cfg.AI)
	}
	if cfg.Query.DefaultRowLimit != 100 || cfg.Query.MaxRowLimit != 1000 {
		t.Fatalf("Query = %+v", cfg.Query)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"ASKDB_PROFILE": "prod"})
	cfg, err := Load("askdb-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Cache.S3UseSSL {
		t.Fatal("Cache.S3UseSSL should default to true in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"ASKDB_PROFILE":                 "test",
		"ASKDB_SERVICE_NAME":            "askdb-custom",
		"ASKDB_HTTP_ADDR":               ":9999",
		"ASKDB_HTTP_READ_TIMEOUT":       "2s",
		"ASKDB_HTTP_WRITE_TIMEOUT":      "3s",
		"ASKDB_DB_DRIVER":               "postgres",
		"ASKDB_DB_DSN":                  "postgres://example",
		"ASKDB_CACHE_ENABLED":           "false",
		"ASKDB_CACHE_BACKEND":           "s3",
		"ASKDB_CACHE_DIR":               "/var/cache/askdb",
		"ASKDB_CACHE_FILENAME":          "snapshot.json",
		"ASKDB_CACHE_TTL":               "48h",
		"ASKDB_CACHE_MAX_SIZE":          "250",
		"ASKDB_CACHE_S3_ENDPOINT":       "s3.example.com",
		"ASKDB_CACHE_S3_BUCKET":         "askdb-prod",
		"ASKDB_CACHE_S3_KEY":            "cache/translations.json",
		"ASKDB_CACHE_S3_ACCESS_KEY":     "abc",
		"ASKDB_CACHE_S3_SECRET_KEY":     "def",
		"ASKDB_CACHE_S3_USE_SSL":        "true",
		"ASKDB_AI_BASE_URL":             "https://api.example.com",
		"ASKDB_AI_API_KEY":              "secret-key",
		"ASKDB_AI_MODEL":                "gpt-4o",
		"ASKDB_AI_TEMPERATURE":          "0.3",
		"ASKDB_AI_MAX_TOKENS":           "900",
		"ASKDB_AI_TIMEOUT":              "21s",
		"ASKDB_QUERY_DEFAULT_ROW_LIMIT": "50",
		"ASKDB_QUERY_MAX_ROW_LIMIT":     "500",
		"ASKDB_LOG_LEVEL":               "error",
		"ASKDB_AUTH_REQUIRED":           "true",
		"ASKDB_AUTH_STATIC_KEYS":        "k1,k2",
	})
	cfg, err := Load("askdb-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "askdb-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database = %+v", cfg.Database)
	}
	if cfg.Cache.Enabled {
		t.Fatal("Cache.Enabled = true, want false")
	}
	if cfg.Cache.Backend != "s3" || cfg.Cache.S3Bucket != "askdb-prod" {
		t.Fatalf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Dir != "/var/cache/askdb" || cfg.Cache.Filename != "snapshot.json" {
		t.Fatalf("Cache paths = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != 48*time.Hour || cfg.Cache.MaxSize != 250 {
		t.Fatalf("Cache bounds = %+v", cfg.Cache)
	}
	if cfg.Cache.S3Key != "cache/translations.json" || !cfg.Cache.S3UseSSL {
		t.Fatalf("Cache S3 = %+v", cfg.Cache)
	}
	if cfg.AI.BaseURL != "https://api.example.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "gpt-4o" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.3 || cfg.AI.MaxTokens != 900 {
		t.Fatalf("AI bounds = %+v", cfg.AI)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.Query.DefaultRowLimit != 50 || cfg.Query.MaxRowLimit != 500 {
		t.Fatalf("Query = %+v", cfg.Query)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1,k2" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"ASKDB_PROFILE": "oops"},
		{"ASKDB_HTTP_READ_TIMEOUT": "NaN"},
		{"ASKDB_CACHE_TTL": "yesterday"},
		{"ASKDB_CACHE_MAX_SIZE": "oops"},
		{"ASKDB_CACHE_BACKEND": "redis"},
		{"ASKDB_AI_TEMPERATURE": "bad"},
		{"ASKDB_AI_MAX_TOKENS": "many"},
		{"ASKDB_QUERY_MAX_ROW_LIMIT": "oops"},
		{"ASKDB_AUTH_REQUIRED": "not-bool"},
		{"ASKDB_LOG_LEVEL": "verbose"},
		{"ASKDB_DB_DSN": " "},
	}
	for _, env := range tests {
		_, err := Load("askdb-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
