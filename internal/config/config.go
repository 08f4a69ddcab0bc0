package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	AI            AIConfig
	Query         QueryConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// CacheConfig selects and shapes the translation cache. Backend is "file" or
// "s3"; the S3 fields are only read for the latter.
type CacheConfig struct {
	Enabled  bool
	Backend  string
	Dir      string
	Filename string
	TTL      time.Duration
	MaxSize  int

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3Key       string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type QueryConfig struct {
	DefaultRowLimit int
	MaxRowLimit     int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ASKDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ASKDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "ASKDB_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_DRIVER", &cfg.Database.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_DSN", &cfg.Database.DSN); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_CACHE_ENABLED", &cfg.Cache.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_BACKEND", &cfg.Cache.Backend); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_DIR", &cfg.Cache.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_FILENAME", &cfg.Cache.Filename); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_CACHE_TTL", &cfg.Cache.TTL); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_CACHE_MAX_SIZE", &cfg.Cache.MaxSize); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_S3_ENDPOINT", &cfg.Cache.S3Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_S3_REGION", &cfg.Cache.S3Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_S3_BUCKET", &cfg.Cache.S3Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_S3_KEY", &cfg.Cache.S3Key); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_S3_ACCESS_KEY", &cfg.Cache.S3AccessKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_CACHE_S3_SECRET_KEY", &cfg.Cache.S3SecretKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_CACHE_S3_USE_SSL", &cfg.Cache.S3UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "ASKDB_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_AI_MAX_TOKENS", &cfg.AI.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_QUERY_DEFAULT_ROW_LIMIT", &cfg.Query.DefaultRowLimit); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_QUERY_MAX_ROW_LIMIT", &cfg.Query.MaxRowLimit); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "ASKDB_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("database dsn is required")
	}
	switch cfg.Cache.Backend {
	case "file", "s3":
	default:
		return Config{}, fmt.Errorf("invalid ASKDB_CACHE_BACKEND: %q", cfg.Cache.Backend)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "askdb-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "askdb.db",
		},
		Cache: CacheConfig{
			Enabled:  true,
			Backend:  "file",
			Dir:      ".askdb_cache",
			TTL:      24 * time.Hour,
			MaxSize:  1000,
			S3Region: "us-east-1",
		},
		AI: AIConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4",
			Temperature: 0.1,
			MaxTokens:   500,
			Timeout:     30 * time.Second,
		},
		Query: QueryConfig{
			DefaultRowLimit: 100,
			MaxRowLimit:     1000,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Cache.S3UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
