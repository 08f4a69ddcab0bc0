package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/db"
	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/translate"
)

func main() {
	cfg, err := config.LoadFromEnv("askdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	driver, err := db.ParseDriver(cfg.Database.Driver)
	if err != nil {
		logger.Error("failed to parse database driver", slog.Any("error", err))
		os.Exit(1)
	}
	dbEngine := engine.New(driver, cfg.Database.DSN)
	dialect := driver.DialectName()

	provider, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	var store *cache.Store
	if cfg.Cache.Enabled {
		backend, err := newCacheBackend(cfg)
		if err != nil {
			logger.Error("failed to initialize cache backend", slog.Any("error", err))
			os.Exit(1)
		}
		store = cache.NewStore(backend, cache.Config{
			TTL:     cfg.Cache.TTL,
			MaxSize: cfg.Cache.MaxSize,
		})
		logger.Info("translation cache enabled", slog.String("location", backend.Location()))
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	service, err := translate.New(startupCtx, translate.Options{
		Database:        dbEngine,
		Provider:        provider,
		Prompts:         prompt.NewBuilder(dialect),
		Cache:           store,
		Logger:          logger,
		Temperature:     cfg.AI.Temperature,
		MaxTokens:       cfg.AI.MaxTokens,
		DefaultRowLimit: cfg.Query.DefaultRowLimit,
		MaxRowLimit:     cfg.Query.MaxRowLimit,
	})
	cancelStartup()
	if err != nil {
		logger.Error("failed to initialize translation service", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema snapshot loaded",
		slog.String("dialect", dialect),
		slog.Int("tables", len(service.Schema().Tables)),
	)

	deps := api.Dependencies{
		Logger:     logger,
		Translator: service,
		Dialect:    dialect,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseDSN(cfg),
			api.CheckAICredentials(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func newCacheBackend(cfg config.Config) (cache.Backend, error) {
	if cfg.Cache.Backend == "s3" {
		return cache.NewS3Backend(cache.S3Config{
			Endpoint:        cfg.Cache.S3Endpoint,
			Region:          cfg.Cache.S3Region,
			Bucket:          cfg.Cache.S3Bucket,
			ObjectKey:       cfg.Cache.S3Key,
			AccessKeyID:     cfg.Cache.S3AccessKey,
			SecretAccessKey: cfg.Cache.S3SecretKey,
			UseSSL:          cfg.Cache.S3UseSSL,
		})
	}
	return cache.NewFileBackend(cfg.Cache.Dir, cfg.Cache.Filename)
}
