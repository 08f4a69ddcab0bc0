// Package translate orchestrates the natural-language-to-SQL pipeline: cache
// lookup, prompt generation, LLM invocation, response cleanup, the
// validation and safety gates, and the cache write. It also offers query
// execution with an implicit row limit.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/validate"
)

// Database is the engine surface the orchestrator needs: a catalog snapshot
// and opaque-SQL execution.
type Database interface {
	Snapshot(ctx context.Context) (schema.Model, error)
	Query(ctx context.Context, sqlText string) (columns []string, rows []map[string]any, err error)
}

// Result is one translation outcome, fresh or replayed from cache.
type Result struct {
	SQL           string
	Explanation   string
	Cached        bool
	ExecutionTime time.Duration
}

// ExecResult is one execution outcome: ordered rows as column-to-value mappings.
type ExecResult struct {
	Data     []map[string]any
	RowCount int
	Columns  []string
}

type Options struct {
	Database  Database
	Provider  llm.Provider
	Validator *validate.Validator
	Prompts   *prompt.Builder
	// Cache may be nil to disable caching entirely.
	Cache  *cache.Store
	Logger *slog.Logger

	// Decoding bounds for the LLM call. Near-deterministic by default.
	Temperature float64
	MaxTokens   int

	DefaultRowLimit int
	MaxRowLimit     int
}

// Service holds a read-only schema snapshot taken at construction and the
// collaborators for the pipeline. Safe for concurrent use; the snapshot is
// only replaced wholesale under the mutex by RefreshSchema.
type Service struct {
	database  Database
	provider  llm.Provider
	validator *validate.Validator
	prompts   *prompt.Builder
	cache     *cache.Store
	logger    *slog.Logger

	temperature     float64
	maxTokens       int
	defaultRowLimit int
	maxRowLimit     int

	mu     sync.RWMutex
	schema schema.Model
}

func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if opts.Validator == nil {
		opts.Validator = validate.New()
	}
	if opts.Prompts == nil {
		opts.Prompts = prompt.NewBuilder("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.1
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.DefaultRowLimit <= 0 {
		opts.DefaultRowLimit = 100
	}
	if opts.MaxRowLimit <= 0 {
		opts.MaxRowLimit = 1000
	}

	service := &Service{
		database:        opts.Database,
		provider:        opts.Provider,
		validator:       opts.Validator,
		prompts:         opts.Prompts,
		cache:           opts.Cache,
		logger:          opts.Logger,
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		defaultRowLimit: opts.DefaultRowLimit,
		maxRowLimit:     opts.MaxRowLimit,
	}

	model, err := opts.Database.Snapshot(ctx)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	service.schema = model
	return service, nil
}

// Schema returns the held snapshot.
func (s *Service) Schema() schema.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

// RefreshSchema replaces the held snapshot with a fresh catalog scan.
func (s *Service) RefreshSchema(ctx context.Context) error {
	model, err := s.database.Snapshot(ctx)
	if err != nil {
		return &DatabaseError{Err: err}
	}
	s.mu.Lock()
	s.schema = model
	s.mu.Unlock()
	return nil
}

// Validator exposes the safety/validation gates for pre-flight checks by
// callers.
func (s *Service) Validator() *validate.Validator {
	return s.validator
}

// CacheStats reports the cache shape, or false when caching is disabled.
func (s *Service) CacheStats() (cache.Stats, bool) {
	if s.cache == nil {
		return cache.Stats{}, false
	}
	return s.cache.Stats(), true
}

// ClearCache drops every cached translation. No-op when caching is disabled.
func (s *Service) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// Translate converts a natural-language question into validated, safe SQL.
// Failures are never cached; a cache hit short-circuits the pipeline.
func (s *Service) Translate(ctx context.Context, question string, useCache bool) (Result, error) {
	start := time.Now()

	key := CacheKey(question)
	if useCache && s.cache != nil {
		if payload, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "translation cache hit", slog.String("key", key))
			return Result{
				SQL:           payload.SQL,
				Explanation:   payload.Explanation,
				Cached:        true,
				ExecutionTime: time.Since(start),
			}, nil
		}
	}

	instructions := s.prompts.Generate(question, s.Schema())
	raw, err := s.provider.Complete(ctx, llm.Request{
		System:      instructions.System,
		User:        instructions.User,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return Result{}, &ProviderError{Err: err}
	}

	sqlText := stripCodeFences(raw)

	outcome := s.validator.Validate(sqlText)
	if !outcome.IsValid {
		s.logger.WarnContext(ctx, "generated SQL failed validation",
			slog.String("reason", outcome.Error))
		return Result{}, &ValidationError{Reason: outcome.Error}
	}
	if !s.validator.IsSafe(sqlText) {
		s.logger.WarnContext(ctx, "generated SQL failed safety gate")
		return Result{}, &SafetyError{}
	}

	explanation := extractExplanation(raw)
	if useCache && s.cache != nil {
		s.cache.Set(key, cache.Payload{SQL: sqlText, Explanation: explanation})
	}

	return Result{
		SQL:           sqlText,
		Explanation:   explanation,
		Cached:        false,
		ExecutionTime: time.Since(start),
	}, nil
}

// Execute runs any SQL text through the safety gate and the database. The
// syntax validator is deliberately not applied here: the gate is the sole
// admission check for the execute-only path. SELECT statements without a
// LIMIT clause get one appended using the supplied bound.
func (s *Service) Execute(ctx context.Context, sqlText string, limit int) (ExecResult, error) {
	if limit <= 0 {
		limit = s.defaultRowLimit
	}
	if limit > s.maxRowLimit {
		limit = s.maxRowLimit
	}

	if !s.validator.IsSafe(sqlText) {
		s.logger.WarnContext(ctx, "execution rejected by safety gate")
		return ExecResult{}, &SafetyError{}
	}

	sqlText = injectLimit(sqlText, limit)

	columns, data, err := s.database.Query(ctx, sqlText)
	if err != nil {
		return ExecResult{}, &DatabaseError{Err: err}
	}
	if columns == nil {
		columns = []string{}
	}
	return ExecResult{Data: data, RowCount: len(data), Columns: columns}, nil
}

// CacheKey derives the content address for a question: case-folded, trimmed,
// then hashed.
func CacheKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// injectLimit appends a LIMIT clause to SELECT statements that lack one,
// placed before any trailing semicolon. Textual concatenation only.
func injectLimit(sqlText string, limit int) string {
	trimmed := strings.TrimSpace(sqlText)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return sqlText
	}
	if strings.Contains(upper, "LIMIT") {
		return sqlText
	}
	return fmt.Sprintf("%s LIMIT %d", strings.TrimRight(trimmed, ";"), limit)
}

// stripCodeFences removes surrounding markdown code-fence markers, with an
// optional language tag, from the raw model response.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```sql") {
		trimmed = trimmed[len("```sql"):]
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[len("```"):]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// extractExplanation scans the raw (pre-strip) response for an
// "explanation:" or "note:" marker and joins the remainder of that line with
// the following non-empty lines up to the next fence marker. Best-effort and
// lossy: no marker means no explanation, which is a valid outcome.
func extractExplanation(raw string) string {
	lower := strings.ToLower(raw)
	if !strings.Contains(lower, "explanation:") && !strings.Contains(lower, "note:") {
		return ""
	}

	var parts []string
	inExplanation := false
	for _, line := range strings.Split(raw, "\n") {
		lowerLine := strings.ToLower(line)
		switch {
		case strings.Contains(lowerLine, "explanation:") || strings.Contains(lowerLine, "note:"):
			inExplanation = true
			if _, rest, found := strings.Cut(line, ":"); found {
				parts = append(parts, strings.TrimSpace(rest))
			} else {
				parts = append(parts, line)
			}
		case inExplanation && strings.TrimSpace(line) != "":
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				return strings.Join(parts, " ")
			}
			parts = append(parts, strings.TrimSpace(line))
		}
	}
	return strings.Join(parts, " ")
}
