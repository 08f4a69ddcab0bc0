package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/export"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/translate"
)

type translateRequest struct {
	Question string `json:"question"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

type executeRequest struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit,omitempty"`
}

type queryRequest struct {
	Question string `json:"question"`
	UseCache *bool  `json:"use_cache,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	start := time.Now()
	result, err := deps.Translator.Translate(r.Context(), req.Question, useCache(req.UseCache))
	if err != nil {
		observeTranslationError(err, start)
		writeTranslateError(r.Context(), w, err)
		return
	}
	observeTranslationResult(result)

	writeJSON(w, http.StatusOK, translationPayload(req.Question, result))
}

func handleExecute(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Translator.Execute(r.Context(), req.SQL, req.Limit)
	if err != nil {
		writeTranslateError(r.Context(), w, err)
		return
	}
	observability.ObserveQueryExecution(result.RowCount)

	writeJSON(w, http.StatusOK, map[string]any{
		"columns":   result.Columns,
		"data":      result.Data,
		"row_count": result.RowCount,
	})
}

// handleQuery is the combined path: translate the question, then execute the
// generated SQL in the same request.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	start := time.Now()
	translation, err := deps.Translator.Translate(r.Context(), req.Question, useCache(req.UseCache))
	if err != nil {
		observeTranslationError(err, start)
		writeTranslateError(r.Context(), w, err)
		return
	}
	observeTranslationResult(translation)

	result, err := deps.Translator.Execute(r.Context(), translation.SQL, req.Limit)
	if err != nil {
		writeTranslateError(r.Context(), w, err)
		return
	}
	observability.ObserveQueryExecution(result.RowCount)

	payload := translationPayload(req.Question, translation)
	payload["columns"] = result.Columns
	payload["data"] = result.Data
	payload["row_count"] = result.RowCount
	writeJSON(w, http.StatusOK, payload)
}

// handleQueryExport runs the combined path but streams the result set back as
// a parquet download instead of JSON.
func handleQueryExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	start := time.Now()
	translation, err := deps.Translator.Translate(r.Context(), req.Question, useCache(req.UseCache))
	if err != nil {
		observeTranslationError(err, start)
		writeTranslateError(r.Context(), w, err)
		return
	}
	observeTranslationResult(translation)

	result, err := deps.Translator.Execute(r.Context(), translation.SQL, req.Limit)
	if err != nil {
		writeTranslateError(r.Context(), w, err)
		return
	}
	observability.ObserveQueryExecution(result.RowCount)

	data, err := export.EncodeResultToParquet(result.Columns, result.Data)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), true, nil)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="query_result.parquet"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func translationPayload(question string, result translate.Result) map[string]any {
	return map[string]any{
		"question":               question,
		"sql":                    result.SQL,
		"explanation":            result.Explanation,
		"cached":                 result.Cached,
		"execution_time_seconds": result.ExecutionTime.Seconds(),
	}
}

func observeTranslationResult(result translate.Result) {
	outcome := observability.TranslationOutcomeGenerated
	if result.Cached {
		outcome = observability.TranslationOutcomeCached
	}
	observability.ObserveTranslation(outcome, result.ExecutionTime)
}

func observeTranslationError(err error, start time.Time) {
	var validationErr *translate.ValidationError
	var safetyErr *translate.SafetyError
	outcome := observability.TranslationOutcomeFailed
	if errors.As(err, &validationErr) || errors.As(err, &safetyErr) {
		outcome = observability.TranslationOutcomeRejected
	}
	observability.ObserveTranslation(outcome, time.Since(start))
}

func useCache(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON",
			fmt.Sprintf("invalid request body: %v", err), false, nil)
		return false
	}
	return true
}
