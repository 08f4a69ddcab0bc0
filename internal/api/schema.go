package api

import (
	"net/http"
	"strings"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	model := deps.Translator.Schema()
	writeJSON(w, http.StatusOK, map[string]any{
		"dialect":       deps.Dialect,
		"tables":        model.Tables,
		"relationships": model.Relationships,
	})
}

func handleSchemaRefresh(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := deps.Translator.RefreshSchema(r.Context()); err != nil {
		writeTranslateError(r.Context(), w, err)
		return
	}
	model := deps.Translator.Schema()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "refreshed",
		"table_count": len(model.Tables),
	})
}

type sqlCheckRequest struct {
	SQL string `json:"sql"`
}

func handleSQLCheck(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req sqlCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, deps.Translator.Validator().SafetyReport(req.SQL))
}
