package api

import "net/http"

func handleCacheStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	stats, enabled := deps.Translator.CacheStats()
	if !enabled {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":   true,
		"size":      stats.Size,
		"max_size":  stats.MaxSize,
		"ttl_hours": stats.TTLHours,
		"location":  stats.Location,
	})
}

func handleCacheClear(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	deps.Translator.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared"})
}
