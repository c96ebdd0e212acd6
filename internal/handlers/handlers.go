package handlers

import (
	"encoding/json"
	"net/http"

	"arcana/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func normalizeEntries(entries []store.LedgerEntry) []map[string]any {
	normalized := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		normalized = append(normalized, map[string]any{
			"id":          entry.ID,
			"user_id":     entry.UserID,
			"kind":        entry.Kind,
			"amount":      entry.Amount,
			"description": entry.Description,
			"created_at":  entry.CreatedAt,
		})
	}
	return normalized
}

func parsePagination(r *http.Request) (int, int) {
	limit := parseIntQuery(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
