package handlers

import (
	"net/http"

	"arcana/internal/middleware"
)

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	unlocks, err := h.unlocks.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load achievements")
		return
	}
	unlockedSet := make(map[string]any, len(unlocks))
	for _, unlock := range unlocks {
		unlockedSet[unlock.AchievementID] = unlock.UnlockedAt
	}
	catalog := make([]map[string]any, 0)
	for _, rule := range h.achievements.Rules() {
		entry := map[string]any{
			"id":       rule.ID,
			"title":    rule.Title,
			"reward":   rule.Reward,
			"unlocked": false,
		}
		if at, ok := unlockedSet[rule.ID]; ok {
			entry["unlocked"] = true
			entry["unlocked_at"] = at
		}
		catalog = append(catalog, entry)
	}
	respondJSON(w, http.StatusOK, map[string]any{"achievements": catalog})
}
