package handlers

import (
	"errors"
	"net/http"

	"arcana/internal/middleware"
	"arcana/internal/services"
)

// ClaimDailyBonus is the daily login bonus claim. A retry on the same
// calendar day comes back as already_claimed rather than double-granting.
func (h *Handler) ClaimDailyBonus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.accounts.EnsureExists(r.Context(), userID, services.NewReferralCode()); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	result, err := h.rewards.ClaimDailyBonus(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyClaimedToday) {
			respondJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"reason":  "already_claimed",
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "claim_failed")
		return
	}
	unlocked := result.Unlocked
	if unlocked == nil {
		unlocked = []services.UnlockedAchievement{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"credits_awarded":       result.CreditsAwarded,
		"new_balance":           result.NewBalance,
		"streak":                result.Streak,
		"weekly_bonus":          result.WeeklyBonus,
		"unlocked_achievements": unlocked,
	})
}
