package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"arcana/internal/middleware"
	"arcana/internal/models"
	"arcana/internal/services"
)

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.accounts.EnsureExists(r.Context(), userID, services.NewReferralCode()); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	account, err := h.accounts.GetByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":         account.UserID,
		"balance":         account.Balance,
		"total_earned":    account.TotalEarned,
		"total_spent":     account.TotalSpent,
		"login_streak":    account.LoginStreak,
		"last_bonus_date": account.LastBonusDate,
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	entries, err := h.ledger.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": normalizeEntries(entries)})
}

type chargeRequest struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Charge debits the fixed cost of a reading or a follow-up question. The
// reading generator calls this after producing the interpretation; an
// insufficient balance means the reading must not be delivered.
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var kind models.EntryKind
	var cost int64
	switch req.Kind {
	case "reading":
		kind = models.KindReading
		cost = h.cfg.ReadingCost
	case "followup_question":
		kind = models.KindFollowupQuestion
		cost = h.cfg.FollowupCost
	default:
		respondError(w, http.StatusBadRequest, "invalid_kind")
		return
	}
	description := req.Description
	if description == "" {
		description = "Tarot " + req.Kind
	}
	result, err := h.credits.DeductCredits(r.Context(), userID, cost, kind, description)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			respondError(w, http.StatusBadRequest, "insufficient_balance")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "charge_failed")
		}
		return
	}
	var unlocked []services.UnlockedAchievement
	if kind == models.KindReading {
		readings, err := h.ledger.CountByUserAndKind(r.Context(), userID, string(models.KindReading))
		if err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("reading count lookup failed")
		} else {
			unlocked = h.achievements.CheckAndUnlock(r.Context(), userID, services.AchievementFacts{TotalReadings: readings})
		}
	}
	newBalance := result.NewBalance
	for _, unlock := range unlocked {
		newBalance = unlock.NewBalance
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entry_id":              result.EntryID,
		"new_balance":           newBalance,
		"unlocked_achievements": unlocked,
	})
}

// Refund restores the cost of a charged reading or follow-up question whose
// generation failed downstream, so the user is not billed for output they
// never received.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var cost int64
	switch req.Kind {
	case "reading":
		cost = h.cfg.ReadingCost
	case "followup_question":
		cost = h.cfg.FollowupCost
	default:
		respondError(w, http.StatusBadRequest, "invalid_kind")
		return
	}
	description := req.Description
	if description == "" {
		description = "Refund for failed " + req.Kind
	}
	result, err := h.credits.AddCredits(r.Context(), userID, cost, models.KindRefund, description)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "account_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "refund_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entry_id":    result.EntryID,
		"new_balance": result.NewBalance,
	})
}
