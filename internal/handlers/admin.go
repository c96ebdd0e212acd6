package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"arcana/internal/auth"
	"arcana/internal/middleware"
	"arcana/internal/models"
	"arcana/internal/services"
	"arcana/internal/store"
	"arcana/internal/websocket"
)

type adjustRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// AdminAdjustCredits applies an operator-supplied signed adjustment. It is
// an ordinary ledger entry plus an audit record naming the operator.
func (h *Handler) AdminAdjustCredits(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Amount == 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}
	kind := models.KindAdminAdjustment
	if req.Kind != "" {
		kind = models.EntryKind(req.Kind)
		if kind != models.KindAdminAdjustment && kind != models.KindRefund {
			respondError(w, http.StatusBadRequest, "invalid_kind")
			return
		}
	}
	var result services.MutationResult
	var err error
	if req.Amount > 0 {
		result, err = h.credits.AddCredits(r.Context(), req.UserID, req.Amount, kind, req.Reason)
	} else {
		result, err = h.credits.DeductCredits(r.Context(), req.UserID, -req.Amount, kind, req.Reason)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			respondError(w, http.StatusBadRequest, "insufficient_balance")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "adjustment_failed")
		}
		return
	}
	data, _ := json.Marshal(map[string]any{
		"amount": req.Amount,
		"kind":   string(kind),
		"reason": req.Reason,
	})
	if err := h.audit.Log(r.Context(), h.database, actorID, "credit_adjustment", "ledger_entry", result.EntryID, string(data)); err != nil {
		h.logger.Error().Err(err).Str("entry_id", result.EntryID).Msg("audit log write failed")
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entry_id":    result.EntryID,
		"new_balance": result.NewBalance,
	})
}

type promoteRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) AdminPromote(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := h.admin.Promote(r.Context(), h.database, req.UserID, &actorID); err != nil {
		respondError(w, http.StatusInternalServerError, "promote_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "promoted"})
}

func (h *Handler) AdminListLedger(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	userID := r.URL.Query().Get("user_id")
	var err error
	var entries []store.LedgerEntry
	if userID != "" {
		entries, err = h.ledger.ListByUser(r.Context(), userID, limit, offset)
	} else {
		entries, err = h.ledger.ListAll(r.Context(), limit, offset)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load ledger")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": normalizeEntries(entries)})
}

func (h *Handler) AdminListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// AdminReconcile replays every user's ledger and compares the sum against
// the stored balance. Any nonzero difference is an invariant violation.
func (h *Handler) AdminReconcile(w http.ResponseWriter, r *http.Request) {
	rows, err := h.accounts.ListReconciliation(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reconcile balances")
		return
	}
	drifted := 0
	accounts := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if row.Difference != 0 {
			drifted++
		}
		accounts = append(accounts, map[string]any{
			"user_id":            row.UserID,
			"stored_balance":     row.StoredBalance,
			"calculated_balance": row.CalculatedBalance,
			"difference":         row.Difference,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"drifted":  drifted,
	})
}

func (h *Handler) WSCredits(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
