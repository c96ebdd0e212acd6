package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"arcana/internal/middleware"
	"arcana/internal/services"
)

func (h *Handler) GetReferralCode(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, http.StatusOK, map[string]string{"referral_code": account.ReferralCode})
}

type redeemReferralRequest struct {
	Code string `json:"code"`
}

func (h *Handler) RedeemReferral(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req redeemReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}
	if err := h.accounts.EnsureExists(r.Context(), userID, services.NewReferralCode()); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	result, err := h.referrals.Redeem(r.Context(), userID, code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReferralCode):
			respondError(w, http.StatusNotFound, "referral_code_not_found")
		case errors.Is(err, services.ErrSelfReferral):
			respondError(w, http.StatusBadRequest, "cannot_refer_self")
		case errors.Is(err, services.ErrReferralAlreadyRedeemed):
			respondError(w, http.StatusConflict, "referral_already_redeemed")
		default:
			respondError(w, http.StatusInternalServerError, "redeem_failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"credits_awarded": result.CreditsAwarded,
		"new_balance":     result.NewBalance,
	})
}
