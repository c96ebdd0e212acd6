package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"arcana/internal/catalog"
	"arcana/internal/services"
)

const signatureHeader = "X-Webhook-Signature"

type paymentEvent struct {
	EventID   string `json:"event_id"`
	Provider  string `json:"provider"`
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	PackageID string `json:"package_id"`
	AmountUSD string `json:"amount_usd"`
}

func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"packages": catalog.Packages()})
}

// PaymentWebhook receives provider callbacks for completed and refunded
// purchases. The provider verified the payment; this end verifies the
// signature and the catalog amount, then applies the event exactly once.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable payload")
		return
	}
	if !verifySignature(body, r.Header.Get(signatureHeader), h.cfg.WebhookSecret) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	var event paymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if event.EventID == "" || event.UserID == "" {
		respondError(w, http.StatusBadRequest, "event_id and user_id are required")
		return
	}
	pkg, err := catalog.ByID(event.PackageID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_package")
		return
	}
	if !catalog.VerifyAmount(pkg, event.AmountUSD) {
		respondError(w, http.StatusBadRequest, "amount_mismatch")
		return
	}
	var duplicate bool
	var result services.MutationResult
	switch event.Type {
	case "payment.completed":
		result, duplicate, err = h.payments.HandleCompletedPayment(r.Context(), event.EventID, event.Provider, event.UserID, pkg.Credits, pkg.ID)
	case "payment.refunded":
		result, duplicate, err = h.payments.HandleRefundedPayment(r.Context(), event.EventID, event.Provider, event.UserID, pkg.Credits, pkg.ID)
	default:
		respondError(w, http.StatusBadRequest, "unsupported_event_type")
		return
	}
	if err != nil {
		if errors.Is(err, services.ErrInsufficientBalance) {
			// Credits were already spent; the operator settles the refund
			// with an admin adjustment.
			respondError(w, http.StatusConflict, "credits_already_spent")
			return
		}
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "account_not_found")
			return
		}
		h.logger.Error().Err(err).Str("event_id", event.EventID).Msg("webhook processing failed")
		respondError(w, http.StatusInternalServerError, "webhook_failed")
		return
	}
	if duplicate {
		respondJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "processed",
		"entry_id":    result.EntryID,
		"new_balance": result.NewBalance,
	})
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
