package services

import (
	"context"
	"fmt"
	"strings"

	"arcana/internal/db"
	"arcana/internal/metrics"
	"arcana/internal/models"
	"arcana/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type WebhookEventStore interface {
	RecordIfAbsent(ctx context.Context, tx store.Execer, eventID, provider string) (bool, error)
}

type AccountEnsurer interface {
	EnsureExists(ctx context.Context, userID, referralCode string) error
}

// PaymentService applies verified payment-provider events to the ledger.
// Event-id dedup and the credit movement commit together, so a provider
// retry after a failed grant replays cleanly.
type PaymentService struct {
	txRunner db.TxRunner
	events   WebhookEventStore
	ensurer  AccountEnsurer
	credits  *CreditService
	logger   zerolog.Logger
}

func NewPaymentService(txRunner db.TxRunner, events WebhookEventStore, ensurer AccountEnsurer, credits *CreditService, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		txRunner: txRunner,
		events:   events,
		ensurer:  ensurer,
		credits:  credits,
		logger:   logger,
	}
}

// HandleCompletedPayment grants the purchased package once per event id.
// The second return value reports whether the event was a duplicate.
func (s *PaymentService) HandleCompletedPayment(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (MutationResult, bool, error) {
	if err := s.ensurer.EnsureExists(ctx, userID, NewReferralCode()); err != nil {
		return MutationResult{}, false, err
	}
	description := fmt.Sprintf("Purchased %q package via %s", packageID, provider)
	result, duplicate, err := s.applyOnce(ctx, eventID, provider, userID, credits, models.KindPurchase, description)
	if err != nil || duplicate {
		return MutationResult{}, duplicate, err
	}
	metrics.CreditsGranted.WithLabelValues(string(models.KindPurchase)).Add(float64(credits))
	s.credits.broadcast(userID, result.NewBalance, credits, models.KindPurchase)
	return result, false, nil
}

// HandleRefundedPayment claws the purchased credits back. Fails with
// ErrInsufficientBalance when the user already spent them; the operator
// settles that case with an admin adjustment.
func (s *PaymentService) HandleRefundedPayment(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (MutationResult, bool, error) {
	description := fmt.Sprintf("Refunded %q package via %s", packageID, provider)
	result, duplicate, err := s.applyOnce(ctx, eventID, provider, userID, -credits, models.KindRefund, description)
	if err != nil || duplicate {
		return MutationResult{}, duplicate, err
	}
	metrics.CreditsSpent.WithLabelValues(string(models.KindRefund)).Add(float64(credits))
	s.credits.broadcast(userID, result.NewBalance, -credits, models.KindRefund)
	return result, false, nil
}

func (s *PaymentService) applyOnce(ctx context.Context, eventID, provider, userID string, amount int64, kind models.EntryKind, description string) (MutationResult, bool, error) {
	var result MutationResult
	var duplicate bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		fresh, err := s.events.RecordIfAbsent(ctx, tx, eventID, provider)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			s.logger.Info().Str("event_id", eventID).Str("provider", provider).Msg("duplicate webhook event ignored")
			return nil
		}
		result, err = s.credits.apply(ctx, tx, userID, amount, kind, description)
		return err
	})
	if err != nil {
		return MutationResult{}, false, err
	}
	return result, duplicate, nil
}

// NewReferralCode returns a short shareable invite code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
