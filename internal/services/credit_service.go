package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"arcana/internal/db"
	"arcana/internal/metrics"
	"arcana/internal/models"
	"arcana/internal/store"
	"arcana/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

var (
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidKind             = errors.New("invalid entry kind")
	ErrAccountNotFound         = errors.New("account not found")
	ErrAlreadyClaimedToday     = errors.New("daily bonus already claimed today")
	ErrInvalidReferralCode     = errors.New("referral code not found")
	ErrSelfReferral            = errors.New("cannot redeem own referral code")
	ErrReferralAlreadyRedeemed = errors.New("referral already redeemed")
)

type AccountStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (store.Account, error)
	UpdateBalances(ctx context.Context, tx store.Execer, userID string, balance, totalEarned, totalSpent int64) error
	UpdateStreak(ctx context.Context, tx store.Execer, userID string, streak int, lastBonusDate time.Time) error
	GetByReferralCode(ctx context.Context, code string) (store.Account, error)
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error
}

type CreditHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// CreditService is the only write path to account balances. Every mutation
// appends exactly one ledger entry and adjusts the balance in the same
// transaction, under the account row lock.
type CreditService struct {
	txRunner db.TxRunner
	accounts AccountStore
	ledger   LedgerStore
	hub      CreditHub
	logger   zerolog.Logger
}

func NewCreditService(txRunner db.TxRunner, accounts AccountStore, ledger LedgerStore, hub CreditHub, logger zerolog.Logger) *CreditService {
	return &CreditService{
		txRunner: txRunner,
		accounts: accounts,
		ledger:   ledger,
		hub:      hub,
		logger:   logger,
	}
}

type MutationResult struct {
	EntryID    string
	NewBalance int64
}

// AddCredits grants amount credits. Grants only fail on storage errors,
// never on balance limits.
func (s *CreditService) AddCredits(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (MutationResult, error) {
	if amount <= 0 {
		return MutationResult{}, ErrInvalidAmount
	}
	var result MutationResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.apply(ctx, tx, userID, amount, kind, description)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}
	metrics.CreditsGranted.WithLabelValues(string(kind)).Add(float64(amount))
	s.broadcast(userID, result.NewBalance, amount, kind)
	return result, nil
}

// DeductCredits spends amount credits. Fails with ErrInsufficientBalance
// when the account cannot cover it; in that case nothing is written.
func (s *CreditService) DeductCredits(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (MutationResult, error) {
	if amount <= 0 {
		return MutationResult{}, ErrInvalidAmount
	}
	var result MutationResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, err = s.apply(ctx, tx, userID, -amount, kind, description)
		return err
	})
	if err != nil {
		return MutationResult{}, err
	}
	metrics.CreditsSpent.WithLabelValues(string(kind)).Add(float64(amount))
	s.broadcast(userID, result.NewBalance, -amount, kind)
	return result, nil
}

// apply appends one signed ledger entry and moves the balance with it,
// inside the caller's transaction. The account row lock taken here is what
// serializes concurrent mutations per user.
func (s *CreditService) apply(ctx context.Context, tx *sqlx.Tx, userID string, amount int64, kind models.EntryKind, description string) (MutationResult, error) {
	if amount == 0 {
		return MutationResult{}, ErrInvalidAmount
	}
	if !kind.Valid() {
		return MutationResult{}, ErrInvalidKind
	}
	account, err := s.accounts.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MutationResult{}, ErrAccountNotFound
		}
		return MutationResult{}, err
	}
	newBalance := account.Balance + amount
	if newBalance < 0 {
		return MutationResult{}, ErrInsufficientBalance
	}
	totalEarned := account.TotalEarned
	totalSpent := account.TotalSpent
	if amount > 0 {
		totalEarned += amount
	} else {
		totalSpent += -amount
	}
	entryID := uuid.NewString()
	if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
		ID:          entryID,
		UserID:      userID,
		Kind:        string(kind),
		Amount:      amount,
		Description: description,
	}); err != nil {
		return MutationResult{}, err
	}
	if err := s.accounts.UpdateBalances(ctx, tx, userID, newBalance, totalEarned, totalSpent); err != nil {
		return MutationResult{}, err
	}
	return MutationResult{EntryID: entryID, NewBalance: newBalance}, nil
}

func (s *CreditService) broadcast(userID string, balance, delta int64, kind models.EntryKind) {
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		Balance: balance,
		Delta:   delta,
		Kind:    string(kind),
	})
}
