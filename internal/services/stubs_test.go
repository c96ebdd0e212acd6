package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"arcana/internal/store"
	"arcana/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// serialTxRunner mimics the per-account row lock: transactions run one at
// a time, so the mem stores observe the same serialization Postgres gives.
type serialTxRunner struct {
	mu sync.Mutex
}

func (r *serialTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

type stubAccountStore struct {
	getForUpdateFn      func(ctx context.Context, tx store.Getter, userID string) (store.Account, error)
	updateBalancesFn    func(ctx context.Context, tx store.Execer, userID string, balance, totalEarned, totalSpent int64) error
	updateStreakFn      func(ctx context.Context, tx store.Execer, userID string, streak int, lastBonusDate time.Time) error
	getByReferralCodeFn func(ctx context.Context, code string) (store.Account, error)
}

func (s stubAccountStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (store.Account, error) {
	if s.getForUpdateFn == nil {
		return store.Account{}, nil
	}
	return s.getForUpdateFn(ctx, tx, userID)
}

func (s stubAccountStore) UpdateBalances(ctx context.Context, tx store.Execer, userID string, balance, totalEarned, totalSpent int64) error {
	if s.updateBalancesFn == nil {
		return nil
	}
	return s.updateBalancesFn(ctx, tx, userID, balance, totalEarned, totalSpent)
}

func (s stubAccountStore) UpdateStreak(ctx context.Context, tx store.Execer, userID string, streak int, lastBonusDate time.Time) error {
	if s.updateStreakFn == nil {
		return nil
	}
	return s.updateStreakFn(ctx, tx, userID, streak, lastBonusDate)
}

func (s stubAccountStore) GetByReferralCode(ctx context.Context, code string) (store.Account, error) {
	if s.getByReferralCodeFn == nil {
		return store.Account{}, nil
	}
	return s.getByReferralCodeFn(ctx, code)
}

type stubLedgerStore struct {
	insertFn func(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error
}

func (s stubLedgerStore) Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entry)
}

type stubHub struct {
	mu      sync.Mutex
	updates []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
}

// memAccounts backs scenario tests with real balance arithmetic. Callers
// must run mutations through a serialTxRunner.
type memAccounts struct {
	accounts map[string]*store.Account
}

func newMemAccounts(users ...string) *memAccounts {
	m := &memAccounts{accounts: make(map[string]*store.Account)}
	for i, userID := range users {
		m.accounts[userID] = &store.Account{
			UserID:       userID,
			ReferralCode: "CODE" + string(rune('A'+i)),
		}
	}
	return m
}

func (m *memAccounts) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (store.Account, error) {
	account, ok := m.accounts[userID]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return *account, nil
}

func (m *memAccounts) UpdateBalances(ctx context.Context, tx store.Execer, userID string, balance, totalEarned, totalSpent int64) error {
	account := m.accounts[userID]
	account.Balance = balance
	account.TotalEarned = totalEarned
	account.TotalSpent = totalSpent
	return nil
}

func (m *memAccounts) UpdateStreak(ctx context.Context, tx store.Execer, userID string, streak int, lastBonusDate time.Time) error {
	account := m.accounts[userID]
	account.LoginStreak = streak
	// A date column keeps only the calendar triple and scans back as
	// midnight UTC; round-trip the same way here.
	year, month, day := lastBonusDate.Date()
	scanned := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	account.LastBonusDate = &scanned
	return nil
}

func (m *memAccounts) GetByReferralCode(ctx context.Context, code string) (store.Account, error) {
	for _, account := range m.accounts {
		if account.ReferralCode == code {
			return *account, nil
		}
	}
	return store.Account{}, sql.ErrNoRows
}

type memLedger struct {
	entries []store.LedgerEntryInput
	failFn  func(entry store.LedgerEntryInput) error
}

func (m *memLedger) Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error {
	if m.failFn != nil {
		if err := m.failFn(entry); err != nil {
			return err
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memLedger) sumForUser(userID string) int64 {
	var sum int64
	for _, entry := range m.entries {
		if entry.UserID == userID {
			sum += entry.Amount
		}
	}
	return sum
}

type memUnlocks struct {
	unlocked map[string]map[string]bool
}

func newMemUnlocks() *memUnlocks {
	return &memUnlocks{unlocked: make(map[string]map[string]bool)}
}

func (m *memUnlocks) RecordIfAbsent(ctx context.Context, tx store.Execer, userID, achievementID string) (bool, error) {
	if m.unlocked[userID] == nil {
		m.unlocked[userID] = make(map[string]bool)
	}
	if m.unlocked[userID][achievementID] {
		return false, nil
	}
	m.unlocked[userID][achievementID] = true
	return true, nil
}

func (m *memUnlocks) ListByUser(ctx context.Context, userID string) ([]store.AchievementUnlock, error) {
	var unlocks []store.AchievementUnlock
	for achievementID := range m.unlocked[userID] {
		unlocks = append(unlocks, store.AchievementUnlock{UserID: userID, AchievementID: achievementID})
	}
	return unlocks, nil
}

type memReferrals struct {
	redeemed map[string]string
}

func newMemReferrals() *memReferrals {
	return &memReferrals{redeemed: make(map[string]string)}
}

func (m *memReferrals) RecordIfAbsent(ctx context.Context, tx store.Execer, referredUserID, referrerUserID string) (bool, error) {
	if _, ok := m.redeemed[referredUserID]; ok {
		return false, nil
	}
	m.redeemed[referredUserID] = referrerUserID
	return true, nil
}

type memWebhookEvents struct {
	seen map[string]bool
}

func newMemWebhookEvents() *memWebhookEvents {
	return &memWebhookEvents{seen: make(map[string]bool)}
}

func (m *memWebhookEvents) RecordIfAbsent(ctx context.Context, tx store.Execer, eventID, provider string) (bool, error) {
	key := provider + "/" + eventID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type memEnsurer struct{}

func (memEnsurer) EnsureExists(ctx context.Context, userID, referralCode string) error {
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
