package store

import (
	"context"
	"time"
)

type AccountStore struct {
	db DB
}

type Account struct {
	UserID        string     `db:"user_id"`
	Balance       int64      `db:"balance"`
	TotalEarned   int64      `db:"total_earned"`
	TotalSpent    int64      `db:"total_spent"`
	LoginStreak   int        `db:"login_streak"`
	LastBonusDate *time.Time `db:"last_bonus_date"`
	ReferralCode  string     `db:"referral_code"`
	CreatedAt     any        `db:"created_at"`
}

// ReconciliationRow compares the stored balance against the replayed ledger.
type ReconciliationRow struct {
	UserID            string `db:"user_id"`
	StoredBalance     int64  `db:"stored_balance"`
	CalculatedBalance int64  `db:"calculated_balance"`
	Difference        int64  `db:"difference"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// EnsureExists creates the account row on a user's first authenticated
// touch. Safe to call on every request.
func (s *AccountStore) EnsureExists(ctx context.Context, userID, referralCode string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, total_earned, total_spent, login_streak, referral_code)
		VALUES ($1, 0, 0, 0, 0, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, referralCode)
	return err
}

func (s *AccountStore) GetByUserID(ctx context.Context, userID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, balance, total_earned, total_spent, login_streak, last_bonus_date, referral_code, created_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// GetForUpdate takes the row lock that serializes all balance and streak
// writes for one user. Every mutation path goes through this.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, balance, total_earned, total_spent, login_streak, last_bonus_date, referral_code
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalances(ctx context.Context, tx Execer, userID string, balance, totalEarned, totalSpent int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, total_earned = $2, total_spent = $3, updated_at = NOW()
		WHERE user_id = $4
	`, balance, totalEarned, totalSpent, userID)
	return err
}

func (s *AccountStore) UpdateStreak(ctx context.Context, tx Execer, userID string, streak int, lastBonusDate time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET login_streak = $1, last_bonus_date = $2, updated_at = NOW()
		WHERE user_id = $3
	`, streak, lastBonusDate, userID)
	return err
}

func (s *AccountStore) GetByReferralCode(ctx context.Context, code string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, balance, total_earned, total_spent, login_streak, last_bonus_date, referral_code, created_at
		FROM accounts
		WHERE referral_code = $1
	`, code)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) ListReconciliation(ctx context.Context) ([]ReconciliationRow, error) {
	var rows []ReconciliationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.user_id,
		       a.balance AS stored_balance,
		       COALESCE(SUM(l.amount), 0) AS calculated_balance,
		       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.user_id = a.user_id
		GROUP BY a.user_id, a.balance
		ORDER BY a.user_id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
