package store

import "context"

type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID          string
	UserID      string
	Kind        string
	Amount      int64
	Description string
}

type LedgerEntry struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Kind        string `db:"kind"`
	Amount      int64  `db:"amount"`
	Description string `db:"description"`
	CreatedAt   any    `db:"created_at"`
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Insert appends one entry. Rows are never updated or deleted afterwards.
func (s *LedgerStore) Insert(ctx context.Context, tx Execer, entry LedgerEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.UserID, entry.Kind, entry.Amount, entry.Description)
	return err
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]LedgerEntry, error) {
	var rows []LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, kind, amount, description, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`, userID)
	return sum, err
}

func (s *LedgerStore) CountByUserAndKind(ctx context.Context, userID, kind string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE user_id = $1 AND kind = $2
	`, userID, kind)
	return count, err
}

func (s *LedgerStore) ListAll(ctx context.Context, limit, offset int) ([]LedgerEntry, error) {
	var rows []LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, kind, amount, description, created_at
		FROM ledger_entries
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
