package store

import "context"

type ReferralStore struct {
	db DB
}

func NewReferralStore(db DB) *ReferralStore {
	return &ReferralStore{db: db}
}

// RecordIfAbsent marks the referred user as redeemed. A user can be
// referred at most once; the primary key on referred_user_id enforces it.
func (s *ReferralStore) RecordIfAbsent(ctx context.Context, tx Execer, referredUserID, referrerUserID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO referral_redemptions (referred_user_id, referrer_user_id)
		VALUES ($1, $2)
		ON CONFLICT (referred_user_id) DO NOTHING
	`, referredUserID, referrerUserID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *ReferralStore) CountByReferrer(ctx context.Context, referrerUserID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM referral_redemptions
		WHERE referrer_user_id = $1
	`, referrerUserID)
	return count, err
}
