package store

import "context"

type AchievementStore struct {
	db DB
}

type AchievementUnlock struct {
	UserID        string `db:"user_id"`
	AchievementID string `db:"achievement_id"`
	UnlockedAt    any    `db:"unlocked_at"`
}

func NewAchievementStore(db DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// RecordIfAbsent inserts the unlock row and reports whether the insert
// happened. The unique key on (user_id, achievement_id) makes this the
// exactly-once primitive for concurrent triggers; there is no separate
// already-unlocked query anywhere.
func (s *AchievementStore) RecordIfAbsent(ctx context.Context, tx Execer, userID, achievementID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO achievement_unlocks (user_id, achievement_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, userID, achievementID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *AchievementStore) ListByUser(ctx context.Context, userID string) ([]AchievementUnlock, error) {
	var rows []AchievementUnlock
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, achievement_id, unlocked_at
		FROM achievement_unlocks
		WHERE user_id = $1
		ORDER BY unlocked_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
