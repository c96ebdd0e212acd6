package services

import (
	"context"

	"arcana/internal/db"
	"arcana/internal/metrics"
	"arcana/internal/models"
	"arcana/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type AchievementUnlockStore interface {
	RecordIfAbsent(ctx context.Context, tx store.Execer, userID, achievementID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]store.AchievementUnlock, error)
}

type AchievementFacts struct {
	LoginStreak   int
	TotalReadings int64
}

type AchievementRule struct {
	ID      string
	Title   string
	Reward  int64
	Matches func(AchievementFacts) bool
}

func DefaultAchievementRules() []AchievementRule {
	return []AchievementRule{
		{
			ID:     "first_reading",
			Title:  "First Reading",
			Reward: 1,
			Matches: func(f AchievementFacts) bool {
				return f.TotalReadings >= 1
			},
		},
		{
			ID:     "streak_3",
			Title:  "3-Day Streak",
			Reward: 3,
			Matches: func(f AchievementFacts) bool {
				return f.LoginStreak >= 3
			},
		},
		{
			ID:     "streak_7",
			Title:  "7-Day Streak",
			Reward: 10,
			Matches: func(f AchievementFacts) bool {
				return f.LoginStreak >= 7
			},
		},
		{
			ID:     "streak_30",
			Title:  "30-Day Streak",
			Reward: 50,
			Matches: func(f AchievementFacts) bool {
				return f.LoginStreak >= 30
			},
		},
	}
}

// AchievementService evaluates rules against new facts and grants each
// matching achievement at most once per user. The unlock row and the reward
// grant commit together, so a failed grant leaves the achievement claimable
// on the next trigger.
type AchievementService struct {
	txRunner db.TxRunner
	unlocks  AchievementUnlockStore
	credits  *CreditService
	rules    []AchievementRule
	logger   zerolog.Logger
}

func NewAchievementService(txRunner db.TxRunner, unlocks AchievementUnlockStore, credits *CreditService, rules []AchievementRule, logger zerolog.Logger) *AchievementService {
	return &AchievementService{
		txRunner: txRunner,
		unlocks:  unlocks,
		credits:  credits,
		rules:    rules,
		logger:   logger,
	}
}

type UnlockedAchievement struct {
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	Reward        int64  `json:"reward"`
	NewBalance    int64  `json:"new_balance"`
}

func (s *AchievementService) Rules() []AchievementRule {
	return s.rules
}

// CheckAndUnlock runs every rule against the facts. Each achievement is
// independent: a storage failure on one is logged and does not abort the
// rest, and a rule whose unlock row already exists is silently skipped.
func (s *AchievementService) CheckAndUnlock(ctx context.Context, userID string, facts AchievementFacts) []UnlockedAchievement {
	var unlocked []UnlockedAchievement
	for _, rule := range s.rules {
		if !rule.Matches(facts) {
			continue
		}
		var granted bool
		var result MutationResult
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			var err error
			granted, err = s.unlocks.RecordIfAbsent(ctx, tx, userID, rule.ID)
			if err != nil {
				return err
			}
			if !granted {
				return nil
			}
			result, err = s.credits.apply(ctx, tx, userID, rule.Reward, models.KindAchievement, "Achievement unlocked: "+rule.Title)
			return err
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("achievement", rule.ID).
				Msg("achievement grant failed")
			continue
		}
		if !granted {
			continue
		}
		metrics.AchievementsUnlocked.WithLabelValues(rule.ID).Inc()
		metrics.CreditsGranted.WithLabelValues(string(models.KindAchievement)).Add(float64(rule.Reward))
		s.credits.broadcast(userID, result.NewBalance, rule.Reward, models.KindAchievement)
		unlocked = append(unlocked, UnlockedAchievement{
			AchievementID: rule.ID,
			Title:         rule.Title,
			Reward:        rule.Reward,
			NewBalance:    result.NewBalance,
		})
	}
	return unlocked
}
