package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arcana/internal/db"
	"arcana/internal/metrics"
	"arcana/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// RewardService is the user-facing claim operation. The already-claimed
// check, the grant and the streak update commit as one transaction under
// the account row lock; the achievement pass runs only after that commit
// and its failures never undo the claim.
type RewardService struct {
	txRunner     db.TxRunner
	accounts     AccountStore
	credits      *CreditService
	bonus        *DailyBonusEngine
	achievements *AchievementService
	logger       zerolog.Logger
	now          func() time.Time
}

func NewRewardService(txRunner db.TxRunner, accounts AccountStore, credits *CreditService, bonus *DailyBonusEngine, achievements *AchievementService, logger zerolog.Logger) *RewardService {
	return &RewardService{
		txRunner:     txRunner,
		accounts:     accounts,
		credits:      credits,
		bonus:        bonus,
		achievements: achievements,
		logger:       logger,
		now:          time.Now,
	}
}

type ClaimResult struct {
	CreditsAwarded int64                 `json:"credits_awarded"`
	NewBalance     int64                 `json:"new_balance"`
	Streak         int                   `json:"streak"`
	WeeklyBonus    bool                  `json:"weekly_bonus"`
	Unlocked       []UnlockedAchievement `json:"unlocked_achievements"`
}

func (s *RewardService) ClaimDailyBonus(ctx context.Context, userID string) (ClaimResult, error) {
	today := s.bonus.Today(s.now())
	var result ClaimResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAccountNotFound
			}
			return err
		}
		decision, err := s.bonus.Evaluate(account.LastBonusDate, account.LoginStreak, today)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Daily bonus, day %d of streak", decision.Streak)
		if decision.WeeklyBonus {
			description += " (weekly streak bonus included)"
		}
		granted, err := s.credits.apply(ctx, tx, userID, decision.Amount, models.KindDailyBonus, description)
		if err != nil {
			return err
		}
		// The streak and claim date move only after the grant is in; a
		// rollback therefore leaves the day unclaimed rather than advancing
		// the streak without paying.
		if err := s.accounts.UpdateStreak(ctx, tx, userID, decision.Streak, today); err != nil {
			return err
		}
		result = ClaimResult{
			CreditsAwarded: decision.Amount,
			NewBalance:     granted.NewBalance,
			Streak:         decision.Streak,
			WeeklyBonus:    decision.WeeklyBonus,
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrAlreadyClaimedToday) {
			outcome = "already_claimed"
		}
		metrics.DailyBonusClaims.WithLabelValues(outcome).Inc()
		return ClaimResult{}, err
	}
	metrics.DailyBonusClaims.WithLabelValues("claimed").Inc()
	metrics.CreditsGranted.WithLabelValues(string(models.KindDailyBonus)).Add(float64(result.CreditsAwarded))
	s.credits.broadcast(userID, result.NewBalance, result.CreditsAwarded, models.KindDailyBonus)

	result.Unlocked = s.achievements.CheckAndUnlock(ctx, userID, AchievementFacts{LoginStreak: result.Streak})
	for _, unlock := range result.Unlocked {
		result.CreditsAwarded += unlock.Reward
		result.NewBalance = unlock.NewBalance
	}
	return result, nil
}
