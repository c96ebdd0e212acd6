package services

import (
	"context"
	"database/sql"
	"errors"

	"arcana/internal/db"
	"arcana/internal/metrics"
	"arcana/internal/models"
	"arcana/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

type ReferralRedemptionStore interface {
	RecordIfAbsent(ctx context.Context, tx store.Execer, referredUserID, referrerUserID string) (bool, error)
}

// ReferralService pays a one-time bonus to both sides of a referral. The
// redemption row is the exactly-once primitive; both grants commit with it.
type ReferralService struct {
	txRunner      db.TxRunner
	accounts      AccountStore
	referrals     ReferralRedemptionStore
	credits       *CreditService
	referrerBonus int64
	referredBonus int64
	logger        zerolog.Logger
}

func NewReferralService(txRunner db.TxRunner, accounts AccountStore, referrals ReferralRedemptionStore, credits *CreditService, referrerBonus, referredBonus int64, logger zerolog.Logger) *ReferralService {
	return &ReferralService{
		txRunner:      txRunner,
		accounts:      accounts,
		referrals:     referrals,
		credits:       credits,
		referrerBonus: referrerBonus,
		referredBonus: referredBonus,
		logger:        logger,
	}
}

type RedeemResult struct {
	ReferrerUserID string `json:"referrer_user_id"`
	CreditsAwarded int64  `json:"credits_awarded"`
	NewBalance     int64  `json:"new_balance"`
}

func (s *ReferralService) Redeem(ctx context.Context, referredUserID, code string) (RedeemResult, error) {
	referrer, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RedeemResult{}, ErrInvalidReferralCode
		}
		return RedeemResult{}, err
	}
	if referrer.UserID == referredUserID {
		return RedeemResult{}, ErrSelfReferral
	}
	var result RedeemResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		granted, err := s.referrals.RecordIfAbsent(ctx, tx, referredUserID, referrer.UserID)
		if err != nil {
			return err
		}
		if !granted {
			return ErrReferralAlreadyRedeemed
		}
		// Grants lock account rows one at a time; a fixed ordering keeps
		// two concurrent redemptions from deadlocking each other.
		grants := orderedGrants(referrer.UserID, s.referrerBonus, referredUserID, s.referredBonus)
		for _, grant := range grants {
			applied, err := s.credits.apply(ctx, tx, grant.userID, grant.amount, models.KindReferralBonus, grant.description)
			if err != nil {
				return err
			}
			if grant.userID == referredUserID {
				result.NewBalance = applied.NewBalance
			}
		}
		result.ReferrerUserID = referrer.UserID
		result.CreditsAwarded = s.referredBonus
		return nil
	})
	if err != nil {
		return RedeemResult{}, err
	}
	metrics.CreditsGranted.WithLabelValues(string(models.KindReferralBonus)).Add(float64(s.referrerBonus + s.referredBonus))
	s.credits.broadcast(referredUserID, result.NewBalance, s.referredBonus, models.KindReferralBonus)
	return result, nil
}

type referralGrant struct {
	userID      string
	amount      int64
	description string
}

func orderedGrants(referrerID string, referrerBonus int64, referredID string, referredBonus int64) []referralGrant {
	grants := []referralGrant{
		{userID: referrerID, amount: referrerBonus, description: "Referral bonus: invited a new member"},
		{userID: referredID, amount: referredBonus, description: "Referral bonus: joined via invite"},
	}
	if grants[1].userID < grants[0].userID {
		grants[0], grants[1] = grants[1], grants[0]
	}
	return grants
}
