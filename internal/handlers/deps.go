package handlers

import (
	"context"

	"arcana/internal/models"
	"arcana/internal/services"
	"arcana/internal/store"
)

type AccountStore interface {
	EnsureExists(ctx context.Context, userID, referralCode string) error
	GetByUserID(ctx context.Context, userID string) (store.Account, error)
	ListReconciliation(ctx context.Context) ([]store.ReconciliationRow, error)
}

type LedgerStore interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.LedgerEntry, error)
	ListAll(ctx context.Context, limit, offset int) ([]store.LedgerEntry, error)
	CountByUserAndKind(ctx context.Context, userID, kind string) (int64, error)
}

type AchievementStore interface {
	ListByUser(ctx context.Context, userID string) ([]store.AchievementUnlock, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	Promote(ctx context.Context, tx store.Execer, userID string, createdBy *string) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type CreditService interface {
	AddCredits(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error)
	DeductCredits(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error)
}

type RewardService interface {
	ClaimDailyBonus(ctx context.Context, userID string) (services.ClaimResult, error)
}

type ReferralService interface {
	Redeem(ctx context.Context, referredUserID, code string) (services.RedeemResult, error)
}

type PaymentService interface {
	HandleCompletedPayment(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (services.MutationResult, bool, error)
	HandleRefundedPayment(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (services.MutationResult, bool, error)
}

type AchievementChecker interface {
	CheckAndUnlock(ctx context.Context, userID string, facts services.AchievementFacts) []services.UnlockedAchievement
	Rules() []services.AchievementRule
}
