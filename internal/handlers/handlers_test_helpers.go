package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arcana/internal/auth"
	"arcana/internal/config"
	"arcana/internal/middleware"
	"arcana/internal/models"
	"arcana/internal/services"
	"arcana/internal/store"
	"arcana/internal/websocket"

	"github.com/rs/zerolog"
)

type stubDatabase struct {
	execFn   func(ctx context.Context, query string, args ...any) (sql.Result, error)
	getFn    func(ctx context.Context, dest any, query string, args ...any) error
	selectFn func(ctx context.Context, dest any, query string, args ...any) error
}

func (s stubDatabase) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.execFn == nil {
		return nil, nil
	}
	return s.execFn(ctx, query, args...)
}

func (s stubDatabase) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.getFn == nil {
		return nil
	}
	return s.getFn(ctx, dest, query, args...)
}

func (s stubDatabase) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.selectFn == nil {
		return nil
	}
	return s.selectFn(ctx, dest, query, args...)
}

type stubAccountStore struct {
	ensureExistsFn       func(ctx context.Context, userID, referralCode string) error
	getByUserIDFn        func(ctx context.Context, userID string) (store.Account, error)
	listReconciliationFn func(ctx context.Context) ([]store.ReconciliationRow, error)
}

func (s stubAccountStore) EnsureExists(ctx context.Context, userID, referralCode string) error {
	if s.ensureExistsFn == nil {
		return nil
	}
	return s.ensureExistsFn(ctx, userID, referralCode)
}

func (s stubAccountStore) GetByUserID(ctx context.Context, userID string) (store.Account, error) {
	if s.getByUserIDFn == nil {
		return store.Account{}, nil
	}
	return s.getByUserIDFn(ctx, userID)
}

func (s stubAccountStore) ListReconciliation(ctx context.Context) ([]store.ReconciliationRow, error) {
	if s.listReconciliationFn == nil {
		return nil, nil
	}
	return s.listReconciliationFn(ctx)
}

type stubLedgerStore struct {
	listByUserFn         func(ctx context.Context, userID string, limit, offset int) ([]store.LedgerEntry, error)
	listAllFn            func(ctx context.Context, limit, offset int) ([]store.LedgerEntry, error)
	countByUserAndKindFn func(ctx context.Context, userID, kind string) (int64, error)
}

func (s stubLedgerStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.LedgerEntry, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

func (s stubLedgerStore) ListAll(ctx context.Context, limit, offset int) ([]store.LedgerEntry, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

func (s stubLedgerStore) CountByUserAndKind(ctx context.Context, userID, kind string) (int64, error) {
	if s.countByUserAndKindFn == nil {
		return 0, nil
	}
	return s.countByUserAndKindFn(ctx, userID, kind)
}

type stubAchievementStore struct {
	listByUserFn func(ctx context.Context, userID string) ([]store.AchievementUnlock, error)
}

func (s stubAchievementStore) ListByUser(ctx context.Context, userID string) ([]store.AchievementUnlock, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

type stubAdminStore struct {
	isAdminFn func(ctx context.Context, userID string) (bool, error)
	promoteFn func(ctx context.Context, tx store.Execer, userID string, createdBy *string) error
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if s.isAdminFn == nil {
		return false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) Promote(ctx context.Context, tx store.Execer, userID string, createdBy *string) error {
	if s.promoteFn == nil {
		return nil
	}
	return s.promoteFn(ctx, tx, userID, createdBy)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubCreditService struct {
	addFn    func(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error)
	deductFn func(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error)
}

func (s stubCreditService) AddCredits(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error) {
	if s.addFn == nil {
		return services.MutationResult{}, nil
	}
	return s.addFn(ctx, userID, amount, kind, description)
}

func (s stubCreditService) DeductCredits(ctx context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error) {
	if s.deductFn == nil {
		return services.MutationResult{}, nil
	}
	return s.deductFn(ctx, userID, amount, kind, description)
}

type stubRewardService struct {
	claimFn func(ctx context.Context, userID string) (services.ClaimResult, error)
}

func (s stubRewardService) ClaimDailyBonus(ctx context.Context, userID string) (services.ClaimResult, error) {
	if s.claimFn == nil {
		return services.ClaimResult{}, nil
	}
	return s.claimFn(ctx, userID)
}

type stubReferralService struct {
	redeemFn func(ctx context.Context, referredUserID, code string) (services.RedeemResult, error)
}

func (s stubReferralService) Redeem(ctx context.Context, referredUserID, code string) (services.RedeemResult, error) {
	if s.redeemFn == nil {
		return services.RedeemResult{}, nil
	}
	return s.redeemFn(ctx, referredUserID, code)
}

type stubPaymentService struct {
	completedFn func(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (services.MutationResult, bool, error)
	refundedFn  func(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (services.MutationResult, bool, error)
}

func (s stubPaymentService) HandleCompletedPayment(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (services.MutationResult, bool, error) {
	if s.completedFn == nil {
		return services.MutationResult{}, false, nil
	}
	return s.completedFn(ctx, eventID, provider, userID, credits, packageID)
}

func (s stubPaymentService) HandleRefundedPayment(ctx context.Context, eventID, provider, userID string, credits int64, packageID string) (services.MutationResult, bool, error) {
	if s.refundedFn == nil {
		return services.MutationResult{}, false, nil
	}
	return s.refundedFn(ctx, eventID, provider, userID, credits, packageID)
}

type stubAchievementChecker struct {
	checkFn func(ctx context.Context, userID string, facts services.AchievementFacts) []services.UnlockedAchievement
	rulesFn func() []services.AchievementRule
}

func (s stubAchievementChecker) CheckAndUnlock(ctx context.Context, userID string, facts services.AchievementFacts) []services.UnlockedAchievement {
	if s.checkFn == nil {
		return nil
	}
	return s.checkFn(ctx, userID, facts)
}

func (s stubAchievementChecker) Rules() []services.AchievementRule {
	if s.rulesFn == nil {
		return nil
	}
	return s.rulesFn()
}

type handlerDeps struct {
	database     store.DB
	accounts     AccountStore
	ledger       LedgerStore
	unlocks      AchievementStore
	admin        AdminStore
	audit        AuditStore
	credits      CreditService
	rewards      RewardService
	referrals    ReferralService
	payments     PaymentService
	achievements AchievementChecker
}

func newTestHandler(deps handlerDeps) *Handler {
	cfg := config.Config{
		AppEnv:            "test",
		Port:              "0",
		JWTSecret:         "secret",
		TokenTTLMin:       1,
		AllowedOrigins:    "*",
		WebhookSecret:     "hook-secret",
		BonusTimezone:     "UTC",
		DailyBonusCredits: 2,
		WeeklyStreakBonus: 5,
		ReadingCost:       3,
		FollowupCost:      1,
		ReferralBonus:     10,
		ReferredBonus:     5,
	}
	if deps.database == nil {
		deps.database = stubDatabase{}
	}
	if deps.accounts == nil {
		deps.accounts = stubAccountStore{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedgerStore{}
	}
	if deps.unlocks == nil {
		deps.unlocks = stubAchievementStore{}
	}
	if deps.admin == nil {
		deps.admin = stubAdminStore{}
	}
	if deps.audit == nil {
		deps.audit = stubAuditStore{}
	}
	if deps.credits == nil {
		deps.credits = stubCreditService{}
	}
	if deps.rewards == nil {
		deps.rewards = stubRewardService{}
	}
	if deps.referrals == nil {
		deps.referrals = stubReferralService{}
	}
	if deps.payments == nil {
		deps.payments = stubPaymentService{}
	}
	if deps.achievements == nil {
		deps.achievements = stubAchievementChecker{}
	}
	return New(cfg, deps.database, deps.accounts, deps.ledger, deps.unlocks, deps.admin, deps.audit, deps.credits, deps.rewards, deps.referrals, deps.payments, deps.achievements, websocket.NewHub(), zerolog.Nop())
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}
