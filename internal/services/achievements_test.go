package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"arcana/internal/store"
)

type achievementFixture struct {
	accounts     *memAccounts
	ledger       *memLedger
	unlocks      *memUnlocks
	achievements *AchievementService
}

func newAchievementFixture(t *testing.T) *achievementFixture {
	t.Helper()
	runner := &serialTxRunner{}
	accounts := newMemAccounts("user-1")
	ledger := &memLedger{}
	credits := NewCreditService(runner, accounts, ledger, &stubHub{}, testLogger())
	unlocks := newMemUnlocks()
	achievements := NewAchievementService(runner, unlocks, credits, DefaultAchievementRules(), testLogger())
	return &achievementFixture{accounts: accounts, ledger: ledger, unlocks: unlocks, achievements: achievements}
}

func TestCheckAndUnlockGrantsMatchingRules(t *testing.T) {
	fixture := newAchievementFixture(t)
	unlocked := fixture.achievements.CheckAndUnlock(context.Background(), "user-1", AchievementFacts{LoginStreak: 3, TotalReadings: 1})
	if len(unlocked) != 2 {
		t.Fatalf("expected 2 unlocks, got %+v", unlocked)
	}
	if unlocked[0].AchievementID != "first_reading" || unlocked[1].AchievementID != "streak_3" {
		t.Fatalf("unexpected unlock order: %+v", unlocked)
	}
	account := fixture.accounts.accounts["user-1"]
	if account.Balance != 4 {
		t.Fatalf("expected balance 4 after rewards, got %d", account.Balance)
	}
	if got := fixture.ledger.sumForUser("user-1"); got != account.Balance {
		t.Fatalf("reconciliation broken: ledger sum %d, balance %d", got, account.Balance)
	}
}

func TestCheckAndUnlockIsIdempotent(t *testing.T) {
	fixture := newAchievementFixture(t)
	facts := AchievementFacts{LoginStreak: 7}
	first := fixture.achievements.CheckAndUnlock(context.Background(), "user-1", facts)
	if len(first) != 2 {
		t.Fatalf("expected streak_3 and streak_7 on first pass, got %+v", first)
	}
	second := fixture.achievements.CheckAndUnlock(context.Background(), "user-1", facts)
	if len(second) != 0 {
		t.Fatalf("expected no unlocks on second pass, got %+v", second)
	}
	if len(fixture.ledger.entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(fixture.ledger.entries))
	}
}

func TestCheckAndUnlockNoMatchingRules(t *testing.T) {
	fixture := newAchievementFixture(t)
	unlocked := fixture.achievements.CheckAndUnlock(context.Background(), "user-1", AchievementFacts{LoginStreak: 1})
	if len(unlocked) != 0 {
		t.Fatalf("expected no unlocks, got %+v", unlocked)
	}
	if len(fixture.ledger.entries) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(fixture.ledger.entries))
	}
}

func TestCheckAndUnlockFailedGrantDoesNotAbortOtherRules(t *testing.T) {
	fixture := newAchievementFixture(t)
	fixture.ledger.failFn = func(entry store.LedgerEntryInput) error {
		if strings.Contains(entry.Description, "3-Day Streak") {
			return errors.New("storage down")
		}
		return nil
	}
	unlocked := fixture.achievements.CheckAndUnlock(context.Background(), "user-1", AchievementFacts{LoginStreak: 7})
	if len(unlocked) != 1 || unlocked[0].AchievementID != "streak_7" {
		t.Fatalf("expected only streak_7, got %+v", unlocked)
	}
	account := fixture.accounts.accounts["user-1"]
	if got := fixture.ledger.sumForUser("user-1"); got != account.Balance {
		t.Fatalf("reconciliation broken: ledger sum %d, balance %d", got, account.Balance)
	}
}
