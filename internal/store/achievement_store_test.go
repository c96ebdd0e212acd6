package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestAchievementStoreRecordIfAbsentInserts(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "ON CONFLICT (user_id, achievement_id) DO NOTHING") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "user-1" || args[1] != "streak_7" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAchievementStore(stubDB{})
	granted, err := store.RecordIfAbsent(ctx, execer, "user-1", "streak_7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatal("expected fresh insert to report granted")
	}
}

func TestAchievementStoreRecordIfAbsentSkipsExisting(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			return stubResult{rows: 0}, nil
		},
	}
	store := NewAchievementStore(stubDB{})
	granted, err := store.RecordIfAbsent(ctx, execer, "user-1", "streak_7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatal("expected conflict to report not granted")
	}
}

func TestAchievementStoreRecordIfAbsentPropagatesError(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("boom")
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			return nil, wantErr
		},
	}
	store := NewAchievementStore(stubDB{})
	if _, err := store.RecordIfAbsent(ctx, execer, "user-1", "streak_7"); !errors.Is(err, wantErr) {
		t.Fatalf("expected propagated error, got %v", err)
	}
}

func TestAchievementStoreListByUser(t *testing.T) {
	ctx := context.Background()
	store := NewAchievementStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM achievement_unlocks") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]AchievementUnlock) = []AchievementUnlock{{UserID: "user-1", AchievementID: "first_reading"}}
			return nil
		},
	})
	rows, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].AchievementID != "first_reading" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}
