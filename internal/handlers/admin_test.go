package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arcana/internal/models"
	"arcana/internal/services"
	"arcana/internal/store"
)

func TestAdminAdjustCreditsPositive(t *testing.T) {
	var logged bool
	h := newTestHandler(handlerDeps{
		credits: stubCreditService{
			addFn: func(_ context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error) {
				if userID != "user-1" || amount != 25 || kind != models.KindAdminAdjustment {
					t.Fatalf("unexpected args: %s %d %s", userID, amount, kind)
				}
				return services.MutationResult{EntryID: "entry-1", NewBalance: 25}, nil
			},
		},
		audit: stubAuditStore{
			logFn: func(_ context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
				logged = true
				if actorID != "admin-1" || action != "credit_adjustment" || entityID != "entry-1" {
					t.Fatalf("unexpected audit args: %s %s %s", actorID, action, entityID)
				}
				return nil
			},
		},
	})
	body := strings.NewReader(`{"user_id":"user-1","amount":25,"reason":"support goodwill"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/credits/adjust", body)
	rr := serveWithAuth(t, h.AdminAdjustCredits, req, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !logged {
		t.Fatal("expected audit record")
	}
}

func TestAdminAdjustCreditsNegativeUsesDeduct(t *testing.T) {
	h := newTestHandler(handlerDeps{
		credits: stubCreditService{
			deductFn: func(_ context.Context, userID string, amount int64, kind models.EntryKind, description string) (services.MutationResult, error) {
				if amount != 10 || kind != models.KindRefund {
					t.Fatalf("unexpected args: %d %s", amount, kind)
				}
				return services.MutationResult{EntryID: "entry-1", NewBalance: 0}, nil
			},
		},
	})
	body := strings.NewReader(`{"user_id":"user-1","amount":-10,"kind":"REFUND","reason":"manual refund settlement"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/credits/adjust", body)
	rr := serveWithAuth(t, h.AdminAdjustCredits, req, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminAdjustCreditsValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing user", `{"amount":5,"reason":"x"}`},
		{"zero amount", `{"user_id":"user-1","amount":0,"reason":"x"}`},
		{"missing reason", `{"user_id":"user-1","amount":5}`},
		{"disallowed kind", `{"user_id":"user-1","amount":5,"kind":"PURCHASE","reason":"x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(handlerDeps{})
			req := httptest.NewRequest(http.MethodPost, "/admin/credits/adjust", strings.NewReader(tc.body))
			rr := serveWithAuth(t, h.AdminAdjustCredits, req, "admin-1")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestAdminPromote(t *testing.T) {
	h := newTestHandler(handlerDeps{
		admin: stubAdminStore{
			promoteFn: func(_ context.Context, tx store.Execer, userID string, createdBy *string) error {
				if userID != "user-2" || createdBy == nil || *createdBy != "admin-1" {
					t.Fatalf("unexpected args: %s %v", userID, createdBy)
				}
				return nil
			},
		},
	})
	body := strings.NewReader(`{"user_id":"user-2"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/promote", body)
	rr := serveWithAuth(t, h.AdminPromote, req, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminListLedgerFiltersByUser(t *testing.T) {
	h := newTestHandler(handlerDeps{
		ledger: stubLedgerStore{
			listByUserFn: func(_ context.Context, userID string, limit, offset int) ([]store.LedgerEntry, error) {
				if userID != "user-1" {
					t.Fatalf("unexpected user id: %q", userID)
				}
				return []store.LedgerEntry{{ID: "entry-1"}}, nil
			},
			listAllFn: func(_ context.Context, limit, offset int) ([]store.LedgerEntry, error) {
				t.Fatalf("unexpected ListAll call")
				return nil, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/admin/ledger?user_id=user-1", nil)
	rr := serveWithAuth(t, h.AdminListLedger, req, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAdminReconcile(t *testing.T) {
	h := newTestHandler(handlerDeps{
		accounts: stubAccountStore{
			listReconciliationFn: func(_ context.Context) ([]store.ReconciliationRow, error) {
				return []store.ReconciliationRow{
					{UserID: "user-1", StoredBalance: 10, CalculatedBalance: 10, Difference: 0},
					{UserID: "user-2", StoredBalance: 8, CalculatedBalance: 5, Difference: 3},
				}, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/admin/reconcile", nil)
	rr := serveWithAuth(t, h.AdminReconcile, req, "admin-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp["drifted"] != float64(1) {
		t.Fatalf("expected 1 drifted account, got %v", resp["drifted"])
	}
}

func TestAdminRouteRejectsNonAdmin(t *testing.T) {
	h := newTestHandler(handlerDeps{
		admin: stubAdminStore{
			isAdminFn: func(_ context.Context, userID string) (bool, error) {
				return false, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/admin/reconcile", nil)
	rr := serveWithAuth(t, h.Routes().ServeHTTP, req, "user-1")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
