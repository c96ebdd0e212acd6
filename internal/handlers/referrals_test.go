package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arcana/internal/services"
	"arcana/internal/store"
)

func TestGetReferralCode(t *testing.T) {
	h := newTestHandler(handlerDeps{
		accounts: stubAccountStore{
			getByUserIDFn: func(_ context.Context, userID string) (store.Account, error) {
				return store.Account{UserID: userID, ReferralCode: "AB12CD34"}, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/referrals/code", nil)
	rr := serveWithAuth(t, h.GetReferralCode, req, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "AB12CD34") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestRedeemReferralNormalizesCode(t *testing.T) {
	h := newTestHandler(handlerDeps{
		referrals: stubReferralService{
			redeemFn: func(_ context.Context, referredUserID, code string) (services.RedeemResult, error) {
				if referredUserID != "user-1" || code != "AB12CD34" {
					t.Fatalf("unexpected args: %s %s", referredUserID, code)
				}
				return services.RedeemResult{ReferrerUserID: "user-2", CreditsAwarded: 5, NewBalance: 5}, nil
			},
		},
	})
	body := strings.NewReader(`{"code":"  ab12cd34 "}`)
	req := httptest.NewRequest(http.MethodPost, "/referrals/redeem", body)
	rr := serveWithAuth(t, h.RedeemReferral, req, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRedeemReferralEmptyCode(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	body := strings.NewReader(`{"code":""}`)
	req := httptest.NewRequest(http.MethodPost, "/referrals/redeem", body)
	rr := serveWithAuth(t, h.RedeemReferral, req, "user-1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRedeemReferralErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown code", services.ErrInvalidReferralCode, http.StatusNotFound},
		{"own code", services.ErrSelfReferral, http.StatusBadRequest},
		{"already redeemed", services.ErrReferralAlreadyRedeemed, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(handlerDeps{
				referrals: stubReferralService{
					redeemFn: func(_ context.Context, referredUserID, code string) (services.RedeemResult, error) {
						return services.RedeemResult{}, tc.err
					},
				},
			})
			body := strings.NewReader(`{"code":"AB12CD34"}`)
			req := httptest.NewRequest(http.MethodPost, "/referrals/redeem", body)
			rr := serveWithAuth(t, h.RedeemReferral, req, "user-1")
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
		})
	}
}
