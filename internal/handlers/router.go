package handlers

import (
	"net/http"

	"arcana/internal/config"
	"arcana/internal/middleware"
	"arcana/internal/store"
	"arcana/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Handler struct {
	cfg          config.Config
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
	hub          *websocket.Hub
	logger       zerolog.Logger
}

func New(cfg config.Config, database store.DB, accounts AccountStore, ledger LedgerStore, unlocks AchievementStore, admin AdminStore, audit AuditStore, credits CreditService, rewards RewardService, referrals ReferralService, payments PaymentService, achievements AchievementChecker, hub *websocket.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		cfg:          cfg,
		database:     database,
		accounts:     accounts,
		ledger:       ledger,
		unlocks:      unlocks,
		admin:        admin,
		audit:        audit,
		credits:      credits,
		rewards:      rewards,
		referrals:    referrals,
		payments:     payments,
		achievements: achievements,
		hub:          hub,
		logger:       logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)
	router.With(authed).Get("/credits/balance", h.GetBalance)
	router.With(authed).Get("/credits/history", h.GetHistory)
	router.With(authed).Post("/credits/charge", h.Charge)
	router.With(authed).Post("/credits/refund", h.Refund)
	router.With(authed).Post("/rewards/daily-bonus", h.ClaimDailyBonus)
	router.With(authed).Get("/achievements", h.ListAchievements)
	router.With(authed).Get("/referrals/code", h.GetReferralCode)
	router.With(authed).Post("/referrals/redeem", h.RedeemReferral)

	router.Get("/packages", h.ListPackages)
	router.Post("/webhooks/payments", h.PaymentWebhook)
	router.Get("/ws/credits", h.WSCredits)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authed)
		r.Use(middleware.RequireAdmin(h.admin))
		r.Post("/credits/adjust", h.AdminAdjustCredits)
		r.Post("/promote", h.AdminPromote)
		r.Get("/ledger", h.AdminListLedger)
		r.Get("/audit", h.AdminListAudit)
		r.Get("/reconcile", h.AdminReconcile)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
