package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcana/internal/config"
	"arcana/internal/db"
	"arcana/internal/handlers"
	"arcana/internal/logger"
	"arcana/internal/services"
	"arcana/internal/store"
	"arcana/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("development")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.AppEnv)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	loc, err := time.LoadLocation(cfg.BonusTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.BonusTimezone).Msg("invalid bonus timezone")
	}

	accounts := store.NewAccountStore(database)
	ledger := store.NewLedgerStore(database)
	unlocks := store.NewAchievementStore(database)
	referrals := store.NewReferralStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	webhookEvents := store.NewWebhookStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	credits := services.NewCreditService(txRunner, accounts, ledger, hub, log)
	bonus := services.NewDailyBonusEngine(loc, cfg.DailyBonusCredits, cfg.WeeklyStreakBonus)
	achievements := services.NewAchievementService(txRunner, unlocks, credits, services.DefaultAchievementRules(), log)
	rewards := services.NewRewardService(txRunner, accounts, credits, bonus, achievements, log)
	referralService := services.NewReferralService(txRunner, accounts, referrals, credits, cfg.ReferralBonus, cfg.ReferredBonus, log)
	payments := services.NewPaymentService(txRunner, webhookEvents, accounts, credits, log)

	handler := handlers.New(cfg, database, accounts, ledger, unlocks, admin, audit, credits, rewards, referralService, payments, achievements, hub, log)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("credit API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("shutdown error")
	}
}
