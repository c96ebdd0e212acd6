package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcana_credits_granted_total",
		Help: "Credits granted, by ledger entry kind.",
	}, []string{"kind"})

	CreditsSpent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcana_credits_spent_total",
		Help: "Credits debited, by ledger entry kind.",
	}, []string{"kind"})

	DailyBonusClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcana_daily_bonus_claims_total",
		Help: "Daily bonus claim attempts, by outcome.",
	}, []string{"outcome"})

	AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcana_achievements_unlocked_total",
		Help: "Achievements unlocked, by achievement id.",
	}, []string{"achievement"})
)
