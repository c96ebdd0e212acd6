package services

import "time"

// DailyBonusEngine decides streak continuation and bonus size. It never
// touches storage; the reward service runs it under the account row lock.
type DailyBonusEngine struct {
	loc         *time.Location
	baseCredits int64
	weeklyBonus int64
}

func NewDailyBonusEngine(loc *time.Location, baseCredits, weeklyBonus int64) *DailyBonusEngine {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyBonusEngine{loc: loc, baseCredits: baseCredits, weeklyBonus: weeklyBonus}
}

// Today truncates now to day granularity in the configured calendar.
func (e *DailyBonusEngine) Today(now time.Time) time.Time {
	year, month, day := now.In(e.loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, e.loc)
}

type BonusDecision struct {
	Streak      int
	Amount      int64
	WeeklyBonus bool
}

// Evaluate computes the claim for today. Claiming the day after the last
// claim extends the streak; any other gap resets it to 1 (the claimed day
// counts as day 1 of the new streak). Every 7th consecutive day the weekly
// bonus is folded into the same grant.
func (e *DailyBonusEngine) Evaluate(lastBonusDate *time.Time, currentStreak int, today time.Time) (BonusDecision, error) {
	if lastBonusDate != nil && e.sameDay(*lastBonusDate, today) {
		return BonusDecision{}, ErrAlreadyClaimedToday
	}
	streak := 1
	yesterday := today.AddDate(0, 0, -1)
	if lastBonusDate != nil && e.sameDay(*lastBonusDate, yesterday) {
		streak = currentStreak + 1
	}
	decision := BonusDecision{Streak: streak, Amount: e.baseCredits}
	if streak%7 == 0 {
		decision.Amount += e.weeklyBonus
		decision.WeeklyBonus = true
	}
	return decision, nil
}

// sameDay compares calendar components. A Postgres date column scans back
// as midnight UTC no matter what location the claim was evaluated in, so
// each value is read in its own location; converting the instant into the
// engine's location would shift a stored date to the previous day for any
// zone west of UTC.
func (e *DailyBonusEngine) sameDay(a, b time.Time) bool {
	aYear, aMonth, aDay := a.Date()
	bYear, bMonth, bDay := b.Date()
	return aYear == bYear && aMonth == bMonth && aDay == bDay
}
