package models

// EntryKind is the business reason behind a ledger entry.
type EntryKind string

const (
	KindPurchase         EntryKind = "PURCHASE"
	KindReading          EntryKind = "READING"
	KindFollowupQuestion EntryKind = "FOLLOWUP_QUESTION"
	KindDailyBonus       EntryKind = "DAILY_BONUS"
	KindStreakBonus      EntryKind = "STREAK_BONUS"
	KindAchievement      EntryKind = "ACHIEVEMENT"
	KindReferralBonus    EntryKind = "REFERRAL_BONUS"
	KindRefund           EntryKind = "REFUND"
	KindAdminAdjustment  EntryKind = "ADMIN_ADJUSTMENT"
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindPurchase, KindReading, KindFollowupQuestion, KindDailyBonus,
		KindStreakBonus, KindAchievement, KindReferralBonus, KindRefund,
		KindAdminAdjustment:
		return true
	}
	return false
}
