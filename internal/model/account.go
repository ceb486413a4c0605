package model

import "time"

type RewardTier string

const (
	TierStandard      RewardTier = "standard"
	TierEarlyBird1    RewardTier = "early_bird_tier_1"
	TierEarlyBird2    RewardTier = "early_bird_tier_2"
	TierEliteOneMonth RewardTier = "elite_one_month"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Account is the persisted signup record. ID comes from the identity
// service and is immutable, as are RewardTier, ReferralCode and
// ReferredBy. Referrals and EliteMonthsEarned are mutated only by the
// referral-credit step of a later signup.
type Account struct {
	ID                string
	Username          string
	Email             string
	UserType          Role
	RewardTier        RewardTier
	ReferralCode      string
	ReferredBy        *string
	Referrals         int
	EliteMonthsEarned int
	PlantsListed      int
	PlantsTraded      int
	RewardPoints      int
	FavoritePlants    []string
	Followers         []string
	Following         []string
	CreatedAt         time.Time
}

// SignupResult is what the form boundary receives. Timestamp is unix
// millis and exists only so repeated identical submissions produce a
// distinct value for the UI.
type SignupResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ReferralCode string `json:"referral_code,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}
