package model

import (
	"time"

	"app/internal/tier"
)

// User represents a user in the system. Identity fields are owned by the
// auth provider; this service only reads the tier and admin flag.
type User struct {
	UserID               string    `db:"user_id" json:"user_id"`
	Name                 string    `db:"name" json:"name"`
	Email                string    `db:"email" json:"email"`
	SubscriptionTier     tier.Tier `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionStatus   string    `db:"subscription_status" json:"subscription_status"`
	IsAdmin              bool      `db:"is_admin" json:"is_admin"`
	PayPalSubscriptionID *string   `db:"paypal_subscription_id" json:"paypal_subscription_id,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// UserWithUsage pairs a user with their video count for a reporting
// window. Returned by the admin listing.
type UserWithUsage struct {
	User
	VideosThisMonth int `json:"videos_this_month"`
}

// UserUsage summarizes a user's consumption within the current month.
type UserUsage struct {
	UserID          string    `json:"user_id"`
	Tier            tier.Tier `json:"tier"`
	VideosGenerated int       `json:"videos_generated"`
	VideosPerMonth  int       `json:"videos_per_month"`
	VideosRemaining int       `json:"videos_remaining"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
}
