package model

import (
	"time"

	"app/internal/tier"
)

// SubscriptionStatus mirrors the billing provider's lifecycle.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is the billing-provider-backed entity. Its lifecycle is
// driven by webhook events; the pipeline only reads tier and status.
type Subscription struct {
	ID                   string             `db:"id" json:"id"`
	UserID               string             `db:"user_id" json:"user_id"`
	Tier                 tier.Tier          `db:"tier" json:"tier"`
	PayPalSubscriptionID string             `db:"paypal_subscription_id" json:"paypal_subscription_id"`
	PayPalPlanID         string             `db:"paypal_plan_id" json:"paypal_plan_id"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	PeriodStart          time.Time          `db:"period_start" json:"period_start"`
	PeriodEnd            time.Time          `db:"period_end" json:"period_end"`
	AmountCents          int64              `db:"amount_cents" json:"amount_cents"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// ActiveOrPending reports whether the subscription still occupies the
// user's single subscription slot.
func (s *Subscription) ActiveOrPending() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionPending
}
