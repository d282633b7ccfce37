package dto

import (
	"time"

	"app/internal/model"
)

// SubscriptionCreateDTO is the body for starting a paid subscription
type SubscriptionCreateDTO struct {
	Tier      string `json:"tier" validate:"required,oneof=STARTER PRO ENTERPRISE"`
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
	CancelURL string `json:"cancel_url" validate:"omitempty,url"`
}

// SubscriptionUpgradeDTO is the body for revising onto a higher tier
type SubscriptionUpgradeDTO struct {
	Tier string `json:"tier" validate:"required,oneof=STARTER PRO ENTERPRISE"`
}

// SubscriptionResponseDTO is returned for a subscription record
type SubscriptionResponseDTO struct {
	SubscriptionID string    `json:"subscription_id"`
	Tier           string    `json:"tier"`
	Status         string    `json:"status"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	AmountCents    int64     `json:"amount_cents"`
	ApprovalURL    string    `json:"approval_url,omitempty"`
}

// UsageResponseDTO summarizes the caller's consumption this month
type UsageResponseDTO struct {
	Tier            string          `json:"tier"`
	VideosGenerated int             `json:"videos_generated"`
	VideosPerMonth  int             `json:"videos_per_month"`
	VideosRemaining int             `json:"videos_remaining"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	RecentActivity  []UsageEventDTO `json:"recent_activity"`
}

// UsageEventDTO is a single metered action in the activity feed
type UsageEventDTO struct {
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpgradePreviewResponseDTO is the prorated cost of a tier change
type UpgradePreviewResponseDTO struct {
	Tier            string  `json:"tier"`
	ProratedCostUSD float64 `json:"prorated_cost_usd"`
}

// NewSubscriptionResponse maps a subscription onto its API shape.
func NewSubscriptionResponse(s *model.Subscription, approvalURL string) SubscriptionResponseDTO {
	return SubscriptionResponseDTO{
		SubscriptionID: s.ID,
		Tier:           string(s.Tier),
		Status:         string(s.Status),
		PeriodStart:    s.PeriodStart,
		PeriodEnd:      s.PeriodEnd,
		AmountCents:    s.AmountCents,
		ApprovalURL:    approvalURL,
	}
}

// NewUsageResponse maps a usage summary and its activity feed onto the
// API shape. The feed is always a JSON array, never null.
func NewUsageResponse(u *model.UserUsage, events []model.UsageEvent) UsageResponseDTO {
	activity := make([]UsageEventDTO, 0, len(events))
	for _, e := range events {
		activity = append(activity, UsageEventDTO{
			Action:       string(e.Action),
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			CreatedAt:    e.CreatedAt,
		})
	}
	return UsageResponseDTO{
		Tier:            string(u.Tier),
		VideosGenerated: u.VideosGenerated,
		VideosPerMonth:  u.VideosPerMonth,
		VideosRemaining: u.VideosRemaining,
		PeriodStart:     u.PeriodStart,
		PeriodEnd:       u.PeriodEnd,
		RecentActivity:  activity,
	}
}
