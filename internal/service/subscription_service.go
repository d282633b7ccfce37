package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"app/internal/billing"
	"app/internal/cache"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/tier"
)

// BillingClient is the slice of the PayPal client this service consumes.
type BillingClient interface {
	CreateSubscription(ctx context.Context, planID, userEmail, userName, returnURL, cancelURL string) (*billing.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
	ReviseSubscription(ctx context.Context, subscriptionID, newPlanID string, prorateUSD float64) error
	PlanID(t tier.Tier) (string, bool)
	TierFromPlanID(planID string) (tier.Tier, bool)
}

// CheckoutResult is returned from subscription creation: the pending
// record plus the approval URL the subscriber must visit.
type CheckoutResult struct {
	Subscription *model.Subscription `json:"subscription"`
	ApprovalURL  string              `json:"approval_url"`
}

// SubscriptionService drives the billing lifecycle. Local state follows
// the provider: creation leaves a pending record, webhooks move it.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, userID string, target tier.Tier, returnURL, cancelURL string) (*CheckoutResult, error)
	CancelSubscription(ctx context.Context, userID string) error
	HandleWebhookEvent(ctx context.Context, event *billing.WebhookEvent) error
	GetCurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	UpgradePreview(ctx context.Context, userID string, target tier.Tier) (float64, error)
	UpgradeSubscription(ctx context.Context, userID string, target tier.Tier) (*model.Subscription, error)
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	userRepo repository.UserRepository
	paypal   BillingClient
	policy   *tier.Policy
	cache    *cache.Cache
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
	paypal BillingClient,
	policy *tier.Policy,
	c *cache.Cache,
	logger zerolog.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		userRepo: userRepo,
		paypal:   paypal,
		policy:   policy,
		cache:    c,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

// CreateSubscription starts a paid subscription checkout. The local
// record stays pending until the activation webhook arrives.
func (s *subscriptionService) CreateSubscription(ctx context.Context, userID string, target tier.Tier, returnURL, cancelURL string) (*CheckoutResult, error) {
	if !target.Valid() || target == tier.Free {
		return nil, fmt.Errorf("tier %q is not purchasable: %w", target, model.ErrValidation)
	}
	planID, ok := s.paypal.PlanID(target)
	if !ok {
		return nil, fmt.Errorf("no billing plan configured for tier %s: %w", target, model.ErrValidation)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetCurrentByUserID(ctx, userID); err == nil && existing.ActiveOrPending() {
		return nil, fmt.Errorf("user already has subscription %s: %w", existing.ID, model.ErrConflict)
	} else if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	ppSub, err := s.paypal.CreateSubscription(ctx, planID, user.Email, user.Name, returnURL, cancelURL)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("tier", string(target)).Msg("Failed to create PayPal subscription")
		return nil, err
	}

	now := s.now()
	sub := &model.Subscription{
		ID:                   s.newID(),
		UserID:               userID,
		Tier:                 target,
		PayPalSubscriptionID: ppSub.ID,
		PayPalPlanID:         planID,
		Status:               model.SubscriptionPending,
		PeriodStart:          now,
		PeriodEnd:            now.AddDate(0, 1, 0),
		AmountCents:          int64(s.policy.Limits(target).PriceUSD * 100),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist subscription")
		return nil, err
	}

	return &CheckoutResult{Subscription: sub, ApprovalURL: ppSub.ApprovalURL()}, nil
}

// CancelSubscription cancels the user's current subscription and
// downgrades them to the free tier.
func (s *subscriptionService) CancelSubscription(ctx context.Context, userID string) error {
	sub, err := s.repo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.paypal.CancelSubscription(ctx, sub.PayPalSubscriptionID, ""); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to cancel PayPal subscription")
		return err
	}
	if err := s.repo.UpdateStatus(ctx, sub.ID, model.SubscriptionCancelled); err != nil {
		return err
	}
	return s.applyTier(ctx, sub.UserID, tier.Free, string(model.SubscriptionCancelled), nil)
}

// HandleWebhookEvent applies a verified provider notification to local
// state. Events that carry no state change are acknowledged silently.
func (s *subscriptionService) HandleWebhookEvent(ctx context.Context, event *billing.WebhookEvent) error {
	status, ok := billing.StatusFromEvent(event.EventType)
	if !ok {
		s.logger.Debug().Str("event_type", event.EventType).Msg("Ignoring webhook event")
		return nil
	}

	resource, err := event.SubscriptionResource()
	if err != nil {
		return fmt.Errorf("%v: %w", err, model.ErrValidation)
	}

	sub, err := s.repo.GetByPayPalID(ctx, resource.ID)
	if err != nil {
		// An event for a subscription this service never created.
		s.logger.Warn().Err(err).Str("paypal_subscription_id", resource.ID).Msg("Webhook for unknown subscription")
		return err
	}

	if err := s.repo.UpdateStatus(ctx, sub.ID, status); err != nil {
		return err
	}
	s.logger.Info().
		Str("subscription_id", sub.ID).
		Str("event_type", event.EventType).
		Str("status", string(status)).
		Msg("Subscription status updated from webhook")

	switch status {
	case model.SubscriptionActive:
		ppID := sub.PayPalSubscriptionID
		return s.applyTier(ctx, sub.UserID, sub.Tier, string(status), &ppID)
	case model.SubscriptionCancelled, model.SubscriptionSuspended, model.SubscriptionExpired:
		return s.applyTier(ctx, sub.UserID, tier.Free, string(status), nil)
	}
	return nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	return s.repo.GetCurrentByUserID(ctx, userID)
}

// daysRemaining counts whole days left in the subscription period,
// clamped to a plausible billing-cycle range.
func (s *subscriptionService) daysRemaining(sub *model.Subscription) int {
	if sub == nil {
		return 30
	}
	if d := int(sub.PeriodEnd.Sub(s.now()).Hours() / 24); d >= 0 && d <= 31 {
		return d
	}
	return 30
}

// UpgradePreview returns the prorated cost of moving the user to the
// target tier for the remainder of the current period.
func (s *subscriptionService) UpgradePreview(ctx context.Context, userID string, target tier.Tier) (float64, error) {
	if !target.Valid() {
		return 0, fmt.Errorf("tier %q: %w", target, model.ErrValidation)
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	var current *model.Subscription
	if sub, err := s.repo.GetCurrentByUserID(ctx, userID); err == nil {
		current = sub
	}
	return s.policy.ProratedUpgradeCost(user.SubscriptionTier, target, s.daysRemaining(current)), nil
}

// UpgradeSubscription revises the provider subscription onto the target
// tier's plan, charging the prorated difference for the remainder of
// the period, then applies the new tier locally.
func (s *subscriptionService) UpgradeSubscription(ctx context.Context, userID string, target tier.Tier) (*model.Subscription, error) {
	if !target.Valid() || target == tier.Free {
		return nil, fmt.Errorf("tier %q is not purchasable: %w", target, model.ErrValidation)
	}
	planID, ok := s.paypal.PlanID(target)
	if !ok {
		return nil, fmt.Errorf("no billing plan configured for tier %s: %w", target, model.ErrValidation)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubscriptionActive {
		return nil, fmt.Errorf("subscription %s is %s, not active: %w", sub.ID, sub.Status, model.ErrConflict)
	}
	if sub.Tier == target {
		return nil, fmt.Errorf("already on tier %s: %w", target, model.ErrConflict)
	}

	prorate := s.policy.ProratedUpgradeCost(user.SubscriptionTier, target, s.daysRemaining(sub))
	if err := s.paypal.ReviseSubscription(ctx, sub.PayPalSubscriptionID, planID, prorate); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Str("tier", string(target)).Msg("Failed to revise PayPal subscription")
		return nil, err
	}

	amountCents := int64(s.policy.Limits(target).PriceUSD * 100)
	if err := s.repo.UpdatePlan(ctx, sub.ID, target, planID, amountCents); err != nil {
		return nil, err
	}
	sub.Tier = target
	sub.PayPalPlanID = planID
	sub.AmountCents = amountCents

	s.logger.Info().
		Str("subscription_id", sub.ID).
		Str("user_id", userID).
		Str("tier", string(target)).
		Float64("prorate_usd", prorate).
		Msg("Subscription upgraded")

	ppID := sub.PayPalSubscriptionID
	if err := s.applyTier(ctx, userID, target, string(model.SubscriptionActive), &ppID); err != nil {
		return nil, err
	}
	return sub, nil
}

// applyTier updates the user record and drops the cached tier.
func (s *subscriptionService) applyTier(ctx context.Context, userID string, t tier.Tier, status string, paypalSubscriptionID *string) error {
	if err := s.userRepo.UpdateSubscription(ctx, userID, t, status, paypalSubscriptionID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, cache.SubscriptionKey(userID)); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate subscription cache")
	}
	return nil
}
