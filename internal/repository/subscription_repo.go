package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"app/internal/model"
	"app/internal/tier"
)

// SubscriptionRepository persists billing-provider subscriptions.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetByPayPalID(ctx context.Context, paypalSubscriptionID string) (*model.Subscription, error)
	// GetCurrentByUserID returns the user's active or pending
	// subscription, or model.ErrNotFound when the slot is empty.
	GetCurrentByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error
	// UpdatePlan moves a subscription to a new tier and plan after the
	// provider accepted the revision.
	UpdatePlan(ctx context.Context, subscriptionID string, t tier.Tier, planID string, amountCents int64) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
	id, user_id, tier, paypal_subscription_id, paypal_plan_id, status,
	period_start, period_end, amount_cents, created_at, updated_at
`

func (r *subscriptionRepo) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	const query = `
		INSERT INTO subscriptions (
			id, user_id, tier, paypal_subscription_id, paypal_plan_id, status,
			period_start, period_end, amount_cents
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		sub.ID, sub.UserID, sub.Tier, sub.PayPalSubscriptionID, sub.PayPalPlanID,
		sub.Status, sub.PeriodStart, sub.PeriodEnd, sub.AmountCents,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) GetByPayPalID(ctx context.Context, paypalSubscriptionID string) (*model.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `FROM subscriptions WHERE paypal_subscription_id = $1`
	sub, err := scanSubscription(r.pool.QueryRow(ctx, query, paypalSubscriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscription %s: %w", paypalSubscriptionID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan subscription row: %w", err)
	}
	return sub, nil
}

func (r *subscriptionRepo) GetCurrentByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'pending')
		ORDER BY created_at DESC
		LIMIT 1
	`
	sub, err := scanSubscription(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscription for user %s: %w", userID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan subscription row: %w", err)
	}
	return sub, nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	const query = `
		UPDATE subscriptions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, subscriptionID, status)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s: %w", subscriptionID, model.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepo) UpdatePlan(ctx context.Context, subscriptionID string, t tier.Tier, planID string, amountCents int64) error {
	const query = `
		UPDATE subscriptions
		SET tier = $2, paypal_plan_id = $3, amount_cents = $4, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, subscriptionID, t, planID, amountCents)
	if err != nil {
		return fmt.Errorf("failed to update subscription plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s: %w", subscriptionID, model.ErrNotFound)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var sub model.Subscription
	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Tier,
		&sub.PayPalSubscriptionID,
		&sub.PayPalPlanID,
		&sub.Status,
		&sub.PeriodStart,
		&sub.PeriodEnd,
		&sub.AmountCents,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
