package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"app/internal/model"
	"app/internal/tier"
)

// UserRepository reads and updates the tier-bearing user records.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context, periodStart, periodEnd time.Time, limit, offset int) ([]model.UserWithUsage, error)
	UpdateSubscription(ctx context.Context, userID string, t tier.Tier, status string, paypalSubscriptionID *string) error
	SetAdmin(ctx context.Context, userID string, isAdmin bool) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `
	user_id, name, email, subscription_tier, subscription_status, is_admin,
	paypal_subscription_id, created_at, updated_at
`

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const query = `
		INSERT INTO user_profiles (user_id, name, email, subscription_tier, subscription_status, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		u.UserID, u.Name, u.Email, u.SubscriptionTier, u.SubscriptionStatus, u.IsAdmin,
	).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	query := `SELECT` + userColumns + `FROM user_profiles WHERE user_id = $1`
	var u model.User
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.UserID,
		&u.Name,
		&u.Email,
		&u.SubscriptionTier,
		&u.SubscriptionStatus,
		&u.IsAdmin,
		&u.PayPalSubscriptionID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}
	return &u, nil
}

func (r *userRepo) ListUsers(ctx context.Context, periodStart, periodEnd time.Time, limit, offset int) ([]model.UserWithUsage, error) {
	const query = `
		SELECT
			u.user_id, u.name, u.email, u.subscription_tier, u.subscription_status, u.is_admin,
			u.paypal_subscription_id, u.created_at, u.updated_at,
			(
				SELECT COUNT(*) FROM usage_events e
				WHERE e.user_id = u.user_id
				  AND e.action = 'video_generation'
				  AND e.created_at >= $1 AND e.created_at < $2
			) AS videos_this_month
		FROM user_profiles u
		ORDER BY u.created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, periodStart, periodEnd, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.UserWithUsage
	for rows.Next() {
		var u model.UserWithUsage
		if err := rows.Scan(
			&u.UserID,
			&u.Name,
			&u.Email,
			&u.SubscriptionTier,
			&u.SubscriptionStatus,
			&u.IsAdmin,
			&u.PayPalSubscriptionID,
			&u.CreatedAt,
			&u.UpdatedAt,
			&u.VideosThisMonth,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func (r *userRepo) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	const query = `
		UPDATE user_profiles
		SET is_admin = $2, updated_at = NOW()
		WHERE user_id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	return nil
}

func (r *userRepo) UpdateSubscription(ctx context.Context, userID string, t tier.Tier, status string, paypalSubscriptionID *string) error {
	const query = `
		UPDATE user_profiles
		SET subscription_tier = $2, subscription_status = $3, paypal_subscription_id = $4, updated_at = NOW()
		WHERE user_id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID, t, status, paypalSubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to update user subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, model.ErrNotFound)
	}
	return nil
}
