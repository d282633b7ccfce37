package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"app/internal/model"
	"app/internal/repository"
	"app/internal/tier"
)

// UserService covers profile reads and the admin surface. Every admin
// mutation leaves an admin_action event in the usage log.
type UserService interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context, adminID string, limit, offset int) ([]model.UserWithUsage, error)
	UpdateUserTier(ctx context.Context, adminID, targetUserID string, t tier.Tier, status string) (*model.User, error)
	SetUserAdmin(ctx context.Context, adminID, targetUserID string, isAdmin bool) (*model.User, error)
}

type userService struct {
	repo   repository.UserRepository
	usage  UsageService
	now    func() time.Time
	logger zerolog.Logger
}

// NewUserService creates a new UserService with a scoped logger.
func NewUserService(repo repository.UserRepository, usage UsageService, logger zerolog.Logger) UserService {
	return &userService{
		repo:   repo,
		usage:  usage,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// requireAdmin loads the caller and rejects non-admins.
func (s *userService) requireAdmin(ctx context.Context, adminID string) (*model.User, error) {
	admin, err := s.repo.GetUserByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, fmt.Errorf("user %s is not an admin: %w", adminID, model.ErrForbidden)
	}
	return admin, nil
}

// ListUsers returns a page of users with their video count for the
// current quota month.
func (s *userService) ListUsers(ctx context.Context, adminID string, limit, offset int) ([]model.UserWithUsage, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	start, end := monthWindow(s.now())
	return s.repo.ListUsers(ctx, start, end, limit, offset)
}

// UpdateUserTier is the manual override for support and enterprise
// onboarding. It bypasses billing entirely.
func (s *userService) UpdateUserTier(ctx context.Context, adminID, targetUserID string, t tier.Tier, status string) (*model.User, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, fmt.Errorf("unknown tier %q: %w", t, model.ErrValidation)
	}
	if status == "" {
		status = string(model.SubscriptionActive)
	}

	target, err := s.repo.GetUserByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	previous := target.SubscriptionTier

	if err := s.repo.UpdateSubscription(ctx, targetUserID, t, status, target.PayPalSubscriptionID); err != nil {
		return nil, err
	}
	target.SubscriptionTier = t
	target.SubscriptionStatus = status

	s.logger.Info().
		Str("admin_id", admin.UserID).
		Str("user_id", targetUserID).
		Str("from", string(previous)).
		Str("to", string(t)).
		Msg("Admin changed user tier")

	s.usage.Record(ctx, &model.UsageEvent{
		UserID:       admin.UserID,
		Action:       model.ActionAdminAction,
		ResourceType: "user",
		ResourceID:   targetUserID,
		Metadata: map[string]any{
			"operation": "update_tier",
			"from":      string(previous),
			"to":        string(t),
		},
	})
	return target, nil
}

// SetUserAdmin grants or revokes the admin flag.
func (s *userService) SetUserAdmin(ctx context.Context, adminID, targetUserID string, isAdmin bool) (*model.User, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.GetUserByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAdmin(ctx, targetUserID, isAdmin); err != nil {
		return nil, err
	}
	target.IsAdmin = isAdmin

	s.logger.Info().
		Str("admin_id", admin.UserID).
		Str("user_id", targetUserID).
		Bool("is_admin", isAdmin).
		Msg("Admin changed admin flag")

	s.usage.Record(ctx, &model.UsageEvent{
		UserID:       admin.UserID,
		Action:       model.ActionAdminAction,
		ResourceType: "user",
		ResourceID:   targetUserID,
		Metadata: map[string]any{
			"operation": "set_admin",
			"is_admin":  isAdmin,
		},
	})
	return target, nil
}
