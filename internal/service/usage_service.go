package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"app/internal/cache"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/tier"
)

// UsageService tracks countable actions and answers quota questions.
//
// Record is deliberately best-effort: metering must never fail a user
// request, so write failures are logged and swallowed. Callers that need
// the count to gate an action use MonthlyVideoCount before mutating.
type UsageService interface {
	Record(ctx context.Context, event *model.UsageEvent)
	MonthlyVideoCount(ctx context.Context, userID string) (int, error)
	CurrentUsage(ctx context.Context, userID string) (*model.UserUsage, error)
	RecentActivity(ctx context.Context, userID string, limit int) ([]model.UsageEvent, error)
}

type usageService struct {
	repo     repository.UsageRepository
	userRepo repository.UserRepository
	policy   *tier.Policy
	cache    *cache.Cache
	now      func() time.Time
	logger   zerolog.Logger
}

// NewUsageService creates a new UsageService with a scoped logger.
func NewUsageService(
	repo repository.UsageRepository,
	userRepo repository.UserRepository,
	policy *tier.Policy,
	c *cache.Cache,
	logger zerolog.Logger,
) UsageService {
	return &usageService{
		repo:     repo,
		userRepo: userRepo,
		policy:   policy,
		cache:    c,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("service", "UsageService").Logger(),
	}
}

// monthWindow returns the calendar-month quota window containing now,
// in UTC. [start, end).
func monthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Record appends a usage event. Failures are logged, never propagated.
func (s *usageService) Record(ctx context.Context, event *model.UsageEvent) {
	if err := s.repo.RecordEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", event.UserID).
			Str("action", string(event.Action)).
			Msg("Failed to record usage event")
		return
	}

	if event.Action == model.ActionVideoGeneration {
		start, _ := monthWindow(s.now())
		key := cache.UsageKey(event.UserID, start.Year(), start.Month())
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("user_id", event.UserID).Msg("Failed to invalidate usage cache")
		}
	}
}

// MonthlyVideoCount returns the number of videos the user has generated
// in the current calendar month.
func (s *usageService) MonthlyVideoCount(ctx context.Context, userID string) (int, error) {
	start, end := monthWindow(s.now())
	key := cache.UsageKey(userID, start.Year(), start.Month())

	if n, err := s.cache.GetCount(ctx, key); err == nil {
		return n, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Usage cache read failed")
	}

	n, err := s.repo.CountEventsInPeriod(ctx, userID, model.ActionVideoGeneration, start, end)
	if err != nil {
		return 0, err
	}
	if err := s.cache.SetCount(ctx, key, n); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Usage cache write failed")
	}
	return n, nil
}

// userTier resolves the user's tier through the cache. The cached value
// is dropped whenever billing or an admin changes the tier, so a hit is
// at most one invalidation behind.
func (s *usageService) userTier(ctx context.Context, userID string) (tier.Tier, error) {
	key := cache.SubscriptionKey(userID)
	if v, err := s.cache.GetString(ctx, key); err == nil {
		if t := tier.Tier(v); t.Valid() {
			return t, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Tier cache read failed")
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.cache.SetString(ctx, key, string(user.SubscriptionTier)); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Tier cache write failed")
	}
	return user.SubscriptionTier, nil
}

// CurrentUsage summarizes the user's consumption for the current month.
func (s *usageService) CurrentUsage(ctx context.Context, userID string) (*model.UserUsage, error) {
	t, err := s.userTier(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.MonthlyVideoCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end := monthWindow(s.now())
	limits := s.policy.Limits(t)
	return &model.UserUsage{
		UserID:          userID,
		Tier:            t,
		VideosGenerated: count,
		VideosPerMonth:  limits.VideosPerMonth,
		VideosRemaining: s.policy.RemainingVideos(t, count),
		PeriodStart:     start,
		PeriodEnd:       end,
	}, nil
}

func (s *usageService) RecentActivity(ctx context.Context, userID string, limit int) ([]model.UsageEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.GetRecentEvents(ctx, userID, limit)
}
