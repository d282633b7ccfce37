package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"app/internal/cache"
	"app/internal/model"
	"app/internal/tier"
)

func newUsageFixture(t *testing.T) (*usageService, *mockUsageRepo, *mockUserRepo) {
	t.Helper()
	repo := &mockUsageRepo{}
	users := &mockUserRepo{}
	svc := NewUsageService(repo, users, tier.NewPolicy(tier.Default()), nil, zerolog.Nop()).(*usageService)
	svc.now = fixedNow
	return svc, repo, users
}

func TestMonthWindowIsCalendarMonthUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Local time is still Feb 28 but UTC has rolled into March: the
	// window is pinned to the UTC month.
	now := time.Date(2026, time.February, 28, 22, 30, 0, 0, loc)
	start, end := monthWindow(now)
	require.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestMonthWindowDecemberRollover(t *testing.T) {
	start, end := monthWindow(time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC))
	require.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestRecordSwallowsRepositoryFailure(t *testing.T) {
	svc, repo, _ := newUsageFixture(t)
	repo.On("RecordEvent", mock.Anything, mock.Anything).Return(errors.New("db down"))

	// Must not panic or surface the error.
	svc.Record(context.Background(), &model.UsageEvent{
		UserID: "user-1",
		Action: model.ActionVideoGeneration,
	})
	repo.AssertExpectations(t)
}

func TestMonthlyVideoCountQueriesCurrentWindow(t *testing.T) {
	svc, repo, _ := newUsageFixture(t)
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	repo.On("CountEventsInPeriod", mock.Anything, "user-1", model.ActionVideoGeneration, start, end).
		Return(4, nil)

	n, err := svc.MonthlyVideoCount(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestCurrentUsageSummary(t *testing.T) {
	svc, repo, users := newUsageFixture(t)
	users.On("GetUserByID", mock.Anything, "user-1").
		Return(&model.User{UserID: "user-1", SubscriptionTier: tier.Starter}, nil)
	repo.On("CountEventsInPeriod", mock.Anything, "user-1", model.ActionVideoGeneration, mock.Anything, mock.Anything).
		Return(10, nil)

	usage, err := svc.CurrentUsage(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, tier.Starter, usage.Tier)
	require.Equal(t, 10, usage.VideosGenerated)
	require.Equal(t, 25, usage.VideosPerMonth)
	require.Equal(t, 15, usage.VideosRemaining)
}

func TestCurrentUsageSurvivesCacheOutage(t *testing.T) {
	svc, repo, users := newUsageFixture(t)
	// A configured but unreachable Redis must degrade to Postgres, not fail.
	svc.cache = cache.New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), time.Minute)

	users.On("GetUserByID", mock.Anything, "user-1").
		Return(&model.User{UserID: "user-1", SubscriptionTier: tier.Starter}, nil)
	repo.On("CountEventsInPeriod", mock.Anything, "user-1", model.ActionVideoGeneration, mock.Anything, mock.Anything).
		Return(3, nil)

	usage, err := svc.CurrentUsage(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, tier.Starter, usage.Tier)
	require.Equal(t, 3, usage.VideosGenerated)
}

func TestRecentActivityClampsLimit(t *testing.T) {
	svc, repo, _ := newUsageFixture(t)
	events := []model.UsageEvent{{UserID: "user-1", Action: model.ActionFileUpload}}
	repo.On("GetRecentEvents", mock.Anything, "user-1", 50).Return(events, nil)

	got, err := svc.RecentActivity(context.Background(), "user-1", -5)
	require.NoError(t, err)
	require.Equal(t, events, got)

	repo.On("GetRecentEvents", mock.Anything, "user-2", 10).Return([]model.UsageEvent{}, nil)
	_, err = svc.RecentActivity(context.Background(), "user-2", 10)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCurrentUsageUnlimitedTier(t *testing.T) {
	svc, repo, users := newUsageFixture(t)
	users.On("GetUserByID", mock.Anything, "user-1").
		Return(&model.User{UserID: "user-1", SubscriptionTier: tier.Enterprise}, nil)
	repo.On("CountEventsInPeriod", mock.Anything, "user-1", model.ActionVideoGeneration, mock.Anything, mock.Anything).
		Return(999, nil)

	usage, err := svc.CurrentUsage(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, tier.Unlimited, usage.VideosPerMonth)
	require.Equal(t, tier.Unlimited, usage.VideosRemaining)
}
