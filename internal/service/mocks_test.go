package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"app/internal/billing"
	"app/internal/model"
	"app/internal/tier"
)

type mockProjectRepo struct{ mock.Mock }

func (m *mockProjectRepo) CreateProject(ctx context.Context, p *model.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProjectRepo) GetProjectByID(ctx context.Context, projectID string) (*model.Project, error) {
	args := m.Called(ctx, projectID)
	if p := args.Get(0); p != nil {
		return p.(*model.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) GetProjectsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Project, error) {
	args := m.Called(ctx, userID, limit, offset)
	if p := args.Get(0); p != nil {
		return p.([]model.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProjectRepo) UpdateProject(ctx context.Context, p *model.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProjectRepo) DeleteProject(ctx context.Context, projectID string) error {
	return m.Called(ctx, projectID).Error(0)
}

type mockRenderJobRepo struct{ mock.Mock }

func (m *mockRenderJobRepo) CreateIfNoActive(ctx context.Context, job *model.RenderJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockRenderJobRepo) GetRenderJobByID(ctx context.Context, jobID string) (*model.RenderJob, error) {
	args := m.Called(ctx, jobID)
	if j := args.Get(0); j != nil {
		return j.(*model.RenderJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRenderJobRepo) GetLatestByProjectID(ctx context.Context, projectID string) (*model.RenderJob, error) {
	args := m.Called(ctx, projectID)
	if j := args.Get(0); j != nil {
		return j.(*model.RenderJob), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRenderJobRepo) MarkRunning(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *mockRenderJobRepo) MarkCompleted(ctx context.Context, jobID, outputURL string, actualSec int) error {
	return m.Called(ctx, jobID, outputURL, actualSec).Error(0)
}

func (m *mockRenderJobRepo) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	return m.Called(ctx, jobID, errorMessage).Error(0)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) ListUsers(ctx context.Context, periodStart, periodEnd time.Time, limit, offset int) ([]model.UserWithUsage, error) {
	args := m.Called(ctx, periodStart, periodEnd, limit, offset)
	if u := args.Get(0); u != nil {
		return u.([]model.UserWithUsage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdateSubscription(ctx context.Context, userID string, t tier.Tier, status string, paypalSubscriptionID *string) error {
	return m.Called(ctx, userID, t, status, paypalSubscriptionID).Error(0)
}

func (m *mockUserRepo) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	return m.Called(ctx, userID, isAdmin).Error(0)
}

type mockUsageRepo struct{ mock.Mock }

func (m *mockUsageRepo) RecordEvent(ctx context.Context, event *model.UsageEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockUsageRepo) CountEventsInPeriod(ctx context.Context, userID string, action model.UsageAction, start, end time.Time) (int, error) {
	args := m.Called(ctx, userID, action, start, end)
	return args.Int(0), args.Error(1)
}

func (m *mockUsageRepo) GetRecentEvents(ctx context.Context, userID string, limit int) ([]model.UsageEvent, error) {
	args := m.Called(ctx, userID, limit)
	if e := args.Get(0); e != nil {
		return e.([]model.UsageEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSubscriptionRepo struct{ mock.Mock }

func (m *mockSubscriptionRepo) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) GetByPayPalID(ctx context.Context, paypalSubscriptionID string) (*model.Subscription, error) {
	args := m.Called(ctx, paypalSubscriptionID)
	if s := args.Get(0); s != nil {
		return s.(*model.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubscriptionRepo) GetCurrentByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	args := m.Called(ctx, userID)
	if s := args.Get(0); s != nil {
		return s.(*model.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubscriptionRepo) UpdateStatus(ctx context.Context, subscriptionID string, status model.SubscriptionStatus) error {
	return m.Called(ctx, subscriptionID, status).Error(0)
}

func (m *mockSubscriptionRepo) UpdatePlan(ctx context.Context, subscriptionID string, t tier.Tier, planID string, amountCents int64) error {
	return m.Called(ctx, subscriptionID, t, planID, amountCents).Error(0)
}

type mockUsageService struct{ mock.Mock }

func (m *mockUsageService) Record(ctx context.Context, event *model.UsageEvent) {
	m.Called(ctx, event)
}

func (m *mockUsageService) MonthlyVideoCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockUsageService) CurrentUsage(ctx context.Context, userID string) (*model.UserUsage, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*model.UserUsage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsageService) RecentActivity(ctx context.Context, userID string, limit int) ([]model.UsageEvent, error) {
	args := m.Called(ctx, userID, limit)
	if e := args.Get(0); e != nil {
		return e.([]model.UsageEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAIClient struct{ mock.Mock }

func (m *mockAIClient) Analyze(ctx context.Context, content, contentType string) (string, error) {
	args := m.Called(ctx, content, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockAIClient) GenerateScript(ctx context.Context, analysis string, durationSec int, style string) (*model.Script, error) {
	args := m.Called(ctx, analysis, durationSec, style)
	if s := args.Get(0); s != nil {
		return s.(*model.Script), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAIClient) GenerateVideo(ctx context.Context, prompt string, durationSec int) (string, error) {
	args := m.Called(ctx, prompt, durationSec)
	return args.String(0), args.Error(1)
}

type mockBillingClient struct{ mock.Mock }

func (m *mockBillingClient) CreateSubscription(ctx context.Context, planID, userEmail, userName, returnURL, cancelURL string) (*billing.Subscription, error) {
	args := m.Called(ctx, planID, userEmail, userName, returnURL, cancelURL)
	if s := args.Get(0); s != nil {
		return s.(*billing.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBillingClient) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	return m.Called(ctx, subscriptionID, reason).Error(0)
}

func (m *mockBillingClient) ReviseSubscription(ctx context.Context, subscriptionID, newPlanID string, prorateUSD float64) error {
	return m.Called(ctx, subscriptionID, newPlanID, prorateUSD).Error(0)
}

func (m *mockBillingClient) PlanID(t tier.Tier) (string, bool) {
	args := m.Called(t)
	return args.String(0), args.Bool(1)
}

func (m *mockBillingClient) TierFromPlanID(planID string) (tier.Tier, bool) {
	args := m.Called(planID)
	return args.Get(0).(tier.Tier), args.Bool(1)
}

type mockObjectStore struct{ mock.Mock }

func (m *mockObjectStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return m.Called(ctx, key, contentType, data).Error(0)
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// recordingPublisher captures pipeline events without a broker.
type recordingPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return "msg-1", nil
}
