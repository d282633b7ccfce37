package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"app/internal/model"
	"app/internal/tier"
)

func newUserFixture(t *testing.T) (UserService, *mockUserRepo, *mockUsageService) {
	t.Helper()
	repo := &mockUserRepo{}
	usage := &mockUsageService{}
	return NewUserService(repo, usage, zerolog.Nop()), repo, usage
}

func adminUser() *model.User {
	return &model.User{UserID: "admin-1", SubscriptionTier: tier.Enterprise, IsAdmin: true}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	svc, repo, _ := newUserFixture(t)
	repo.On("GetUserByID", mock.Anything, "user-1").Return(pipelineUser(tier.Pro), nil)

	_, err := svc.ListUsers(context.Background(), "user-1", 10, 0)
	require.ErrorIs(t, err, model.ErrForbidden)
	repo.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListUsersClampsPagingAndQueriesCurrentWindow(t *testing.T) {
	svc, repo, _ := newUserFixture(t)
	svc.(*userService).now = fixedNow

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	repo.On("GetUserByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	repo.On("ListUsers", mock.Anything, start, end, 50, 0).Return([]model.UserWithUsage{}, nil)

	_, err := svc.ListUsers(context.Background(), "admin-1", 0, -3)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateUserTierRecordsAdminAction(t *testing.T) {
	svc, repo, usage := newUserFixture(t)
	target := pipelineUser(tier.Free)
	target.UserID = "user-9"

	repo.On("GetUserByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	repo.On("GetUserByID", mock.Anything, "user-9").Return(target, nil)
	repo.On("UpdateSubscription", mock.Anything, "user-9", tier.Enterprise, "active", (*string)(nil)).Return(nil)
	usage.On("Record", mock.Anything, mock.MatchedBy(func(e *model.UsageEvent) bool {
		return e.Action == model.ActionAdminAction &&
			e.UserID == "admin-1" && e.ResourceID == "user-9" &&
			e.Metadata["from"] == "FREE" && e.Metadata["to"] == "ENTERPRISE"
	})).Return()

	updated, err := svc.UpdateUserTier(context.Background(), "admin-1", "user-9", tier.Enterprise, "")
	require.NoError(t, err)
	require.Equal(t, tier.Enterprise, updated.SubscriptionTier)
	usage.AssertExpectations(t)
}

func TestUpdateUserTierRejectsUnknownTier(t *testing.T) {
	svc, repo, _ := newUserFixture(t)
	repo.On("GetUserByID", mock.Anything, "admin-1").Return(adminUser(), nil)

	_, err := svc.UpdateUserTier(context.Background(), "admin-1", "user-9", tier.Tier("PLATINUM"), "")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestSetUserAdminRecordsAdminAction(t *testing.T) {
	svc, repo, usage := newUserFixture(t)
	target := pipelineUser(tier.Pro)
	target.UserID = "user-9"

	repo.On("GetUserByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	repo.On("GetUserByID", mock.Anything, "user-9").Return(target, nil)
	repo.On("SetAdmin", mock.Anything, "user-9", true).Return(nil)
	usage.On("Record", mock.Anything, mock.MatchedBy(func(e *model.UsageEvent) bool {
		return e.Action == model.ActionAdminAction &&
			e.Metadata["operation"] == "set_admin" && e.Metadata["is_admin"] == true
	})).Return()

	updated, err := svc.SetUserAdmin(context.Background(), "admin-1", "user-9", true)
	require.NoError(t, err)
	require.True(t, updated.IsAdmin)
	repo.AssertExpectations(t)
	usage.AssertExpectations(t)
}

func TestSetUserAdminForbiddenForNonAdmin(t *testing.T) {
	svc, repo, _ := newUserFixture(t)
	repo.On("GetUserByID", mock.Anything, "user-1").Return(pipelineUser(tier.Pro), nil)

	_, err := svc.SetUserAdmin(context.Background(), "user-1", "user-9", true)
	require.ErrorIs(t, err, model.ErrForbidden)
	repo.AssertNotCalled(t, "SetAdmin", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUserTierForbiddenForNonAdmin(t *testing.T) {
	svc, repo, usage := newUserFixture(t)
	repo.On("GetUserByID", mock.Anything, "user-1").Return(pipelineUser(tier.Pro), nil)

	_, err := svc.UpdateUserTier(context.Background(), "user-1", "user-9", tier.Pro, "")
	require.ErrorIs(t, err, model.ErrForbidden)
	usage.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}
