package dto

import (
	"time"

	"app/internal/model"
)

// UserResponseDTO is returned for a user record
type UserResponseDTO struct {
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	SubscriptionTier   string    `json:"subscription_tier"`
	SubscriptionStatus string    `json:"subscription_status"`
	IsAdmin            bool      `json:"is_admin"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AdminUserResponseDTO adds per-user usage to the admin listing
type AdminUserResponseDTO struct {
	UserResponseDTO
	VideosThisMonth int `json:"videos_this_month"`
}

// UserListResponseDTO wraps a page of users
type UserListResponseDTO struct {
	Users  []AdminUserResponseDTO `json:"users"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// AdminUserUpdateDTO is the body for the admin user override. At least
// one field must be set.
type AdminUserUpdateDTO struct {
	SubscriptionTier   string `json:"subscription_tier" validate:"omitempty,oneof=FREE STARTER PRO ENTERPRISE"`
	SubscriptionStatus string `json:"subscription_status" validate:"omitempty,oneof=pending active cancelled suspended expired"`
	IsAdmin            *bool  `json:"is_admin"`
}

// NewUserResponse maps a user onto its API shape.
func NewUserResponse(u *model.User) UserResponseDTO {
	return UserResponseDTO{
		UserID:             u.UserID,
		Name:               u.Name,
		Email:              u.Email,
		SubscriptionTier:   string(u.SubscriptionTier),
		SubscriptionStatus: u.SubscriptionStatus,
		IsAdmin:            u.IsAdmin,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// NewAdminUserResponse maps a user with usage onto its API shape.
func NewAdminUserResponse(u *model.UserWithUsage) AdminUserResponseDTO {
	return AdminUserResponseDTO{
		UserResponseDTO: NewUserResponse(&u.User),
		VideosThisMonth: u.VideosThisMonth,
	}
}
