package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"
	"app/internal/tier"
)

// AdminHandler exposes the admin user surface. Authorization happens in
// the service layer against the caller's profile, not here.
type AdminHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userService service.UserService, validate *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		validate:    validate,
		logger:      logger.With().Str("handler", "AdminHandler").Logger(),
	}
}

// RegisterRoutes mounts admin routes under /admin
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/admin/users", authMw(http.HandlerFunc(h.listUsers)))
	mux.Handle("/admin/users/", authMw(http.HandlerFunc(h.updateUser)))
}

// listUsers godoc
// @Summary List all users
// @Description Returns a page of user profiles. Requires an admin caller.
// @Tags admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.UserListResponseDTO
// @Failure 403 {string} string "Caller is not an admin"
// @Router /admin/users [get]
func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	adminID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.userService.ListUsers(r.Context(), adminID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := dto.UserListResponseDTO{Users: []dto.AdminUserResponseDTO{}, Limit: limit, Offset: offset}
	for i := range users {
		resp.Users = append(resp.Users, dto.NewAdminUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// updateUser godoc
// @Summary Override a user's tier or admin flag
// @Description Sets a user's subscription tier directly, bypassing billing, and/or toggles their admin flag. Requires an admin caller.
// @Tags admin
// @Accept json
// @Produce json
// @Param userId path string true "Target user ID"
// @Param request body dto.AdminUserUpdateDTO true "New tier"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 403 {string} string "Caller is not an admin"
// @Failure 404 {string} string "User not found"
// @Router /admin/users/{userId} [patch]
func (h *AdminHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	adminID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	targetID := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	if targetID == "" {
		http.NotFound(w, r)
		return
	}

	var req dto.AdminUserUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SubscriptionTier == "" && req.IsAdmin == nil {
		http.Error(w, "No fields to update", http.StatusBadRequest)
		return
	}

	var user *model.User
	var err error
	if req.SubscriptionTier != "" {
		user, err = h.userService.UpdateUserTier(r.Context(), adminID, targetID, tier.Tier(req.SubscriptionTier), req.SubscriptionStatus)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if req.IsAdmin != nil {
		user, err = h.userService.SetUserAdmin(r.Context(), adminID, targetID, *req.IsAdmin)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(user))
}
