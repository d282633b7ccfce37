package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"app/internal/api/v1/dto"
	"app/internal/billing"
	"app/internal/service"
	"app/internal/tier"
)

// WebhookVerifier checks provider signatures on webhook deliveries.
type WebhookVerifier interface {
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) bool
}

// SubscriptionHandler handles subscription lifecycle and usage endpoints.
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	usageService        service.UsageService
	verifier            WebhookVerifier
	validate            *validator.Validate
	logger              zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(
	subscriptionService service.SubscriptionService,
	usageService service.UsageService,
	verifier WebhookVerifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		usageService:        usageService,
		verifier:            verifier,
		validate:            validate,
		logger:              logger.With().Str("handler", "SubscriptionHandler").Logger(),
	}
}

// RegisterRoutes mounts subscription routes. The webhook endpoint is
// authenticated by signature verification, not by user JWT.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions", authMw(http.HandlerFunc(h.handleSubscription)))
	mux.Handle("/subscriptions/usage", authMw(http.HandlerFunc(h.getUsage)))
	mux.Handle("/subscriptions/preview", authMw(http.HandlerFunc(h.getUpgradePreview)))
	mux.Handle("/subscriptions/upgrade", authMw(http.HandlerFunc(h.upgradeSubscription)))
	mux.Handle("/subscriptions/webhook", http.HandlerFunc(h.handleWebhook))
}

func (h *SubscriptionHandler) handleSubscription(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSubscription(w, r)
	case http.MethodGet:
		h.getSubscription(w, r)
	case http.MethodDelete:
		h.cancelSubscription(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// createSubscription godoc
// @Summary Start a paid subscription
// @Description Creates a PayPal billing agreement and returns the approval URL.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.SubscriptionCreateDTO true "Target tier"
// @Success 201 {object} dto.SubscriptionResponseDTO
// @Failure 409 {string} string "User already has a subscription"
// @Router /subscriptions [post]
func (h *SubscriptionHandler) createSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.SubscriptionCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.subscriptionService.CreateSubscription(r.Context(), userID, tier.Tier(req.Tier), req.ReturnURL, req.CancelURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewSubscriptionResponse(result.Subscription, result.ApprovalURL))
}

// getSubscription godoc
// @Summary Get the current subscription
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 404 {string} string "No active subscription"
// @Router /subscriptions [get]
func (h *SubscriptionHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	sub, err := h.subscriptionService.GetCurrentSubscription(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSubscriptionResponse(sub, ""))
}

// cancelSubscription godoc
// @Summary Cancel the current subscription
// @Description Cancels the PayPal agreement and downgrades the user to FREE.
// @Tags subscriptions
// @Success 204 {string} string "Cancelled"
// @Failure 404 {string} string "No active subscription"
// @Router /subscriptions [delete]
func (h *SubscriptionHandler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.subscriptionService.CancelSubscription(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getUsage godoc
// @Summary Get current month usage
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.UsageResponseDTO
// @Router /subscriptions/usage [get]
func (h *SubscriptionHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	usage, err := h.usageService.CurrentUsage(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := h.usageService.RecentActivity(r.Context(), userID, 10)
	if err != nil {
		// The summary is the point of the endpoint; a broken feed only
		// degrades the response.
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load recent activity")
	}
	writeJSON(w, http.StatusOK, dto.NewUsageResponse(usage, events))
}

// getUpgradePreview godoc
// @Summary Preview a tier upgrade
// @Description Returns the prorated cost of switching to the given tier now.
// @Tags subscriptions
// @Produce json
// @Param tier query string true "Target tier"
// @Success 200 {object} dto.UpgradePreviewResponseDTO
// @Router /subscriptions/preview [get]
func (h *SubscriptionHandler) getUpgradePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	target := tier.Tier(r.URL.Query().Get("tier"))
	cost, err := h.subscriptionService.UpgradePreview(r.Context(), userID, target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UpgradePreviewResponseDTO{
		Tier:            string(target),
		ProratedCostUSD: cost,
	})
}

// upgradeSubscription godoc
// @Summary Upgrade the current subscription
// @Description Revises the PayPal plan to the target tier and charges the prorated difference.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param request body dto.SubscriptionUpgradeDTO true "Target tier"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 409 {string} string "Subscription is not active or already on the tier"
// @Router /subscriptions/upgrade [post]
func (h *SubscriptionHandler) upgradeSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.SubscriptionUpgradeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.subscriptionService.UpgradeSubscription(r.Context(), userID, tier.Tier(req.Tier))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewSubscriptionResponse(sub, ""))
}

// handleWebhook godoc
// @Summary PayPal webhook receiver
// @Description Verifies the delivery signature and applies the event to local state.
// @Tags subscriptions
// @Accept json
// @Success 200 {string} string "Processed"
// @Failure 401 {string} string "Signature verification failed"
// @Router /subscriptions/webhook [post]
func (h *SubscriptionHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if !h.verifier.VerifyWebhookSignature(r.Context(), r.Header, body) {
		h.logger.Warn().Msg("Webhook signature verification failed")
		http.Error(w, "Signature verification failed", http.StatusUnauthorized)
		return
	}

	var event billing.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Invalid webhook payload", http.StatusBadRequest)
		return
	}
	if err := h.subscriptionService.HandleWebhookEvent(r.Context(), &event); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
