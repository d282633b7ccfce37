// Package billing integrates with the PayPal REST subscriptions API:
// OAuth token management, subscription lifecycle calls, webhook
// signature verification and plan-to-tier mapping.
package billing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"app/internal/model"
	"app/internal/tier"
)

const (
	sandboxBaseURL = "https://api.sandbox.paypal.com"
	liveBaseURL    = "https://api.paypal.com"
)

// Webhook event types this service reacts to.
const (
	EventSubscriptionCreated   = "BILLING.SUBSCRIPTION.CREATED"
	EventSubscriptionActivated = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubscriptionSuspended = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventSubscriptionExpired   = "BILLING.SUBSCRIPTION.EXPIRED"
	EventPaymentCompleted      = "PAYMENT.SALE.COMPLETED"
	EventPaymentDenied         = "PAYMENT.SALE.DENIED"
)

// Config carries credentials and the per-tier billing plan ids.
type Config struct {
	ClientID     string
	ClientSecret string
	Environment  string // "sandbox" or "live"
	WebhookID    string
	PlanIDs      map[tier.Tier]string
	BrandName    string
}

// Subscription is the PayPal-side view of a billing agreement.
type Subscription struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	PlanID     string `json:"plan_id"`
	Subscriber struct {
		EmailAddress string `json:"email_address"`
	} `json:"subscriber"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
	Links      []link    `json:"links"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// ApprovalURL returns the link the subscriber must visit to approve the
// agreement, or empty if PayPal did not include one.
func (s *Subscription) ApprovalURL() string {
	for _, l := range s.Links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

// WebhookEvent is a notification delivered to the webhook endpoint.
type WebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Summary      string          `json:"summary"`
	Resource     json.RawMessage `json:"resource"`
	CreateTime   time.Time       `json:"create_time"`
}

// SubscriptionResource decodes the event resource as a subscription.
func (e *WebhookEvent) SubscriptionResource() (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(e.Resource, &sub); err != nil {
		return nil, fmt.Errorf("decode webhook subscription resource: %w", err)
	}
	return &sub, nil
}

// Client is an authenticated PayPal REST client with cached OAuth
// tokens.
type Client struct {
	cfg     Config
	baseURL string
	client  *http.Client
	logger  zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a Client for the configured environment.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	base := sandboxBaseURL
	if cfg.Environment == "live" {
		base = liveBaseURL
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "AnimaGenius"
	}
	return &Client{
		cfg:     cfg,
		baseURL: base,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("service", "PayPalClient").Logger(),
	}
}

// token returns a valid OAuth access token, refreshing via the
// client-credentials grant when the cached one is near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token: %v", model.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: paypal authentication failed: HTTP %d", model.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: paypal %s %s: %v", model.ErrUpstream, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: paypal %s %s: HTTP %d: %s", model.ErrUpstream, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateSubscription starts a billing agreement for the plan and
// returns the subscription with its approval URL.
func (c *Client) CreateSubscription(ctx context.Context, planID, userEmail, userName, returnURL, cancelURL string) (*Subscription, error) {
	given := userName
	surname := "User"
	if i := strings.IndexByte(userName, ' '); i > 0 {
		given = userName[:i]
		surname = userName[i+1:]
	}

	payload := map[string]any{
		"plan_id": planID,
		"subscriber": map[string]any{
			"name": map[string]string{
				"given_name": given,
				"surname":    surname,
			},
			"email_address": userEmail,
		},
		"application_context": map[string]any{
			"brand_name":          c.cfg.BrandName,
			"locale":              "en-US",
			"shipping_preference": "NO_SHIPPING",
			"user_action":         "SUBSCRIBE_NOW",
			"payment_method": map[string]string{
				"payer_selected":  "PAYPAL",
				"payee_preferred": "IMMEDIATE_PAYMENT_REQUIRED",
			},
			"return_url": returnURL,
			"cancel_url": cancelURL,
		},
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", payload, &sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	c.logger.Info().Str("subscriptionId", sub.ID).Str("planId", planID).Msg("paypal subscription created")
	return &sub, nil
}

// GetSubscription fetches the current state of a billing agreement.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodGet, "/v1/billing/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return &sub, nil
}

// CancelSubscription cancels a billing agreement.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	if reason == "" {
		reason = "User requested cancellation"
	}
	payload := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions/"+subscriptionID+"/cancel", payload, nil); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	c.logger.Info().Str("subscriptionId", subscriptionID).Msg("paypal subscription cancelled")
	return nil
}

// ReviseSubscription moves a billing agreement to a new plan with
// proration.
func (c *Client) ReviseSubscription(ctx context.Context, subscriptionID, newPlanID string, prorateUSD float64) error {
	payload := map[string]any{
		"plan_id":   newPlanID,
		"proration": true,
	}
	if prorateUSD > 0 {
		payload["proration_amount"] = map[string]string{
			"currency_code": "USD",
			"value":         fmt.Sprintf("%.2f", prorateUSD),
		}
	}
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions/"+subscriptionID+"/revise", payload, nil); err != nil {
		return fmt.Errorf("revise subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// VerifyWebhookSignature asks PayPal to confirm the event headers match
// the configured webhook. Any verification failure returns false, never
// an error that could be mistaken for a valid event.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) bool {
	var event json.RawMessage
	if err := json.Unmarshal(body, &event); err != nil {
		return false
	}

	payload := map[string]any{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_id":           headers.Get("Paypal-Cert-Id"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        c.cfg.WebhookID,
		"webhook_event":     event,
	}

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload, &out); err != nil {
		c.logger.Warn().Err(err).Msg("webhook signature verification call failed")
		return false
	}
	return out.VerificationStatus == "SUCCESS"
}

// PlanID returns the billing plan id configured for a paid tier.
func (c *Client) PlanID(t tier.Tier) (string, bool) {
	id, ok := c.cfg.PlanIDs[t]
	return id, ok && id != ""
}

// TierFromPlanID maps a billing plan id back to its tier.
func (c *Client) TierFromPlanID(planID string) (tier.Tier, bool) {
	return TierFromPlanID(c.cfg.PlanIDs, planID)
}

// TierFromPlanID resolves which tier a plan id belongs to.
func TierFromPlanID(plans map[tier.Tier]string, planID string) (tier.Tier, bool) {
	if planID == "" {
		return "", false
	}
	for t, id := range plans {
		if id == planID {
			return t, true
		}
	}
	return "", false
}

// StatusFromEvent maps a webhook event type to the subscription status
// it implies. The second return is false for events that do not change
// subscription state.
func StatusFromEvent(eventType string) (model.SubscriptionStatus, bool) {
	switch eventType {
	case EventSubscriptionCreated:
		return model.SubscriptionPending, true
	case EventSubscriptionActivated:
		return model.SubscriptionActive, true
	case EventSubscriptionCancelled:
		return model.SubscriptionCancelled, true
	case EventSubscriptionSuspended, EventPaymentDenied:
		return model.SubscriptionSuspended, true
	case EventSubscriptionExpired:
		return model.SubscriptionExpired, true
	default:
		return "", false
	}
}
