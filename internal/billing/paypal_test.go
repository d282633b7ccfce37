package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"app/internal/model"
	"app/internal/tier"
)

func testPlans() map[tier.Tier]string {
	return map[tier.Tier]string{
		tier.Starter:    "P-STARTER",
		tier.Pro:        "P-PRO",
		tier.Enterprise: "P-ENTERPRISE",
	}
}

func TestStatusFromEvent(t *testing.T) {
	cases := []struct {
		eventType string
		want      model.SubscriptionStatus
		ok        bool
	}{
		{EventSubscriptionCreated, model.SubscriptionPending, true},
		{EventSubscriptionActivated, model.SubscriptionActive, true},
		{EventSubscriptionCancelled, model.SubscriptionCancelled, true},
		{EventSubscriptionSuspended, model.SubscriptionSuspended, true},
		{EventSubscriptionExpired, model.SubscriptionExpired, true},
		{EventPaymentDenied, model.SubscriptionSuspended, true},
		{EventPaymentCompleted, "", false},
		{"BILLING.PLAN.UPDATED", "", false},
	}
	for _, tc := range cases {
		got, ok := StatusFromEvent(tc.eventType)
		require.Equal(t, tc.ok, ok, tc.eventType)
		require.Equal(t, tc.want, got, tc.eventType)
	}
}

func TestTierFromPlanID(t *testing.T) {
	got, ok := TierFromPlanID(testPlans(), "P-PRO")
	require.True(t, ok)
	require.Equal(t, tier.Pro, got)

	_, ok = TierFromPlanID(testPlans(), "P-UNKNOWN")
	require.False(t, ok)

	_, ok = TierFromPlanID(testPlans(), "")
	require.False(t, ok)
}

func TestSubscriptionApprovalURL(t *testing.T) {
	sub := Subscription{Links: []link{
		{Href: "https://paypal.example/self", Rel: "self"},
		{Href: "https://paypal.example/approve", Rel: "approve"},
	}}
	require.Equal(t, "https://paypal.example/approve", sub.ApprovalURL())

	require.Empty(t, (&Subscription{}).ApprovalURL())
}

func TestWebhookEventSubscriptionResource(t *testing.T) {
	body := []byte(`{"id":"WH-1","event_type":"BILLING.SUBSCRIPTION.ACTIVATED","resource":{"id":"I-123","status":"ACTIVE","plan_id":"P-PRO"}}`)

	var event WebhookEvent
	require.NoError(t, json.Unmarshal(body, &event))

	sub, err := event.SubscriptionResource()
	require.NoError(t, err)
	require.Equal(t, "I-123", sub.ID)
	require.Equal(t, "P-PRO", sub.PlanID)
}

func TestCreateSubscriptionFlow(t *testing.T) {
	var sawTokenGrant, sawCreate bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			sawTokenGrant = true
			require.NotEmpty(t, r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
		case "/v1/billing/subscriptions":
			sawCreate = true
			require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "P-PRO", payload["plan_id"])

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "I-900",
				"status": "APPROVAL_PENDING",
				"links": []map[string]string{
					{"href": "https://paypal.example/approve/I-900", "rel": "approve"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret", PlanIDs: testPlans()}, zerolog.Nop())
	c.baseURL = srv.URL

	sub, err := c.CreateSubscription(context.Background(), "P-PRO", "jo@example.com", "Jo Smith", "https://app/return", "https://app/cancel")
	require.NoError(t, err)
	require.True(t, sawTokenGrant)
	require.True(t, sawCreate)
	require.Equal(t, "I-900", sub.ID)
	require.Equal(t, "https://paypal.example/approve/I-900", sub.ApprovalURL())
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			tokenCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "I-1", "status": "ACTIVE"})
		}
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret"}, zerolog.Nop())
	c.baseURL = srv.URL

	for i := 0; i < 3; i++ {
		_, err := c.GetSubscription(context.Background(), "I-1")
		require.NoError(t, err)
	}
	require.Equal(t, 1, tokenCalls)
}

func TestUpstreamFailureWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			return
		}
		http.Error(w, `{"name":"RESOURCE_NOT_FOUND"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret"}, zerolog.Nop())
	c.baseURL = srv.URL

	_, err := c.GetSubscription(context.Background(), "I-missing")
	require.ErrorIs(t, err, model.ErrUpstream)
}

func TestVerifyWebhookSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case "/v1/notifications/verify-webhook-signature":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			require.Equal(t, "WH-CONFIGURED", payload["webhook_id"])
			_ = json.NewEncoder(w).Encode(map[string]string{"verification_status": "SUCCESS"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret", WebhookID: "WH-CONFIGURED"}, zerolog.Nop())
	c.baseURL = srv.URL

	headers := http.Header{}
	headers.Set("Paypal-Transmission-Id", "t-1")
	ok := c.VerifyWebhookSignature(context.Background(), headers, []byte(`{"id":"WH-1","event_type":"BILLING.SUBSCRIPTION.ACTIVATED"}`))
	require.True(t, ok)

	// A body that is not JSON never reaches PayPal.
	require.False(t, c.VerifyWebhookSignature(context.Background(), headers, []byte("not-json")))
}
