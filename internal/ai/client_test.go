package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"app/internal/model"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	require.NoError(t, err)
	return raw
}

func TestPingSendsMinimalCompletion(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "cust-1", r.Header.Get("customerId"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write(completionBody(t, "pong"))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "test-key", CustomerID: "cust-1"})
	require.NoError(t, c.Ping(context.Background()))
	require.Equal(t, defaultChatModel, got.Model)
	require.Equal(t, 1, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "ping", got.Messages[0].Content)
}

func TestPingWrapsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"gateway overloaded"}}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, model.ErrUpstream)
	require.Contains(t, err.Error(), "gateway overloaded")
}

func TestGenerateScriptKeepsUnparseableResponseRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, "Scene one: a chart goes up."))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	script, err := c.GenerateScript(context.Background(), "growth analysis", 45, "casual")
	require.NoError(t, err)
	require.Equal(t, "Scene one: a chart goes up.", script.Raw)
	require.Equal(t, 45, script.DurationSec)
	require.Equal(t, "casual", script.Style)
}

func TestGenerateScriptParsesFencedJSON(t *testing.T) {
	fenced := "```json\n{\"title\":\"Growth\",\"duration\":30,\"script\":[],\"summary\":\"Up and to the right.\"}\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, fenced))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	script, err := c.GenerateScript(context.Background(), "growth analysis", 30, "professional")
	require.NoError(t, err)
	require.Empty(t, script.Raw)
	require.Equal(t, "Growth", script.Title)
	require.Equal(t, 30, script.DurationSec)
}

func TestGenerateVideoRejectsEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionBody(t, "   "))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL})
	_, err := c.GenerateVideo(context.Background(), "a chart goes up", 30)
	require.ErrorIs(t, err, model.ErrUpstream)
}
