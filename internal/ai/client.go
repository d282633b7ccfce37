// Package ai is the HTTP client for the external inference gateway. The
// gateway speaks the chat-completions wire format; analyze, script and
// render are three prompt shapes against the same endpoint. The client
// carries no retry logic: retries and timeouts belong to the caller.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/model"
)

const (
	defaultEndpoint    = "https://oi-server.onrender.com/chat/completions"
	defaultChatModel   = "openrouter/anthropic/claude-sonnet-4"
	defaultScriptModel = "openrouter/openai/gpt-4o"
	defaultVideoModel  = "replicate/google/veo-3"
)

// Config selects the gateway endpoint, credentials and per-stage models.
type Config struct {
	Endpoint    string
	APIKey      string
	CustomerID  string
	ChatModel   string
	ScriptModel string
	VideoModel  string
}

// Client calls the inference gateway.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a Client, filling unset config fields with defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.ScriptModel == "" {
		cfg.ScriptModel = defaultScriptModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = defaultVideoModel
	}
	return &Client{
		cfg: cfg,
		// No client-level timeout: each pipeline stage sets its own
		// context deadline (analyze 30s, script 60s, render 900s).
		client: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, modelName string, messages []chatMessage, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{Model: modelName, Messages: messages, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.CustomerID != "" {
		req.Header.Set("customerId", c.cfg.CustomerID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", model.ErrUpstream, err)
	}

	var parsed chatResponse
	if resp.StatusCode != http.StatusOK {
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", model.ErrUpstream, parsed.Error.Message)
		}
		return "", fmt.Errorf("%w: HTTP %d", model.ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", model.ErrUpstream, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", model.ErrUpstream)
	}
	return parsed.Choices[0].Message.Content, nil
}

// Analyze asks the gateway for a structured content analysis suitable for
// deriving a video script.
func (c *Client) Analyze(ctx context.Context, content, contentType string) (string, error) {
	system := fmt.Sprintf("You are an expert content analyzer for video creation. Analyze the provided %s content and extract: key themes, main narrative points, visual elements, target audience and tone, recommended video structure, and key quotes. Provide a structured analysis for creating an engaging video script.", contentType)
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Analyze this %s content:\n\n%s", contentType, content)},
	}
	return c.complete(ctx, c.cfg.ChatModel, messages, 2000)
}

// GenerateScript turns an analysis into a timed script. The gateway is
// asked for JSON; responses that do not parse are kept verbatim in Raw.
func (c *Client) GenerateScript(ctx context.Context, analysis string, durationSec int, style string) (*model.Script, error) {
	system := fmt.Sprintf(`You are an expert video script writer. Create an engaging %d-second video script in a %s style based on the content analysis. Include timestamps, narration, visual cues and a background music mood per section.
Format your response as JSON:
{"title":"...","duration":%d,"script":[{"timestamp":"00:00-00:10","narration":"...","visual_cue":"...","music_mood":"upbeat"}],"summary":"..."}`, durationSec, style, durationSec)
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: "Create a video script based on this analysis:\n\n" + analysis},
	}

	content, err := c.complete(ctx, c.cfg.ScriptModel, messages, 3000)
	if err != nil {
		return nil, err
	}

	script := &model.Script{DurationSec: durationSec, Style: style}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), script); err != nil {
		// The model ignored the JSON instruction; keep what it said.
		script.Raw = content
	}
	if script.DurationSec == 0 {
		script.DurationSec = durationSec
	}
	script.Style = style
	return script, nil
}

// GenerateVideo requests a rendered video and returns the output
// reference reported by the gateway.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, durationSec int) (string, error) {
	videoPrompt := fmt.Sprintf("Create a %d-second video: %s. High quality, professional, smooth transitions, engaging visuals.", durationSec, prompt)
	out, err := c.complete(ctx, c.cfg.VideoModel, []chatMessage{{Role: "user", Content: videoPrompt}}, 0)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: render returned no output reference", model.ErrUpstream)
	}
	return out, nil
}

// stripCodeFence unwraps ```json fenced blocks some models insist on.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Ping verifies connectivity and credentials with a minimal completion.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.complete(ctx, c.cfg.ChatModel, []chatMessage{{Role: "user", Content: "ping"}}, 1)
	return err
}
