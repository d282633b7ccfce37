// Package pubsub emits pipeline lifecycle events to Google Pub/Sub.
// Consumers (notification fan-out, analytics) live outside this
// service; publishing is fire-and-forget from the pipeline's side.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
)

// Event types published on the pipeline topic.
const (
	EventUploadCompleted = "project.upload.completed"
	EventAnalyzeDone     = "project.analyze.completed"
	EventScriptDone      = "project.script.completed"
	EventRenderQueued    = "project.render.queued"
	EventRenderCompleted = "project.render.completed"
	EventRenderFailed    = "project.render.failed"
)

// PipelineEvent is the envelope for every message on the pipeline topic.
type PipelineEvent struct {
	Type       string    `json:"type"`
	ProjectID  string    `json:"project_id"`
	UserID     string    `json:"user_id"`
	JobID      string    `json:"job_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// PublishEvent marshals a PipelineEvent and publishes it on the topic.
func PublishEvent(ctx context.Context, p Publisher, topic string, event PipelineEvent) (string, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pipeline event: %w", err)
	}
	return p.Publish(ctx, topic, payload)
}

// PubSubPublisher is an implementation of Publisher using Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a new PubSubPublisher for the given GCP project.
func NewPublisher(ctx context.Context, projectID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client}, nil
}

// Publish sends the payload to the given Pub/Sub topic and returns the message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

// Close releases the underlying client.
func (p *PubSubPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher discards events. Used when no GCP project is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	return "", nil
}
