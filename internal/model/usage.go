package model

import "time"

// UsageAction is the kind of countable action recorded in the usage log.
type UsageAction string

const (
	ActionFileUpload      UsageAction = "file_upload"
	ActionAIProcessing    UsageAction = "ai_processing"
	ActionVideoGeneration UsageAction = "video_generation"
	ActionAdminAction     UsageAction = "admin_action"
)

// UsageEvent is an append-only record of a countable action. Events are
// never mutated or deleted; quota consumption is derived by counting them.
type UsageEvent struct {
	ID           int64          `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Action       UsageAction    `db:"action" json:"action"`
	ResourceType string         `db:"resource_type" json:"resource_type"`
	ResourceID   string         `db:"resource_id" json:"resource_id"`
	Metadata     map[string]any `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
