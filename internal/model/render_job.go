package model

import "time"

// RenderJob is one render attempt of a project. A project accumulates
// render jobs across retries; at most one may be non-terminal at a time.
type RenderJob struct {
	ID           string     `db:"id" json:"id"`
	ProjectID    string     `db:"project_id" json:"project_id"`
	Provider     string     `db:"provider" json:"provider"`
	Status       JobStatus  `db:"status" json:"status"`
	Priority     int        `db:"priority" json:"priority"` // frozen from the tier at creation time
	Watermark    bool       `db:"watermark" json:"watermark"`
	Quality      string     `db:"quality" json:"quality"`
	EstimatedSec int        `db:"estimated_seconds" json:"estimated_seconds"`
	ActualSec    int        `db:"actual_seconds" json:"actual_seconds,omitempty"`
	OutputURL    string     `db:"output_url" json:"output_url,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	StartedAt    *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
