package dto

import (
	"time"

	"app/internal/model"
)

// ScriptRequestDTO is the body of the script stage request
type ScriptRequestDTO struct {
	DurationSec int    `json:"duration" validate:"omitempty,gt=0"`
	Style       string `json:"style" validate:"omitempty,oneof=professional casual energetic educational"`
}

// RenderRequestDTO is the body of the render stage request
type RenderRequestDTO struct {
	Provider string `json:"provider" validate:"omitempty,oneof=veo runway pika"`
}

// RenderJobResponseDTO is returned for a render job
type RenderJobResponseDTO struct {
	JobID        string     `json:"job_id"`
	ProjectID    string     `json:"project_id"`
	Provider     string     `json:"provider"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	Watermark    bool       `json:"watermark"`
	Quality      string     `json:"quality"`
	EstimatedSec int        `json:"estimated_seconds"`
	ActualSec    int        `json:"actual_seconds,omitempty"`
	OutputURL    string     `json:"output_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RenderResponseDTO pairs the updated project with its render job
type RenderResponseDTO struct {
	Project ProjectResponseDTO   `json:"project"`
	Job     RenderJobResponseDTO `json:"job"`
}

// NewRenderJobResponse maps a render job onto its API shape.
func NewRenderJobResponse(j *model.RenderJob) RenderJobResponseDTO {
	return RenderJobResponseDTO{
		JobID:        j.ID,
		ProjectID:    j.ProjectID,
		Provider:     j.Provider,
		Status:       string(j.Status),
		Priority:     j.Priority,
		Watermark:    j.Watermark,
		Quality:      j.Quality,
		EstimatedSec: j.EstimatedSec,
		ActualSec:    j.ActualSec,
		OutputURL:    j.OutputURL,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
