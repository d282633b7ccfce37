package dto

import (
	"time"

	"app/internal/model"
)

// ProjectResponseDTO is returned for a single project
type ProjectResponseDTO struct {
	ProjectID        string         `json:"project_id"`
	Title            string         `json:"title"`
	OriginalFileName string         `json:"original_file_name"`
	OriginalFileType string         `json:"original_file_type"`
	OriginalFileSize int64          `json:"original_file_size"`
	Status           string         `json:"status"`
	ProcessingStatus string         `json:"processing_status"`
	HasAnalysis      bool           `json:"has_analysis"`
	Script           *model.Script  `json:"script,omitempty"`
	VideoURL         string         `json:"video_url,omitempty"`
	VideoDurationSec int            `json:"video_duration,omitempty"`
	VideoFormat      string         `json:"video_format,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	// LatestJob is populated on the single-project endpoint only.
	LatestJob *RenderJobResponseDTO `json:"latest_job,omitempty"`
}

// ProjectListResponseDTO wraps a page of projects
type ProjectListResponseDTO struct {
	Projects []ProjectResponseDTO `json:"projects"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// NewProjectResponse maps a project onto its API shape. Extracted
// content stays internal; only its metadata and the analysis flag leave
// the service.
func NewProjectResponse(p *model.Project) ProjectResponseDTO {
	return ProjectResponseDTO{
		ProjectID:        p.ID,
		Title:            p.Title,
		OriginalFileName: p.OriginalFileName,
		OriginalFileType: p.OriginalFileType,
		OriginalFileSize: p.OriginalFileSize,
		Status:           string(p.Status),
		ProcessingStatus: string(p.ProcessingStatus),
		HasAnalysis:      p.Content.Analysis != "",
		Script:           p.Script,
		VideoURL:         p.VideoURL,
		VideoDurationSec: p.VideoDurationSec,
		VideoFormat:      p.VideoFormat,
		Metadata:         p.Content.Metadata,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
