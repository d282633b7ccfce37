package model

import (
	"encoding/json"
	"time"
)

// ContentDocument is the opaque structured payload produced by file
// extraction and augmented by the analyze stage. It is versioned so later
// pipeline stages can validate the shape before consuming it.
type ContentDocument struct {
	Version  int             `json:"version"`
	Content  string          `json:"content,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Analysis string          `json:"analysis,omitempty"`
}

// HasContent reports whether there is anything for the analyze stage to work on.
func (d ContentDocument) HasContent() bool {
	return d.Content != "" || len(d.Data) > 0
}

// ScriptSegment is one timed unit of a generated video script.
type ScriptSegment struct {
	Timestamp string `json:"timestamp"`
	Narration string `json:"narration"`
	VisualCue string `json:"visual_cue"`
	MusicMood string `json:"music_mood"`
}

// Script is the structured output of the script stage. When the AI
// response cannot be parsed into segments the raw text is kept instead.
type Script struct {
	Title       string          `json:"title,omitempty"`
	DurationSec int             `json:"duration"`
	Style       string          `json:"style,omitempty"`
	Segments    []ScriptSegment `json:"script,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Raw         string          `json:"raw_script,omitempty"`
}

// Project is one uploaded source artifact moving through the pipeline.
type Project struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	Title            string           `db:"title" json:"title"`
	OriginalFileName string           `db:"original_file_name" json:"original_file_name"`
	OriginalFileType string           `db:"original_file_type" json:"original_file_type"`
	OriginalFileSize int64            `db:"original_file_size" json:"original_file_size"`
	StoragePath      string           `db:"storage_path" json:"storage_path,omitempty"`
	Content          ContentDocument  `db:"extracted_content" json:"extracted_content"`
	Script           *Script          `db:"ai_script" json:"ai_script,omitempty"`
	VideoURL         string           `db:"video_url" json:"video_url,omitempty"`
	VideoDurationSec int              `db:"video_duration" json:"video_duration,omitempty"`
	VideoFormat      string           `db:"video_format" json:"video_format,omitempty"`
	Status           ProjectStatus    `db:"status" json:"status"`
	ProcessingStatus ProcessingStatus `db:"processing_status" json:"processing_status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}
