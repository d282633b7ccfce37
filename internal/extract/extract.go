// Package extract turns raw uploaded bytes into the normalized content
// document consumed by the analysis pipeline. Extractors are selected by
// file extension and all return the same Result shape, so callers never
// branch on extractor identity.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFileType is returned (inside Result.Err) for extensions
// no extractor handles.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Result is the uniform outcome of every extractor.
type Result struct {
	Success  bool            `json:"success"`
	Content  string          `json:"content,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Data     json.RawMessage `json:"extracted_data,omitempty"`
	Err      error           `json:"-"`
}

func failure(err error) Result {
	return Result{Success: false, Err: err}
}

// Process dispatches the payload to the extractor registered for the
// file's extension (case-insensitive) and returns its result. Unsupported
// extensions produce a typed failure, never a panic.
func Process(data []byte, filename, declaredMIME string) Result {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	switch ext {
	case "xlsx", "xls":
		return extractWorkbook(data)
	case "csv":
		return extractCSV(data)
	case "pdf":
		return extractPDF(data)
	case "docx", "doc":
		return extractWord(data)
	case "txt", "md":
		return extractText(data)
	case "jpg", "jpeg", "png", "gif", "webp":
		return extractImage(data, declaredMIME)
	case "mp3", "wav", "aac", "m4a":
		return extractAudio(data, declaredMIME)
	case "mp4", "avi", "mov", "webm":
		return extractVideo(data, declaredMIME)
	default:
		return failure(fmt.Errorf("%w: .%s", ErrUnsupportedFileType, ext))
	}
}

func extractText(data []byte) Result {
	return Result{
		Success: true,
		Content: string(data),
		Metadata: map[string]any{
			"file_size": len(data),
			"type":      "text",
		},
	}
}
