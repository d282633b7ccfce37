package extract

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Processing flags signal to the pipeline that further asynchronous work
// is needed before the payload can be analyzed.
const (
	ProcessingTranscription      = "transcription"
	ProcessingAudioTranscription = "audio_extraction_and_transcription"
)

type mediaPayload struct {
	Kind                  string `json:"kind"`
	Base64                string `json:"base64"`
	MIMEType              string `json:"type"`
	RequiresTranscription bool   `json:"requires_transcription,omitempty"`
	HasVideo              bool   `json:"has_video,omitempty"`
}

func encodeMedia(p mediaPayload) (json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode media payload: %w", err)
	}
	return raw, nil
}

// extractImage normalizes an image into base64 for multimodal analysis.
func extractImage(data []byte, mimeType string) Result {
	raw, err := encodeMedia(mediaPayload{
		Kind:     "image",
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	})
	if err != nil {
		return failure(err)
	}
	return Result{
		Success: true,
		Content: "Image uploaded: visual content will be analyzed by AI",
		Metadata: map[string]any{
			"file_size":        len(data),
			"mime_type":        mimeType,
			"base64_available": true,
		},
		Data: raw,
	}
}

// extractAudio wraps the payload and flags it for transcription.
func extractAudio(data []byte, mimeType string) Result {
	raw, err := encodeMedia(mediaPayload{
		Kind:                  "audio",
		Base64:                base64.StdEncoding.EncodeToString(data),
		MIMEType:              mimeType,
		RequiresTranscription: true,
	})
	if err != nil {
		return failure(err)
	}
	return Result{
		Success: true,
		Content: "Audio uploaded: transcription will be produced before analysis",
		Metadata: map[string]any{
			"file_size":           len(data),
			"mime_type":           mimeType,
			"processing_required": ProcessingTranscription,
		},
		Data: raw,
	}
}

// extractVideo wraps the payload and flags it for audio extraction plus
// transcription.
func extractVideo(data []byte, mimeType string) Result {
	raw, err := encodeMedia(mediaPayload{
		Kind:                  "video",
		Base64:                base64.StdEncoding.EncodeToString(data),
		MIMEType:              mimeType,
		RequiresTranscription: true,
		HasVideo:              true,
	})
	if err != nil {
		return failure(err)
	}
	return Result{
		Success: true,
		Content: "Video uploaded: audio will be extracted and transcribed before analysis",
		Metadata: map[string]any{
			"file_size":           len(data),
			"mime_type":           mimeType,
			"processing_required": ProcessingAudioTranscription,
		},
		Data: raw,
	}
}
