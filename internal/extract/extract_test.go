package extract

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessUnsupportedExtension(t *testing.T) {
	res := Process([]byte("data"), "archive.tar.gz", "application/gzip")

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, ErrUnsupportedFileType)
	require.Contains(t, res.Err.Error(), ".gz")
}

func TestProcessTextPassthrough(t *testing.T) {
	body := "# Notes\nplain text survives untouched"
	res := Process([]byte(body), "notes.md", "text/markdown")

	require.True(t, res.Success)
	require.Equal(t, body, res.Content)
	require.Equal(t, "text", res.Metadata["type"])
}

func TestProcessExtensionCaseInsensitive(t *testing.T) {
	res := Process([]byte("hello"), "README.TXT", "text/plain")
	require.True(t, res.Success)
	require.Equal(t, "hello", res.Content)
}

func TestProcessImage(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	res := Process(data, "chart.png", "image/png")

	require.True(t, res.Success)
	require.Equal(t, true, res.Metadata["base64_available"])

	var payload mediaPayload
	require.NoError(t, json.Unmarshal(res.Data, &payload))
	require.Equal(t, "image", payload.Kind)
	require.Equal(t, base64.StdEncoding.EncodeToString(data), payload.Base64)
	require.False(t, payload.RequiresTranscription)
}

func TestProcessAudioFlagsTranscription(t *testing.T) {
	res := Process([]byte("RIFF"), "talk.mp3", "audio/mpeg")

	require.True(t, res.Success)
	require.Equal(t, ProcessingTranscription, res.Metadata["processing_required"])

	var payload mediaPayload
	require.NoError(t, json.Unmarshal(res.Data, &payload))
	require.True(t, payload.RequiresTranscription)
	require.False(t, payload.HasVideo)
}

func TestProcessVideoFlagsAudioExtraction(t *testing.T) {
	res := Process([]byte("ftyp"), "demo.mp4", "video/mp4")

	require.True(t, res.Success)
	require.Equal(t, ProcessingAudioTranscription, res.Metadata["processing_required"])

	var payload mediaPayload
	require.NoError(t, json.Unmarshal(res.Data, &payload))
	require.True(t, payload.RequiresTranscription)
	require.True(t, payload.HasVideo)
}

func TestProcessPDFPlaceholderContract(t *testing.T) {
	res := Process([]byte("%PDF-1.7"), "deck.pdf", "application/pdf")

	// The structured-document contract: success with non-empty text.
	require.True(t, res.Success)
	require.NotEmpty(t, res.Content)
}

func TestExtractWordSalvagesText(t *testing.T) {
	data := append([]byte{0x00, 0x01, 0x02}, []byte("Quarterly results were strong.")...)
	data = append(data, 0x03, 0x04)

	res := Process(data, "report.docx", "application/msword")
	require.True(t, res.Success)
	require.Contains(t, res.Content, "Quarterly results were strong.")
	require.Equal(t, 4, res.Metadata["word_count"])
	require.Equal(t, "ascii", res.Metadata["encoding"])
}

func TestExtractWordDropsNonASCII(t *testing.T) {
	data := []byte("Umsatzwachstum über Erwartungen, quarter closed well.")

	res := Process(data, "bericht.docx", "application/msword")
	require.True(t, res.Success)
	require.NotContains(t, res.Content, "ü")
	require.Contains(t, res.Content, "quarter closed well.")
	require.Equal(t, "ascii", res.Metadata["encoding"])
}

func TestExtractWordRejectsBinaryOnly(t *testing.T) {
	res := Process([]byte{0x00, 0x01, 0x02, 0x03}, "junk.doc", "application/msword")
	require.False(t, res.Success)
	require.Error(t, res.Err)
	require.True(t, strings.Contains(res.Err.Error(), "no readable text"))
}
