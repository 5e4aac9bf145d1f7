package export

import (
	"time"

	"github.com/chattrix/chattrix/internal/chat"
)

// previewLength caps the preview text.
const previewLength = 500

// PreviewResult is a clipped look at what an export would contain.
type PreviewResult struct {
	Preview    string `json:"preview"`
	FullLength int    `json:"fullLength"`
	Filename   string `json:"filename"`
}

// Preview renders a session and clips the result so the caller can show
// the beginning of the export without generating a download.
func Preview(sess *chat.Session, format Format, opts Options) (PreviewResult, error) {
	return PreviewAt(sess, format, opts, time.Now())
}

func PreviewAt(sess *chat.Session, format Format, opts Options, at time.Time) (PreviewResult, error) {
	file, err := AsAt(Prepare(sess, opts), format, at)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{
		Preview:    clip(file.Content, previewLength),
		FullLength: len(file.Content),
		Filename:   file.Filename,
	}, nil
}
