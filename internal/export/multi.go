package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chattrix/chattrix/internal/chat"
)

// multiTitle seeds the filename for combined exports.
const multiTitle = "Multiple_Sessions"

// MultiExport is the wrapper document for a combined export.
type MultiExport struct {
	ExportedAt    time.Time           `json:"exportedAt"`
	TotalSessions int                 `json:"totalSessions"`
	Sessions      []ExportableSession `json:"sessions"`
}

// Multiple renders several sessions into one document, preserving input
// order. Only json, txt and md are supported; csv and html have no
// sensible multi-session layout and return ErrUnsupportedFormat rather
// than partial output.
func Multiple(sessions []*chat.Session, format Format, opts Options) (File, error) {
	return MultipleAt(sessions, format, opts, time.Now())
}

// MultipleAt is Multiple with an explicit instant for deterministic output.
func MultipleAt(sessions []*chat.Session, format Format, opts Options, at time.Time) (File, error) {
	data := MultiExport{
		ExportedAt:    at,
		TotalSessions: len(sessions),
		Sessions:      make([]ExportableSession, 0, len(sessions)),
	}
	for _, sess := range sessions {
		data.Sessions = append(data.Sessions, Prepare(sess, opts))
	}

	switch format {
	case FormatJSON:
		content, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return File{}, err
		}
		return File{
			Content:  string(content),
			MIMEType: "application/json",
			Filename: Filename(multiTitle, FormatJSON, at),
		}, nil

	case FormatTXT:
		return File{
			Content:  multipleAsText(data),
			MIMEType: "text/plain",
			Filename: Filename(multiTitle, FormatTXT, at),
		}, nil

	case FormatMD:
		return File{
			Content:  multipleAsMarkdown(data),
			MIMEType: "text/markdown",
			Filename: Filename(multiTitle, FormatMD, at),
		}, nil

	default:
		return File{}, fmt.Errorf("%w: %s not supported for multiple sessions", ErrUnsupportedFormat, format)
	}
}

func clip(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}

func multipleAsText(data MultiExport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "MULTIPLE CHAT SESSIONS EXPORT\n")
	fmt.Fprintf(&b, "Exported: %s\n", data.ExportedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Total Sessions: %d\n\n", data.TotalSessions)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 60))

	for i, sess := range data.Sessions {
		fmt.Fprintf(&b, "SESSION %d: %s\n", i+1, sess.Title)
		fmt.Fprintf(&b, "Created: %s\n", sess.CreatedAt.Format(timeLayout))
		fmt.Fprintf(&b, "Messages: %d\n\n", len(sess.Messages))

		for j, msg := range sess.Messages {
			fmt.Fprintf(&b, "  [%d] %s: %s\n", j+1, strings.ToUpper(msg.Role), clip(msg.Content, 100))
		}

		fmt.Fprintf(&b, "\n%s\n\n", strings.Repeat("-", 40))
	}
	return b.String()
}

func multipleAsMarkdown(data MultiExport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Multiple Chat Sessions Export\n\n")
	fmt.Fprintf(&b, "**Exported:** %s  \n", data.ExportedAt.Format(timeLayout))
	fmt.Fprintf(&b, "**Total Sessions:** %d  \n\n", data.TotalSessions)
	fmt.Fprintf(&b, "---\n\n")

	for i, sess := range data.Sessions {
		fmt.Fprintf(&b, "## Session %d: %s\n\n", i+1, sess.Title)
		fmt.Fprintf(&b, "**Created:** %s  \n", sess.CreatedAt.Format(timeLayout))
		fmt.Fprintf(&b, "**Messages:** %d  \n\n", len(sess.Messages))

		for j, msg := range sess.Messages {
			fmt.Fprintf(&b, "### %s Message %d\n\n", roleEmoji(msg.Role), j+1)
			fmt.Fprintf(&b, "%s\n\n", clip(msg.Content, 200))
		}

		fmt.Fprintf(&b, "---\n\n")
	}
	return b.String()
}
