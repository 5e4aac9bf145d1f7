package export

import (
	"fmt"
	"regexp"
	"time"
)

var (
	filenameStrip    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	filenameCollapse = regexp.MustCompile(`\s+`)
)

// Filename derives a filesystem-safe download name from the session
// title, the format extension and an instant. Deterministic for the
// same inputs: non-alphanumeric characters are stripped, whitespace
// collapses to underscores and colons never appear in the time part.
func Filename(title string, format Format, at time.Time) string {
	clean := filenameStrip.ReplaceAllString(title, "")
	clean = filenameCollapse.ReplaceAllString(clean, "_")
	if clean == "" {
		clean = "chat"
	}

	dateStr := at.Format("2006-01-02")
	timeStr := at.Format("15-04-05")
	return fmt.Sprintf("%s_%s_%s.%s", clean, dateStr, timeStr, format)
}
