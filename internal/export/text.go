package export

import (
	"fmt"
	"io"
	"strings"
)

type textExporter struct{}

// Export writes a header block followed by per-message blocks separated
// by rule lines.
func (textExporter) Export(exp ExportableSession, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "CHAT EXPORT\n")
	_, _ = fmt.Fprintf(w, "Title: %s\n", exp.Title)
	_, _ = fmt.Fprintf(w, "Created: %s\n", exp.CreatedAt.Format(timeLayout))
	_, _ = fmt.Fprintf(w, "Updated: %s\n", exp.UpdatedAt.Format(timeLayout))
	_, _ = fmt.Fprintf(w, "Messages: %d\n", len(exp.Messages))
	_, _ = fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("=", 50))

	for i, msg := range exp.Messages {
		_, _ = fmt.Fprintf(w, "[%d] %s\n", i+1, strings.ToUpper(msg.Role))
		_, _ = fmt.Fprintf(w, "Time: %s\n", msg.Timestamp.Format(timeLayout))

		if names := fileNames(exp, i); len(names) > 0 {
			_, _ = fmt.Fprintf(w, "Files: %s\n", strings.Join(names, ", "))
		}

		_, _ = fmt.Fprintf(w, "\n%s\n", msg.Content)
		_, _ = fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("-", 30))
	}
	return nil
}

func (textExporter) Extension() string { return "txt" }
func (textExporter) MIMEType() string  { return "text/plain" }
