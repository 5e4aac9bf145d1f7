package export

import (
	"fmt"
	"io"
	"strings"
)

type markdownExporter struct{}

// Export writes a heading per message with a role emoji, the timestamp
// in italics, attached file names as inline code and horizontal rules
// between messages.
func (markdownExporter) Export(exp ExportableSession, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", exp.Title)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", exp.CreatedAt.Format(timeLayout))
	_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", exp.UpdatedAt.Format(timeLayout))
	_, _ = fmt.Fprintf(w, "**Messages:** %d  \n\n", len(exp.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range exp.Messages {
		_, _ = fmt.Fprintf(w, "## %s %s\n\n", roleEmoji(msg.Role), roleLabel(msg.Role))
		_, _ = fmt.Fprintf(w, "*%s*\n\n", msg.Timestamp.Format(timeLayout))

		if names := fileNames(exp, i); len(names) > 0 {
			quoted := make([]string, 0, len(names))
			for _, name := range names {
				quoted = append(quoted, "`"+name+"`")
			}
			_, _ = fmt.Fprintf(w, "**Files:** %s\n\n", strings.Join(quoted, ", "))
		}

		_, _ = fmt.Fprintf(w, "%s\n\n", normalizeLines(msg.Content))

		if i < len(exp.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

// normalizeLines trims each content line so indentation artifacts from
// the chat input do not turn into markdown code blocks.
func normalizeLines(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

func (markdownExporter) Extension() string { return "md" }
func (markdownExporter) MIMEType() string  { return "text/markdown" }
