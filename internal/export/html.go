package export

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"
)

type htmlExporter struct{}

const htmlStyles = `        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f9f9f9;
        }
        .header {
            background: white;
            padding: 20px;
            border-radius: 8px;
            margin-bottom: 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .message {
            background: white;
            margin-bottom: 15px;
            border-radius: 8px;
            overflow: hidden;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .message-header {
            padding: 10px 15px;
            font-weight: bold;
            font-size: 14px;
        }
        .user .message-header {
            background-color: #e3f2fd;
            color: #1976d2;
        }
        .assistant .message-header {
            background-color: #f3e5f5;
            color: #7b1fa2;
        }
        .message-content {
            padding: 15px;
            white-space: pre-wrap;
        }
        .message-meta {
            padding: 8px 15px;
            font-size: 12px;
            color: #666;
            background-color: #f5f5f5;
            border-top: 1px solid #eee;
        }
        .files {
            background-color: #fff3e0;
            padding: 8px 15px;
            border-top: 1px solid #ffcc02;
            font-size: 12px;
        }
        h1 { color: #1976d2; margin-bottom: 10px; }
        .stats { color: #666; font-size: 14px; }`

// Export writes a self-contained document with inline styles. Every
// piece of user-supplied text goes through html.EscapeString so it
// cannot inject markup into the generated page.
func (htmlExporter) Export(exp ExportableSession, w io.Writer) error {
	title := html.EscapeString(exp.Title)

	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
%s
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
        <div class="stats">
            <strong>Created:</strong> %s<br>
            <strong>Updated:</strong> %s<br>
            <strong>Messages:</strong> %d
        </div>
    </div>
`, title, htmlStyles, title,
		exp.CreatedAt.Format(timeLayout),
		exp.UpdatedAt.Format(timeLayout),
		len(exp.Messages))

	for i, msg := range exp.Messages {
		role := "assistant"
		header := roleEmoji(msg.Role) + " Assistant"
		if msg.Role == "user" {
			role = "user"
			header = roleEmoji(msg.Role) + " User"
		}

		_, _ = fmt.Fprintf(w, `    <div class="message %s">
        <div class="message-header">%s</div>
`, role, header)

		if names := fileNames(exp, i); len(names) > 0 {
			escaped := make([]string, 0, len(names))
			for _, name := range names {
				escaped = append(escaped, html.EscapeString(name))
			}
			_, _ = fmt.Fprintf(w, `        <div class="files">&#128206; Files: %s</div>
`, strings.Join(escaped, ", "))
		}

		_, _ = fmt.Fprintf(w, `        <div class="message-content">%s</div>
        <div class="message-meta">%s</div>
    </div>
`, html.EscapeString(msg.Content), msg.Timestamp.Format(timeLayout))
	}

	_, _ = fmt.Fprintf(w, `    <div class="header" style="text-align: center; margin-top: 30px;">
        <small>Exported on %s</small>
    </div>
</body>
</html>
`, time.Now().Format(timeLayout))

	return nil
}

func (htmlExporter) Extension() string { return "html" }
func (htmlExporter) MIMEType() string  { return "text/html" }
