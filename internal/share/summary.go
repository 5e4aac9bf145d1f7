package share

import (
	"fmt"

	"github.com/chattrix/chattrix/internal/chat"
)

// Summarize builds the dialog preview for a session about to be shared.
func Summarize(sess *chat.Session) SessionSummary {
	summary := SessionSummary{
		Title:        sess.Title,
		MessageCount: len(sess.Messages),
		CreatedDate:  sess.CreatedAt.Format("1/2/2006"),
		Duration:     sessionDuration(sess),
		Preview:      previewText(sess),
	}
	for _, msg := range sess.Messages {
		switch msg.Role {
		case chat.RoleUser:
			summary.UserMessages++
		case chat.RoleAssistant:
			summary.AssistantMessages++
		}
		if len(msg.Files) > 0 {
			summary.HasFiles = true
		}
	}
	return summary
}

func sessionDuration(sess *chat.Session) string {
	if len(sess.Messages) < 2 {
		return "Less than a minute"
	}

	first := sess.Messages[0].Timestamp
	last := sess.Messages[len(sess.Messages)-1].Timestamp
	diff := last.Sub(first)

	minutes := int(diff.Minutes())
	hours := minutes / 60
	days := hours / 24

	plural := func(n int, unit string) string {
		if n > 1 {
			return fmt.Sprintf("%d %ss", n, unit)
		}
		return fmt.Sprintf("%d %s", n, unit)
	}

	switch {
	case days > 0:
		return plural(days, "day")
	case hours > 0:
		return plural(hours, "hour")
	case minutes > 0:
		return plural(minutes, "minute")
	default:
		return "Less than a minute"
	}
}

func previewText(sess *chat.Session) string {
	for _, msg := range sess.Messages {
		if msg.Role != chat.RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > 100 {
			return string(runes[:100]) + "..."
		}
		return msg.Content
	}
	return "No preview available"
}
