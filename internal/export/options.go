// Package export turns sessions into downloadable textual
// representations. Everything here is a pure transformation: the source
// session is never mutated and nothing is persisted.
package export

import (
	"time"

	"github.com/chattrix/chattrix/internal/chat"
)

// TruncationMarker is appended to message content cut at MaxMessageLength.
const TruncationMarker = "...[truncated]"

// Options controls redaction and inclusion during Prepare.
type Options struct {
	IncludeMetadata       bool `json:"includeMetadata"`
	IncludeSystemMessages bool `json:"includeSystemMessages"`
	IncludeFileData       bool `json:"includeFileData"`
	// MaxMessageLength truncates message content when > 0.
	MaxMessageLength int `json:"maxMessageLength"`
}

// DefaultOptions matches the defaults offered in the export dialog.
func DefaultOptions() Options {
	return Options{
		IncludeMetadata:       true,
		IncludeSystemMessages: false,
		IncludeFileData:       true,
	}
}

// ExportableSession is the filtered, redacted session shape fed to the
// formatters.
type ExportableSession struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Messages  []chat.Message        `json:"messages"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Metadata  *chat.SessionMetadata `json:"metadata,omitempty"`
}

// Prepare applies the options to a session. The source is left untouched.
func Prepare(sess *chat.Session, opts Options) ExportableSession {
	messages := make([]chat.Message, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		if !opts.IncludeSystemMessages && msg.Role == chat.RoleSystem {
			continue
		}

		out := msg
		if len(msg.Files) > 0 {
			out.Files = append([]chat.FileRef(nil), msg.Files...)
		}

		if opts.MaxMessageLength > 0 {
			if runes := []rune(out.Content); len(runes) > opts.MaxMessageLength {
				out.Content = string(runes[:opts.MaxMessageLength]) + TruncationMarker
			}
		}
		if !opts.IncludeFileData {
			out.Files = nil
		}
		messages = append(messages, out)
	}

	exp := ExportableSession{
		ID:        sess.ID,
		Title:     sess.Title,
		Messages:  messages,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	if opts.IncludeMetadata {
		meta := sess.Metadata
		meta.MessageCount = len(messages)
		exp.Metadata = &meta
	}
	return exp
}
