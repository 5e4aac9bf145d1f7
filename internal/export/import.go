package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chattrix/chattrix/internal/chat"
)

// ErrInvalidSession is wrapped by every import validation failure.
var ErrInvalidSession = errors.New("export: invalid session format")

// ImportSession parses a previously exported JSON document back into a
// session. Required fields are validated one by one so a malformed
// document produces a descriptive error, never a panic. Derived fields
// (metadata counters, revision) are recomputed, not trusted.
func ImportSession(jsonContent string) (*chat.Session, error) {
	var doc struct {
		ID        string         `json:"id"`
		Title     string         `json:"title"`
		Messages  []chat.Message `json:"messages"`
		CreatedAt time.Time      `json:"createdAt"`
		UpdatedAt time.Time      `json:"updatedAt"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if doc.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidSession)
	}
	if doc.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidSession)
	}
	if doc.Messages == nil {
		return nil, fmt.Errorf("%w: missing messages", ErrInvalidSession)
	}

	for i, msg := range doc.Messages {
		if msg.Role == "" || msg.Content == "" || msg.Timestamp.IsZero() {
			return nil, fmt.Errorf("%w: invalid message at index %d", ErrInvalidSession, i)
		}
		switch msg.Role {
		case chat.RoleUser, chat.RoleAssistant, chat.RoleSystem:
		default:
			return nil, fmt.Errorf("%w: unknown role %q at index %d", ErrInvalidSession, msg.Role, i)
		}
	}

	sess := &chat.Session{
		ID:        doc.ID,
		Title:     doc.Title,
		Messages:  doc.Messages,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Metadata: chat.SessionMetadata{
			MessageCount: len(doc.Messages),
		},
	}
	if len(doc.Messages) > 0 {
		sess.Metadata.LastActivity = doc.Messages[len(doc.Messages)-1].Timestamp
	}
	return sess, nil
}
