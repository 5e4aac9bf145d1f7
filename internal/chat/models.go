package chat

import "time"

// Message roles. Every layer (store, export, share) uses this one shape.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session is one logical conversation. Identity is the ID, generated at
// creation time and immutable. JSON field names match the persisted
// document format.
type Session struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []Message       `json:"messages"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Metadata  SessionMetadata `json:"metadata"`

	// Revision counts saves. It only backs the concurrent-writer warning;
	// it is not part of the conversation data.
	Revision int64 `json:"revision,omitempty"`
}

// SessionMetadata carries counters denormalized from Messages.
type SessionMetadata struct {
	MessageCount int       `json:"messageCount"`
	LastActivity time.Time `json:"lastActivity"`
}

// Message is one turn in a conversation. Ordering within a session is
// insertion order and is never re-sorted.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Files     []FileRef  `json:"files,omitempty"`
}

// FileRef is an attachment owned by its message. Content holds text or
// base64-encoded binary.
type FileRef struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	Content string `json:"content,omitempty"`
}

// SessionUpdate is a partial update; nil fields are left untouched.
type SessionUpdate struct {
	Title *string `json:"title"`
}

// MessageUpdate is a partial update; nil fields are left untouched.
type MessageUpdate struct {
	Content *string    `json:"content"`
	Files   *[]FileRef `json:"files"`
}

// Settings is the user preference record stored under its own key.
type Settings struct {
	Theme                 string `json:"theme"`
	AutoSave              bool   `json:"autoSave"`
	ExportFormat          string `json:"exportFormat"`
	MaxSessions           int    `json:"maxSessions"`
	MaxMessagesPerSession int    `json:"maxMessagesPerSession"`
}

// DefaultSettings mirrors the values used when no settings record exists
// or the stored one cannot be parsed.
func DefaultSettings() Settings {
	return Settings{
		Theme:                 "dark",
		AutoSave:              true,
		ExportFormat:          "json",
		MaxSessions:           50,
		MaxMessagesPerSession: 1000,
	}
}

// SettingsUpdate is a partial update; nil fields are left untouched.
type SettingsUpdate struct {
	Theme                 *string `json:"theme"`
	AutoSave              *bool   `json:"autoSave"`
	ExportFormat          *string `json:"exportFormat"`
	MaxSessions           *int    `json:"maxSessions"`
	MaxMessagesPerSession *int    `json:"maxMessagesPerSession"`
}

// LegacyChat is the old flat chat shape kept for importing pre-session data.
type LegacyChat struct {
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// StorageSize reports the approximate footprint of the backing store.
type StorageSize struct {
	Total     int64  `json:"total"`
	Formatted string `json:"formatted"`
}
