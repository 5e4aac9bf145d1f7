package share

import "time"

type PrivacyLevel string

const (
	PrivacyPublic   PrivacyLevel = "public"
	PrivacyUnlisted PrivacyLevel = "unlisted"
	PrivacyPrivate  PrivacyLevel = "private"
)

// Record is an access-controlled, point-in-time snapshot of a session.
// SessionID is a weak reference: the source session may be deleted
// independently, and edits to it never propagate into the snapshot.
type Record struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionId"`
	Title     string       `json:"title"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Privacy   PrivacyLevel `json:"privacyLevel"`

	// IncludeFiles records whether file descriptors were kept in the
	// snapshot. Raw file content is never kept either way.
	IncludeFiles bool `json:"includeFiles"`

	// PasswordHash is a bcrypt hash; the plaintext is never stored.
	PasswordHash string `json:"passwordHash,omitempty"`

	AccessCount int  `json:"accessCount"`
	MaxAccess   *int `json:"maxAccess,omitempty"`

	Snapshot Snapshot `json:"sessionSnapshot"`
}

// View is the client-facing shape of a Record. The bcrypt hash never
// leaves the service; HasPassword stands in for it.
type View struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	Title        string       `json:"title"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	Privacy      PrivacyLevel `json:"privacyLevel"`
	IncludeFiles bool         `json:"includeFiles"`
	HasPassword  bool         `json:"hasPassword"`
	AccessCount  int          `json:"accessCount"`
	MaxAccess    *int         `json:"maxAccess,omitempty"`
	Snapshot     Snapshot     `json:"sessionSnapshot"`
}

func (r *Record) View() View {
	return View{
		ID:           r.ID,
		SessionID:    r.SessionID,
		Title:        r.Title,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
		Privacy:      r.Privacy,
		IncludeFiles: r.IncludeFiles,
		HasPassword:  r.PasswordHash != "",
		AccessCount:  r.AccessCount,
		MaxAccess:    r.MaxAccess,
		Snapshot:     r.Snapshot,
	}
}

// Snapshot is the redacted session copy embedded in a share record.
type Snapshot struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Messages     []SnapshotMessage `json:"messages"`
	CreatedAt    time.Time         `json:"createdAt"`
	MessageCount int               `json:"messageCount"`
}

type SnapshotMessage struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Files     []SnapshotFile `json:"files,omitempty"`
}

// SnapshotFile describes an attachment without its bytes.
type SnapshotFile struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	HasContent bool   `json:"hasContent"`
}

// Options controls share creation.
type Options struct {
	Privacy       PrivacyLevel `json:"privacyLevel"`
	ExpiresInDays int          `json:"expiresInDays"`
	IncludeFiles  bool         `json:"includeFiles"`
	Password      string       `json:"password,omitempty"`
	MaxAccess     *int         `json:"maxAccess,omitempty"`
}

// Update is a partial settings change for an existing share.
type Update struct {
	ExpiresInDays *int          `json:"expiresInDays"`
	MaxAccess     *int          `json:"maxAccess"`
	Password      *string       `json:"password"` // empty string removes the password
	Privacy       *PrivacyLevel `json:"privacyLevel"`
}

// Info is the share metadata returned alongside a resolved snapshot.
type Info struct {
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	AccessCount int       `json:"accessCount"`
	MaxAccess   *int      `json:"maxAccess,omitempty"`
}

// Resolution is a successful share access.
type Resolution struct {
	Session Snapshot `json:"session"`
	Info    Info     `json:"shareInfo"`
}

// Summary is the owner-facing listing entry for a share.
type Summary struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	Title       string       `json:"title"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	Privacy     PrivacyLevel `json:"privacyLevel"`
	AccessCount int          `json:"accessCount"`
	MaxAccess   *int         `json:"maxAccess,omitempty"`
	HasPassword bool         `json:"hasPassword"`
	IsExpired   bool         `json:"isExpired"`
}

// SessionSummary is the preview shown in the share dialog before a
// share is created.
type SessionSummary struct {
	Title             string `json:"title"`
	MessageCount      int    `json:"messageCount"`
	UserMessages      int    `json:"userMessages"`
	AssistantMessages int    `json:"assistantMessages"`
	HasFiles          bool   `json:"hasFiles"`
	CreatedDate       string `json:"createdDate"`
	Duration          string `json:"duration"`
	Preview           string `json:"preview"`
}
