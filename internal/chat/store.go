package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/kv"
)

var (
	ErrSessionNotFound = errors.New("chat: session not found")
	ErrMessageNotFound = errors.New("chat: message not found")
)

// Store owns every session document. All access is read-modify-write of
// the whole session map, serialized by the store mutex; a corrupted or
// missing document is treated as an empty store and logged, never
// surfaced as a crash.
//
// Conflict policy across store instances (e.g. two processes over the
// same backing file) is last-writer-wins: on save, if the stored
// revision is ahead of the revision this instance read, a warning
// records both revisions and the write proceeds anyway.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *zap.Logger

	// revision of each session as last read or written by this instance
	seen map[string]int64
}

func NewStore(store kv.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     store,
		logger: logger,
		seen:   make(map[string]int64),
	}
}

// loadSessions must be called with s.mu held.
func (s *Store) loadSessions(ctx context.Context) map[string]*Session {
	raw, err := s.kv.Get(ctx, kv.KeySessions)
	if errors.Is(err, kv.ErrNotFound) {
		return map[string]*Session{}
	}
	if err != nil {
		s.logger.Warn("session store unavailable, treating as empty", zap.Error(err))
		return map[string]*Session{}
	}

	var sessions map[string]*Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.logger.Warn("session store corrupted, treating as empty", zap.Error(err))
		return map[string]*Session{}
	}
	if sessions == nil {
		sessions = map[string]*Session{}
	}

	for id, sess := range sessions {
		s.seen[id] = sess.Revision
	}
	return sessions
}

// storedRevisions reads just the revision of each persisted session.
func (s *Store) storedRevisions(ctx context.Context) map[string]int64 {
	raw, err := s.kv.Get(ctx, kv.KeySessions)
	if err != nil {
		return nil
	}
	var stored map[string]struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil
	}
	revs := make(map[string]int64, len(stored))
	for id, sess := range stored {
		revs[id] = sess.Revision
	}
	return revs
}

// saveSessions must be called with s.mu held. Before writing it checks
// each outgoing session against the stored revision: a stored revision
// ahead of the one this instance read means another writer got there
// first, and the overwrite is logged before it happens.
func (s *Store) saveSessions(ctx context.Context, sessions map[string]*Session) error {
	stored := s.storedRevisions(ctx)
	for id, sess := range sessions {
		if rev, ok := stored[id]; ok && rev > s.seen[id] {
			s.logger.Warn("overwriting session modified by a concurrent writer",
				zap.String("session_id", id),
				zap.Int64("stored_revision", rev),
				zap.Int64("read_revision", s.seen[id]),
				zap.Int64("new_revision", sess.Revision))
		}
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal session map: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeySessions, string(data)); err != nil {
		return fmt.Errorf("failed to persist session map: %w", err)
	}
	for id, sess := range sessions {
		s.seen[id] = sess.Revision
	}
	return nil
}

// touch stamps a mutation: UpdatedAt is monotonically non-decreasing and
// the revision counts the save.
func touch(sess *Session) {
	now := time.Now().UTC()
	if now.Before(sess.UpdatedAt) {
		now = sess.UpdatedAt
	}
	sess.UpdatedAt = now
	sess.Revision++
}

// CreateSession generates an id, persists an empty session and designates
// it current.
func (s *Store) CreateSession(ctx context.Context, title string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if title == "" {
		title = "Chat " + now.Format("1/2/2006")
	}

	sess := &Session{
		ID:        NewSessionID(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: SessionMetadata{
			MessageCount: 0,
			LastActivity: now,
		},
		Revision: 1,
	}

	sessions := s.loadSessions(ctx)
	sessions[sess.ID] = sess
	if err := s.saveSessions(ctx, sessions); err != nil {
		return nil, err
	}
	if err := s.setCurrentLocked(ctx, sess.ID); err != nil {
		return nil, err
	}
	return cloneSession(sess), nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.loadSessions(ctx)[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

// PutSession stores a session document as-is (used by import). An
// existing session with the same id is replaced.
func (s *Store) PutSession(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneSession(sess)
	stored.Metadata.MessageCount = len(stored.Messages)
	touch(stored)

	sessions := s.loadSessions(ctx)
	sessions[stored.ID] = stored
	return s.saveSessions(ctx, sessions)
}

func (s *Store) UpdateSession(ctx context.Context, id string, upd SessionUpdate) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	sess, ok := sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if upd.Title != nil {
		sess.Title = *upd.Title
	}
	touch(sess)

	if err := s.saveSessions(ctx, sessions); err != nil {
		return nil, err
	}
	return cloneSession(sess), nil
}

// DeleteSession removes a session. Deleting an unknown id is a no-op
// returning false.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	if _, ok := sessions[id]; !ok {
		return false, nil
	}
	delete(sessions, id)
	delete(s.seen, id)
	if err := s.saveSessions(ctx, sessions); err != nil {
		return false, err
	}

	if cur, _ := s.currentIDLocked(ctx); cur == id {
		if err := s.kv.Delete(ctx, kv.KeyCurrentSession); err != nil {
			return false, err
		}
	}
	return true, nil
}

// ListSessions returns sessions in no particular order; ordering is a
// presentation concern.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	out := make([]*Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, cloneSession(sess))
	}
	return out, nil
}

func (s *Store) currentIDLocked(ctx context.Context) (string, error) {
	raw, err := s.kv.Get(ctx, kv.KeyCurrentSession)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		s.logger.Warn("current-session pointer corrupted, clearing", zap.Error(err))
		return "", nil
	}
	return id, nil
}

func (s *Store) setCurrentLocked(ctx context.Context, id string) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kv.KeyCurrentSession, string(data))
}

// SetCurrentSession points the store at an existing session.
func (s *Store) SetCurrentSession(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.loadSessions(ctx)[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := s.setCurrentLocked(ctx, id); err != nil {
		return nil, err
	}
	return cloneSession(sess), nil
}

// CurrentSession returns the active session, or (nil, nil) when the
// pointer is unset or its target has been deleted.
func (s *Store) CurrentSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.currentIDLocked(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	sess, ok := s.loadSessions(ctx)[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(sess), nil
}

// AppendMessage adds a message to the session's sequence, preserving call
// order, and refreshes the denormalized counters.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	sess, ok := sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if msg.ID == "" {
		msg.ID = NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	sess.Messages = append(sess.Messages, msg)
	sess.Metadata.MessageCount = len(sess.Messages)
	sess.Metadata.LastActivity = time.Now().UTC()
	touch(sess)

	if err := s.saveSessions(ctx, sessions); err != nil {
		return nil, err
	}
	appended := sess.Messages[len(sess.Messages)-1]
	return &appended, nil
}

func (s *Store) UpdateMessage(ctx context.Context, sessionID, messageID string, upd MessageUpdate) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	sess, ok := sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	idx := -1
	for i := range sess.Messages {
		if sess.Messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrMessageNotFound
	}

	msg := &sess.Messages[idx]
	if upd.Content != nil {
		msg.Content = *upd.Content
	}
	if upd.Files != nil {
		msg.Files = append([]FileRef(nil), (*upd.Files)...)
	}
	now := time.Now().UTC()
	msg.UpdatedAt = &now

	sess.Metadata.LastActivity = now
	touch(sess)

	if err := s.saveSessions(ctx, sessions); err != nil {
		return nil, err
	}
	out := *msg
	return &out, nil
}

func (s *Store) DeleteMessage(ctx context.Context, sessionID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	sess, ok := sessions[sessionID]
	if !ok {
		return false, nil
	}

	kept := sess.Messages[:0]
	removed := false
	for _, m := range sess.Messages {
		if m.ID == messageID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return false, nil
	}

	sess.Messages = kept
	sess.Metadata.MessageCount = len(sess.Messages)
	touch(sess)

	if err := s.saveSessions(ctx, sessions); err != nil {
		return false, err
	}
	return true, nil
}

// Settings returns the stored preferences, falling back to defaults when
// the record is missing or unreadable.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked(ctx), nil
}

func (s *Store) settingsLocked(ctx context.Context) Settings {
	raw, err := s.kv.Get(ctx, kv.KeySettings)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("settings unavailable, using defaults", zap.Error(err))
		}
		return DefaultSettings()
	}
	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("settings corrupted, using defaults", zap.Error(err))
		return DefaultSettings()
	}
	return settings
}

func (s *Store) UpdateSettings(ctx context.Context, upd SettingsUpdate) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settingsLocked(ctx)
	if upd.Theme != nil {
		settings.Theme = *upd.Theme
	}
	if upd.AutoSave != nil {
		settings.AutoSave = *upd.AutoSave
	}
	if upd.ExportFormat != nil {
		settings.ExportFormat = *upd.ExportFormat
	}
	if upd.MaxSessions != nil {
		settings.MaxSessions = *upd.MaxSessions
	}
	if upd.MaxMessagesPerSession != nil {
		settings.MaxMessagesPerSession = *upd.MaxMessagesPerSession
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return Settings{}, err
	}
	if err := s.kv.Set(ctx, kv.KeySettings, string(data)); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// CleanupOldSessions keeps the max most recently active sessions and
// deletes the rest, returning how many were removed.
func (s *Store) CleanupOldSessions(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.loadSessions(ctx)
	if len(sessions) <= max {
		return 0, nil
	}

	ordered := make([]*Session, 0, len(sessions))
	for _, sess := range sessions {
		ordered = append(ordered, sess)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Metadata.LastActivity.After(ordered[j].Metadata.LastActivity)
	})

	removed := 0
	for _, sess := range ordered[max:] {
		delete(sessions, sess.ID)
		delete(s.seen, sess.ID)
		removed++
	}
	if err := s.saveSessions(ctx, sessions); err != nil {
		return 0, err
	}
	return removed, nil
}

// StorageSize sums the length of every key and value in the backing store.
func (s *Store) StorageSize(ctx context.Context) (StorageSize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return StorageSize{}, err
	}

	var total int64
	for _, key := range keys {
		value, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		total += int64(len(key) + len(value))
	}
	return StorageSize{
		Total:     total,
		Formatted: fmt.Sprintf("%.2f KB", float64(total)/1024),
	}, nil
}

// ClearAllData removes every document this store owns.
func (s *Store) ClearAllData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{
		kv.KeySessions,
		kv.KeyCurrentSession,
		kv.KeySettings,
		kv.KeyLegacyChats,
		kv.KeyPromptHistory,
		kv.KeyJobs,
	} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	s.seen = make(map[string]int64)
	return nil
}

func cloneSession(sess *Session) *Session {
	out := *sess
	out.Messages = make([]Message, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	for i := range out.Messages {
		if len(out.Messages[i].Files) > 0 {
			out.Messages[i].Files = append([]FileRef(nil), out.Messages[i].Files...)
		}
	}
	return &out
}
