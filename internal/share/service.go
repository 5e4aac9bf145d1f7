// Package share packages sessions into redacted, access-controlled
// snapshots persisted under their own namespace in the key-value store.
package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/kv"
)

// DenyReason is the closed set of reasons a share access can fail.
// Checks run in this order; the first failing one wins.
type DenyReason string

const (
	DeniedNotFound         DenyReason = "not-found"
	DeniedExpired          DenyReason = "expired"
	DeniedPasswordRequired DenyReason = "password-required"
	DeniedAccessLimit      DenyReason = "access-limit"
)

// DeniedError maps each reason to a distinct user-facing message. The
// password message is identical for a missing and a wrong password so
// nothing leaks about how close a guess was.
type DeniedError struct {
	Reason DenyReason
}

func (e *DeniedError) Error() string {
	switch e.Reason {
	case DeniedNotFound:
		return "share not found"
	case DeniedExpired:
		return "share has expired"
	case DeniedPasswordRequired:
		return "password required or incorrect"
	case DeniedAccessLimit:
		return "access limit reached"
	default:
		return "access denied"
	}
}

// Denial extracts the deny reason from an error, if it is one.
func Denial(err error) (DenyReason, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Reason, true
	}
	return "", false
}

type Service struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *zap.Logger
}

func NewService(store kv.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{kv: store, logger: logger}
}

func newShareID() string {
	return "share_" + ulid.Make().String()
}

// loadShares must be called with s.mu held.
func (s *Service) loadShares(ctx context.Context) map[string]*Record {
	raw, err := s.kv.Get(ctx, kv.KeyShares)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("share store unavailable, treating as empty", zap.Error(err))
		}
		return map[string]*Record{}
	}
	var shares map[string]*Record
	if err := json.Unmarshal([]byte(raw), &shares); err != nil {
		s.logger.Warn("share store corrupted, treating as empty", zap.Error(err))
		return map[string]*Record{}
	}
	if shares == nil {
		shares = map[string]*Record{}
	}
	return shares
}

// saveShares must be called with s.mu held.
func (s *Service) saveShares(ctx context.Context, shares map[string]*Record) error {
	data, err := json.Marshal(shares)
	if err != nil {
		return fmt.Errorf("failed to marshal share map: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeyShares, string(data)); err != nil {
		return fmt.Errorf("failed to persist share map: %w", err)
	}
	return nil
}

// Create snapshots a session and persists an access-controlled record
// for it. The snapshot drops raw file bytes unconditionally; when
// IncludeFiles is set only name, type, size and a presence flag survive.
func (s *Service) Create(ctx context.Context, sess *chat.Session, opts Options) (*Record, error) {
	if opts.Privacy == "" {
		opts.Privacy = PrivacyUnlisted
	}
	if opts.ExpiresInDays < 0 {
		return nil, fmt.Errorf("share: expiresInDays must not be negative")
	}
	if opts.MaxAccess != nil && *opts.MaxAccess <= 0 {
		return nil, fmt.Errorf("share: maxAccess must be positive")
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:           newShareID(),
		SessionID:    sess.ID,
		Title:        sess.Title,
		CreatedAt:    now,
		ExpiresAt:    now.AddDate(0, 0, opts.ExpiresInDays),
		Privacy:      opts.Privacy,
		IncludeFiles: opts.IncludeFiles,
		MaxAccess:    opts.MaxAccess,
		Snapshot:     buildSnapshot(sess, opts.IncludeFiles),
	}

	if opts.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("share: failed to hash password: %w", err)
		}
		rec.PasswordHash = string(hash)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.loadShares(ctx)
	shares[rec.ID] = rec
	if err := s.saveShares(ctx, shares); err != nil {
		return nil, err
	}

	out := *rec
	return &out, nil
}

// Resolve grants or denies access to a share. On success the access
// counter is incremented and persisted before the snapshot is returned.
func (s *Service) Resolve(ctx context.Context, shareID, password string) (*Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.loadShares(ctx)
	rec, ok := shares[shareID]
	if !ok {
		return nil, &DeniedError{Reason: DeniedNotFound}
	}

	if time.Now().After(rec.ExpiresAt) {
		return nil, &DeniedError{Reason: DeniedExpired}
	}

	if rec.PasswordHash != "" {
		if password == "" {
			return nil, &DeniedError{Reason: DeniedPasswordRequired}
		}
		if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
			return nil, &DeniedError{Reason: DeniedPasswordRequired}
		}
	}

	if rec.MaxAccess != nil && rec.AccessCount >= *rec.MaxAccess {
		return nil, &DeniedError{Reason: DeniedAccessLimit}
	}

	rec.AccessCount++
	if err := s.saveShares(ctx, shares); err != nil {
		return nil, err
	}

	return &Resolution{
		Session: rec.Snapshot,
		Info: Info{
			CreatedAt:   rec.CreatedAt,
			ExpiresAt:   rec.ExpiresAt,
			AccessCount: rec.AccessCount,
			MaxAccess:   rec.MaxAccess,
		},
	}, nil
}

// Delete removes a share. Unknown ids are a no-op returning false.
func (s *Service) Delete(ctx context.Context, shareID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.loadShares(ctx)
	if _, ok := shares[shareID]; !ok {
		return false, nil
	}
	delete(shares, shareID)
	return true, s.saveShares(ctx, shares)
}

// SweepExpired removes every record whose expiry has passed and reports
// how many were removed. Meant for periodic invocation.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.loadShares(ctx)
	now := time.Now()

	removed := 0
	for id, rec := range shares {
		if rec.ExpiresAt.Before(now) {
			delete(shares, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveShares(ctx, shares)
}

// List returns owner-facing summaries, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.loadShares(ctx)
	now := time.Now()

	out := make([]Summary, 0, len(shares))
	for _, rec := range shares {
		out = append(out, Summary{
			ID:          rec.ID,
			SessionID:   rec.SessionID,
			Title:       rec.Title,
			CreatedAt:   rec.CreatedAt,
			ExpiresAt:   rec.ExpiresAt,
			Privacy:     rec.Privacy,
			AccessCount: rec.AccessCount,
			MaxAccess:   rec.MaxAccess,
			HasPassword: rec.PasswordHash != "",
			IsExpired:   now.After(rec.ExpiresAt),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateSettings changes the access controls of an existing share. The
// snapshot itself is immutable.
func (s *Service) UpdateSettings(ctx context.Context, shareID string, upd Update) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := s.loadShares(ctx)
	rec, ok := shares[shareID]
	if !ok {
		return nil, &DeniedError{Reason: DeniedNotFound}
	}

	if upd.ExpiresInDays != nil {
		rec.ExpiresAt = time.Now().UTC().AddDate(0, 0, *upd.ExpiresInDays)
	}
	if upd.MaxAccess != nil {
		if *upd.MaxAccess <= 0 {
			rec.MaxAccess = nil
		} else {
			rec.MaxAccess = upd.MaxAccess
		}
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			rec.PasswordHash = ""
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("share: failed to hash password: %w", err)
			}
			rec.PasswordHash = string(hash)
		}
	}
	if upd.Privacy != nil {
		rec.Privacy = *upd.Privacy
	}

	if err := s.saveShares(ctx, shares); err != nil {
		return nil, err
	}
	out := *rec
	return &out, nil
}

func buildSnapshot(sess *chat.Session, includeFiles bool) Snapshot {
	messages := make([]SnapshotMessage, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		sm := SnapshotMessage{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
		if includeFiles {
			for _, f := range msg.Files {
				sm.Files = append(sm.Files, SnapshotFile{
					Name:       f.Name,
					Type:       f.Type,
					Size:       f.Size,
					HasContent: f.Content != "",
				})
			}
		}
		messages = append(messages, sm)
	}
	return Snapshot{
		ID:           sess.ID,
		Title:        sess.Title,
		Messages:     messages,
		CreatedAt:    sess.CreatedAt,
		MessageCount: len(messages),
	}
}
