package history

import (
	"context"

	"go.uber.org/zap"
)

// Mirror writes chat turns to the remote backend on a best-effort basis.
// A nil Mirror or a failing backend never blocks the caller; failures are
// logged and swallowed.
type Mirror struct {
	repo   *Repo
	logger *zap.Logger
}

func NewMirror(repo *Repo, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{repo: repo, logger: logger}
}

func (m *Mirror) enabled() bool {
	return m != nil && m.repo != nil
}

// Record mirrors one turn. Role is a chat role; anything non-user is
// recorded as the bot sender.
func (m *Mirror) Record(ctx context.Context, role, content string) {
	if !m.enabled() {
		return
	}
	sender := SenderBot
	if role == "user" {
		sender = SenderUser
	}
	if err := m.repo.Insert(ctx, &Record{Message: content, Sender: sender}); err != nil {
		m.logger.Warn("history mirror insert failed, continuing",
			zap.String("sender", sender), zap.Error(err))
	}
}

// List fetches the remote history, oldest first. Returns an empty slice
// when the backend is disabled or unreachable.
func (m *Mirror) List(ctx context.Context) []Record {
	if !m.enabled() {
		return []Record{}
	}
	records, err := m.repo.ListAsc(ctx)
	if err != nil {
		m.logger.Warn("history mirror list failed, returning empty", zap.Error(err))
		return []Record{}
	}
	return records
}

// Clear deletes the remote history. Failure is logged, not returned.
func (m *Mirror) Clear(ctx context.Context) bool {
	if !m.enabled() {
		return false
	}
	if err := m.repo.DeleteAll(ctx); err != nil {
		m.logger.Warn("history mirror clear failed", zap.Error(err))
		return false
	}
	return true
}
