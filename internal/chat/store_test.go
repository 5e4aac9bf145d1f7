package chat

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chattrix/chattrix/internal/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(kv.NewMemoryStore(), nil)
}

func TestCreateSession_Defaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated id")
	}
	want := "Chat " + time.Now().Format("1/2/2006")
	if sess.Title != want {
		t.Fatalf("title = %q, want %q", sess.Title, want)
	}
	if sess.Metadata.MessageCount != 0 {
		t.Fatalf("messageCount = %d, want 0", sess.Metadata.MessageCount)
	}

	// creating a session makes it current
	current, err := store.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if current == nil || current.ID != sess.ID {
		t.Fatalf("current = %+v, want id %s", current, sess.ID)
	}
}

func TestAppendMessage_MaintainsCounters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, err := store.CreateSession(ctx, "counters")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	first, err := store.AppendMessage(ctx, sess.ID, Message{Role: RoleUser, Content: "hello"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated message id")
	}
	if _, err := store.AppendMessage(ctx, sess.ID, Message{Role: RoleAssistant, Content: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Metadata.MessageCount != 2 {
		t.Fatalf("messageCount = %d, want 2", got.Metadata.MessageCount)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(got.Messages))
	}
	if got.Metadata.LastActivity.Before(got.CreatedAt) {
		t.Fatal("lastActivity must not precede createdAt")
	}

	deleted, err := store.DeleteMessage(ctx, sess.ID, first.ID)
	if err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if !deleted {
		t.Fatal("expected message deleted")
	}

	got, err = store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Metadata.MessageCount != 1 {
		t.Fatalf("messageCount after delete = %d, want 1", got.Metadata.MessageCount)
	}
}

func TestUpdateMessage_StampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, _ := store.CreateSession(ctx, "edit")
	msg, err := store.AppendMessage(ctx, sess.ID, Message{Role: RoleUser, Content: "typo"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	content := "fixed"
	updated, err := store.UpdateMessage(ctx, sess.ID, msg.ID, MessageUpdate{Content: &content})
	if err != nil {
		t.Fatalf("update message: %v", err)
	}
	if updated.Content != "fixed" {
		t.Fatalf("content = %q, want %q", updated.Content, "fixed")
	}
	if updated.UpdatedAt == nil {
		t.Fatal("expected updatedAt to be set")
	}

	_, err = store.UpdateMessage(ctx, sess.ID, "msg_unknown", MessageUpdate{Content: &content})
	if err != ErrMessageNotFound {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}
}

func TestDeleteSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sess, _ := store.CreateSession(ctx, "gone")

	deleted, err := store.DeleteSession(ctx, sess.ID)
	if err != nil || !deleted {
		t.Fatalf("first delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = store.DeleteSession(ctx, sess.ID)
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}

	// deleting the current session clears the pointer
	current, err := store.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if current != nil {
		t.Fatalf("current = %+v, want nil", current)
	}
}

func TestCurrentSession_DanglingPointer(t *testing.T) {
	ctx := context.Background()
	kvStore := kv.NewMemoryStore()
	store := NewStore(kvStore, nil)

	if _, err := store.CreateSession(ctx, "s"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	// point at a session that does not exist
	if err := kvStore.Set(ctx, kv.KeyCurrentSession, `"session_missing"`); err != nil {
		t.Fatalf("set: %v", err)
	}

	current, err := store.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if current != nil {
		t.Fatalf("current = %+v, want nil for a dangling pointer", current)
	}
}

func TestLoadSessions_CorruptValueTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	kvStore := kv.NewMemoryStore()
	if err := kvStore.Set(ctx, kv.KeySessions, "{not json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	store := NewStore(kvStore, nil)

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("len(sessions) = %d, want 0", len(sessions))
	}

	// store stays usable after the corrupt read
	if _, err := store.CreateSession(ctx, "recovered"); err != nil {
		t.Fatalf("create session: %v", err)
	}
}

func TestSettings_DefaultsAndPartialUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	settings, err := store.Settings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings != DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", settings)
	}

	theme := "light"
	updated, err := store.UpdateSettings(ctx, SettingsUpdate{Theme: &theme})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.Theme != "light" {
		t.Fatalf("theme = %q, want light", updated.Theme)
	}
	if updated.MaxSessions != DefaultSettings().MaxSessions {
		t.Fatal("untouched fields must keep their values")
	}
}

func TestCleanupOldSessions_KeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		sess, err := store.CreateSession(ctx, "s")
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		ids = append(ids, sess.ID)
		if _, err := store.AppendMessage(ctx, sess.ID, Message{Role: RoleUser, Content: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	removed, err := store.CleanupOldSessions(ctx, 2)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	for _, sess := range sessions {
		if sess.ID != ids[3] && sess.ID != ids[4] {
			t.Fatalf("unexpected survivor %s", sess.ID)
		}
	}
}

func TestClearAllData(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateSession(ctx, "a"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.AddPromptToHistory(ctx, "what is go"); err != nil {
		t.Fatalf("history: %v", err)
	}

	if err := store.ClearAllData(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	sessions, _ := store.ListSessions(ctx)
	if len(sessions) != 0 {
		t.Fatalf("len(sessions) = %d, want 0", len(sessions))
	}
	prompts, _ := store.PromptHistory(ctx)
	if len(prompts) != 0 {
		t.Fatalf("len(prompts) = %d, want 0", len(prompts))
	}
}

func TestSave_WarnsWhenOverwritingConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	shared := kv.NewMemoryStore()

	core, logs := observer.New(zap.WarnLevel)
	a := NewStore(shared, zap.New(core))
	b := NewStore(shared, nil)

	sess, err := a.CreateSession(ctx, "contested")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// another instance bumps the stored revision behind a's back
	theirs := "their title"
	if _, err := b.UpdateSession(ctx, sess.ID, SessionUpdate{Title: &theirs}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// a saves from its stale read of revision 1
	stale := cloneSession(sess)
	stale.Title = "our title"
	touch(stale)
	a.mu.Lock()
	err = a.saveSessions(ctx, map[string]*Session{stale.ID: stale})
	a.mu.Unlock()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	warnings := logs.FilterMessage("overwriting session modified by a concurrent writer").All()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}

	// last-writer-wins: the stale save still landed
	got, err := b.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "our title" {
		t.Fatalf("title = %q, want %q", got.Title, "our title")
	}
}
