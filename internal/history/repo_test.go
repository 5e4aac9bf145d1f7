package history

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return NewRepo(db)
}

func TestRepo_InsertAndListAsc(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := []Record{
		{Message: "second", Sender: SenderBot, CreatedAt: base.Add(time.Minute)},
		{Message: "first", Sender: SenderUser, CreatedAt: base},
		{Message: "third", Sender: SenderUser, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range rows {
		if err := repo.Insert(ctx, &rows[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	records, err := repo.ListAsc(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	if records[0].Message != "first" || records[2].Message != "third" {
		t.Fatalf("order = %s, %s, %s", records[0].Message, records[1].Message, records[2].Message)
	}
	if records[0].Sender != SenderUser {
		t.Fatalf("sender = %s, want %s", records[0].Sender, SenderUser)
	}
}

func TestRepo_DeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.Insert(ctx, &Record{Message: "m", Sender: SenderUser}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	records, err := repo.ListAsc(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("len = %d, want 0", len(records))
	}
}

func TestMirror_NilSafe(t *testing.T) {
	ctx := context.Background()

	var m *Mirror
	m.Record(ctx, "user", "no backend") // must not panic

	if got := m.List(ctx); len(got) != 0 {
		t.Fatalf("list on nil mirror = %v", got)
	}
	if m.Clear(ctx) {
		t.Fatal("clear on nil mirror should report false")
	}
}

func TestMirror_RecordsSenders(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	m := NewMirror(repo, nil)

	m.Record(ctx, "user", "question")
	m.Record(ctx, "assistant", "answer")

	records := m.List(ctx)
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Sender != SenderUser || records[1].Sender != SenderBot {
		t.Fatalf("senders = %s, %s", records[0].Sender, records[1].Sender)
	}

	if !m.Clear(ctx) {
		t.Fatal("expected clear to succeed")
	}
	if got := m.List(ctx); len(got) != 0 {
		t.Fatalf("after clear len = %d, want 0", len(got))
	}
}
