// Package history consumes the remote persistence backend: an append-only
// chat record table used as an optional durability layer. Local storage
// remains the source of truth, so every caller goes through Mirror, which
// degrades gracefully when the backend is unreachable.
package history

import (
	"context"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Open connects to the backend and ensures the chats table exists.
func Open(dsn string) (*Repo, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return NewRepo(db), nil
}

func (r *Repo) Insert(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListAsc returns all records ordered by creation time ascending.
func (r *Repo) ListAsc(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Repo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("id > ?", 0).
		Delete(&Record{}).Error
}
