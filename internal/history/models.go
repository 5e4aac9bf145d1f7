package history

import "time"

// Senders recorded by the remote backend.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Record is one row in the remote chat history table.
type Record struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Sender    string    `gorm:"type:varchar(16);not null" json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

func (Record) TableName() string { return "chats" }
