package export

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/chattrix/chattrix/internal/chat"
)

// SessionDigest identifies a session inside a statistics report.
type SessionDigest struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// Stats summarizes a set of sessions for the export dialog.
type Stats struct {
	TotalSessions             int            `json:"totalSessions"`
	TotalMessages             int            `json:"totalMessages"`
	TotalSize                 int64          `json:"totalSize"`
	OldestSession             *SessionDigest `json:"oldestSession"`
	NewestSession             *SessionDigest `json:"newestSession"`
	AverageMessagesPerSession int            `json:"averageMessagesPerSession"`
	SessionsByMonth           map[string]int `json:"sessionsByMonth"`
}

// Statistics computes totals over the given sessions. TotalSize is the
// approximate serialized byte length of all session documents.
func Statistics(sessions []*chat.Session) Stats {
	stats := Stats{
		TotalSessions:   len(sessions),
		SessionsByMonth: map[string]int{},
	}

	var oldest, newest *chat.Session
	for _, sess := range sessions {
		stats.TotalMessages += len(sess.Messages)

		if data, err := json.Marshal(sess); err == nil {
			stats.TotalSize += int64(len(data))
		}

		if oldest == nil || sess.CreatedAt.Before(oldest.CreatedAt) {
			oldest = sess
		}
		if newest == nil || sess.CreatedAt.After(newest.CreatedAt) {
			newest = sess
		}

		monthKey := fmt.Sprintf("%04d-%02d", sess.CreatedAt.Year(), int(sess.CreatedAt.Month()))
		stats.SessionsByMonth[monthKey]++
	}

	stats.OldestSession = digest(oldest)
	stats.NewestSession = digest(newest)

	if stats.TotalSessions > 0 {
		stats.AverageMessagesPerSession = int(math.Round(float64(stats.TotalMessages) / float64(stats.TotalSessions)))
	}
	return stats
}

func digest(sess *chat.Session) *SessionDigest {
	if sess == nil {
		return nil
	}
	return &SessionDigest{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
