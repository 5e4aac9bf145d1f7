package chat

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newULID returns a ULID for the current instant. The monotonic entropy
// source keeps ids collision-resistant and ordered under rapid
// sequential calls.
func newULID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}

// NewSessionID returns a time-derived unique session id.
func NewSessionID() string {
	return "session_" + newULID()
}

// NewJobID returns a time-derived unique job id.
func NewJobID() string {
	return "job_" + newULID()
}

// NewMessageID returns a random message id.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}
