package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider turns a conversation into a completion.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StreamProvider is an optional interface. Providers may implement streaming chat.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// Error kinds surfaced to callers. Wrapped errors carry provider detail;
// callers classify with errors.Is.
var (
	// ErrMalformedResponse means the endpoint answered 2xx but the body did
	// not have the expected shape.
	ErrMalformedResponse = errors.New("ai: malformed response")

	// ErrTimeout means the completion call exceeded its deadline.
	ErrTimeout = errors.New("ai: request timed out")

	// ErrAPI covers unreachable endpoints and non-2xx answers.
	ErrAPI = errors.New("ai: api error")
)

// ClassifyTransportError maps transport-level failures onto the error kinds.
func ClassifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrAPI, err)
}
