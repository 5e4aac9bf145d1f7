package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/ai"
	"github.com/chattrix/chattrix/internal/history"
)

// ErrAskCanceled is returned when an in-flight ask was canceled (for
// example by starting a new chat); the completion result was discarded.
var ErrAskCanceled = errors.New("chat: ask canceled")

// Failure kinds carried on an Answer when the completion call failed.
const (
	FailureTimeout   = "timeout"
	FailureMalformed = "malformed"
	FailureAPI       = "api"
)

// Answer is the outcome of one orchestrated exchange. When the
// completion call fails, Failed is set and AssistantMessage is the
// synthetic error message appended in place of a real reply; the user
// message is persisted either way.
type Answer struct {
	SessionID        string   `json:"sessionId"`
	UserMessage      *Message `json:"userMessage"`
	AssistantMessage *Message `json:"assistantMessage"`
	Reply            string   `json:"reply"`
	Blocks           []Block  `json:"blocks"`
	Failed           bool     `json:"failed"`
	FailureKind      string   `json:"failureKind,omitempty"`
}

type inflightAsk struct {
	cancel context.CancelFunc
}

// Service composes the session store, the completion provider and the
// remote history mirror into the chat orchestration path.
type Service struct {
	store    *Store
	registry *ai.Registry
	provider string
	model    string
	timeout  time.Duration
	mirror   *history.Mirror
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]*inflightAsk
}

func NewService(store *Store, registry *ai.Registry, provider, model string, timeout time.Duration, mirror *history.Mirror, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		registry: registry,
		provider: provider,
		model:    model,
		timeout:  timeout,
		mirror:   mirror,
		logger:   logger,
		inflight: make(map[string]*inflightAsk),
	}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) providerFor(ctx context.Context) (ai.Provider, error) {
	return s.registry.Get(ctx, s.provider, s.model)
}

// register cancels any ask already in flight for the session and tracks
// the new one.
func (s *Service) register(sessionID string, cancel context.CancelFunc) *inflightAsk {
	ask := &inflightAsk{cancel: cancel}
	s.mu.Lock()
	if prev, ok := s.inflight[sessionID]; ok {
		prev.cancel()
	}
	s.inflight[sessionID] = ask
	s.mu.Unlock()
	return ask
}

func (s *Service) unregister(sessionID string, ask *inflightAsk) {
	s.mu.Lock()
	if s.inflight[sessionID] == ask {
		delete(s.inflight, sessionID)
	}
	s.mu.Unlock()
}

// CancelInflight aborts the pending ask for a session, if any.
func (s *Service) CancelInflight(sessionID string) {
	s.mu.Lock()
	if ask, ok := s.inflight[sessionID]; ok {
		ask.cancel()
		delete(s.inflight, sessionID)
	}
	s.mu.Unlock()
}

func (s *Service) cancelAll() {
	s.mu.Lock()
	for id, ask := range s.inflight {
		ask.cancel()
		delete(s.inflight, id)
	}
	s.mu.Unlock()
}

// NewChat cancels every in-flight ask and creates a fresh session;
// results of canceled asks are discarded, not applied to the new session.
func (s *Service) NewChat(ctx context.Context, title string) (*Session, error) {
	s.cancelAll()
	return s.store.CreateSession(ctx, title)
}

// Ask runs one exchange: persist the user turn, call the completion
// provider under a bounded timeout, persist the assistant turn. Provider
// failures come back as a synthetic assistant message on the Answer, so
// the caller can render them inline; the triggering question stays
// visible either way.
func (s *Service) Ask(ctx context.Context, sessionID, prompt string, files []FileRef) (*Answer, error) {
	sess, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.store.AppendMessage(ctx, sess.ID, Message{
		Role:    RoleUser,
		Content: prompt,
		Files:   files,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AddPromptToHistory(ctx, prompt); err != nil {
		s.logger.Warn("failed to record prompt history", zap.Error(err))
	}
	s.mirror.Record(ctx, RoleUser, prompt)

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ask := s.register(sess.ID, cancel)
	defer s.unregister(sess.ID, ask)

	provider, err := s.providerFor(cctx)
	if err != nil {
		return nil, err
	}

	tctx, tcancel := context.WithTimeout(cctx, s.timeout)
	defer tcancel()

	current, err := s.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	reply, chatErr := provider.Chat(tctx, providerMessages(current.Messages))

	// A canceled ask discards the provider result instead of applying it
	// to a session the user has moved away from.
	if cctx.Err() == context.Canceled {
		return nil, ErrAskCanceled
	}

	answer := &Answer{SessionID: sess.ID, UserMessage: userMsg}

	if chatErr != nil {
		kind := failureKind(chatErr)
		s.logger.Warn("completion call failed",
			zap.String("session_id", sess.ID),
			zap.String("kind", kind),
			zap.Error(chatErr))

		synthetic, err := s.store.AppendMessage(ctx, sess.ID, Message{
			Role:    RoleAssistant,
			Content: failureReply(kind),
		})
		if err != nil {
			return nil, err
		}
		answer.AssistantMessage = synthetic
		answer.Failed = true
		answer.FailureKind = kind
		return answer, nil
	}

	assistantMsg, err := s.store.AppendMessage(ctx, sess.ID, Message{
		Role:    RoleAssistant,
		Content: reply,
	})
	if err != nil {
		return nil, err
	}
	s.mirror.Record(ctx, RoleAssistant, reply)

	answer.AssistantMessage = assistantMsg
	answer.Reply = reply
	answer.Blocks = SegmentResponse(reply)
	return answer, nil
}

// AskStream is the streaming variant of Ask. Chunks arrive on the first
// channel as the provider emits them; the final Answer (or error) is
// delivered once, after the assistant turn has been persisted.
func (s *Service) AskStream(ctx context.Context, sessionID, prompt string) (<-chan string, <-chan *Answer, <-chan error) {
	chunks := make(chan string, 16)
	answers := make(chan *Answer, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(answers)
		defer close(errs)

		sess, err := s.resolveSession(ctx, sessionID)
		if err != nil {
			errs <- err
			return
		}

		userMsg, err := s.store.AppendMessage(ctx, sess.ID, Message{
			Role:    RoleUser,
			Content: prompt,
		})
		if err != nil {
			errs <- err
			return
		}
		s.mirror.Record(ctx, RoleUser, prompt)

		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		ask := s.register(sess.ID, cancel)
		defer s.unregister(sess.ID, ask)

		provider, err := s.providerFor(cctx)
		if err != nil {
			errs <- err
			return
		}
		sp, ok := provider.(ai.StreamProvider)
		if !ok {
			errs <- errors.New("chat: provider does not support streaming")
			return
		}

		current, err := s.store.GetSession(ctx, sess.ID)
		if err != nil {
			errs <- err
			return
		}

		pChunks, pErrs := sp.StreamChat(cctx, providerMessages(current.Messages))

		var b strings.Builder
		for c := range pChunks {
			b.WriteString(c)
			select {
			case chunks <- c:
			case <-cctx.Done():
			}
		}

		select {
		case err := <-pErrs:
			if err != nil {
				errs <- err
				return
			}
		default:
		}

		if cctx.Err() == context.Canceled {
			errs <- ErrAskCanceled
			return
		}

		reply := b.String()
		assistantMsg, err := s.store.AppendMessage(ctx, sess.ID, Message{
			Role:    RoleAssistant,
			Content: reply,
		})
		if err != nil {
			errs <- err
			return
		}
		s.mirror.Record(ctx, RoleAssistant, reply)

		answers <- &Answer{
			SessionID:        sess.ID,
			UserMessage:      userMsg,
			AssistantMessage: assistantMsg,
			Reply:            reply,
			Blocks:           SegmentResponse(reply),
		}
	}()

	return chunks, answers, errs
}

// SubmitJob queues an asynchronous exchange. The user turn is persisted
// at submit time; the worker generates the assistant turn later. With an
// idempotency key a resubmission returns the existing job without
// appending the prompt twice.
func (s *Service) SubmitJob(ctx context.Context, sessionID, prompt string, idempotencyKey *string) (*Job, bool, error) {
	sess, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	job, created, err := s.store.CreateJobOrGetExisting(ctx, sess.ID, prompt, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return job, false, nil
	}

	if _, err := s.store.AppendMessage(ctx, sess.ID, Message{
		Role:    RoleUser,
		Content: prompt,
	}); err != nil {
		return nil, false, err
	}
	s.mirror.Record(ctx, RoleUser, prompt)

	return job, true, nil
}

func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// RunJob is the worker side: generate the assistant reply for the job's
// session and record the outcome on the job.
func (s *Service) RunJob(ctx context.Context, jobID string) error {
	if err := s.store.MarkJobRunning(ctx, jobID); err != nil {
		return err
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	assistantMsg, err := s.GenerateReply(ctx, job.SessionID)
	if err != nil {
		_ = s.store.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}
	return s.store.MarkJobSucceeded(ctx, jobID, assistantMsg.ID)
}

// GenerateReply calls the provider over the session's history and
// persists the assistant turn. Unlike Ask it reports provider failures
// as errors; the job record carries them instead of a synthetic message.
func (s *Service) GenerateReply(ctx context.Context, sessionID string) (*Message, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	provider, err := s.providerFor(ctx)
	if err != nil {
		return nil, err
	}

	tctx, tcancel := context.WithTimeout(ctx, s.timeout)
	defer tcancel()

	reply, err := provider.Chat(tctx, providerMessages(sess.Messages))
	if err != nil {
		return nil, err
	}

	assistantMsg, err := s.store.AppendMessage(ctx, sess.ID, Message{
		Role:    RoleAssistant,
		Content: reply,
	})
	if err != nil {
		return nil, err
	}
	s.mirror.Record(ctx, RoleAssistant, reply)
	return assistantMsg, nil
}

// RemoteHistory exposes the mirrored backend records, oldest first.
func (s *Service) RemoteHistory(ctx context.Context) []history.Record {
	return s.mirror.List(ctx)
}

// ClearRemoteHistory wipes the mirrored backend records.
func (s *Service) ClearRemoteHistory(ctx context.Context) bool {
	return s.mirror.Clear(ctx)
}

// resolveSession picks the target session: the given id, else the
// current session, else a brand new one.
func (s *Service) resolveSession(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID != "" {
		return s.store.GetSession(ctx, sessionID)
	}
	sess, err := s.store.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}
	return s.store.CreateSession(ctx, "")
}

func providerMessages(messages []Message) []ai.Message {
	out := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ai.ErrTimeout):
		return FailureTimeout
	case errors.Is(err, ai.ErrMalformedResponse):
		return FailureMalformed
	default:
		return FailureAPI
	}
}

func failureReply(kind string) string {
	switch kind {
	case FailureTimeout:
		return "The request timed out before the assistant could answer. Please try again."
	case FailureMalformed:
		return "The completion service returned an unexpected response. Please try again."
	default:
		return "The completion service is unavailable right now. Please try again later."
	}
}
