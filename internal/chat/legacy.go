package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/kv"
)

// Legacy chat map and the recent-prompt list. Both predate the session
// model and are kept so old data can still be read and migrated.

const maxPromptHistory = 20

func (s *Store) loadLegacyChats(ctx context.Context) map[string]*LegacyChat {
	raw, err := s.kv.Get(ctx, kv.KeyLegacyChats)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("legacy chat map unavailable, treating as empty", zap.Error(err))
		}
		return map[string]*LegacyChat{}
	}
	var chats map[string]*LegacyChat
	if err := json.Unmarshal([]byte(raw), &chats); err != nil {
		s.logger.Warn("legacy chat map corrupted, treating as empty", zap.Error(err))
		return map[string]*LegacyChat{}
	}
	if chats == nil {
		chats = map[string]*LegacyChat{}
	}
	return chats
}

func (s *Store) saveLegacyChats(ctx context.Context, chats map[string]*LegacyChat) error {
	data, err := json.Marshal(chats)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kv.KeyLegacyChats, string(data))
}

func (s *Store) SaveLegacyChat(ctx context.Context, chatID string, chat LegacyChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat.Title == "" {
		chat.Title = "Untitled Chat"
	}
	chats := s.loadLegacyChats(ctx)
	chats[chatID] = &chat
	return s.saveLegacyChats(ctx, chats)
}

func (s *Store) LegacyChat(ctx context.Context, chatID string) (*LegacyChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.loadLegacyChats(ctx)[chatID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *chat
	return &out, nil
}

func (s *Store) AllLegacyChats(ctx context.Context) (map[string]*LegacyChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLegacyChats(ctx), nil
}

func (s *Store) DeleteLegacyChat(ctx context.Context, chatID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := s.loadLegacyChats(ctx)
	if _, ok := chats[chatID]; !ok {
		return false, nil
	}
	delete(chats, chatID)
	return true, s.saveLegacyChats(ctx, chats)
}

func (s *Store) loadPromptHistory(ctx context.Context) []string {
	raw, err := s.kv.Get(ctx, kv.KeyPromptHistory)
	if err != nil {
		return nil
	}
	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.Warn("prompt history corrupted, treating as empty", zap.Error(err))
		return nil
	}
	return history
}

func (s *Store) savePromptHistory(ctx context.Context, history []string) error {
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kv.KeyPromptHistory, string(data))
}

// formatPrompt normalizes a prompt for the recent list: leading capital,
// surrounding whitespace dropped.
func formatPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	return strings.ToUpper(prompt[:1]) + prompt[1:]
}

// AddPromptToHistory prepends a prompt to the recent list, deduplicated
// and capped.
func (s *Store) AddPromptToHistory(ctx context.Context, prompt string) ([]string, error) {
	prompt = formatPrompt(prompt)
	if prompt == "" {
		return s.PromptHistory(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]string{prompt}, s.loadPromptHistory(ctx)...)

	seen := make(map[string]struct{}, len(history))
	deduped := history[:0]
	for _, item := range history {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		deduped = append(deduped, item)
	}
	if len(deduped) > maxPromptHistory {
		deduped = deduped[:maxPromptHistory]
	}

	if err := s.savePromptHistory(ctx, deduped); err != nil {
		return nil, err
	}
	return deduped, nil
}

func (s *Store) PromptHistory(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPromptHistory(ctx), nil
}

func (s *Store) RemoveFromPromptHistory(ctx context.Context, prompt string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.loadPromptHistory(ctx)
	kept := history[:0]
	for _, item := range history {
		if item != prompt {
			kept = append(kept, item)
		}
	}
	if err := s.savePromptHistory(ctx, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (s *Store) ClearPromptHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, kv.KeyPromptHistory)
}
