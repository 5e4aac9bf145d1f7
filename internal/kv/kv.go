// Package kv provides the textual key-value store backing all local
// persistence. Values are JSON documents keyed by fixed strings; every
// backend serializes read-modify-write sequences per store instance.
package kv

import (
	"context"
	"errors"
)

// Fixed keys used across the application.
const (
	KeySessions       = "chatSessions"
	KeyCurrentSession = "currentSession"
	KeySettings       = "chatSettings"
	KeyLegacyChats    = "chats"
	KeyShares         = "sharedSessions"
	KeyPromptHistory  = "promptHistory"
	KeyJobs           = "chatJobs"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a textual key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys returns all keys currently present.
	Keys(ctx context.Context) ([]string, error)
}
