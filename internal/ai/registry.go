package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownProvider is returned by Registry.Get when no factory was
// registered under the requested name.
var ErrUnknownProvider = errors.New("ai: no such provider")

// Factory builds a provider bound to a model. Factories run on every
// Get, so a provider may pick up per-request configuration.
type Factory func(ctx context.Context, model string) (Provider, error)

// Registry resolves configured backend names ("gemini", "ollama") to
// provider factories. Names are case-insensitive and surrounding
// whitespace is ignored, so config values like "Gemini " still match.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[canonicalName(name)] = f
}

// Get builds a provider for the named backend.
func (r *Registry) Get(ctx context.Context, name, model string) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[canonicalName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return f(ctx, model)
}

// Names lists the registered backends in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
