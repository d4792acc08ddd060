package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"resume-sync/internal/shared/metrics"
)

// ErrNotFound indicates an unknown session id.
var ErrNotFound = errors.New("session: not found")

// Registry tracks the live editing sessions for the HTTP layer.
type Registry struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Engine
}

// NewRegistry constructs an empty registry sharing deps across sessions.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, sessions: make(map[string]*Engine)}
}

// Create starts a new session for the owner and returns its engine.
func (r *Registry) Create(owner string) *Engine {
	engine := NewEngine(uuid.NewString(), owner, r.deps)
	r.mu.Lock()
	r.sessions[engine.ID()] = engine
	r.mu.Unlock()
	metrics.IncSessionStarted()
	return engine
}

// Get returns the engine for a session id.
func (r *Registry) Get(id string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return engine, nil
}

// Close ends a session, disconnecting and flushing it.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	engine, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	engine.Close(ctx)
	metrics.IncSessionClosed()
	return nil
}

// CloseAll ends every live session, flushing each.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.sessions))
	for _, engine := range r.sessions {
		engines = append(engines, engine)
	}
	r.sessions = make(map[string]*Engine)
	r.mu.Unlock()

	for _, engine := range engines {
		engine.Close(ctx)
		metrics.IncSessionClosed()
	}
}
