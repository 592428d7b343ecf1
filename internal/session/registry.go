package session

import (
	"errors"
	"sync"

	"ai-voice-agent-service/internal/models"
)

// ErrDuplicateCall is returned when a start event reuses a live call ID.
var ErrDuplicateCall = errors.New("call id already has a live session")

// Registry is the concurrency-safe map of in-progress sessions, keyed by
// call ID. It is the single cross-session shared resource; Remove is the
// one hand-off point to the transcript archive.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new session for the call. A call ID maps to at most one
// live session at a time; a duplicate start returns ErrDuplicateCall.
func (r *Registry) Create(callID, streamID string, seeds []models.Turn) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[callID]; exists {
		return nil, ErrDuplicateCall
	}
	s := New(callID, streamID, seeds)
	r.sessions[callID] = s
	return s, nil
}

// Get returns the live session for the call, or nil.
func (r *Registry) Get(callID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callID]
}

// Remove unregisters and returns the session, or nil if the call is unknown.
// Idempotent: a double stop signal removes once and then returns nil, so the
// archive hand-off stays exactly-once.
func (r *Registry) Remove(callID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[callID]
	if !exists {
		return nil
	}
	delete(r.sessions, callID)
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the live sessions at this instant. Used by the idle
// watchdog; the slice is a copy and safe to iterate without the lock.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
