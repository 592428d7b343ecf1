// Package session provides the per-call session, its lifecycle state machine,
// the cross-call registry and the transcript archive.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a call session.
type State int

const (
	// StateStarting - session created, connector initializing, greeting pending.
	StateStarting State = iota
	// StateActive - media is flowing, transcripts drive replies.
	StateActive
	// StateEnding - stop received, connector shutting down, archive pending.
	StateEnding
	// StateEnded - terminal. The call is served only from the archive.
	StateEnded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateActive:
		return "ACTIVE"
	case StateEnding:
		return "ENDING"
	case StateEnded:
		return "ENDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (ENDED).
func (s State) IsTerminal() bool {
	return s == StateEnded
}

// Errors for invalid state transitions.
var (
	ErrSessionEnded     = errors.New("session has ended")
	ErrSessionNotActive = errors.New("session is not active")
)

// Lifecycle manages the state machine for a single call session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	STARTING → ACTIVE → ENDING → ENDED
//	    │                  ↑
//	    └── BeginEnding ───┘   (a call may end before it activates)
//
// Rules:
//   - STARTING: connector is being set up, greeting may already be speaking
//   - ACTIVE: inbound audio is processed, transcripts trigger replies
//   - ENDING: no new audio is accepted, archive hand-off in progress
//   - ENDED: terminal, all operations are rejected
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in STARTING state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateStarting}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Activate transitions STARTING → ACTIVE.
// Returns an error if the session is already ending or ended.
func (l *Lifecycle) Activate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateStarting:
		l.state = StateActive
		return nil
	case StateActive:
		return nil
	default:
		return ErrSessionEnded
	}
}

// AcceptsMedia returns true if inbound audio should still be processed.
func (l *Lifecycle) AcceptsMedia() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStarting || l.state == StateActive
}

// BeginEnding transitions to ENDING from any non-terminal state.
// Returns true on the first call only; a duplicate stop signal returns false
// so the archive hand-off stays exactly-once.
func (l *Lifecycle) BeginEnding() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateEnding || l.state == StateEnded {
		return false
	}
	l.state = StateEnding
	return true
}

// Finish transitions to ENDED. Idempotent.
func (l *Lifecycle) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateEnded
}
