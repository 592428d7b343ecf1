package session

import (
	"sync"
	"sync/atomic"
	"time"

	"ai-voice-agent-service/internal/models"
)

// Session is the state for one active call. CallID and StreamID come from the
// telephony gateway's start event and never change for the life of the call.
//
// History holds the bounded conversation window fed to the language model: the
// seed persona turns at the head, then user/assistant turns in time order.
// Mutation goes through Append/Prune so the seeds survive pruning.
type Session struct {
	CallID    string
	StreamID  string
	CreatedAt time.Time

	lifecycle *Lifecycle
	seedCount int

	mu           sync.RWMutex
	history      []models.Turn
	endedAt      time.Time
	lastActivity time.Time

	// speaking guards the at-most-one-playback invariant. The chunker flips
	// it with TrySpeak/EndSpeak around every outbound utterance.
	speaking atomic.Bool

	stopOnce sync.Once
	stopFn   func()
}

// New creates a session in STARTING state seeded with the persona turns.
func New(callID, streamID string, seeds []models.Turn) *Session {
	now := time.Now().UTC()
	history := make([]models.Turn, len(seeds))
	copy(history, seeds)
	return &Session{
		CallID:       callID,
		StreamID:     streamID,
		CreatedAt:    now,
		lifecycle:    NewLifecycle(),
		seedCount:    len(seeds),
		history:      history,
		lastActivity: now,
	}
}

// Lifecycle returns the session's state machine.
func (s *Session) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// Append adds a turn to the history and returns the new history length.
func (s *Session) Append(t models.Turn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, t)
	return len(s.history)
}

// Prune drops the oldest non-seed turns until the history is back under max.
// The seed turns at the head are never dropped.
func (s *Session) Prune(max int) {
	if max <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.history) > max && len(s.history) > s.seedCount {
		copy(s.history[s.seedCount:], s.history[s.seedCount+1:])
		s.history = s.history[:len(s.history)-1]
	}
}

// History returns a copy of the full bounded history, seeds included.
func (s *Session) History() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Transcript returns the caller-facing turn log: user and assistant turns
// only, seeds excluded, in append order.
func (s *Session) Transcript() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Turn, 0, len(s.history))
	for _, t := range s.history {
		if t.Role == models.RoleSystem {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TrySpeak attempts to claim the outbound audio path. Returns false if a
// reply is already being sent; the caller must not send.
func (s *Session) TrySpeak() bool {
	return s.speaking.CompareAndSwap(false, true)
}

// EndSpeak releases the outbound audio path.
func (s *Session) EndSpeak() {
	s.speaking.Store(false)
}

// Speaking reports whether a reply is currently being sent.
func (s *Session) Speaking() bool {
	return s.speaking.Load()
}

// Touch records inbound activity for the idle watchdog.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

// IdleFor returns how long the session has gone without inbound activity.
func (s *Session) IdleFor() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastActivity)
}

// MarkEnded stamps the end time. Idempotent; the first stamp wins.
func (s *Session) MarkEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endedAt.IsZero() {
		s.endedAt = time.Now().UTC()
	}
}

// EndedAt returns the end timestamp, zero if the call is still live.
func (s *Session) EndedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt
}

// SetStopper registers the callback invoked by RequestStop. The owning
// handler sets this so external parties (idle watchdog, transport errors)
// can signal a stop without reaching into the event loop.
func (s *Session) SetStopper(fn func()) {
	s.mu.Lock()
	s.stopFn = fn
	s.mu.Unlock()
}

// RequestStop invokes the registered stop callback at most once.
func (s *Session) RequestStop() {
	s.mu.RLock()
	fn := s.stopFn
	s.mu.RUnlock()
	if fn == nil {
		return
	}
	s.stopOnce.Do(fn)
}
