package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/logging"
)

// archiveEntry is the retained transcript of one ended call.
type archiveEntry struct {
	turns      []models.Turn
	endedAt    time.Time
	archivedAt time.Time
}

// Archive retains transcripts of ended calls. Entries are bounded two ways:
// each call keeps at most maxTurns of its newest turns, and whole entries are
// evicted once they outlive the TTL. Without the TTL the archive grows
// without bound over the process lifetime.
type Archive struct {
	mu       sync.RWMutex
	entries  map[string]*archiveEntry
	maxTurns int
	ttl      time.Duration
	log      zerolog.Logger

	onEvict func(n int) // metrics hook, may be nil
}

// NewArchive creates an archive. maxTurns <= 0 disables the per-call cap;
// ttl <= 0 disables time-based eviction.
func NewArchive(maxTurns int, ttl time.Duration) *Archive {
	return &Archive{
		entries:  make(map[string]*archiveEntry),
		maxTurns: maxTurns,
		ttl:      ttl,
		log:      logging.WithComponent("archive"),
	}
}

// SetEvictHook registers a callback invoked with the number of entries
// removed on each eviction pass.
func (a *Archive) SetEvictHook(fn func(n int)) {
	a.mu.Lock()
	a.onEvict = fn
	a.mu.Unlock()
}

// Archive stores the transcript of an ended call, truncating to the newest
// maxTurns turns. Re-archiving a call ID overwrites the previous entry, so a
// double hand-off still yields exactly one entry.
func (a *Archive) Archive(callID string, turns []models.Turn, endedAt time.Time) {
	kept := turns
	if a.maxTurns > 0 && len(kept) > a.maxTurns {
		kept = kept[len(kept)-a.maxTurns:]
	}
	copied := make([]models.Turn, len(kept))
	copy(copied, kept)

	a.mu.Lock()
	a.entries[callID] = &archiveEntry{
		turns:      copied,
		endedAt:    endedAt,
		archivedAt: time.Now().UTC(),
	}
	size := len(a.entries)
	a.mu.Unlock()

	a.log.Info().
		Str("callId", callID).
		Int("turns", len(copied)).
		Int("archiveSize", size).
		Msg("Call transcript archived")
}

// Lookup returns the archived transcript for the call.
func (a *Archive) Lookup(callID string) ([]models.Turn, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.entries[callID]
	if !ok {
		return nil, false
	}
	out := make([]models.Turn, len(e.turns))
	copy(out, e.turns)
	return out, true
}

// Len returns the number of archived calls.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Evict removes entries older than the TTL and returns how many were removed.
func (a *Archive) Evict() int {
	if a.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-a.ttl)

	a.mu.Lock()
	removed := 0
	for id, e := range a.entries {
		if e.archivedAt.Before(cutoff) {
			delete(a.entries, id)
			removed++
		}
	}
	hook := a.onEvict
	a.mu.Unlock()

	if removed > 0 {
		a.log.Info().Int("evicted", removed).Msg("Archive TTL eviction")
		if hook != nil {
			hook(removed)
		}
	}
	return removed
}

// RunJanitor evicts expired entries on the given interval until the context
// is canceled. Run in its own goroutine.
func (a *Archive) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Evict()
		}
	}
}
