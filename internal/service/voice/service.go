// Package voice wires the per-call pipeline together: media in, speech-to-
// text, conversation orchestration, speech synthesis and paced audio out.
package voice

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/events"
	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/llm"
	"ai-voice-agent-service/internal/service/stt"
	"ai-voice-agent-service/internal/service/tts"
	"ai-voice-agent-service/internal/session"
)

// AdapterFactory creates a fresh STT stream for one call session.
type AdapterFactory func(ctx context.Context) (stt.Adapter, error)

// Config holds pipeline settings shared by all calls.
type Config struct {
	Greeting      string
	SystemPrompt  string
	StylePrompt   string
	HistoryMax    int
	FrameBytes    int
	FrameInterval time.Duration
	Debug         bool
}

// Deps are the service's injected collaborators.
type Deps struct {
	Registry   *session.Registry
	Archive    *session.Archive
	Publisher  *events.Publisher
	Metrics    *metrics.Metrics
	LLM        llm.Provider
	TTS        tts.Synthesizer
	NewAdapter AdapterFactory
}

// Service owns the cross-call state and builds a Handler per media
// connection.
type Service struct {
	cfg   Config
	deps  Deps
	seeds []models.Turn
	log   zerolog.Logger
}

// NewService creates the voice pipeline service. The system and style
// prompts become the two seed persona turns that anchor every call's history
// and survive pruning.
func NewService(cfg Config, deps Deps) *Service {
	return &Service{
		cfg:  cfg,
		deps: deps,
		seeds: []models.Turn{
			models.NewTurn(models.RoleSystem, cfg.SystemPrompt),
			models.NewTurn(models.RoleSystem, cfg.StylePrompt),
		},
		log: logging.WithComponent("voice"),
	}
}

// Transcript returns the ordered turn log for a call: the live session if
// one exists, otherwise the archive, otherwise an empty list. An unknown
// call ID is not an error at this boundary.
func (s *Service) Transcript(callID string) []models.Turn {
	if live := s.deps.Registry.Get(callID); live != nil {
		return live.Transcript()
	}
	if turns, ok := s.deps.Archive.Lookup(callID); ok {
		return turns
	}
	return []models.Turn{}
}

// RunWatchdog stops sessions that have gone idle, checking every interval.
// Run in its own goroutine; returns when the context is canceled.
func (s *Service) RunWatchdog(ctx context.Context, interval, idleTimeout time.Duration) {
	if idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sess := range s.deps.Registry.Snapshot() {
				if sess.IdleFor() < idleTimeout {
					continue
				}
				s.log.Warn().
					Str("callId", sess.CallID).
					Dur("idle", sess.IdleFor()).
					Msg("Stopping idle session")
				s.deps.Metrics.IdleSessionsStopped.Inc()
				sess.RequestStop()
			}
		}
	}
}
