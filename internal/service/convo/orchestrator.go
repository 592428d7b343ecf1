// Package convo provides the conversation orchestrator: it owns the bounded
// history window, the language-model call, and the fallback-on-failure
// policy that keeps the conversation alive when generation fails.
package convo

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/llm"
	"ai-voice-agent-service/internal/session"
)

// FallbackReply is spoken when the language model fails. The caller always
// hears something; silence or a dropped call is never the failure mode.
const FallbackReply = "I'm having trouble processing that, could you repeat?"

// DefaultHistoryMax bounds the history window fed to the model, seed persona
// turns included.
const DefaultHistoryMax = 22

// Orchestrator turns recognized user text into assistant replies.
type Orchestrator struct {
	provider   llm.Provider
	historyMax int
	debug      bool
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHistoryMax overrides the history cap.
func WithHistoryMax(max int) Option {
	return func(o *Orchestrator) { o.historyMax = max }
}

// WithDebug surfaces model errors to the caller instead of swallowing them
// behind the fallback reply. The fallback turn is still appended so the
// conversation stays coherent.
func WithDebug(debug bool) Option {
	return func(o *Orchestrator) { o.debug = debug }
}

// New creates an orchestrator backed by the given language-model provider.
func New(provider llm.Provider, m *metrics.Metrics, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:   provider,
		historyMax: DefaultHistoryMax,
		metrics:    m,
		log:        logging.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reply appends the user turn, asks the model for the assistant turn, and
// appends it. On model failure the canned fallback is appended and returned
// instead; in debug mode the underlying error is also returned. The returned
// string is never empty.
func (o *Orchestrator) Reply(ctx context.Context, s *session.Session, userText string) (string, error) {
	s.Append(models.NewTurn(models.RoleUser, userText))
	o.metrics.RecordTurn(models.RoleUser)

	start := time.Now()
	replyText, err := o.provider.Chat(ctx, s.History())
	o.metrics.ModelLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		o.log.Error().
			Err(err).
			Str("callId", s.CallID).
			Msg("Language model call failed, using fallback reply")
		o.metrics.ModelFallbacks.Inc()
		replyText = FallbackReply
	}

	s.Append(models.NewTurn(models.RoleAssistant, replyText))
	o.metrics.RecordTurn(models.RoleAssistant)
	s.Prune(o.historyMax)

	if err != nil && o.debug {
		return replyText, err
	}
	return replyText, nil
}

// Greet appends the greeting as an assistant turn without consulting the
// model. Used for the initial utterance sent before any user input.
func (o *Orchestrator) Greet(s *session.Session, greeting string) {
	s.Append(models.NewTurn(models.RoleAssistant, greeting))
	o.metrics.RecordTurn(models.RoleAssistant)
}

// HistoryMax returns the configured history cap.
func (o *Orchestrator) HistoryMax() int {
	return o.historyMax
}
