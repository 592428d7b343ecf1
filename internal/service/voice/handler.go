package voice

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/service/chunker"
	"ai-voice-agent-service/internal/service/convo"
	"ai-voice-agent-service/internal/service/stt"
	"ai-voice-agent-service/internal/session"
)

// eventQueueSize bounds the per-call event queue. At one media frame per
// 20ms this is roughly ten seconds of backlog before frames are shed.
const eventQueueSize = 512

type eventKind int

const (
	evStart eventKind = iota
	evMedia
	evTranscript
	evStop
)

// event is one item on the session's serialized event stream. Modeling the
// call as a single consumer of typed events gives one ordering point instead
// of racing transport callbacks.
type event struct {
	kind       eventKind
	callID     string
	streamID   string
	audio      []byte
	text       string
	confidence float64
}

// Handler drives one call session. It is the single consumer of the call's
// event stream and implements stt.Callback so transcripts re-enter the same
// stream. Replies are generated in-loop but played out on a separate
// goroutine so paced sends never stall event processing.
type Handler struct {
	svc    *Service
	sender chunker.Sender
	chunk  *chunker.Chunker
	orch   *convo.Orchestrator

	events  chan event
	stopped chan struct{}
	once    sync.Once

	sess    *session.Session
	adapter stt.Adapter

	// log is rebound with call context once the start event carries the
	// identifiers. Reads come from transport and provider goroutines, so
	// access goes through logger().
	logMu sync.RWMutex
	log   zerolog.Logger
}

// NewHandler builds the pipeline for one media connection.
func (s *Service) NewHandler(sender chunker.Sender) *Handler {
	orchOpts := []convo.Option{convo.WithHistoryMax(s.cfg.HistoryMax)}
	if s.cfg.Debug {
		orchOpts = append(orchOpts, convo.WithDebug(true))
	}
	return &Handler{
		svc:     s,
		sender:  sender,
		chunk:   chunker.New(sender, s.cfg.FrameBytes, s.cfg.FrameInterval, s.deps.Metrics),
		orch:    convo.New(s.deps.LLM, s.deps.Metrics, orchOpts...),
		events:  make(chan event, eventQueueSize),
		stopped: make(chan struct{}),
		log:     logging.WithComponent("call-handler"),
	}
}

func (h *Handler) logger() *zerolog.Logger {
	h.logMu.RLock()
	defer h.logMu.RUnlock()
	l := h.log
	return &l
}

// Start enqueues the call-start event carrying the gateway identifiers.
func (h *Handler) Start(callID, streamID string) {
	h.post(event{kind: evStart, callID: callID, streamID: streamID})
}

// Media enqueues an inbound audio frame. Frames are shed, not blocked on,
// when the session falls behind; a stalled session must not stall the
// transport read loop.
func (h *Handler) Media(audio []byte) {
	select {
	case <-h.stopped:
	case h.events <- event{kind: evMedia, audio: audio}:
	default:
		h.logger().Warn().Msg("Event queue full, media frame dropped")
	}
}

// Stop enqueues the stop event. Safe to call multiple times and from any
// goroutine; the loop archives exactly once.
func (h *Handler) Stop() {
	h.once.Do(func() {
		select {
		case <-h.stopped:
		case h.events <- event{kind: evStop}:
		}
	})
}

// Done is closed once the session has been archived and the loop has exited.
func (h *Handler) Done() <-chan struct{} {
	return h.stopped
}

// OnTranscript implements stt.Callback: recognized text re-enters the
// session's event stream.
func (h *Handler) OnTranscript(text string, confidence float64) {
	if text == "" {
		return
	}
	select {
	case <-h.stopped:
	case h.events <- event{kind: evTranscript, text: text, confidence: confidence}:
	default:
		h.logger().Warn().Str("text", text).Msg("Event queue full, transcript dropped")
	}
}

// OnError implements stt.Callback. Transient errors degrade transcription
// and the call continues; a fatal error moves the session toward ending.
func (h *Handler) OnError(err error) {
	severity := stt.Classify(err)
	h.svc.deps.Metrics.RecordSTTError(severity.String())

	if severity == stt.SeverityFatal {
		h.logger().Error().Err(err).Msg("Speech-to-text stream lost, ending call")
		h.Stop()
		return
	}
	h.logger().Warn().Err(err).Msg("Speech-to-text error, continuing without this result")
}

// post delivers non-sheddable events (start, transcript-free control flow).
func (h *Handler) post(ev event) {
	select {
	case <-h.stopped:
	case h.events <- ev:
	}
}

// Run consumes the call's event stream until the call stops or the context
// is canceled. It must be run on its own goroutine, one per call; sessions
// never block one another.
func (h *Handler) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.shutdown(context.Background())
			return
		case ev := <-h.events:
			switch ev.kind {
			case evStart:
				if err := h.handleStart(ctx, ev.callID, ev.streamID); err != nil {
					h.logger().Error().Err(err).Str("callId", ev.callID).Msg("Call setup failed")
					h.shutdown(ctx)
					return
				}
			case evMedia:
				h.handleMedia(ctx, ev.audio)
			case evTranscript:
				h.handleTranscript(ctx, ev.text)
			case evStop:
				h.shutdown(ctx)
				return
			}
		}
	}
}

func (h *Handler) handleStart(ctx context.Context, callID, streamID string) error {
	sess, err := h.svc.deps.Registry.Create(callID, streamID, h.svc.seeds)
	if err != nil {
		return err
	}
	h.sess = sess
	h.logMu.Lock()
	h.log = logging.WithStream(callID, streamID)
	h.logMu.Unlock()
	h.svc.deps.Metrics.RecordCallStart()

	// External parties (idle watchdog) signal stops through the session.
	sess.SetStopper(h.Stop)

	adapter, err := h.svc.deps.NewAdapter(ctx)
	if err != nil {
		return err
	}
	if err := adapter.Start(ctx, h); err != nil {
		return err
	}
	h.adapter = adapter

	if err := sess.Lifecycle().Activate(); err != nil {
		return err
	}
	h.logger().Info().Msg("Call session active")

	// Greet immediately, before any user input.
	if greeting := h.svc.cfg.Greeting; greeting != "" {
		h.orch.Greet(sess, greeting)
		h.publishTurn(ctx, models.RoleAssistant, greeting)
		h.speakAsync(ctx, greeting)
	}
	return nil
}

func (h *Handler) handleMedia(ctx context.Context, audio []byte) {
	if h.sess == nil || !h.sess.Lifecycle().AcceptsMedia() {
		return
	}
	h.sess.Touch()
	h.svc.deps.Metrics.RecordAudioReceived(len(audio))

	if h.adapter == nil {
		return
	}
	if err := h.adapter.SendAudio(ctx, audio); err != nil {
		// Degraded transcription; the call itself survives.
		h.logger().Warn().Err(err).Msg("Failed to forward audio to STT")
	}
}

func (h *Handler) handleTranscript(ctx context.Context, text string) {
	if h.sess == nil || h.sess.State() != session.StateActive {
		return
	}
	h.sess.Touch()
	h.svc.deps.Metrics.STTTranscripts.Inc()

	reply, err := h.orch.Reply(ctx, h.sess, text)
	if err != nil {
		// Debug mode only; the fallback turn is already in the history.
		h.logger().Error().Err(err).Msg("Model error surfaced in debug mode")
	}

	h.publishTurn(ctx, models.RoleUser, text)
	h.publishTurn(ctx, models.RoleAssistant, reply)
	h.speakAsync(ctx, reply)
}

// speakAsync synthesizes and plays one utterance off the event loop. The
// chunker's speaking guard drops the playback if a previous utterance is
// still on the wire.
func (h *Handler) speakAsync(ctx context.Context, text string) {
	sess := h.sess
	go func() {
		start := time.Now()
		audio, err := h.svc.deps.TTS.Synthesize(ctx, text)
		h.svc.deps.Metrics.TTSLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			// The utterance is skipped, not the call.
			h.svc.deps.Metrics.TTSErrors.Inc()
			h.logger().Error().Err(err).Msg("Speech synthesis failed, utterance skipped")
			return
		}
		if err := h.chunk.Send(ctx, sess, audio); err != nil {
			h.logger().Warn().Err(err).Msg("Utterance playback aborted")
		}
	}()
}

// shutdown releases the STT stream, removes the session from the registry
// and hands the transcript to the archive. The registry removal is the
// exactly-once gate: whichever stop signal gets there first archives.
func (h *Handler) shutdown(ctx context.Context) {
	if h.sess == nil {
		return
	}

	h.sess.Lifecycle().BeginEnding()

	if h.adapter != nil {
		if err := h.adapter.Close(); err != nil {
			h.logger().Warn().Err(err).Msg("Error closing STT stream")
		}
		h.adapter = nil
	}

	removed := h.svc.deps.Registry.Remove(h.sess.CallID)
	if removed != nil {
		removed.MarkEnded()
		endedAt := removed.EndedAt()
		turns := removed.Transcript()

		h.svc.deps.Archive.Archive(removed.CallID, turns, endedAt)
		h.svc.deps.Metrics.ArchiveEntries.Set(float64(h.svc.deps.Archive.Len()))
		h.svc.deps.Metrics.RecordCallEnd(endedAt.Sub(removed.CreatedAt).Seconds())

		ended := models.CallEndedEvent{
			EventType: "voice.call.ended",
			CallID:    removed.CallID,
			StreamID:  removed.StreamID,
			Turns:     len(turns),
			StartedAt: removed.CreatedAt.UnixMilli(),
			EndedAt:   endedAt.UnixMilli(),
		}
		if err := h.svc.deps.Publisher.PublishCallEnded(ctx, removed.CallID, ended); err != nil {
			h.logger().Warn().Err(err).Msg("Failed to publish call-ended event")
		}

		h.logger().Info().
			Int("turns", len(turns)).
			Dur("duration", endedAt.Sub(removed.CreatedAt)).
			Msg("Call ended and archived")
	}

	h.sess.Lifecycle().Finish()
}

func (h *Handler) publishTurn(ctx context.Context, role, text string) {
	ev := models.TurnEvent{
		EventType: "voice.transcript.turn",
		CallID:    h.sess.CallID,
		StreamID:  h.sess.StreamID,
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := h.svc.deps.Publisher.PublishTurn(ctx, h.sess.CallID, ev); err != nil {
		h.logger().Warn().Err(err).Str("role", role).Msg("Failed to publish turn event")
	}
}
