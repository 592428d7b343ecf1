package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/voice"
)

const (
	writeTimeout   = 5 * time.Second
	maxMessageSize = 64 * 1024
)

// Handler upgrades gateway connections and bridges them onto the voice
// pipeline: one WebSocket connection is one call.
type Handler struct {
	svc      *voice.Service
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler creates the media channel handler.
func NewHandler(svc *voice.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The gateway is not a browser; origin checks do not apply.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logging.WithComponent("media-ws"),
	}
}

// ServeHTTP upgrades the connection and runs the call until the gateway
// stops it or the socket closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	sender := newConnSender(conn)
	call := h.svc.NewHandler(sender)

	go call.Run(r.Context())

	h.readLoop(conn, call)

	// An abrupt socket close is a stop signal like any other. Then give the
	// archive hand-off a moment to complete before teardown.
	call.Stop()
	select {
	case <-call.Done():
	case <-time.After(2 * time.Second):
	}
}

// readLoop decodes inbound frames until the socket closes. Malformed frames
// are counted and skipped; they never tear down the call.
func (h *Handler) readLoop(conn *websocket.Conn, call *voice.Handler) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn().Err(err).Msg("Media connection closed abruptly")
			}
			return
		}

		ev, err := DecodeInbound(data)
		if err != nil {
			h.metrics.MalformedEvents.Inc()
			h.log.Warn().Err(err).Int("bytes", len(data)).Msg("Ignoring bad gateway event")
			continue
		}

		switch ev.Kind {
		case EventStart:
			h.log.Info().Str("callId", ev.CallID).Str("streamId", ev.StreamID).Msg("Call started")
			call.Start(ev.CallID, ev.StreamID)
		case EventMedia:
			call.Media(ev.Audio)
		case EventStop:
			call.Stop()
			return
		}
	}
}

// connSender implements chunker.Sender over one gateway WebSocket. gorilla
// connections allow a single concurrent writer, so all writes share a mutex.
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConnSender(conn *websocket.Conn) *connSender {
	return &connSender{conn: conn}
}

func (s *connSender) send(payload []byte, err error) error {
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if deadlineErr := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); deadlineErr != nil {
		return deadlineErr
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// SendClear implements chunker.Sender.
func (s *connSender) SendClear(streamID string) error {
	payload, err := EncodeClear(streamID)
	return s.send(payload, err)
}

// SendMedia implements chunker.Sender.
func (s *connSender) SendMedia(streamID string, audio []byte) error {
	payload, err := EncodeMedia(streamID, audio)
	return s.send(payload, err)
}

// SendMark implements chunker.Sender.
func (s *connSender) SendMark(streamID, name string) error {
	payload, err := EncodeMark(streamID, name)
	return s.send(payload, err)
}
