package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ai-voice-agent-service/internal/events"
	"ai-voice-agent-service/internal/models"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/service/stt"
	"ai-voice-agent-service/internal/service/voice"
	"ai-voice-agent-service/internal/session"
)

type noopAdapter struct{}

func (noopAdapter) Start(context.Context, stt.Callback) error { return nil }
func (noopAdapter) SendAudio(context.Context, []byte) error   { return nil }
func (noopAdapter) Close() error                              { return nil }

type staticLLM struct{}

func (staticLLM) Chat(context.Context, []models.Turn) (string, error) { return "reply", nil }

type staticTTS struct{}

func (staticTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	return make([]byte, 320), nil
}

type wsFixture struct {
	srv     *httptest.Server
	svc     *voice.Service
	archive *session.Archive
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	registry := session.NewRegistry()
	archive := session.NewArchive(200, time.Hour)
	svc := voice.NewService(voice.Config{
		Greeting:     "Hello!",
		SystemPrompt: "You are a phone agent.",
		StylePrompt:  "Speak plainly.",
		HistoryMax:   22,
		FrameBytes:   160,
	}, voice.Deps{
		Registry:   registry,
		Archive:    archive,
		Publisher:  events.New(&events.Config{Enabled: false}),
		Metrics:    metrics.DefaultMetrics,
		LLM:        staticLLM{},
		TTS:        staticTTS{},
		NewAdapter: func(context.Context) (stt.Adapter, error) { return noopAdapter{}, nil },
	})

	srv := httptest.NewServer(NewHandler(svc, metrics.DefaultMetrics))
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, svc: svc, archive: archive}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendText(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(data)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntilMark consumes outbound events until the utterance mark, returning
// the sequence of event names seen.
func readUntilMark(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var seen []string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (seen %v)", err, seen)
		}
		var ev gatewayEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode outbound event: %v", err)
		}
		seen = append(seen, ev.Event)
		if ev.Event == EventMark {
			return seen
		}
	}
}

func TestHandler_GreetingPlayedOnStart(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	sendText(t, conn, `{"event":"start","start":{"callId":"CA1","streamId":"MZ1"}}`)

	seen := readUntilMark(t, conn)
	if seen[0] != EventClear {
		t.Errorf("expected clear first, got %v", seen)
	}
	media := 0
	for _, name := range seen {
		if name == EventMedia {
			media++
		}
	}
	// 320 bytes of greeting audio in 160-byte frames.
	if media != 2 {
		t.Errorf("expected 2 media frames, got %d (%v)", media, seen)
	}
}

func TestHandler_StopArchivesCall(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	sendText(t, conn, `{"event":"start","start":{"callId":"CA1","streamId":"MZ1"}}`)
	readUntilMark(t, conn)
	sendText(t, conn, `{"event":"stop"}`)

	waitArchived(t, f.archive, "CA1")
}

func TestHandler_AbruptCloseArchivesCall(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	sendText(t, conn, `{"event":"start","start":{"callId":"CA2","streamId":"MZ2"}}`)
	readUntilMark(t, conn)
	conn.Close()

	waitArchived(t, f.archive, "CA2")
}

func TestHandler_MalformedFramesIgnored(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	sendText(t, conn, `{garbage`)
	sendText(t, conn, `{"event":"dtmf"}`)
	sendText(t, conn, `{"event":"start","start":{"callId":"CA3","streamId":"MZ3"}}`)

	// The call still starts normally after bad frames.
	seen := readUntilMark(t, conn)
	if len(seen) == 0 {
		t.Fatal("expected greeting playback after malformed frames")
	}

	sendText(t, conn, `{"event":"stop"}`)
	waitArchived(t, f.archive, "CA3")
}

func waitArchived(t *testing.T, archive *session.Archive, callID string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := archive.Lookup(callID); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("call %s never archived", callID)
}
