package chunker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/session"
)

type recordedEvent struct {
	kind    string
	payload []byte
}

type fakeSender struct {
	mu     sync.Mutex
	events []recordedEvent

	mediaErr error
	clearErr error

	block chan struct{} // when set, SendMedia blocks until closed
}

func (f *fakeSender) record(kind string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: kind, payload: payload})
}

func (f *fakeSender) SendClear(streamID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.record("clear", nil)
	return nil
}

func (f *fakeSender) SendMedia(streamID string, payload []byte) error {
	if f.block != nil {
		<-f.block
	}
	if f.mediaErr != nil {
		return f.mediaErr
	}
	f.record("media", payload)
	return nil
}

func (f *fakeSender) SendMark(streamID, name string) error {
	f.record("mark", []byte(name))
	return nil
}

func (f *fakeSender) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.kind
	}
	return out
}

// interval 0 disables pacing so tests run instantly.
func newTestChunker(sender Sender, frameBytes int) *Chunker {
	return New(sender, frameBytes, 0, metrics.DefaultMetrics)
}

func TestNew_FrameGeometry(t *testing.T) {
	sender := &fakeSender{}

	c := New(sender, 0, -1, metrics.DefaultMetrics)
	if c.frame != DefaultFrameBytes {
		t.Errorf("expected default frame size, got %d", c.frame)
	}
	if c.interval != DefaultFrameInterval {
		t.Errorf("expected default interval, got %v", c.interval)
	}

	// Zero is a valid interval: pacing off, frames back to back.
	c = New(sender, 160, 0, metrics.DefaultMetrics)
	if c.interval != 0 {
		t.Errorf("expected pacing disabled, got interval %v", c.interval)
	}
}

func TestChunker_Send_FrameCounts(t *testing.T) {
	tests := []struct {
		name       string
		audioBytes int
		frameBytes int
		wantFrames int
		wantLast   int
	}{
		{"exact multiple", 480, 160, 3, 160},
		{"remainder frame", 500, 160, 4, 20},
		{"single short frame", 10, 160, 1, 10},
		{"one frame exactly", 160, 160, 1, 160},
		{"empty audio", 0, 160, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			c := newTestChunker(sender, tt.frameBytes)
			s := session.New("CA1", "MZ1", nil)

			audio := make([]byte, tt.audioBytes)
			if err := c.Send(context.Background(), s, audio); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			media := 0
			var lastLen int
			for _, e := range sender.events {
				if e.kind == "media" {
					media++
					lastLen = len(e.payload)
				}
			}
			if media != tt.wantFrames {
				t.Errorf("expected %d media frames, got %d", tt.wantFrames, media)
			}
			if tt.wantFrames > 0 && lastLen != tt.wantLast {
				t.Errorf("expected last frame of %d bytes, got %d", tt.wantLast, lastLen)
			}
			if got := c.FrameCount(tt.audioBytes); got != tt.wantFrames {
				t.Errorf("FrameCount(%d) = %d, want %d", tt.audioBytes, got, tt.wantFrames)
			}
		})
	}
}

func TestChunker_Send_ClearThenMediaThenMark(t *testing.T) {
	sender := &fakeSender{}
	c := newTestChunker(sender, 160)
	s := session.New("CA1", "MZ1", nil)

	if err := c.Send(context.Background(), s, make([]byte, 320)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kinds := sender.kinds()
	want := []string{"clear", "media", "media", "mark"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected event order: %v", kinds)
	}

	mark := sender.events[len(sender.events)-1]
	if !strings.HasPrefix(string(mark.payload), "utt-") {
		t.Errorf("expected utterance mark name, got %q", mark.payload)
	}
}

func TestChunker_Send_DropsWhileSpeaking(t *testing.T) {
	release := make(chan struct{})
	sender := &fakeSender{block: release}
	c := newTestChunker(sender, 160)
	s := session.New("CA1", "MZ1", nil)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), s, make([]byte, 160)) }()

	// Wait until the first utterance holds the speaking flag.
	deadline := time.Now().Add(time.Second)
	for !s.Speaking() {
		if time.Now().After(deadline) {
			t.Fatal("first utterance never started speaking")
		}
		time.Sleep(time.Millisecond)
	}

	second := &fakeSender{}
	c2 := newTestChunker(second, 160)
	if err := c2.Send(context.Background(), s, make([]byte, 160)); err != nil {
		t.Fatalf("expected overlapping send to no-op, got %v", err)
	}
	if len(second.kinds()) != 0 {
		t.Errorf("expected no events from dropped utterance, got %v", second.kinds())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first utterance failed: %v", err)
	}
	if s.Speaking() {
		t.Error("expected speaking flag released after playback")
	}
}

func TestChunker_Send_ReleasesSpeakingOnError(t *testing.T) {
	sender := &fakeSender{mediaErr: errors.New("socket closed")}
	c := newTestChunker(sender, 160)
	s := session.New("CA1", "MZ1", nil)

	if err := c.Send(context.Background(), s, make([]byte, 320)); err == nil {
		t.Fatal("expected send error")
	}
	if s.Speaking() {
		t.Error("expected speaking flag released after failed send")
	}
	if !s.TrySpeak() {
		t.Error("expected a later utterance to acquire the flag")
	}
}

func TestChunker_Send_ClearFailureAborts(t *testing.T) {
	sender := &fakeSender{clearErr: errors.New("socket closed")}
	c := newTestChunker(sender, 160)
	s := session.New("CA1", "MZ1", nil)

	if err := c.Send(context.Background(), s, make([]byte, 160)); err == nil {
		t.Fatal("expected clear error")
	}
	if len(sender.kinds()) != 0 {
		t.Errorf("expected no media after failed clear, got %v", sender.kinds())
	}
}

func TestChunker_Send_CanceledContext(t *testing.T) {
	sender := &fakeSender{}
	c := newTestChunker(sender, 160)
	s := session.New("CA1", "MZ1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Send(ctx, s, make([]byte, 480)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.Speaking() {
		t.Error("expected speaking flag released after cancellation")
	}
}
