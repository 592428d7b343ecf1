package mock

import (
	"context"
	"testing"
	"time"
)

type captureCallback struct {
	transcripts chan string
}

func newCaptureCallback() *captureCallback {
	return &captureCallback{transcripts: make(chan string, 16)}
}

func (c *captureCallback) OnTranscript(text string, confidence float64) {
	c.transcripts <- text
}

func (c *captureCallback) OnError(err error) {}

func (c *captureCallback) wait(t *testing.T) string {
	t.Helper()
	select {
	case text := <-c.transcripts:
		return text
	case <-time.After(time.Second):
		t.Fatal("no transcript emitted")
		return ""
	}
}

func TestAdapter_EmitsAfterFrameBudget(t *testing.T) {
	script := []SimulatedUtterance{{Text: "hello there", Confidence: 0.9}}
	a := NewScripted(script, 3)
	cb := newCaptureCallback()

	if err := a.Start(context.Background(), cb); err != nil {
		t.Fatalf("start: %v", err)
	}

	frame := make([]byte, 160)
	a.SendAudio(context.Background(), frame)
	a.SendAudio(context.Background(), frame)
	select {
	case text := <-cb.transcripts:
		t.Fatalf("transcript %q emitted before frame budget consumed", text)
	case <-time.After(50 * time.Millisecond):
	}

	a.SendAudio(context.Background(), frame)
	if got := cb.wait(t); got != "hello there" {
		t.Errorf("unexpected transcript: %q", got)
	}
}

func TestAdapter_CyclesScript(t *testing.T) {
	script := []SimulatedUtterance{
		{Text: "first", Confidence: 0.9},
		{Text: "second", Confidence: 0.9},
	}
	a := NewScripted(script, 1)
	cb := newCaptureCallback()
	a.Start(context.Background(), cb)

	frame := make([]byte, 160)
	want := []string{"first", "second", "first"}
	for _, expected := range want {
		a.SendAudio(context.Background(), frame)
		if got := cb.wait(t); got != expected {
			t.Errorf("expected %q, got %q", expected, got)
		}
	}
}

func TestAdapter_SilentAfterClose(t *testing.T) {
	a := NewScripted(DefaultUtterances, 1)
	cb := newCaptureCallback()
	a.Start(context.Background(), cb)

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	a.SendAudio(context.Background(), make([]byte, 160))
	select {
	case text := <-cb.transcripts:
		t.Errorf("transcript %q emitted after close", text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAdapter_NoCallback(t *testing.T) {
	a := New()

	// Audio before Start must not panic.
	if err := a.SendAudio(context.Background(), make([]byte, 160)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
