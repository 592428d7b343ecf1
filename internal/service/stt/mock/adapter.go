// Package mock provides a mock STT adapter for running the pipeline without
// cloud credentials. It simulates recognition by emitting a scripted
// transcript after a fixed amount of audio, cycling through its script for
// as long as the call lasts.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-voice-agent-service/internal/service/stt"
)

// SimulatedUtterance is one scripted recognition result.
type SimulatedUtterance struct {
	Text       string
	Confidence float64
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{Text: "hello can you hear me", Confidence: 0.95},
	{Text: "I want to know my account balance", Confidence: 0.92},
	{Text: "yes that is correct", Confidence: 0.97},
	{Text: "what were my charges last month", Confidence: 0.90},
	{Text: "thank you goodbye", Confidence: 0.98},
}

// DefaultFramesPerUtterance is how many 20ms media frames make up one
// simulated utterance (50 frames ≈ one second of speech).
const DefaultFramesPerUtterance = 50

// Adapter implements stt.Adapter with scripted responses. After every
// framesPerUtterance audio frames it emits the next scripted transcript,
// wrapping around when the script runs out.
type Adapter struct {
	utterances []SimulatedUtterance
	frames     int
	delay      time.Duration

	mu            sync.Mutex
	cb            stt.Callback
	audioReceived int
	next          int
	closed        bool
}

// New creates a mock adapter with the default script.
func New() *Adapter {
	return NewScripted(DefaultUtterances, DefaultFramesPerUtterance)
}

// NewScripted creates a mock adapter with a custom script and frame budget.
// delay between audio arrival and the transcript callback is skipped when
// framesPerUtterance is small, which keeps tests fast.
func NewScripted(utterances []SimulatedUtterance, framesPerUtterance int) *Adapter {
	if framesPerUtterance <= 0 {
		framesPerUtterance = DefaultFramesPerUtterance
	}
	return &Adapter{
		utterances: utterances,
		frames:     framesPerUtterance,
		delay:      20 * time.Millisecond,
	}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// SendAudio counts frames and emits the next scripted transcript when the
// frame budget for an utterance is consumed.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil || len(a.utterances) == 0 {
		return nil
	}

	a.audioReceived++
	if a.audioReceived%a.frames != 0 {
		return nil
	}

	utt := a.utterances[a.next%len(a.utterances)]
	a.next++

	// Simulate recognition latency off the caller's goroutine, the way a
	// real streaming provider delivers results.
	go func() {
		time.Sleep(a.delay)
		a.mu.Lock()
		cb := a.cb
		closed := a.closed
		a.mu.Unlock()
		if !closed && cb != nil {
			cb.OnTranscript(utt.Text, utt.Confidence)
		}
	}()

	return nil
}

// Close ends the mock session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
