// Package mock provides a mock TTS synthesizer for running the pipeline
// without cloud credentials.
package mock

import (
	"context"
)

// BytesPerChar sizes the fake audio: 8kHz mu-law is 160 bytes per 20ms, and
// 64 bytes per character approximates a natural speaking rate.
const BytesPerChar = 64

// Synthesizer returns silence-filled mu-law audio proportional to the text
// length, so downstream pacing behaves like it would with real speech.
type Synthesizer struct{}

// New creates a mock synthesizer.
func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize returns fake mu-law audio for the text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	n := len(text) * BytesPerChar
	if n == 0 {
		return nil, nil
	}
	audio := make([]byte, n)
	for i := range audio {
		audio[i] = 0xFF // mu-law silence
	}
	return audio, nil
}
