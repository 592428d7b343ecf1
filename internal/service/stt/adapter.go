// Package stt defines the interface for Speech-to-Text adapters.
package stt

import "context"

// Callback receives transcript results from the STT provider. Callbacks may
// fire on provider-owned goroutines; receivers serialize them themselves.
type Callback interface {
	// OnTranscript is called when a recognized utterance is available.
	OnTranscript(text string, confidence float64)

	// OnError is called when an error occurs during transcription.
	OnError(err error)
}

// Adapter defines the interface for STT providers (Google, mock, ...).
// One adapter serves one call session; audio must be forwarded in arrival
// order and Close must release the underlying stream promptly.
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
