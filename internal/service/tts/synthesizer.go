// Package tts defines the interface for Text-to-Speech providers.
package tts

import "context"

// Synthesizer converts reply text into encoded audio bytes in the gateway's
// media format (8kHz mu-law). Synchronous request/response.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
