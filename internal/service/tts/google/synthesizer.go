// Package google provides a Google Cloud Text-to-Speech synthesizer.
package google

import (
	"context"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"

	"ai-voice-agent-service/internal/service/tts"
)

// Config holds synthesis settings. Output is fixed to the gateway media
// contract: 8kHz mu-law.
type Config struct {
	LanguageCode string
	VoiceName    string
	SampleRateHz int32
}

// DefaultConfig returns the default voice settings.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "en-US",
		VoiceName:    "en-US-Standard-C",
		SampleRateHz: 8000,
	}
}

// Synthesizer implements tts.Synthesizer using Google Cloud Text-to-Speech.
type Synthesizer struct {
	client *texttospeech.Client
	cfg    Config
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a new Google TTS synthesizer.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Synthesizer, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{client: c, cfg: cfg}, nil
}

// Synthesize requests mu-law audio for the text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: s.cfg.LanguageCode,
			Name:         s.cfg.VoiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_MULAW,
			SampleRateHertz: s.cfg.SampleRateHz,
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.AudioContent, nil
}

// Close releases the underlying client.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}
