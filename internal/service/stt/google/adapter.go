// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/googleapis/gax-go/v2"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"

	"ai-voice-agent-service/internal/service/stt"
)

// speechClient is the surface of *speech.Client the adapter uses. The client
// owns a gRPC connection; one is dialed per call, so it goes down with the
// call in Close.
type speechClient interface {
	StreamingRecognize(ctx context.Context, opts ...gax.CallOption) (speechpb.Speech_StreamingRecognizeClient, error)
	Close() error
}

// Config holds recognition settings for the streaming session. The sample
// rate and encoding are a fixed contract with the telephony gateway.
type Config struct {
	LanguageCode string
	SampleRateHz int32
}

// DefaultConfig matches the gateway media contract: 8kHz mu-law, US English.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "en-US",
		SampleRateHz: 8000,
	}
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	client speechClient
	cfg    Config

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cb     stt.Callback
	closed bool
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start begins a streaming recognition session, sends the initial config and
// launches the receive loop.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.stream = stream
	a.cb = cb
	a.mu.Unlock()

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_MULAW,
					SampleRateHertz: a.cfg.SampleRateHz,
					LanguageCode:    a.cfg.LanguageCode,
				},
				InterimResults: false,
			},
		},
	})
	if err != nil {
		return err
	}

	go a.listen(stream, cb)
	return nil
}

// SendAudio forwards audio bytes to Google Speech-to-Text in arrival order.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream := a.stream
	closed := a.closed
	a.mu.Unlock()

	if closed || stream == nil {
		return nil
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close ends the streaming session and releases the stream and the client
// connection. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	if a.stream != nil {
		err = a.stream.CloseSend()
	}
	if a.client != nil {
		if cerr := a.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// listen receives recognition responses and invokes callbacks until the
// stream errors or closes.
func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient, cb stt.Callback) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			a.mu.Lock()
			closed := a.closed
			a.mu.Unlock()
			if !closed {
				cb.OnError(err)
			}
			return
		}

		for _, r := range resp.Results {
			if !r.IsFinal || len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			cb.OnTranscript(alt.Transcript, float64(alt.Confidence))
		}
	}
}
