// Package chunker provides the timed audio egress path: it splits a
// synthesized reply into fixed-duration frames and paces them out at
// real-time speed so the receiving telephony leg is never overrun.
package chunker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-voice-agent-service/internal/observability/logging"
	"ai-voice-agent-service/internal/observability/metrics"
	"ai-voice-agent-service/internal/session"
)

// Frame geometry for the gateway media contract: 8kHz mu-law is one byte per
// sample, so 20ms of audio is 160 bytes.
const (
	DefaultFrameBytes    = 160
	DefaultFrameInterval = 20 * time.Millisecond
)

// Sender delivers control and media events to the telephony gateway for one
// call's media stream. Implementations must be safe for use from the
// chunker's goroutine.
type Sender interface {
	SendClear(streamID string) error
	SendMedia(streamID string, payload []byte) error
	SendMark(streamID, name string) error
}

// Chunker paces synthesized audio out over a Sender.
type Chunker struct {
	sender   Sender
	frame    int
	interval time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New creates a chunker with the given frame geometry. frameBytes <= 0 and a
// negative interval fall back to the 8kHz mu-law defaults; an interval of
// zero disables pacing and sends frames back to back.
func New(sender Sender, frameBytes int, interval time.Duration, m *metrics.Metrics) *Chunker {
	if frameBytes <= 0 {
		frameBytes = DefaultFrameBytes
	}
	if interval < 0 {
		interval = DefaultFrameInterval
	}
	return &Chunker{
		sender:   sender,
		frame:    frameBytes,
		interval: interval,
		metrics:  m,
		log:      logging.WithComponent("chunker"),
	}
}

// Send plays one utterance to the caller: a clear signal to flush stale
// buffered audio, ceil(N/F) media frames paced at the frame interval, then a
// mark signal naming the finished utterance.
//
// If a previous utterance is still playing the new one is dropped, logged
// and counted; overlapping replies must never interleave on the wire. The
// session's speaking flag is released on every exit path, including a send
// failure partway through.
func (c *Chunker) Send(ctx context.Context, s *session.Session, audio []byte) error {
	if !s.TrySpeak() {
		c.log.Warn().
			Str("callId", s.CallID).
			Int("bytes", len(audio)).
			Msg("Reply dropped, previous utterance still playing")
		c.metrics.PlaybackSkipped.Inc()
		return nil
	}
	defer s.EndSpeak()

	if err := c.sender.SendClear(s.StreamID); err != nil {
		c.metrics.UtteranceAborted.Inc()
		return fmt.Errorf("clear signal: %w", err)
	}

	sent := 0
	for off := 0; off < len(audio); off += c.frame {
		if err := ctx.Err(); err != nil {
			c.metrics.UtteranceAborted.Inc()
			return err
		}

		end := off + c.frame
		if end > len(audio) {
			end = len(audio)
		}
		if err := c.sender.SendMedia(s.StreamID, audio[off:end]); err != nil {
			c.metrics.RecordFramesSent(sent, off)
			c.metrics.UtteranceAborted.Inc()
			return fmt.Errorf("media frame %d: %w", sent, err)
		}
		sent++

		// Pace each frame by its real-time duration. Sending back-to-back
		// overruns the gateway's audio buffer.
		if end < len(audio) && c.interval > 0 {
			select {
			case <-ctx.Done():
				c.metrics.RecordFramesSent(sent, end)
				c.metrics.UtteranceAborted.Inc()
				return ctx.Err()
			case <-time.After(c.interval):
			}
		}
	}
	c.metrics.RecordFramesSent(sent, len(audio))

	markName := "utt-" + uuid.NewString()
	if err := c.sender.SendMark(s.StreamID, markName); err != nil {
		return fmt.Errorf("mark signal: %w", err)
	}

	c.log.Debug().
		Str("callId", s.CallID).
		Int("frames", sent).
		Int("bytes", len(audio)).
		Str("mark", markName).
		Msg("Utterance sent")
	return nil
}

// FrameCount returns how many frames Send emits for n audio bytes.
func (c *Chunker) FrameCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + c.frame - 1) / c.frame
}
