// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_agent"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Call metrics
	CallsTotal   prometheus.Counter
	CallsActive  prometheus.Gauge
	CallDuration prometheus.Histogram

	// Turn metrics
	TurnsUser      prometheus.Counter
	TurnsAssistant prometheus.Counter

	// Model metrics
	ModelLatency   prometheus.Histogram
	ModelFallbacks prometheus.Counter

	// Synthesis / egress metrics
	TTSLatency       prometheus.Histogram
	TTSErrors        prometheus.Counter
	FramesSent       prometheus.Counter
	AudioBytesSent   prometheus.Counter
	PlaybackSkipped  prometheus.Counter
	UtteranceAborted prometheus.Counter

	// Ingress metrics
	AudioFramesReceived prometheus.Counter
	AudioBytesReceived  prometheus.Counter
	MalformedEvents     prometheus.Counter

	// STT metrics
	STTErrors      *prometheus.CounterVec
	STTTranscripts prometheus.Counter

	// Archive metrics
	ArchiveEntries prometheus.Gauge
	ArchiveEvicted prometheus.Counter

	// Watchdog metrics
	IdleSessionsStopped prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of call sessions started",
		}),
		CallsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of currently live call sessions",
		}),
		CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of call sessions in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		TurnsUser: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_user_total",
			Help:      "Total number of user turns appended",
		}),
		TurnsAssistant: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_assistant_total",
			Help:      "Total number of assistant turns appended",
		}),

		ModelLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_latency_seconds",
			Help:      "Language model reply latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		ModelFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "Total number of canned fallback replies after model failures",
		}),

		TTSLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_latency_seconds",
			Help:      "Text-to-speech synthesis latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5},
		}),
		TTSErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_errors_total",
			Help:      "Total number of text-to-speech failures",
		}),
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total outbound audio frames sent to the gateway",
		}),
		AudioBytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total outbound audio bytes sent to the gateway",
		}),
		PlaybackSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_skipped_total",
			Help:      "Replies dropped because a previous reply was still playing",
		}),
		UtteranceAborted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterance_aborted_total",
			Help:      "Outbound utterances aborted by a transport send failure",
		}),

		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total inbound media frames received",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total inbound audio bytes received",
		}),
		MalformedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_events_total",
			Help:      "Inbound gateway events ignored as malformed or unknown",
		}),

		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of speech-to-text errors",
		}, []string{"severity"}),
		STTTranscripts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_transcripts_total",
			Help:      "Total recognized transcripts received",
		}),

		ArchiveEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_entries",
			Help:      "Number of archived call transcripts held in memory",
		}),
		ArchiveEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_evicted_total",
			Help:      "Archived transcripts evicted by the TTL janitor",
		}),

		IdleSessionsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idle_sessions_stopped_total",
			Help:      "Sessions stopped by the idle watchdog",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordCallStart records a new call session starting.
func (m *Metrics) RecordCallStart() {
	m.CallsTotal.Inc()
	m.CallsActive.Inc()
}

// RecordCallEnd records a call session ending.
func (m *Metrics) RecordCallEnd(durationSeconds float64) {
	m.CallsActive.Dec()
	m.CallDuration.Observe(durationSeconds)
}

// RecordTurn records a turn appended to a live call.
func (m *Metrics) RecordTurn(role string) {
	switch role {
	case "user":
		m.TurnsUser.Inc()
	case "assistant":
		m.TurnsAssistant.Inc()
	}
}

// RecordSTTError records a speech-to-text error of the given severity.
func (m *Metrics) RecordSTTError(severity string) {
	m.STTErrors.WithLabelValues(severity).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordFramesSent records outbound audio leaving the chunker.
func (m *Metrics) RecordFramesSent(frames int, bytes int) {
	m.FramesSent.Add(float64(frames))
	m.AudioBytesSent.Add(float64(bytes))
}

// RecordAudioReceived records inbound media arriving from the gateway.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioFramesReceived.Inc()
	m.AudioBytesReceived.Add(float64(bytes))
}
