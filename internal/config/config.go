// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the full service configuration tree.
type Configuration struct {
	Service       ServiceConfig
	Pipeline      PipelineConfig
	STT           STTConfig
	TTS           TTSConfig
	LLM           LLMConfig
	Kafka         KafkaConfig
	Telephony     TelephonyConfig
	Archive       ArchiveConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsPort string
}

// PipelineConfig holds the voice pipeline settings shared by all calls.
type PipelineConfig struct {
	Greeting      string
	SystemPrompt  string
	StylePrompt   string
	HistoryMax    int
	FrameBytes    int
	FrameInterval time.Duration
	IdleTimeout   time.Duration
	Debug         bool
}

// STTConfig selects and tunes the speech-to-text provider.
type STTConfig struct {
	Provider     string // mock | google
	LanguageCode string
	SampleRateHz int
}

// TTSConfig selects and tunes the text-to-speech provider.
type TTSConfig struct {
	Provider     string // mock | google
	LanguageCode string
	VoiceName    string
}

// LLMConfig selects and tunes the language-model provider.
type LLMConfig struct {
	Provider string // gemini
	APIKey   string
	Model    string
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	TopicTurn  string
	TopicEnded string
}

// TelephonyConfig holds outbound call gateway credentials.
type TelephonyConfig struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	MediaURL   string
}

// ArchiveConfig bounds transcript retention.
type ArchiveConfig struct {
	MaxTurns        int
	TTL             time.Duration
	JanitorInterval time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load builds the configuration from environment variables with defaults
// suitable for local development (mock providers, Kafka disabled).
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:   envOrDefault("SERVICE_PRINCIPAL", "svc-voice-agent"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Pipeline: PipelineConfig{
			Greeting: envOrDefault("PIPELINE_GREETING",
				"Hello! Thanks for calling. How can I help you today?"),
			SystemPrompt: envOrDefault("PIPELINE_SYSTEM_PROMPT",
				"You are a friendly phone support agent. Keep replies short and conversational; they will be spoken aloud."),
			StylePrompt: envOrDefault("PIPELINE_STYLE_PROMPT",
				"Never use markdown, lists or symbols. Expand numbers and abbreviations for speech."),
			HistoryMax:    envIntOrDefault("PIPELINE_HISTORY_MAX", 22),
			FrameBytes:    envIntOrDefault("PIPELINE_FRAME_BYTES", 160),
			FrameInterval: envDurationOrDefault("PIPELINE_FRAME_INTERVAL", 20*time.Millisecond),
			IdleTimeout:   envDurationOrDefault("PIPELINE_IDLE_TIMEOUT", 2*time.Minute),
			Debug:         envBoolOrDefault("PIPELINE_DEBUG", false),
		},
		STT: STTConfig{
			Provider:     envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz: envIntOrDefault("STT_SAMPLE_RATE_HZ", 8000),
		},
		TTS: TTSConfig{
			Provider:     envOrDefault("TTS_PROVIDER", "mock"),
			LanguageCode: envOrDefault("TTS_LANGUAGE_CODE", "en-US"),
			VoiceName:    envOrDefault("TTS_VOICE_NAME", "en-US-Standard-C"),
		},
		LLM: LLMConfig{
			Provider: envOrDefault("LLM_PROVIDER", "gemini"),
			APIKey:   os.Getenv("GEMINI_API_KEY"),
			Model:    envOrDefault("LLM_MODEL", "gemini-2.0-flash"),
		},
		Kafka: KafkaConfig{
			Enabled:    envBoolOrDefault("KAFKA_ENABLED", false),
			Brokers:    envListOrDefault("KAFKA_BROKERS", nil),
			TopicTurn:  envOrDefault("KAFKA_TOPIC_TURN", "voice.transcript.turn"),
			TopicEnded: envOrDefault("KAFKA_TOPIC_ENDED", "voice.call.ended"),
		},
		Telephony: TelephonyConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			BaseURL:    envOrDefault("TWILIO_API_BASE_URL", ""),
			MediaURL:   envOrDefault("MEDIA_STREAM_URL", "wss://localhost:8080/media"),
		},
		Archive: ArchiveConfig{
			MaxTurns:        envIntOrDefault("ARCHIVE_MAX_TURNS", 200),
			TTL:             envDurationOrDefault("ARCHIVE_TTL", time.Hour),
			JanitorInterval: envDurationOrDefault("ARCHIVE_JANITOR_INTERVAL", 5*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envListOrDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
