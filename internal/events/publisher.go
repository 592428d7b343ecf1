// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-voice-agent-service/internal/observability/metrics"
)

// Publisher publishes conversation events to separate Kafka topics: one for
// per-turn transcript events and one for call-ended events.
type Publisher struct {
	writerTurn  *kafka.Writer
	writerEnded *kafka.Writer
	principal   string
	topicTurn   string
	topicEnded  string
	enabled     bool
	metrics     *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers    []string
	TopicTurn  string
	TopicEnded string
	Principal  string
	Enabled    bool
}

// New creates a new Kafka event publisher. With Kafka disabled or no brokers
// configured it degrades to log-only mode, which keeps local development and
// tests broker-free.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:  cfg.Principal,
			topicTurn:  cfg.TopicTurn,
			topicEnded: cfg.TopicEnded,
			enabled:    false,
			metrics:    m,
		}
	}

	// Longer dial timeouts cover DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerTurn := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTurn,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerEnded := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicEnded,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTurn", cfg.TopicTurn).
		Str("topicEnded", cfg.TopicEnded).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTurn:  writerTurn,
		writerEnded: writerEnded,
		principal:   cfg.Principal,
		topicTurn:   cfg.TopicTurn,
		topicEnded:  cfg.TopicEnded,
		enabled:     true,
		metrics:     m,
	}
}

// PublishTurn publishes a transcript turn event, keyed by call ID so one
// call's turns stay ordered within a partition.
func (p *Publisher) PublishTurn(ctx context.Context, callID string, event any) error {
	return p.publish(ctx, p.writerTurn, p.topicTurn, "turn", callID, event)
}

// PublishCallEnded publishes a call-ended event.
func (p *Publisher) PublishCallEnded(ctx context.Context, callID string, event any) error {
	return p.publish(ctx, p.writerEnded, p.topicEnded, "ended", callID, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTurn != nil {
		if e := p.writerTurn.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing turn writer")
			err = e
		}
	}
	if p.writerEnded != nil {
		if e := p.writerEnded.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing ended writer")
			err = e
		}
	}
	return err
}
