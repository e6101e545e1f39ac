// Package events publishes workflow outcome events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-summary-service/internal/models"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/schema"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes outcome events to a single Kafka topic. When Kafka is
// disabled, events are validated and logged only.
type Publisher struct {
	writer    messageWriter
	validator *schema.Validator
	principal string
	topic     string
	enabled   bool
	metrics   *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	Topic        string
	Principal    string
	Enabled      bool
	WriteTimeout time.Duration
}

// New creates a Kafka outcome publisher. m may be nil.
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			validator: schema.New(),
			enabled:   false,
			metrics:   m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			validator: schema.New(),
			principal: cfg.Principal,
			topic:     cfg.Topic,
			enabled:   false,
			metrics:   m,
		}
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: writeTimeout,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
		Transport: &kafka.Transport{
			Dial: dialer.DialFunc,
		},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writer:    writer,
		validator: schema.New(),
		principal: cfg.Principal,
		topic:     cfg.Topic,
		enabled:   true,
		metrics:   m,
	}
}

// PublishOutcome validates and publishes an outcome event keyed by message id.
func (p *Publisher) PublishOutcome(ctx context.Context, key string, event any) error {
	if err := p.validator.Validate(event); err != nil {
		log.Error().Err(err).Str("topic", p.topic).Str("key", key).Msg("Rejected outcome event")
		return err
	}
	return p.publish(ctx, models.OutcomeEventType, key, event)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal event")
		return fmt.Errorf("marshal event: %w", err)
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", p.topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || p.writer == nil {
		p.metrics.RecordKafkaPublish(p.topic, eventType, nil, time.Since(start).Seconds())
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

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(p.topic, eventType, err, time.Since(start).Seconds())
		return fmt.Errorf("write to kafka: %w", err)
	}

	p.metrics.RecordKafkaPublish(p.topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Kafka writer")
		return err
	}
	return nil
}
