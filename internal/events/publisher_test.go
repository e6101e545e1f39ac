package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"

	"voice-summary-service/internal/models"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/schema"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() models.OutcomeEvent {
	return models.OutcomeEvent{
		EventType:   models.OutcomeEventType,
		MessageID:   "m-123",
		Outcome:     "delivered",
		Path:        "INIT>ACQUIRE_HANDLE>DOWNLOAD>TRANSCRIBE>SUMMARIZE>DELIVER>CLEANUP>DONE",
		ReplyLength: 12,
		DurationMs:  850,
		Timestamp:   1700000000000,
	}
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, nil)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writer != nil {
				t.Error("expected nil writer when disabled")
			}
		})
	}
}

func TestNew_Enabled(t *testing.T) {
	p := New(&Config{
		Enabled:   true,
		Brokers:   []string{"localhost:9092"},
		Topic:     "voice.summary.outcomes",
		Principal: "voice-summary-service",
	}, nil)
	defer p.Close()

	if !p.enabled {
		t.Error("expected publisher to be enabled")
	}
	w, ok := p.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", p.writer)
	}
	if w.Topic != "voice.summary.outcomes" {
		t.Errorf("expected topic 'voice.summary.outcomes', got %s", w.Topic)
	}
}

func TestPublishOutcome_Disabled(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	p := New(&Config{Enabled: false, Topic: "test.outcomes"}, m)

	if err := p.PublishOutcome(context.Background(), "m-123", testEvent()); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("test.outcomes", models.OutcomeEventType)); got != 1 {
		t.Errorf("expected 1 publish recorded, got %v", got)
	}
}

func TestPublishOutcome_RejectsInvalidEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, validator: schema.New(), topic: "t", enabled: true}

	err := p.PublishOutcome(context.Background(), "k", map[string]string{"text": "x"})
	if !errors.Is(err, schema.ErrUnsupportedEvent) {
		t.Errorf("expected ErrUnsupportedEvent, got %v", err)
	}

	bad := testEvent()
	bad.Outcome = "sent"
	if err := p.PublishOutcome(context.Background(), "k", bad); err == nil {
		t.Error("expected validation error")
	}
	if len(w.msgs) != 0 {
		t.Errorf("expected nothing written, got %d messages", len(w.msgs))
	}
}

func TestPublishOutcome_WritesMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, validator: schema.New(), topic: "t", principal: "svc", enabled: true}

	if err := p.PublishOutcome(context.Background(), "m-123", testEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "m-123" {
		t.Errorf("expected key 'm-123', got %s", msg.Key)
	}
	var decoded models.OutcomeEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Outcome != "delivered" || decoded.ReplyLength != 12 {
		t.Errorf("unexpected payload %+v", decoded)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["eventType"] != models.OutcomeEventType {
		t.Errorf("unexpected eventType header %q", headers["eventType"])
	}
	if headers["principal"] != "svc" {
		t.Errorf("unexpected principal header %q", headers["principal"])
	}
}

func TestPublishOutcome_WriteError(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	writeErr := errors.New("broker unreachable")
	p := &Publisher{writer: &fakeWriter{err: writeErr}, validator: schema.New(), topic: "t", enabled: true, metrics: m}

	err := p.PublishOutcome(context.Background(), "m-123", testEvent())
	if !errors.Is(err, writeErr) {
		t.Errorf("expected write error, got %v", err)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("t", models.OutcomeEventType)); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestPublisher_Close(t *testing.T) {
	if err := New(&Config{Enabled: false}, nil).Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}

	w := &fakeWriter{}
	p := &Publisher{writer: w}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !w.closed {
		t.Error("expected writer to be closed")
	}
}
