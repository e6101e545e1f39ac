// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_summary"

// Metrics holds all Prometheus metrics for the service.
// All Record* methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Webhook metrics
	WebhookRequests *prometheus.CounterVec
	EventsReceived  *prometheus.CounterVec

	// Workflow metrics
	WorkflowsActive    prometheus.Gauge
	WorkflowOutcomes   *prometheus.CounterVec
	WorkflowFailures   *prometheus.CounterVec
	WorkflowDuration   prometheus.Histogram
	StageLatency       *prometheus.HistogramVec
	ErrorReplyFailures prometheus.Counter

	// Soft outcomes
	TranscriptsUnrecognized prometheus.Counter
	SummariesUnavailable    *prometheus.CounterVec

	// Storage metrics
	HandlesCreated  prometheus.Counter
	HandlesReleased *prometheus.CounterVec
	ReleaseErrors   prometheus.Counter

	// Admission metrics
	DispatchInFlight prometheus.Gauge
	DispatchRejected prometheus.Counter
	DispatchWait     prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// gRPC health metrics
	GRPCRequests *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Total number of webhook requests by result",
		}, []string{"result"}),
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of webhook events by type",
		}, []string{"type"}),

		WorkflowsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflows_active",
			Help:      "Number of workflow invocations currently running",
		}),
		WorkflowOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_outcomes_total",
			Help:      "Total number of workflow outcomes",
		}, []string{"outcome"}),
		WorkflowFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_failures_total",
			Help:      "Total number of workflow failures by kind",
		}, []string{"kind"}),
		WorkflowDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Duration of a workflow invocation in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage", "result"}),
		ErrorReplyFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_reply_failures_total",
			Help:      "Total number of error replies that could not be sent",
		}),

		TranscriptsUnrecognized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_unrecognized_total",
			Help:      "Total number of transcripts replaced by the unrecognized-speech sentinel",
		}),
		SummariesUnavailable: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_unavailable_total",
			Help:      "Total number of summaries replaced by a sentinel, by reason",
		}, []string{"reason"}),

		HandlesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_created_total",
			Help:      "Total number of temporary audio handles created",
		}),
		HandlesReleased: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handles_released_total",
			Help:      "Total number of temporary audio handles released",
		}, []string{"result"}),
		ReleaseErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "release_errors_total",
			Help:      "Total number of artifact removals that failed",
		}),

		DispatchInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_in_flight",
			Help:      "Number of admitted events currently processing",
		}),
		DispatchRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_rejected_total",
			Help:      "Total number of events that could not be admitted in time",
		}),
		DispatchWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_wait_seconds",
			Help:      "Time spent waiting for an admission slot",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 20},
		}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		GRPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests by method and code",
		}, []string{"method", "code"}),
	}
}

// RecordWebhook records a webhook request result (ok, bad_signature, error).
func (m *Metrics) RecordWebhook(result string) {
	if m == nil {
		return
	}
	m.WebhookRequests.WithLabelValues(result).Inc()
}

// RecordEvent records one webhook event by type.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(eventType).Inc()
}

// RecordWorkflowStart records a workflow invocation starting.
func (m *Metrics) RecordWorkflowStart() {
	if m == nil {
		return
	}
	m.WorkflowsActive.Inc()
}

// RecordWorkflowEnd records a workflow invocation reaching DONE.
func (m *Metrics) RecordWorkflowEnd(outcome, failureKind string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.WorkflowsActive.Dec()
	m.WorkflowDuration.Observe(durationSeconds)
	m.WorkflowOutcomes.WithLabelValues(outcome).Inc()
	if failureKind != "" && failureKind != "none" {
		m.WorkflowFailures.WithLabelValues(failureKind).Inc()
	}
}

// RecordStage records the latency of one pipeline stage.
func (m *Metrics) RecordStage(stage string, err error, latencySeconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StageLatency.WithLabelValues(stage, result).Observe(latencySeconds)
}

// RecordErrorReplyFailure records an error reply that could not be sent.
func (m *Metrics) RecordErrorReplyFailure() {
	if m == nil {
		return
	}
	m.ErrorReplyFailures.Inc()
}

// RecordUnrecognizedTranscript records a transcript replaced by its sentinel.
func (m *Metrics) RecordUnrecognizedTranscript() {
	if m == nil {
		return
	}
	m.TranscriptsUnrecognized.Inc()
}

// RecordSummaryUnavailable records a summary replaced by a sentinel.
func (m *Metrics) RecordSummaryUnavailable(reason string) {
	if m == nil {
		return
	}
	m.SummariesUnavailable.WithLabelValues(reason).Inc()
}

// RecordHandleCreated records a temporary handle being created.
func (m *Metrics) RecordHandleCreated() {
	if m == nil {
		return
	}
	m.HandlesCreated.Inc()
}

// RecordHandleReleased records a release; removed is false for a no-op.
func (m *Metrics) RecordHandleReleased(removed bool) {
	if m == nil {
		return
	}
	if removed {
		m.HandlesReleased.WithLabelValues("removed").Inc()
	} else {
		m.HandlesReleased.WithLabelValues("absent").Inc()
	}
}

// RecordReleaseError records an artifact removal that failed.
func (m *Metrics) RecordReleaseError() {
	if m == nil {
		return
	}
	m.ReleaseErrors.Inc()
}

// RecordAdmitted records an event admitted after waiting waitSeconds.
func (m *Metrics) RecordAdmitted(waitSeconds float64) {
	if m == nil {
		return
	}
	m.DispatchWait.Observe(waitSeconds)
	m.DispatchInFlight.Inc()
}

// RecordDispatchDone records an admitted event finishing.
func (m *Metrics) RecordDispatchDone() {
	if m == nil {
		return
	}
	m.DispatchInFlight.Dec()
}

// RecordRejected records an event that could not be admitted.
func (m *Metrics) RecordRejected() {
	if m == nil {
		return
	}
	m.DispatchRejected.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	if m == nil {
		return
	}
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCRequest records a gRPC request.
func (m *Metrics) RecordGRPCRequest(method, code string) {
	if m == nil {
		return
	}
	m.GRPCRequests.WithLabelValues(method, code).Inc()
}
