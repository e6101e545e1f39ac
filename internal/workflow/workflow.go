// Package workflow turns one voice-message event into exactly one text reply.
//
// Process runs four dependent stages (download, transcribe, summarize,
// deliver) once each, in order, against a transient audio artifact. The
// first failing stage short-circuits the rest, the failure is mapped to a
// catalog message, and the artifact is released on every path.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"voice-summary-service/internal/failure"
	"voice-summary-service/internal/models"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/storage"
)

// Errors reported as the cause of an Unexpected outcome.
var (
	ErrInvalidEvent = errors.New("event is missing message id or reply token")
	ErrNoReplyToken = errors.New("no reply token, error reply skipped")
)

// Default artifact naming for LINE audio messages.
const (
	DefaultArtifactPrefix = "audio"
	DefaultArtifactSuffix = ".m4a"
)

// DefaultPublishTimeout bounds one outcome event publish.
const DefaultPublishTimeout = 5 * time.Second

// OutcomeKind distinguishes the two terminal outcomes. Both mean a reply
// was sent (or at least attempted, see Outcome.ReplyErr).
type OutcomeKind int

const (
	// Delivered - the summary was sent.
	Delivered OutcomeKind = iota + 1
	// DeliveredError - a catalog message was sent in place of a summary.
	DeliveredError
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case DeliveredError:
		return "delivered_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome reports how an invocation ended. Cause and ReplyErr are for
// server-side logging only.
type Outcome struct {
	Kind     OutcomeKind
	Text     string       // summary or catalog message
	Failure  failure.Kind // KindNone when Delivered
	FailedAt State        // state that failed, StateInit when Delivered
	Cause    error
	ReplyErr error // set when the error reply itself could not be sent
	Path     []State
	Duration time.Duration
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithMetrics records Prometheus metrics for every invocation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithPublisher publishes an OutcomeEvent after every invocation.
func WithPublisher(p OutcomePublisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

// WithPublishTimeout bounds how long one outcome event publish may take.
func WithPublishTimeout(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.publishTimeout = d
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) { w.tracer = t }
}

// WithArtifactNaming sets the prefix and suffix of transient artifacts.
func WithArtifactNaming(prefix, suffix string) Option {
	return func(w *Workflow) {
		w.prefix = prefix
		w.suffix = suffix
	}
}

// Workflow is safe for concurrent use: all per-invocation state lives on the
// stack of Process. Adapters must tolerate concurrent calls.
type Workflow struct {
	storage     ResourceManager
	source      AudioSource
	transcriber Transcriber
	summarizer  Summarizer
	replies     ReplyChannel

	publisher OutcomePublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	prefix    string
	suffix    string

	publishTimeout time.Duration
	pending        sync.WaitGroup
}

// New creates a workflow over the given capabilities.
func New(
	rm ResourceManager,
	source AudioSource,
	transcriber Transcriber,
	summarizer Summarizer,
	replies ReplyChannel,
	opts ...Option,
) *Workflow {
	w := &Workflow{
		storage:     rm,
		source:      source,
		transcriber: transcriber,
		summarizer:  summarizer,
		replies:     replies,
		tracer:      otel.Tracer("voice-summary-service/internal/workflow"),
		prefix:      DefaultArtifactPrefix,
		suffix:      DefaultArtifactSuffix,

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process handles one event and always returns a terminal outcome. It never
// panics and never returns before the artifact has been released.
//
// An event without a message id or reply token goes INIT -> ERROR directly:
// no artifact is created, so there is nothing to release, and the generic
// reply is attempted only when a reply token is present.
//
// ctx is passed to every adapter call; Process imposes no deadline of its
// own. Callers that must not be cancelled by the serving layer should pass
// a detached context. The outcome event is published in the background and
// does not delay the return; see Wait.
func (w *Workflow) Process(ctx context.Context, messageId, replyToken string) Outcome {
	return w.invoke(ctx, messageId, replyToken, func(ctx context.Context, m *machine, logger zerolog.Logger) Outcome {
		if messageId == "" || replyToken == "" {
			return w.failEarly(ctx, m, logger, replyToken, ErrInvalidEvent)
		}
		return w.run(ctx, m, logger, messageId, replyToken)
	})
}

// Reject replies with the generic catalog message without running any stage.
// Used when an event cannot be admitted for processing.
func (w *Workflow) Reject(ctx context.Context, messageId, replyToken string, cause error) Outcome {
	if cause == nil {
		cause = errors.New("event rejected")
	}
	return w.invoke(ctx, messageId, replyToken, func(ctx context.Context, m *machine, logger zerolog.Logger) Outcome {
		return w.failEarly(ctx, m, logger, replyToken, cause)
	})
}

type body func(ctx context.Context, m *machine, logger zerolog.Logger) Outcome

func (w *Workflow) invoke(ctx context.Context, messageId, replyToken string, fn body) Outcome {
	start := time.Now()
	logger := logging.WithEvent("workflow", messageId, replyToken)
	m := newMachine(logger)

	ctx, span := w.tracer.Start(ctx, "workflow.process",
		trace.WithAttributes(attribute.String("line.message_id", messageId)))
	defer span.End()

	w.metrics.RecordWorkflowStart()
	logger.Info().Msg("Workflow started")

	out := fn(ctx, m, logger)
	out.Path = m.path
	out.Duration = time.Since(start)

	w.metrics.RecordWorkflowEnd(out.Kind.String(), out.Failure.String(), out.Duration.Seconds())
	span.SetAttributes(
		attribute.String("workflow.outcome", out.Kind.String()),
		attribute.String("workflow.failure", out.Failure.String()),
	)
	if out.Cause != nil {
		span.RecordError(out.Cause)
		span.SetStatus(codes.Error, out.Failure.String())
	}

	logger.Info().
		Str("outcome", out.Kind.String()).
		Str("failureKind", out.Failure.String()).
		Str("path", FormatPath(out.Path)).
		Dur("duration", out.Duration).
		Bool("replyFailed", out.ReplyErr != nil).
		Msg("Workflow finished")

	w.publish(ctx, logger, messageId, out)
	return out
}

// run drives the happy path. The deferred CLEANUP is the only place the
// handle is released.
func (w *Workflow) run(ctx context.Context, m *machine, logger zerolog.Logger, messageId, replyToken string) (out Outcome) {
	m.to(StateAcquireHandle)
	var h storage.Handle
	if err := w.guard(func() error {
		h = w.storage.Create(w.prefix, w.suffix)
		return nil
	}); err != nil {
		return w.failEarly(ctx, m, logger, replyToken, err)
	}
	logger = logger.With().Str("handle", h.ID).Logger()

	defer func() {
		m.to(StateCleanup)
		logger.Debug().Bool("artifactPresent", w.storage.Exists(h)).Msg("Releasing artifact")
		if err := w.guard(func() error { w.storage.Release(h); return nil }); err != nil {
			logger.Error().Err(err).Msg("Release panicked")
		}
		m.to(StateDone)
	}()

	summary, err := w.stages(ctx, m, logger, messageId, replyToken, h)
	if err != nil {
		m.to(StateError)
		return w.replyError(ctx, m, logger, replyToken, err)
	}
	return Outcome{Kind: Delivered, Text: summary, Failure: failure.KindNone}
}

func (w *Workflow) stages(ctx context.Context, m *machine, logger zerolog.Logger, messageId, replyToken string, h storage.Handle) (string, error) {
	m.to(StateDownload)
	if err := w.stage(ctx, logger, StateDownload, func(ctx context.Context) error {
		return w.source.Download(ctx, messageId, h)
	}); err != nil {
		return "", err
	}

	m.to(StateTranscribe)
	var transcript string
	if err := w.stage(ctx, logger, StateTranscribe, func(ctx context.Context) error {
		var err error
		transcript, err = w.transcriber.TranscribeAudioFile(ctx, h)
		return err
	}); err != nil {
		return "", err
	}
	logger.Debug().Int("transcriptLength", len([]rune(transcript))).Msg("Transcript ready")

	m.to(StateSummarize)
	var summary string
	if err := w.stage(ctx, logger, StateSummarize, func(ctx context.Context) error {
		var err error
		summary, err = w.summarizer.SummarizeText(ctx, transcript)
		return err
	}); err != nil {
		return "", err
	}

	m.to(StateDeliver)
	if err := w.stage(ctx, logger, StateDeliver, func(ctx context.Context) error {
		return w.replies.SendReply(ctx, replyToken, summary)
	}); err != nil {
		return "", err
	}
	return summary, nil
}

// stage runs one adapter call with timing, tracing and panic recovery.
func (w *Workflow) stage(ctx context.Context, logger zerolog.Logger, s State, fn func(context.Context) error) error {
	ctx, span := w.tracer.Start(ctx, "workflow."+s.String())
	defer span.End()

	start := time.Now()
	err := w.guard(func() error { return fn(ctx) })
	latency := time.Since(start)

	w.metrics.RecordStage(s.String(), err, latency.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failure.KindOf(err).String())
		return err
	}
	logger.Debug().Str("stage", s.String()).Dur("latency", latency).Msg("Stage completed")
	return nil
}

// guard converts a panic in fn into a *failure.PanicError.
func (w *Workflow) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &failure.PanicError{Value: r}
		}
	}()
	return fn()
}

// failEarly handles failures that happen before a handle exists.
func (w *Workflow) failEarly(ctx context.Context, m *machine, logger zerolog.Logger, replyToken string, cause error) Outcome {
	m.to(StateError)
	out := w.replyError(ctx, m, logger, replyToken, cause)
	m.to(StateCleanup)
	m.to(StateDone)
	return out
}

// replyError logs the cause in full and sends exactly one catalog message.
// A failing send is logged and suppressed.
func (w *Workflow) replyError(ctx context.Context, m *machine, logger zerolog.Logger, replyToken string, cause error) Outcome {
	kind := failure.KindOf(cause)
	logger.Error().
		Err(cause).
		Str("failureKind", kind.String()).
		Str("failedAt", m.failedAt.String()).
		Msg("Workflow failed")

	m.to(StateDeliverErrorReply)
	out := Outcome{
		Kind:     DeliveredError,
		Text:     failure.Message(kind),
		Failure:  kind,
		FailedAt: m.failedAt,
		Cause:    cause,
	}

	if replyToken == "" {
		out.ReplyErr = ErrNoReplyToken
		w.metrics.RecordErrorReplyFailure()
		logger.Warn().Msg("No reply token, cannot send error reply")
		return out
	}

	err := w.stage(ctx, logger, StateDeliverErrorReply, func(ctx context.Context) error {
		return w.replies.SendReply(ctx, replyToken, out.Text)
	})
	if err != nil {
		out.ReplyErr = err
		w.metrics.RecordErrorReplyFailure()
		logger.Error().Err(err).Msg("Failed to send error reply")
	}
	return out
}

// Wait blocks until every background outcome publish has finished or ctx
// expires. Call it once no more invocations will start.
func (w *Workflow) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish hands the outcome event to the publisher without blocking the
// caller. The publish runs on a detached context bounded by publishTimeout.
func (w *Workflow) publish(ctx context.Context, logger zerolog.Logger, messageId string, out Outcome) {
	if w.publisher == nil {
		return
	}
	ev := models.OutcomeEvent{
		EventType:   models.OutcomeEventType,
		MessageID:   messageId,
		Outcome:     out.Kind.String(),
		ReplyFailed: out.ReplyErr != nil,
		Path:        FormatPath(out.Path),
		ReplyLength: len([]rune(out.Text)),
		DurationMs:  out.Duration.Milliseconds(),
		Timestamp:   time.Now().UnixMilli(),
	}
	if out.Failure != failure.KindNone {
		ev.FailureKind = out.Failure.String()
		ev.FailedAt = out.FailedAt.String()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.publishTimeout)
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		defer cancel()
		if err := w.publisher.PublishOutcome(pubCtx, messageId, ev); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish outcome event")
		}
	}()
}
