// Package dispatch bounds how many workflow invocations run at once.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"voice-summary-service/internal/models"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/workflow"
)

// Causes passed to Processor.Reject.
var (
	ErrQueueTimeout = errors.New("no processing slot became free in time")
	ErrShuttingDown = errors.New("dispatcher is shutting down")
)

// Processor runs or rejects one event. *workflow.Workflow implements it.
type Processor interface {
	Process(ctx context.Context, messageId, replyToken string) workflow.Outcome
	Reject(ctx context.Context, messageId, replyToken string, cause error) workflow.Outcome
}

// Config holds admission settings.
type Config struct {
	MaxConcurrent int64
	QueueWait     time.Duration
}

// DefaultConfig returns the default admission settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 4,
		QueueWait:     20 * time.Second,
	}
}

// Dispatcher runs submitted events in the background, at most MaxConcurrent
// at a time. An event that waits longer than QueueWait for a slot is
// rejected, which still sends the user one reply.
type Dispatcher struct {
	proc    Processor
	sem     *semaphore.Weighted
	wait    time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher. m may be nil.
func New(proc Processor, cfg Config, m *metrics.Metrics) *Dispatcher {
	def := DefaultConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.QueueWait <= 0 {
		cfg.QueueWait = def.QueueWait
	}
	return &Dispatcher{
		proc:    proc,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		wait:    cfg.QueueWait,
		metrics: m,
		logger:  logging.WithComponent("dispatch"),
	}
}

// Submit schedules ev and returns immediately. The event runs on a context
// detached from ctx, so a finished HTTP request does not cancel it.
func (d *Dispatcher) Submit(ctx context.Context, ev models.IncomingEvent) {
	base := context.WithoutCancel(ctx)

	d.mu.Lock()
	closed := d.closed
	d.wg.Add(1)
	d.mu.Unlock()

	if closed {
		go func() {
			defer d.wg.Done()
			d.reject(base, ev, ErrShuttingDown)
		}()
		return
	}

	go func() {
		defer d.wg.Done()
		d.run(base, ev)
	}()
}

func (d *Dispatcher) run(ctx context.Context, ev models.IncomingEvent) {
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, d.wait)
	err := d.sem.Acquire(waitCtx, 1)
	cancel()
	if err != nil {
		d.reject(ctx, ev, ErrQueueTimeout)
		return
	}
	defer d.sem.Release(1)

	d.metrics.RecordAdmitted(time.Since(start).Seconds())
	defer d.metrics.RecordDispatchDone()

	d.proc.Process(ctx, ev.MessageID, ev.ReplyToken)
}

func (d *Dispatcher) reject(ctx context.Context, ev models.IncomingEvent, cause error) {
	d.metrics.RecordRejected()
	d.logger.Warn().
		Err(cause).
		Str("messageId", ev.MessageID).
		Str("webhookEventId", ev.WebhookEventID).
		Msg("Event not admitted")
	d.proc.Reject(ctx, ev.MessageID, ev.ReplyToken, cause)
}

// Shutdown stops admitting new events and waits for submitted ones to finish
// or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("Dispatcher drained")
		return nil
	case <-ctx.Done():
		d.logger.Warn().Msg("Dispatcher shutdown timed out with events in flight")
		return ctx.Err()
	}
}
