// Package mock provides a mock speech recognizer for running without cloud
// credentials. It cycles through canned transcripts and can simulate latency,
// silence and backend failures.
package mock

import (
	"context"
	"sync"
	"time"
)

// DefaultTranscripts are returned in order, one per call.
var DefaultTranscripts = []string{
	"明天早上九點要開會，記得帶上季度的銷售報告，會後還要跟客戶確認交貨時間。",
	"我晚一點會到，路上有點塞車，大概七點半左右，你們先開始吃沒關係。",
	"提醒一下這週五是繳費截止日，水電費跟網路費都還沒有繳。",
}

// Adapter implements stt.Recognizer with canned responses.
type Adapter struct {
	mu          sync.Mutex
	transcripts []string
	next        int
	delay       time.Duration
	err         error
}

// Option configures the mock.
type Option func(*Adapter)

// WithTranscripts replaces the canned transcripts. An empty string simulates
// silence.
func WithTranscripts(t ...string) Option {
	return func(a *Adapter) { a.transcripts = t }
}

// WithDelay simulates backend latency.
func WithDelay(d time.Duration) Option {
	return func(a *Adapter) { a.delay = d }
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return func(a *Adapter) { a.err = err }
}

// New creates a mock recognizer.
func New(opts ...Option) *Adapter {
	a := &Adapter{transcripts: DefaultTranscripts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns "mock".
func (a *Adapter) Name() string {
	return "mock"
}

// Recognize returns the next canned transcript. The file is not read.
func (a *Adapter) Recognize(ctx context.Context, _ string) (string, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if a.err != nil {
		return "", a.err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.transcripts) == 0 {
		return "", nil
	}
	text := a.transcripts[a.next%len(a.transcripts)]
	a.next++
	return text, nil
}
