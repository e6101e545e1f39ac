// Package summarize condenses a transcript into a short reply text.
//
// Backends (Gemini, mock) implement Generator; Service adds the empty-input
// short-circuit, the "temporarily unavailable" sentinel and failure
// classification.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voice-summary-service/internal/failure"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
)

// Sentinel replies.
const (
	EmptyInput  = "無法對空內容進行摘要。"
	Unavailable = "摘要服務暫時無法提供，請稍後再試。"
)

// Errors a Generator returns when the backend answered but produced no
// usable text. Both are delivered as Unavailable, not as failures.
var (
	ErrNoCandidates   = errors.New("backend returned no candidates")
	ErrContentBlocked = errors.New("backend blocked the content")
)

// Generator is implemented by summarization backends.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt returns the summarization prompt for text.
func BuildPrompt(text string) string {
	return fmt.Sprintf(`請將以下文本內容進行簡潔的摘要。重點提取關鍵資訊，並以條列式或一段話的形式呈現，控制在100字以內。

文本內容：
%s

摘要：
`, text)
}

// Service implements workflow.Summarizer on top of a Generator.
type Service struct {
	backend Generator
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a summarization service. m may be nil.
func New(backend Generator, m *metrics.Metrics) *Service {
	return &Service{
		backend: backend,
		metrics: m,
		logger:  logging.WithComponent("summarize." + backend.Name()),
	}
}

// SummarizeText summarizes text. Blank input returns EmptyInput without
// calling the backend.
func (s *Service) SummarizeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		s.logger.Warn().Msg("Attempted to summarize empty text")
		return EmptyInput, nil
	}

	start := time.Now()
	s.logger.Debug().Int("textLength", len([]rune(text))).Msg("Starting summarization")

	summary, err := s.backend.Generate(ctx, BuildPrompt(text))
	switch {
	case errors.Is(err, ErrContentBlocked):
		return s.unavailable("blocked", err), nil
	case errors.Is(err, ErrNoCandidates):
		return s.unavailable("no_candidates", err), nil
	case err != nil:
		return "", failure.Summarization("summarize."+s.backend.Name(), err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return s.unavailable("empty", nil), nil
	}

	s.logger.Info().
		Int("summaryLength", len([]rune(summary))).
		Dur("latency", time.Since(start)).
		Msg("Summarization completed")
	return summary, nil
}

func (s *Service) unavailable(reason string, err error) string {
	s.metrics.RecordSummaryUnavailable(reason)
	s.logger.Warn().Err(err).Str("reason", reason).Msg("Summary unavailable")
	return Unavailable
}
