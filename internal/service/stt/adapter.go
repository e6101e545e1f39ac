// Package stt turns a downloaded audio artifact into transcript text.
//
// Backends (Google Cloud Speech, OpenAI Whisper, mock) implement Recognizer;
// Service wraps any backend with file validation, failure classification and
// the unrecognized-speech sentinel.
package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voice-summary-service/internal/failure"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/storage"
)

// UnrecognizedSpeech replaces a transcript that came back empty.
const UnrecognizedSpeech = "無法識別語音內容。"

// ErrEmptyAudio is returned when the artifact exists but holds no bytes.
var ErrEmptyAudio = errors.New("audio file is empty")

// Recognizer is implemented by speech-to-text backends.
type Recognizer interface {
	// Name identifies the backend in logs and error ops ("google", "whisper", "mock").
	Name() string

	// Recognize transcribes the audio file at path.
	Recognize(ctx context.Context, path string) (string, error)
}

// Service implements workflow.Transcriber on top of a Recognizer.
type Service struct {
	backend Recognizer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a transcription service. m may be nil.
func New(backend Recognizer, m *metrics.Metrics) *Service {
	return &Service{
		backend: backend,
		metrics: m,
		logger:  logging.WithComponent("stt." + backend.Name()),
	}
}

// TranscribeAudioFile transcribes the artifact behind h. Backend errors are
// returned as transcription failures; a blank transcript is replaced by
// UnrecognizedSpeech.
func (s *Service) TranscribeAudioFile(ctx context.Context, h storage.Handle) (string, error) {
	op := "stt." + s.backend.Name()

	info, err := os.Stat(h.Path)
	if err != nil {
		return "", failure.Transcription(op, fmt.Errorf("stat audio: %w", err))
	}
	if info.Size() == 0 {
		return "", failure.Transcription(op, ErrEmptyAudio)
	}

	start := time.Now()
	s.logger.Debug().Str("handle", h.ID).Int64("bytes", info.Size()).Msg("Starting transcription")

	text, err := s.backend.Recognize(ctx, h.Path)
	if err != nil {
		return "", failure.Transcription(op, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.RecordUnrecognizedTranscript()
		s.logger.Warn().Str("handle", h.ID).Msg("Transcription resulted in empty text")
		return UnrecognizedSpeech, nil
	}

	s.logger.Info().
		Str("handle", h.ID).
		Int("textLength", len([]rune(text))).
		Dur("latency", time.Since(start)).
		Msg("Transcription completed")
	return text, nil
}
