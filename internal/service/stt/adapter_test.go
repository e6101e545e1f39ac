package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"voice-summary-service/internal/failure"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/storage"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func writeAudio(t *testing.T, content string) storage.Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_test.m4a")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return storage.Handle{ID: "audio_test.m4a", Path: path}
}

func TestTranscribeAudioFile(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		expected     string
		unrecognized float64
	}{
		{"plain text", "Hello world", "Hello world", 0},
		{"trimmed", "  Hello world \n", "Hello world", 0},
		{"empty", "", UnrecognizedSpeech, 1},
		{"whitespace only", "   \t\n ", UnrecognizedSpeech, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics(prometheus.NewRegistry())
			svc := New(&fakeRecognizer{text: tt.text}, m)

			got, err := svc.TranscribeAudioFile(context.Background(), writeAudio(t, "fake"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
			if v := testutil.ToFloat64(m.TranscriptsUnrecognized); v != tt.unrecognized {
				t.Errorf("expected %v unrecognized, got %v", tt.unrecognized, v)
			}
		})
	}
}

func TestTranscribeAudioFile_BackendError(t *testing.T) {
	backendErr := errors.New("model load failed")
	svc := New(&fakeRecognizer{err: backendErr}, nil)

	_, err := svc.TranscribeAudioFile(context.Background(), writeAudio(t, "fake"))

	if failure.KindOf(err) != failure.KindTranscription {
		t.Errorf("expected transcription failure, got %v", failure.KindOf(err))
	}
	if !errors.Is(err, backendErr) {
		t.Errorf("expected backend error in chain, got %v", err)
	}
}

func TestTranscribeAudioFile_MissingOrEmptyFile(t *testing.T) {
	backend := &fakeRecognizer{text: "never"}
	svc := New(backend, nil)

	missing := storage.Handle{ID: "gone", Path: filepath.Join(t.TempDir(), "gone.m4a")}
	if _, err := svc.TranscribeAudioFile(context.Background(), missing); failure.KindOf(err) != failure.KindTranscription {
		t.Errorf("expected transcription failure for missing file, got %v", err)
	}

	_, err := svc.TranscribeAudioFile(context.Background(), writeAudio(t, ""))
	if !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}

	if backend.calls != 0 {
		t.Errorf("expected backend not to be called, got %d calls", backend.calls)
	}
}
