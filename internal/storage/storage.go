// Package storage manages the transient audio artifacts created while an
// event is processed. Each artifact is identified by a Handle that is unique
// per invocation and is released exactly once by the workflow.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
)

// Handle identifies one transient artifact.
type Handle struct {
	ID   string // <prefix>_<uuid><suffix>
	Path string // absolute or dir-relative location on disk
}

// IsZero reports whether h was never assigned.
func (h Handle) IsZero() bool {
	return h.ID == "" && h.Path == ""
}

// Manager creates and releases handles under a single directory.
// Safe for concurrent use; it holds no per-handle state.
type Manager struct {
	dir     string
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// indirection for tests
	remove func(string) error
	stat   func(string) (os.FileInfo, error)
}

// NewManager creates a manager rooted at dir, creating the directory if needed.
// An empty dir means os.TempDir().
func NewManager(dir string, m *metrics.Metrics) (*Manager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &Manager{
		dir:     dir,
		metrics: m,
		logger:  logging.WithComponent("storage"),
		remove:  os.Remove,
		stat:    os.Stat,
	}, nil
}

// Dir returns the directory handles are created in.
func (m *Manager) Dir() string {
	return m.dir
}

// Create returns a new handle named <prefix>_<uuid><suffix>. Nothing is
// written to disk; the audio source creates the file when it downloads.
func (m *Manager) Create(prefix, suffix string) Handle {
	if prefix == "" {
		prefix = "temp"
	}
	id := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), suffix)
	h := Handle{ID: id, Path: filepath.Join(m.dir, id)}

	m.metrics.RecordHandleCreated()
	m.logger.Debug().Str("handle", h.ID).Msg("Temporary handle created")
	return h
}

// Exists reports whether the artifact behind h is present.
func (m *Manager) Exists(h Handle) bool {
	if h.Path == "" {
		return false
	}
	_, err := m.stat(h.Path)
	return err == nil
}

// Release removes the artifact behind h. It is idempotent and never fails:
// a missing artifact is logged and ignored, an I/O error is logged and
// swallowed.
func (m *Manager) Release(h Handle) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.RecordReleaseError()
			m.logger.Error().Interface("panic", r).Str("handle", h.ID).Msg("Release panicked")
		}
	}()

	if !m.Exists(h) {
		m.metrics.RecordHandleReleased(false)
		m.logger.Warn().Str("handle", h.ID).Msg("Release of non-existent artifact, nothing to do")
		return
	}

	if err := m.remove(h.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.metrics.RecordHandleReleased(false)
			m.logger.Warn().Str("handle", h.ID).Msg("Artifact vanished before removal")
			return
		}
		m.metrics.RecordReleaseError()
		m.logger.Error().Err(err).Str("handle", h.ID).Str("path", h.Path).Msg("Failed to remove artifact")
		return
	}

	m.metrics.RecordHandleReleased(true)
	m.logger.Debug().Str("handle", h.ID).Msg("Artifact removed")
}
