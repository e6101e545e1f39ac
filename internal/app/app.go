package app

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"voice-summary-service/internal/config"
	"voice-summary-service/internal/observability/logging"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	ready atomic.Bool
}

// New constructs a new Application and initializes the global logger.
func New(cfg *config.Config) *Application {
	format := cfg.Observability.LogFormat
	if cfg.IsDevelopment() && format == "" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: format,
	})

	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Observability.LogLevel).
		Str("environment", cfg.Service.Env).
		Str("sttProvider", cfg.STT.Provider).
		Str("summarizerProvider", cfg.Summarizer.Provider).
		Msg("Voice summary service application created")
	return a
}

// Start records the startup time and marks the application ready.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice summary service starting")
	return nil
}

// Ready reports whether the service accepts webhook traffic.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Shutdown marks the application not ready so probes fail while draining.
func (a *Application) Shutdown() {
	a.ready.Store(false)
	a.Logger.Info().
		Dur("uptime", time.Since(a.StartupTime)).
		Msg("Voice summary service shutting down")
}
