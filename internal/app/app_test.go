package app

import (
	"testing"

	"voice-summary-service/internal/config"
)

func TestApplication_Lifecycle(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.LogLevel = "error"
	cfg.Service.Env = "test"

	a := New(cfg)
	if a.Ready() {
		t.Error("expected not ready before Start")
	}

	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Ready() {
		t.Error("expected ready after Start")
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time to be set")
	}

	a.Shutdown()
	if a.Ready() {
		t.Error("expected not ready after Shutdown")
	}
}
