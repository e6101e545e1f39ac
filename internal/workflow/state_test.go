package workflow

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		allowed  bool
	}{
		{StateInit, StateAcquireHandle, true},
		{StateAcquireHandle, StateDownload, true},
		{StateDownload, StateTranscribe, true},
		{StateTranscribe, StateSummarize, true},
		{StateSummarize, StateDeliver, true},
		{StateDeliver, StateCleanup, true},
		{StateCleanup, StateDone, true},

		{StateDownload, StateError, true},
		{StateTranscribe, StateError, true},
		{StateSummarize, StateError, true},
		{StateDeliver, StateError, true},
		{StateError, StateDeliverErrorReply, true},
		{StateDeliverErrorReply, StateCleanup, true},

		{StateDownload, StateSummarize, false},
		{StateError, StateCleanup, false},
		{StateDeliverErrorReply, StateDeliver, false},
		{StateDone, StateInit, false},
		{StateCleanup, StateError, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestMachine_IllegalTransitionStillApplies(t *testing.T) {
	m := newMachine(zerolog.Nop())

	m.to(StateCleanup)

	if m.State() != StateCleanup {
		t.Errorf("expected CLEANUP, got %s", m.State())
	}
	if len(m.path) != 2 {
		t.Errorf("expected path of 2, got %d", len(m.path))
	}
}

func TestMachine_RecordsFailedState(t *testing.T) {
	m := newMachine(zerolog.Nop())
	m.to(StateAcquireHandle)
	m.to(StateDownload)
	m.to(StateTranscribe)
	m.to(StateError)

	if m.failedAt != StateTranscribe {
		t.Errorf("expected failedAt TRANSCRIBE, got %s", m.failedAt)
	}
}

func TestState_String(t *testing.T) {
	if StateDeliverErrorReply.String() != "DELIVER_ERROR_REPLY" {
		t.Errorf("unexpected string %s", StateDeliverErrorReply)
	}
	if State(99).String() != "UNKNOWN(99)" {
		t.Errorf("unexpected string %s", State(99))
	}
	if !StateDone.IsTerminal() || StateCleanup.IsTerminal() {
		t.Error("only DONE is terminal")
	}
}

func TestFormatPath(t *testing.T) {
	got := FormatPath([]State{StateInit, StateError, StateDone})
	if got != "INIT>ERROR>DONE" {
		t.Errorf("unexpected path %s", got)
	}
}
