package workflow

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// State is a step of the per-invocation state machine.
type State int

const (
	StateInit State = iota
	StateAcquireHandle
	StateDownload
	StateTranscribe
	StateSummarize
	StateDeliver
	StateError
	StateDeliverErrorReply
	StateCleanup
	StateDone
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAcquireHandle:
		return "ACQUIRE_HANDLE"
	case StateDownload:
		return "DOWNLOAD"
	case StateTranscribe:
		return "TRANSCRIBE"
	case StateSummarize:
		return "SUMMARIZE"
	case StateDeliver:
		return "DELIVER"
	case StateError:
		return "ERROR"
	case StateDeliverErrorReply:
		return "DELIVER_ERROR_REPLY"
	case StateCleanup:
		return "CLEANUP"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// IsTerminal returns true for DONE.
func (s State) IsTerminal() bool {
	return s == StateDone
}

// transitions lists the allowed successors of each state.
//
//	INIT → ACQUIRE_HANDLE → DOWNLOAD → TRANSCRIBE → SUMMARIZE → DELIVER → CLEANUP → DONE
//	  │          │             │           │            │          │
//	  └──────────┴─────────────┴───────────┴────────────┴──────────┴──→ ERROR
//
//	ERROR → DELIVER_ERROR_REPLY → CLEANUP → DONE
var transitions = map[State][]State{
	StateInit:              {StateAcquireHandle, StateError},
	StateAcquireHandle:     {StateDownload, StateError},
	StateDownload:          {StateTranscribe, StateError},
	StateTranscribe:        {StateSummarize, StateError},
	StateSummarize:         {StateDeliver, StateError},
	StateDeliver:           {StateCleanup, StateError},
	StateError:             {StateDeliverErrorReply},
	StateDeliverErrorReply: {StateCleanup},
	StateCleanup:           {StateDone},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks one invocation. It is owned by a single goroutine.
type machine struct {
	state    State
	failedAt State
	path     []State
	logger   zerolog.Logger
}

func newMachine(logger zerolog.Logger) *machine {
	return &machine{
		state:  StateInit,
		path:   []State{StateInit},
		logger: logger,
	}
}

// to moves to next. An illegal move is logged but still applied: the machine
// must never prevent CLEANUP from running.
func (m *machine) to(next State) {
	if !CanTransition(m.state, next) {
		m.logger.Error().
			Str("from", m.state.String()).
			Str("to", next.String()).
			Msg("Illegal workflow transition")
	}
	if next == StateError {
		m.failedAt = m.state
	}
	m.logger.Debug().
		Str("from", m.state.String()).
		Str("to", next.String()).
		Msg("Workflow transition")
	m.state = next
	m.path = append(m.path, next)
}

func (m *machine) State() State {
	return m.state
}

// FormatPath renders a state path as "INIT>ACQUIRE_HANDLE>...".
func FormatPath(path []State) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.String()
	}
	return strings.Join(parts, ">")
}
