// Package models defines the data structures for workflow events.
package models

// OutcomeEventType is the eventType of every OutcomeEvent.
const OutcomeEventType = "voice.summary.outcome"

// OutcomeEvent describes how one webhook event was handled. It is published
// after cleanup and carries no user content beyond lengths.
type OutcomeEvent struct {
	EventType   string `json:"eventType"`
	MessageID   string `json:"messageId"`
	Outcome     string `json:"outcome"`               // delivered | delivered_error
	FailureKind string `json:"failureKind,omitempty"` // see failure.Kind
	FailedAt    string `json:"failedAt,omitempty"`    // state that failed
	ReplyFailed bool   `json:"replyFailed"`
	Path        string `json:"path"`
	ReplyLength int    `json:"replyLength"`
	DurationMs  int64  `json:"durationMs"`
	Timestamp   int64  `json:"timestamp"`
}
