// Package schema checks outbound events before they are published.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"voice-summary-service/internal/models"
)

// ErrUnsupportedEvent is returned for event types the validator does not know.
var ErrUnsupportedEvent = errors.New("unsupported event type")

var validOutcomes = map[string]bool{
	"delivered":       true,
	"delivered_error": true,
}

// Validator validates outbound events.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate returns an error listing every violated field.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case models.OutcomeEvent:
		return validateOutcome(&e)
	case *models.OutcomeEvent:
		if e == nil {
			return fmt.Errorf("%w: nil *OutcomeEvent", ErrUnsupportedEvent)
		}
		return validateOutcome(e)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEvent, event)
	}
}

func validateOutcome(e *models.OutcomeEvent) error {
	var problems []string
	if e.EventType != models.OutcomeEventType {
		problems = append(problems, fmt.Sprintf("eventType must be %q", models.OutcomeEventType))
	}
	if e.MessageID == "" && e.FailureKind == "" {
		// Only invalid-input outcomes may lack a message id, and they always carry a failure.
		problems = append(problems, "messageId is required")
	}
	if !validOutcomes[e.Outcome] {
		problems = append(problems, fmt.Sprintf("outcome %q is not valid", e.Outcome))
	}
	if e.Outcome == "delivered_error" && e.FailureKind == "" {
		problems = append(problems, "failureKind is required for delivered_error")
	}
	if e.Outcome == "delivered" && e.FailureKind != "" {
		problems = append(problems, "failureKind must be empty for delivered")
	}
	if e.Path == "" {
		problems = append(problems, "path is required")
	}
	if e.Timestamp <= 0 {
		problems = append(problems, "timestamp is required")
	}
	if e.DurationMs < 0 {
		problems = append(problems, "durationMs must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid outcome event: %s", strings.Join(problems, "; "))
	}
	return nil
}
