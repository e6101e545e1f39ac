// Package failure defines the fixed taxonomy of pipeline failures and the
// user-facing catalog messages they map to.
//
// Adapters wrap their errors with one of the constructors below; the
// workflow is the only place that classifies them. Classification looks at
// the error type (errors.As), never at message text, and the catalog text
// is disjoint from anything an adapter can produce.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies which part of the pipeline failed.
type Kind int

const (
	// KindNone means no failure occurred.
	KindNone Kind = iota
	// KindDownload - audio bytes could not be fetched (auth, transport, not found).
	KindDownload
	// KindTranscription - the speech-to-text backend failed (load, transport, decode).
	KindTranscription
	// KindSummarization - the summarizer backend failed (auth, transport).
	KindSummarization
	// KindDelivery - the reply channel failed to send the primary reply.
	KindDelivery
	// KindUnexpected - any other condition, including panics and invalid input.
	KindUnexpected
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDownload:
		return "download_failure"
	case KindTranscription:
		return "transcription_failure"
	case KindSummarization:
		return "summarization_failure"
	case KindDelivery:
		return "delivery_failure"
	case KindUnexpected:
		return "unexpected_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Kinds lists every failure kind, in pipeline order.
func Kinds() []Kind {
	return []Kind{KindDownload, KindTranscription, KindSummarization, KindDelivery, KindUnexpected}
}

// GenericMessage is the single user-facing text every failure maps to.
// It never varies with the stage that failed.
const GenericMessage = "抱歉，服務發生問題。請稍後再試。"

var catalog = map[Kind]string{
	KindDownload:      GenericMessage,
	KindTranscription: GenericMessage,
	KindSummarization: GenericMessage,
	KindDelivery:      GenericMessage,
	KindUnexpected:    GenericMessage,
}

// Message returns the catalog message for k. Unknown kinds get the generic
// message so there is always something safe to send.
func Message(k Kind) string {
	if msg, ok := catalog[k]; ok {
		return msg
	}
	return GenericMessage
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string // adapter operation, e.g. "line.download"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err as a failure of the given kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Download wraps an audio source error.
func Download(op string, err error) error { return New(KindDownload, op, err) }

// Transcription wraps a transcriber error.
func Transcription(op string, err error) error { return New(KindTranscription, op, err) }

// Summarization wraps a summarizer error.
func Summarization(op string, err error) error { return New(KindSummarization, op, err) }

// Delivery wraps a reply channel error.
func Delivery(op string, err error) error { return New(KindDelivery, op, err) }

// KindOf classifies err. nil is KindNone; errors that carry no *Error in
// their chain are KindUnexpected.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

// PanicError is returned for a recovered panic inside a stage.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}
