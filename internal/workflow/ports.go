package workflow

import (
	"context"

	"voice-summary-service/internal/storage"
)

// AudioSource fetches the audio referenced by a message into a handle.
// Errors should be wrapped with failure.Download.
type AudioSource interface {
	Download(ctx context.Context, messageId string, h storage.Handle) error
}

// Transcriber converts the audio behind a handle to text. It never fails for
// "nothing recognized"; it returns the unrecognized-speech sentinel instead.
// Errors should be wrapped with failure.Transcription.
type Transcriber interface {
	TranscribeAudioFile(ctx context.Context, h storage.Handle) (string, error)
}

// Summarizer condenses text. Empty input and empty or refused output are
// sentinel returns, not errors. Errors should be wrapped with
// failure.Summarization.
type Summarizer interface {
	SummarizeText(ctx context.Context, text string) (string, error)
}

// ReplyChannel delivers one text reply for a reply token.
// Errors should be wrapped with failure.Delivery.
type ReplyChannel interface {
	SendReply(ctx context.Context, replyToken, text string) error
}

// ResourceManager owns transient audio artifacts.
type ResourceManager interface {
	Create(prefix, suffix string) storage.Handle
	Exists(h storage.Handle) bool
	Release(h storage.Handle)
}

// OutcomePublisher receives one event per finished invocation.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, key string, event any) error
}
