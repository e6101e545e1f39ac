package line

import (
	"context"
	"errors"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/rs/zerolog"

	"voice-summary-service/internal/models"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/observability/metrics"
)

// Submitter accepts verified audio events for asynchronous processing.
// Submit must not block on the processing itself.
type Submitter interface {
	Submit(ctx context.Context, ev models.IncomingEvent)
}

// WebhookHandler serves the LINE callback endpoint.
type WebhookHandler struct {
	secret    string
	submitter Submitter
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewWebhookHandler creates the callback handler. m may be nil.
func NewWebhookHandler(channelSecret string, s Submitter, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		secret:    channelSecret,
		submitter: s,
		metrics:   m,
		logger:    logging.WithComponent("webhook"),
	}
}

// ServeHTTP verifies X-Line-Signature, submits every audio message event and
// answers 200 "OK". The response never depends on processing outcome.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(h.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.metrics.RecordWebhook("bad_signature")
			h.logger.Warn().Str("remoteAddr", r.RemoteAddr).Msg("Invalid webhook signature")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		h.metrics.RecordWebhook("bad_request")
		h.logger.Error().Err(err).Msg("Failed to parse webhook request")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.metrics.RecordWebhook("ok")
	for _, ev := range ExtractAudioEvents(cb, h.logger, h.metrics) {
		h.submitter.Submit(r.Context(), ev)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ExtractAudioEvents returns the audio message events of cb, in order.
// Every other event is counted and ignored.
func ExtractAudioEvents(cb *webhook.CallbackRequest, logger zerolog.Logger, m *metrics.Metrics) []models.IncomingEvent {
	var out []models.IncomingEvent
	for _, event := range cb.Events {
		me, ok := event.(webhook.MessageEvent)
		if !ok {
			m.RecordEvent("other")
			logger.Debug().Str("type", event.GetType()).Msg("Ignoring non-message event")
			continue
		}
		audio, ok := me.Message.(webhook.AudioMessageContent)
		if !ok {
			m.RecordEvent("message_other")
			logger.Debug().Msg("Ignoring non-audio message")
			continue
		}

		m.RecordEvent("audio")
		ev := models.IncomingEvent{
			MessageID:      audio.Id,
			ReplyToken:     me.ReplyToken,
			WebhookEventID: me.WebhookEventId,
		}
		out = append(out, ev)
	}
	return out
}
