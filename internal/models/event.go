package models

// IncomingEvent is one audio message extracted from a verified webhook.
type IncomingEvent struct {
	MessageID  string `json:"messageId"`
	ReplyToken string `json:"replyToken"`
	// WebhookEventID is LINE's event id, used for log correlation only.
	WebhookEventID string `json:"webhookEventId,omitempty"`
}
