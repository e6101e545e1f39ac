// Package line connects the workflow to the LINE Messaging API: it downloads
// audio message content, sends replies and parses webhook callbacks.
package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"voice-summary-service/internal/failure"
	"voice-summary-service/internal/observability/logging"
	"voice-summary-service/internal/storage"
)

const (
	DefaultAPIEndpoint  = "https://api.line.me"
	DefaultDataEndpoint = "https://api-data.line.me"
)

// ErrAudioTooLarge is returned when the content exceeds Config.MaxAudioBytes.
var ErrAudioTooLarge = errors.New("audio content exceeds size limit")

// Config holds LINE channel settings.
type Config struct {
	ChannelSecret string
	ChannelToken  string
	APIEndpoint   string
	DataEndpoint  string
	MaxAudioBytes int64
	Timeout       time.Duration
}

// Client implements workflow.AudioSource and workflow.ReplyChannel.
type Client struct {
	token        string
	apiEndpoint  string
	dataEndpoint string
	maxBytes     int64
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient creates a LINE client. API clients are built per call so that
// each call carries its own context.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ChannelToken == "" {
		return nil, errors.New("line: channel access token is required")
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = DefaultAPIEndpoint
	}
	if cfg.DataEndpoint == "" {
		cfg.DataEndpoint = DefaultDataEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		token:        cfg.ChannelToken,
		apiEndpoint:  cfg.APIEndpoint,
		dataEndpoint: cfg.DataEndpoint,
		maxBytes:     cfg.MaxAudioBytes,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logging.WithComponent("line"),
	}

	// Fail fast on a malformed endpoint.
	if _, err := c.messaging(context.Background()); err != nil {
		return nil, err
	}
	if _, err := c.blob(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) messaging(ctx context.Context) (*messaging_api.MessagingApiAPI, error) {
	api, err := messaging_api.NewMessagingApiAPI(c.token,
		messaging_api.WithEndpoint(c.apiEndpoint),
		messaging_api.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("line: messaging api: %w", err)
	}
	return api.WithContext(ctx), nil
}

func (c *Client) blob(ctx context.Context) (*messaging_api.MessagingApiBlobAPI, error) {
	api, err := messaging_api.NewMessagingApiBlobAPI(c.token,
		messaging_api.WithBlobEndpoint(c.dataEndpoint),
		messaging_api.WithBlobHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("line: blob api: %w", err)
	}
	return api.WithContext(ctx), nil
}

// Download writes the content of messageId to h.Path. A partially written
// file is left for the caller's cleanup.
func (c *Client) Download(ctx context.Context, messageId string, h storage.Handle) error {
	const op = "line.download"

	api, err := c.blob(ctx)
	if err != nil {
		return failure.Download(op, err)
	}

	resp, err := api.GetMessageContent(messageId)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return failure.Download(op, err)
	}

	f, err := os.OpenFile(h.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return failure.Download(op, fmt.Errorf("create artifact: %w", err))
	}
	defer f.Close()

	var src io.Reader = resp.Body
	if c.maxBytes > 0 {
		src = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return failure.Download(op, fmt.Errorf("write artifact: %w", err))
	}
	if c.maxBytes > 0 && n > c.maxBytes {
		return failure.Download(op, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, c.maxBytes))
	}
	if err := f.Close(); err != nil {
		return failure.Download(op, fmt.Errorf("close artifact: %w", err))
	}

	c.logger.Info().
		Str("messageId", messageId).
		Str("handle", h.ID).
		Int64("bytes", n).
		Str("contentType", resp.Header.Get("Content-Type")).
		Msg("Audio content downloaded")
	return nil
}

// SendReply sends text as a single text message using replyToken.
func (c *Client) SendReply(ctx context.Context, replyToken, text string) error {
	const op = "line.reply"

	api, err := c.messaging(ctx)
	if err != nil {
		return failure.Delivery(op, err)
	}

	_, err = api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return failure.Delivery(op, err)
	}

	c.logger.Info().
		Str("replyToken", logging.Redact(replyToken)).
		Int("textLength", len([]rune(text))).
		Msg("Reply message sent")
	return nil
}
