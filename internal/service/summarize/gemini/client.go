// Package gemini provides a summarize.Generator backed by the Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"voice-summary-service/internal/service/summarize"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 4096

// Config holds Gemini settings.
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int
	Temperature     float64
	Timeout         time.Duration
}

// Client calls models/{model}:generateContent.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	genConfig  generationConfig
	httpClient *http.Client
}

// NewClient creates a Gemini client.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		genConfig: generationConfig{
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
		},
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Name returns "gemini".
func (c *Client) Name() string {
	return "gemini"
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type request struct {
	Contents         []content        `json:"contents"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Summaries of arbitrary voice notes must not be refused by the default filters.
var safetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// Generate sends prompt as a single user turn and returns the first
// candidate's text. A response without usable candidates is reported as
// summarize.ErrContentBlocked or summarize.ErrNoCandidates.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := request{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		SafetySettings:   safetySettings,
		GenerationConfig: c.genConfig,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(errBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result response
	if err = json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", result.Error.Code, result.Error.Message)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", summarize.ErrContentBlocked, result.PromptFeedback.BlockReason)
	}

	if len(result.Candidates) == 0 {
		return "", summarize.ErrNoCandidates
	}

	cand := result.Candidates[0]
	if len(cand.Content.Parts) == 0 {
		if cand.FinishReason == "SAFETY" || cand.FinishReason == "PROHIBITED_CONTENT" {
			return "", fmt.Errorf("%w: candidate finished with %s", summarize.ErrContentBlocked, cand.FinishReason)
		}
		return "", fmt.Errorf("%w: empty candidate (%s)", summarize.ErrNoCandidates, cand.FinishReason)
	}

	return strings.TrimSpace(cand.Content.Parts[0].Text), nil
}
