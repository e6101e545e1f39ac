// Package google provides a Google Cloud Speech-to-Text (v2) recognizer.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"voice-summary-service/internal/observability/logging"
)

// AutoEncoding lets the service detect the container and codec. LINE voice
// messages are m4a (AAC), which only auto-decoding accepts.
const AutoEncoding = "AUTO"

// Config holds Google Speech-to-Text settings.
type Config struct {
	ProjectID       string
	Location        string // "global" or a region such as "asia-southeast1"
	Model           string // recognition model, e.g. "long", "short", "chirp_2"
	LanguageCode    string // BCP-47, e.g. "cmn-Hant-TW"
	AudioEncoding   string // AutoEncoding or an ExplicitDecodingConfig_AudioEncoding name
	SampleRateHz    int32  // explicit encodings only
	CredentialsFile string // empty uses application default credentials
	Timeout         time.Duration
}

// DefaultConfig returns the default recognition settings for LINE voice messages.
func DefaultConfig() Config {
	return Config{
		Location:      "global",
		Model:         "long",
		LanguageCode:  "cmn-Hant-TW",
		AudioEncoding: AutoEncoding,
		SampleRateHz:  16000,
		Timeout:       60 * time.Second,
	}
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Adapter implements stt.Recognizer using the synchronous Recognize RPC
// against the implicit "_" recognizer, with the config sent inline.
// The client is created on first use and shared by concurrent callers.
type Adapter struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	client    *speech.Client
	recognize recognizeFunc
}

// New creates a Google recognizer. No connection is made until the first call.
func New(cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.Location == "" {
		cfg.Location = def.Location
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.AudioEncoding == "" {
		cfg.AudioEncoding = def.AudioEncoding
	}
	return &Adapter{
		cfg:    cfg,
		logger: logging.WithComponent("stt.google"),
	}
}

// Name returns "google".
func (a *Adapter) Name() string {
	return "google"
}

// Recognizer returns the resource name requests are sent to.
func (a *Adapter) Recognizer() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", a.cfg.ProjectID, a.cfg.Location)
}

func (a *Adapter) recognizer(ctx context.Context) (recognizeFunc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recognize != nil {
		return a.recognize, nil
	}

	var opts []option.ClientOption
	if a.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.cfg.CredentialsFile))
	}
	// Regional recognizers are only reachable through their regional endpoint.
	if a.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(a.cfg.Location+"-speech.googleapis.com:443"))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}
	a.logger.Info().
		Str("recognizer", a.Recognizer()).
		Str("model", a.cfg.Model).
		Str("language", a.cfg.LanguageCode).
		Msg("Speech client initialized")

	a.client = c
	a.recognize = func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	}
	return a.recognize, nil
}

// Recognize sends the whole file in one request and joins the top alternative
// of every result.
func (a *Adapter) Recognize(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading audio: %w", err)
	}

	recognize, err := a.recognizer(ctx)
	if err != nil {
		return "", err
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	resp, err := recognize(ctx, a.request(audio))
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var sb strings.Builder
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		sb.WriteString(r.GetAlternatives()[0].GetTranscript())
	}
	return sb.String(), nil
}

func (a *Adapter) request(audio []byte) *speechpb.RecognizeRequest {
	cfg := &speechpb.RecognitionConfig{
		Model:         a.cfg.Model,
		LanguageCodes: []string{a.cfg.LanguageCode},
	}
	if encoding, ok := parseAudioEncoding(a.cfg.AudioEncoding); ok {
		cfg.DecodingConfig = &speechpb.RecognitionConfig_ExplicitDecodingConfig{
			ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
				Encoding:          encoding,
				SampleRateHertz:   a.cfg.SampleRateHz,
				AudioChannelCount: 1,
			},
		}
	} else {
		cfg.DecodingConfig = &speechpb.RecognitionConfig_AutoDecodingConfig{
			AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
		}
	}
	return &speechpb.RecognizeRequest{
		Recognizer:  a.Recognizer(),
		Config:      cfg,
		AudioSource: &speechpb.RecognizeRequest_Content{Content: audio},
	}
}

// Close releases the underlying client, if one was created.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	a.recognize = nil
	return err
}

// parseAudioEncoding maps a raw encoding name to its enum value. AutoEncoding,
// unknown names and AUDIO_ENCODING_UNSPECIFIED report false, which selects
// auto-decoding.
func parseAudioEncoding(name string) (speechpb.ExplicitDecodingConfig_AudioEncoding, bool) {
	v, ok := speechpb.ExplicitDecodingConfig_AudioEncoding_value[name]
	if !ok || v == int32(speechpb.ExplicitDecodingConfig_AUDIO_ENCODING_UNSPECIFIED) {
		return speechpb.ExplicitDecodingConfig_AUDIO_ENCODING_UNSPECIFIED, false
	}
	return speechpb.ExplicitDecodingConfig_AudioEncoding(v), true
}
