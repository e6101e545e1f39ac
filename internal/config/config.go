// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	LINE          LINEConfig
	STT           STTConfig
	Summarizer    SummarizerConfig
	Storage       StorageConfig
	Dispatch      DispatchConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listen addresses.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	GRPCPort    string
	MetricsAddr string
	Env         string
}

// LINEConfig holds LINE channel credentials and API settings.
type LINEConfig struct {
	ChannelSecret string
	ChannelToken  string
	APIEndpoint   string
	DataEndpoint  string
	MaxAudioBytes int64
	Timeout       time.Duration
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	Provider        string // mock | google | whisper
	ProjectID       string
	Location        string
	Model           string
	LanguageCode    string
	AudioEncoding   string
	SampleRateHz    int
	CredentialsFile string
	WhisperAPIKey   string
	WhisperModel    string
	WhisperLanguage string
	WhisperBaseURL  string
	Timeout         time.Duration
}

// SummarizerConfig selects and configures the summarization backend.
type SummarizerConfig struct {
	Provider        string // mock | gemini
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int
	Temperature     float64
	Timeout         time.Duration
}

// StorageConfig controls where transient audio artifacts live.
type StorageConfig struct {
	Dir    string
	Prefix string
	Suffix string
}

// DispatchConfig bounds concurrent workflow invocations.
type DispatchConfig struct {
	MaxConcurrent int
	QueueWait     time.Duration
}

// KafkaConfig holds outcome event publishing settings.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	Principal string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and then the environment. Invalid values fall
// back to their defaults.
func Load() *Config {
	// Existing environment variables take precedence over .env.
	_ = godotenv.Load()

	principal := envOrDefault("SERVICE_PRINCIPAL", "voice-summary-service")

	return &Config{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("PORT", "8080"),
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
			Env:         envOrDefault("APP_ENV", "development"),
		},
		LINE: LINEConfig{
			ChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
			ChannelToken:  os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
			APIEndpoint:   envOrDefault("LINE_API_ENDPOINT", "https://api.line.me"),
			DataEndpoint:  envOrDefault("LINE_DATA_ENDPOINT", "https://api-data.line.me"),
			MaxAudioBytes: envOrDefaultInt64("LINE_MAX_AUDIO_BYTES", 10*1024*1024),
			Timeout:       envOrDefaultDuration("LINE_TIMEOUT", 30*time.Second),
		},
		STT: STTConfig{
			Provider:        strings.ToLower(envOrDefault("STT_PROVIDER", "mock")),
			ProjectID:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
			Location:        envOrDefault("STT_LOCATION", "global"),
			Model:           envOrDefault("STT_MODEL", "long"),
			LanguageCode:    envOrDefault("STT_LANGUAGE_CODE", "cmn-Hant-TW"),
			AudioEncoding:   envOrDefault("STT_AUDIO_ENCODING", "AUTO"),
			SampleRateHz:    envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			WhisperAPIKey:   os.Getenv("OPENAI_API_KEY"),
			WhisperModel:    envOrDefault("WHISPER_MODEL", "whisper-1"),
			WhisperLanguage: envOrDefault("WHISPER_LANGUAGE", "zh"),
			WhisperBaseURL:  envOrDefault("WHISPER_BASE_URL", "https://api.openai.com/v1"),
			Timeout:         envOrDefaultDuration("STT_TIMEOUT", 60*time.Second),
		},
		Summarizer: SummarizerConfig{
			Provider:        strings.ToLower(envOrDefault("SUMMARIZER_PROVIDER", "mock")),
			APIKey:          os.Getenv("GEMINI_API_KEY"),
			Model:           envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL:         envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			MaxOutputTokens: envOrDefaultInt("GEMINI_MAX_OUTPUT_TOKENS", 256),
			Temperature:     envOrDefaultFloat("GEMINI_TEMPERATURE", 0.3),
			Timeout:         envOrDefaultDuration("SUMMARIZER_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Dir:    os.Getenv("STORAGE_DIR"),
			Prefix: envOrDefault("STORAGE_PREFIX", "audio"),
			Suffix: envOrDefault("STORAGE_SUFFIX", ".m4a"),
		},
		Dispatch: DispatchConfig{
			MaxConcurrent: envOrDefaultInt("DISPATCH_MAX_CONCURRENT", 4),
			QueueWait:     envOrDefaultDuration("DISPATCH_QUEUE_WAIT", 20*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:   envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:   envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:     envOrDefault("KAFKA_TOPIC_OUTCOMES", "voice.summary.outcomes"),
			Principal: envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate reports every setting that prevents the service from starting.
func (c *Config) Validate() error {
	var errs []error

	if c.LINE.ChannelSecret == "" {
		errs = append(errs, errors.New("LINE_CHANNEL_SECRET is required"))
	}
	if c.LINE.ChannelToken == "" {
		errs = append(errs, errors.New("LINE_CHANNEL_ACCESS_TOKEN is required"))
	}

	switch c.STT.Provider {
	case "mock":
	case "google":
		if c.STT.ProjectID == "" {
			errs = append(errs, errors.New("GOOGLE_CLOUD_PROJECT is required for STT_PROVIDER=google"))
		}
	case "whisper":
		if c.STT.WhisperAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for STT_PROVIDER=whisper"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STT_PROVIDER %q", c.STT.Provider))
	}

	switch c.Summarizer.Provider {
	case "mock":
	case "gemini":
		if c.Summarizer.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for SUMMARIZER_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SUMMARIZER_PROVIDER %q", c.Summarizer.Provider))
	}

	// Mock backends answer real users with canned text.
	if c.IsProduction() {
		if c.STT.Provider == "mock" {
			errs = append(errs, errors.New("STT_PROVIDER=mock is not allowed when APP_ENV=production"))
		}
		if c.Summarizer.Provider == "mock" {
			errs = append(errs, errors.New("SUMMARIZER_PROVIDER=mock is not allowed when APP_ENV=production"))
		}
	}

	if c.Dispatch.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("DISPATCH_MAX_CONCURRENT must be positive"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true"))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Service.Env == "development"
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Service.Env == "production"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma-separated value, dropping empty entries.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
