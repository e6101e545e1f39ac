package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

var allVars = []string{
	"SERVICE_PRINCIPAL", "PORT", "GRPC_PORT", "METRICS_ADDR", "APP_ENV",
	"LINE_CHANNEL_SECRET", "LINE_CHANNEL_ACCESS_TOKEN", "LINE_MAX_AUDIO_BYTES", "LINE_TIMEOUT",
	"STT_PROVIDER", "GOOGLE_CLOUD_PROJECT", "STT_LOCATION", "STT_MODEL", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ", "STT_AUDIO_ENCODING", "STT_TIMEOUT",
	"OPENAI_API_KEY", "WHISPER_MODEL", "WHISPER_LANGUAGE",
	"SUMMARIZER_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_TEMPERATURE", "GEMINI_MAX_OUTPUT_TOKENS",
	"STORAGE_DIR", "STORAGE_PREFIX", "STORAGE_SUFFIX",
	"DISPATCH_MAX_CONCURRENT", "DISPATCH_QUEUE_WAIT",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_OUTCOMES", "KAFKA_PRINCIPAL",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range allVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "voice-summary-service" {
		t.Errorf("expected default principal 'voice-summary-service', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default gRPC port '50051', got %s", cfg.Service.GRPCPort)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}

	if cfg.LINE.MaxAudioBytes != 10*1024*1024 {
		t.Errorf("expected default max audio bytes 10MB, got %d", cfg.LINE.MaxAudioBytes)
	}
	if cfg.LINE.Timeout != 30*time.Second {
		t.Errorf("expected default LINE timeout 30s, got %v", cfg.LINE.Timeout)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "cmn-Hant-TW" {
		t.Errorf("expected default language 'cmn-Hant-TW', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.AudioEncoding != "AUTO" {
		t.Errorf("expected default encoding 'AUTO', got %s", cfg.STT.AudioEncoding)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.WhisperModel != "whisper-1" {
		t.Errorf("expected default whisper model 'whisper-1', got %s", cfg.STT.WhisperModel)
	}

	if cfg.Summarizer.Provider != "mock" {
		t.Errorf("expected default summarizer 'mock', got %s", cfg.Summarizer.Provider)
	}
	if cfg.Summarizer.Model != "gemini-2.5-flash" {
		t.Errorf("expected default model 'gemini-2.5-flash', got %s", cfg.Summarizer.Model)
	}

	if cfg.Storage.Prefix != "audio" || cfg.Storage.Suffix != ".m4a" {
		t.Errorf("expected default naming audio/.m4a, got %s/%s", cfg.Storage.Prefix, cfg.Storage.Suffix)
	}

	if cfg.Dispatch.MaxConcurrent != 4 {
		t.Errorf("expected default max concurrent 4, got %d", cfg.Dispatch.MaxConcurrent)
	}
	if cfg.Dispatch.QueueWait != 20*time.Second {
		t.Errorf("expected default queue wait 20s, got %v", cfg.Dispatch.QueueWait)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("unexpected default brokers %v", cfg.Kafka.Brokers)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFormat != "json" {
		t.Errorf("expected default log format 'json', got %s", cfg.Observability.LogFormat)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STT_PROVIDER", "Whisper")
	t.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	t.Setenv("LINE_MAX_AUDIO_BYTES", "1048576")
	t.Setenv("GEMINI_TEMPERATURE", "0.7")
	t.Setenv("DISPATCH_QUEUE_WAIT", "5s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.STT.Provider != "whisper" {
		t.Errorf("expected provider to be lower-cased 'whisper', got %s", cfg.STT.Provider)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.LINE.MaxAudioBytes != 1048576 {
		t.Errorf("expected max audio bytes 1048576, got %d", cfg.LINE.MaxAudioBytes)
	}
	if cfg.Summarizer.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", cfg.Summarizer.Temperature)
	}
	if cfg.Dispatch.QueueWait != 5*time.Second {
		t.Errorf("expected queue wait 5s, got %v", cfg.Dispatch.QueueWait)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	t.Setenv("LINE_MAX_AUDIO_BYTES", "invalid")
	t.Setenv("GEMINI_TEMPERATURE", "hot")
	t.Setenv("DISPATCH_QUEUE_WAIT", "invalid")
	t.Setenv("KAFKA_ENABLED", "invalid")
	t.Setenv("KAFKA_BROKERS", " , ")

	cfg := Load()

	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.LINE.MaxAudioBytes != 10*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.LINE.MaxAudioBytes)
	}
	if cfg.Summarizer.Temperature != 0.3 {
		t.Errorf("expected default temperature on invalid input, got %v", cfg.Summarizer.Temperature)
	}
	if cfg.Dispatch.QueueWait != 20*time.Second {
		t.Errorf("expected default queue wait on invalid input, got %v", cfg.Dispatch.QueueWait)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled on invalid input")
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"localhost:9092"}) {
		t.Errorf("expected default brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVICE_PRINCIPAL", "my-service")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid := func() *Config {
		cfg := Load()
		cfg.LINE.ChannelSecret = "secret"
		cfg.LINE.ChannelToken = "token"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{"valid mock config", func(c *Config) {}, nil},
		{"missing LINE credentials", func(c *Config) {
			c.LINE.ChannelSecret = ""
			c.LINE.ChannelToken = ""
		}, []string{"LINE_CHANNEL_SECRET", "LINE_CHANNEL_ACCESS_TOKEN"}},
		{"whisper without key", func(c *Config) { c.STT.Provider = "whisper" }, []string{"OPENAI_API_KEY"}},
		{"google without project", func(c *Config) { c.STT.Provider = "google" }, []string{"GOOGLE_CLOUD_PROJECT"}},
		{"google with project", func(c *Config) {
			c.STT.Provider = "google"
			c.STT.ProjectID = "my-project"
		}, nil},
		{"mock backends in production", func(c *Config) { c.Service.Env = "production" }, []string{"STT_PROVIDER=mock", "SUMMARIZER_PROVIDER=mock"}},
		{"real backends in production", func(c *Config) {
			c.Service.Env = "production"
			c.STT.Provider = "google"
			c.STT.ProjectID = "my-project"
			c.Summarizer.Provider = "gemini"
			c.Summarizer.APIKey = "key"
		}, nil},
		{"mock backends in staging", func(c *Config) { c.Service.Env = "staging" }, nil},
		{"unknown stt", func(c *Config) { c.STT.Provider = "azure" }, []string{"STT_PROVIDER"}},
		{"gemini without key", func(c *Config) { c.Summarizer.Provider = "gemini" }, []string{"GEMINI_API_KEY"}},
		{"unknown summarizer", func(c *Config) { c.Summarizer.Provider = "gpt" }, []string{"SUMMARIZER_PROVIDER"}},
		{"zero concurrency", func(c *Config) { c.Dispatch.MaxConcurrent = 0 }, []string{"DISPATCH_MAX_CONCURRENT"}},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, []string{"KAFKA_BROKERS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected %q in %v", want, err)
				}
			}
		})
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)

			got := envOrDefaultBool("TEST_BOOL_VAR", tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}
