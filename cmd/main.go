package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	grpcapi "voice-summary-service/internal/api/grpc"
	"voice-summary-service/internal/app"
	"voice-summary-service/internal/config"
	"voice-summary-service/internal/dispatch"
	"voice-summary-service/internal/events"
	apihttp "voice-summary-service/internal/http"
	"voice-summary-service/internal/line"
	"voice-summary-service/internal/observability"
	"voice-summary-service/internal/observability/metrics"
	"voice-summary-service/internal/service/stt"
	googlestt "voice-summary-service/internal/service/stt/google"
	mockstt "voice-summary-service/internal/service/stt/mock"
	"voice-summary-service/internal/service/stt/whisper"
	"voice-summary-service/internal/service/summarize"
	"voice-summary-service/internal/service/summarize/gemini"
	mocksummarize "voice-summary-service/internal/service/summarize/mock"
	"voice-summary-service/internal/storage"
	"voice-summary-service/internal/workflow"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	application := app.New(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	m := metrics.DefaultMetrics

	store, err := storage.NewManager(cfg.Storage.Dir, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create storage manager")
	}

	recognizer, closeRecognizer := newRecognizer(cfg.STT)
	defer closeRecognizer()

	lineClient, err := line.NewClient(line.Config{
		ChannelSecret: cfg.LINE.ChannelSecret,
		ChannelToken:  cfg.LINE.ChannelToken,
		APIEndpoint:   cfg.LINE.APIEndpoint,
		DataEndpoint:  cfg.LINE.DataEndpoint,
		MaxAudioBytes: cfg.LINE.MaxAudioBytes,
		Timeout:       cfg.LINE.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create LINE client")
	}

	publisher := events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Kafka.Principal,
	}, m)
	defer publisher.Close()

	wf := workflow.New(
		store,
		lineClient,
		stt.New(recognizer, m),
		summarize.New(newGenerator(cfg.Summarizer), m),
		lineClient,
		workflow.WithMetrics(m),
		workflow.WithPublisher(publisher),
		workflow.WithArtifactNaming(cfg.Storage.Prefix, cfg.Storage.Suffix),
	)

	dispatcher := dispatch.New(wf, dispatch.Config{
		MaxConcurrent: int64(cfg.Dispatch.MaxConcurrent),
		QueueWait:     cfg.Dispatch.QueueWait,
	}, m)

	webhook := line.NewWebhookHandler(cfg.LINE.ChannelSecret, dispatcher, m)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(application, webhook),
		ReadHeaderTimeout: 10 * time.Second,
	}

	obsServer := observability.NewServer(cfg.Service.MetricsAddr, prometheus.DefaultGatherer, application.Ready)
	obsServer.Start()

	grpcServer := grpcapi.New(m)
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen for gRPC")
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Voice summary webhook server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	_ = application.Start()
	grpcServer.SetServing(true)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Shutdown()
	grpcServer.SetServing(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	// Accepted events still get their reply before the process exits.
	if err := dispatcher.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("dispatcher did not drain before timeout")
	}
	if err := wf.Wait(ctx); err != nil {
		log.Error().Err(err).Msg("outcome events still pending at shutdown")
	}
	grpcServer.Stop()
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("observability server shutdown failed")
	}
}

func newRecognizer(cfg config.STTConfig) (stt.Recognizer, func()) {
	switch cfg.Provider {
	case "google":
		a := googlestt.New(googlestt.Config{
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			Model:           cfg.Model,
			LanguageCode:    cfg.LanguageCode,
			SampleRateHz:    int32(cfg.SampleRateHz),
			AudioEncoding:   cfg.AudioEncoding,
			CredentialsFile: cfg.CredentialsFile,
			Timeout:         cfg.Timeout,
		})
		return a, func() { _ = a.Close() }
	case "whisper":
		return whisper.NewClient(whisper.Config{
			APIKey:   cfg.WhisperAPIKey,
			Model:    cfg.WhisperModel,
			Language: cfg.WhisperLanguage,
			BaseURL:  cfg.WhisperBaseURL,
			Timeout:  cfg.Timeout,
		}), func() {}
	default:
		log.Warn().Msg("Using mock speech-to-text backend")
		return mockstt.New(), func() {}
	}
}

func newGenerator(cfg config.SummarizerConfig) summarize.Generator {
	if cfg.Provider == "gemini" {
		return gemini.NewClient(gemini.Config{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			BaseURL:         cfg.BaseURL,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			Timeout:         cfg.Timeout,
		})
	}
	log.Warn().Msg("Using mock summarizer backend")
	return mocksummarize.New()
}
