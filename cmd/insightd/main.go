package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vampirenirmal/insightatlas/internal/audio"
	"github.com/vampirenirmal/insightatlas/internal/config"
	"github.com/vampirenirmal/insightatlas/internal/extract"
	"github.com/vampirenirmal/insightatlas/internal/pipeline"
	"github.com/vampirenirmal/insightatlas/internal/progress"
	"github.com/vampirenirmal/insightatlas/internal/provider"
	"github.com/vampirenirmal/insightatlas/internal/server"
	"github.com/vampirenirmal/insightatlas/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	clientOpts := func(baseURL string) []provider.ClientOption {
		return []provider.ClientOption{
			provider.WithTimeout(cfg.Limits.RequestTimeout),
			provider.WithRetry(cfg.Limits.MaxRetries),
			provider.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize),
			provider.WithClientLogger(logger),
			provider.WithBaseURL(baseURL),
		}
	}

	primary := provider.NewAnthropicClient(
		cfg.Providers.Primary.APIKey, cfg.Providers.Primary.Model,
		clientOpts(cfg.Providers.Primary.BaseURL)...)
	fallback := provider.NewOpenAIClient(
		cfg.Providers.Fallback.APIKey, cfg.Providers.Fallback.Model,
		clientOpts(cfg.Providers.Fallback.BaseURL)...)
	gen := provider.New([]provider.Backend{primary, fallback}, logger)

	broadcaster := progress.NewBroadcaster(cfg.Limits.ProgressCacheGrace, logger)

	orchOpts := []pipeline.OrchestratorOption{
		pipeline.WithProgressSink(broadcaster),
		pipeline.WithOrchestratorLogger(logger),
	}
	synth := audio.NewSynthesizer(cfg.Audio.APIKey, cfg.Audio.BaseURL,
		audio.WithVoice(cfg.Audio.VoiceID),
		audio.WithLogger(logger))
	if synth.Configured() {
		orchOpts = append(orchOpts, pipeline.WithAudioSynthesizer(synth))
	} else {
		logger.Info("audio synthesis not configured, guides will ship without narration")
	}
	orch := pipeline.NewOrchestrator(gen, orchOpts...)

	store, err := storage.NewInsightStore(cfg.Storage.InsightsDir)
	if err != nil {
		return err
	}

	srv := server.New(cfg, extract.NewPlainText(), orch, store, broadcaster, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func logLevel() slog.Level {
	switch os.Getenv("INSIGHTATLAS_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
