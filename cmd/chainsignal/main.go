package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoangvvo/llm-sdk/sdk-go/google"
	"github.com/joho/godotenv"

	"github.com/chainsignal-io/chainsignal/internal/collector"
	"github.com/chainsignal-io/chainsignal/internal/config"
	"github.com/chainsignal-io/chainsignal/internal/publish"
	"github.com/chainsignal-io/chainsignal/internal/server"
	"github.com/chainsignal-io/chainsignal/internal/source"
	"github.com/chainsignal-io/chainsignal/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("CHAINSIGNAL_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("chainsignal starting", "version", version, "port", cfg.Port, "project", cfg.ProjectID)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	defer closePublisher()

	c := &collector.Collector{
		NOAA:      &source.NOAAClient{Logger: logger},
		GDELT:     &source.GDELTClient{Logger: logger},
		Marine:    &source.MarineTrafficClient{APIKey: cfg.MarineTrafficAPIKey, Logger: logger},
		FRED:      &source.FREDClient{APIKey: cfg.FREDAPIKey, Logger: logger},
		Twitter:   &source.TwitterClient{BearerToken: cfg.TwitterBearerToken, Logger: logger},
		Publisher: publisher,
		Logger:    logger,
	}

	rootModel := google.NewGoogleModel(cfg.RootModel, google.GoogleModelOptions{APIKey: cfg.GoogleAPIKey})
	collectorModel := google.NewGoogleModel(cfg.CollectorModel, google.GoogleModelOptions{APIKey: cfg.GoogleAPIKey})

	srv := server.New(rootModel, collectorModel, c, server.Config{
		ProjectID:   cfg.ProjectID,
		Topic:       cfg.PubSubTopic,
		Frequency:   cfg.CollectionFrequency,
		ArtifactDir: cfg.ArtifactDir,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		// Streaming runs hold the response open across many model turns.
		WriteTimeout: 15 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("chainsignal shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("chainsignal stopped")
	return nil
}

// newPublisher binds the Pub/Sub topic when a project is configured and falls
// back to the logging publisher in development mode.
func newPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (publish.Publisher, func(), error) {
	if cfg.ProjectID == "" {
		logger.Warn("GOOGLE_CLOUD_PROJECT not set, events will be logged instead of published")
		return &publish.Log{Logger: logger, TopicID: cfg.PubSubTopic}, func() {}, nil
	}

	ps, err := publish.NewPubSub(ctx, cfg.ProjectID, cfg.PubSubTopic, logger)
	if err != nil {
		return nil, nil, err
	}
	return ps, func() {
		if err := ps.Close(); err != nil {
			logger.Error("pubsub close error", "error", err)
		}
	}, nil
}
