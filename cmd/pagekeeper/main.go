package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/pagekeeper/internal/api"
	"github.com/MikeSquared-Agency/pagekeeper/internal/config"
	"github.com/MikeSquared-Agency/pagekeeper/internal/graph"
	"github.com/MikeSquared-Agency/pagekeeper/internal/hermes"
	"github.com/MikeSquared-Agency/pagekeeper/internal/inbox"
	"github.com/MikeSquared-Agency/pagekeeper/internal/tools"
)

func main() {
	loaded, dotenvErr := config.LoadDotEnv(".env.local", ".env")
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if dotenvErr != nil {
		slog.Error("failed to load .env", "error", dotenvErr)
		os.Exit(1)
	}
	if len(loaded) > 0 {
		slog.Info("loaded env files", "files", loaded)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("pagekeeper starting", "port", cfg.Port, "page_id", cfg.PageID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graph API
	fb := graph.NewClient(cfg.GraphURL, cfg.PageToken, cfg.PageID, cfg.GraphTimeout, slog.Default())
	retriever := inbox.New(fb, slog.Default())
	slog.Info("graph client ready", "base_url", cfg.GraphURL)

	// NATS/Hermes (optional, pagekeeper runs HTTP-only without it)
	var opts []tools.Option
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		var err error
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		opts = append(opts, tools.WithPublisher(hermesClient))
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, tool events disabled")
	}

	registry := tools.NewPageRegistry(fb, retriever, slog.Default(), opts...)

	if hermesClient != nil {
		if err := hermesClient.Handle(hermes.SubjectToolInvoke, registry.HandleRequest); err != nil {
			slog.Error("failed to subscribe to tool requests", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		PageID:         cfg.PageID,
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.AllowedOrigins,
	}, registry, retriever)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"page_id":   cfg.PageID,
			"tools":     len(registry.List()),
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("pagekeeper ready", "port", cfg.Port, "tools", len(registry.List()))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("pagekeeper stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
