// Command nominate-server exposes the estimators as a JSON service with
// health and metrics endpoints.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"nomcli/internal/config"
	transport "nomcli/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	port := flag.Int("port", 0, "listen port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	srv := transport.NewServer(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining requests")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown failed", "error", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}
}
