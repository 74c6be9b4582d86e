package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/tshaffer/memorappy/internal/adapters/mcp"
	"github.com/tshaffer/memorappy/internal/bootstrap"
	"github.com/tshaffer/memorappy/internal/config"
	"github.com/tshaffer/memorappy/internal/observability/logging"
)

const service = "memorappy-mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	// stdout carries the protocol; logs go to stderr.
	logger := logging.NewLogger(os.Stderr, service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: service, Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := mcpadapter.NewServer(app.QueryUC, app.Reviews, logger).ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
