// Package main implements the broker: the front-end process that accepts
// render workers over WebSocket, queues jobs and serves the job API.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/phrazzld/cardfarm/internal/config"
	"github.com/phrazzld/cardfarm/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("broker failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("broker configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"job_timeout", cfg.Broker.JobTimeout,
		"worker_auth", cfg.Broker.SharedSecret != "")

	app, err := newApplication(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}
