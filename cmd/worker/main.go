// Package main implements the render worker: it connects to the broker,
// executes dispatched jobs and reports their results.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/phrazzld/cardfarm/internal/assets"
	"github.com/phrazzld/cardfarm/internal/auth"
	"github.com/phrazzld/cardfarm/internal/config"
	"github.com/phrazzld/cardfarm/internal/jobs"
	"github.com/phrazzld/cardfarm/internal/platform/logger"
	"github.com/phrazzld/cardfarm/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker failed: %v", err)
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

	slog.Info("worker configuration loaded",
		"broker_url", cfg.Worker.BrokerURL,
		"worker_name", cfg.Worker.Name,
		"asset_dir", cfg.Worker.AssetDir,
		"reconnect_delay", cfg.Worker.ReconnectDelay)

	resolver, err := assets.NewDir(cfg.Worker.AssetDir, l)
	if err != nil {
		return fmt.Errorf("failed to open asset directory: %w", err)
	}

	clientConfig := worker.ClientConfig{
		BrokerURL:      cfg.Worker.BrokerURL,
		Name:           cfg.Worker.Name,
		ReconnectDelay: cfg.Worker.ReconnectDelay,
	}
	if cfg.Worker.SharedSecret != "" {
		tokens, err := auth.NewWorkerTokens(cfg.Worker.SharedSecret, auth.DefaultTokenLifetime)
		if err != nil {
			return fmt.Errorf("failed to initialize worker authentication: %w", err)
		}
		// A fresh token per dial keeps long-running workers from reconnecting
		// with an expired one.
		clientConfig.Header = func() (http.Header, error) {
			return tokens.AuthorizationHeader(cfg.Worker.Name)
		}
	}

	runtime := worker.NewRuntime(jobs.Registry(resolver, l), l)
	client := worker.NewClient(clientConfig, runtime, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return client.Run(ctx)
}
