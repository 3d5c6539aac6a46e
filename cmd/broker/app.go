package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cardfarm/internal/auth"
	"github.com/phrazzld/cardfarm/internal/broker"
	"github.com/phrazzld/cardfarm/internal/config"
	"github.com/phrazzld/cardfarm/internal/events"
)

// application holds the broker process's long-lived dependencies.
type application struct {
	config *config.Config
	logger *slog.Logger

	broker       *broker.Broker
	eventEmitter *events.InMemoryEventEmitter

	// workerAuth is nil when worker authentication is disabled.
	workerAuth broker.Authenticator
}

func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.LogHandler(logger.With("component", "job_events")))

	if cfg.Broker.SharedSecret != "" {
		tokens, err := auth.NewWorkerTokens(cfg.Broker.SharedSecret, auth.DefaultTokenLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize worker authentication: %w", err)
		}
		app.workerAuth = tokens
		logger.Info("worker authentication enabled")
	} else {
		logger.Warn("worker authentication disabled, any client may register as a worker")
	}

	app.broker = broker.New(broker.Config{
		ResultTTL:     cfg.Broker.ResultTTL,
		SweepInterval: cfg.Broker.SweepInterval,
	}, logger, app.eventEmitter)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the broker loop and the HTTP server and blocks until ctx is
// cancelled or the server fails.
func (app *application) Run(ctx context.Context) error {
	app.broker.Start()
	defer app.broker.Stop()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
