package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/cardfarm/internal/api"
	apiMiddleware "github.com/phrazzld/cardfarm/internal/api/middleware"
	"github.com/phrazzld/cardfarm/internal/broker"
)

// setupRouter creates the router with the worker endpoint, the job API and
// the health check.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Long-lived WebSocket connections stay outside the request middleware
	// that wraps the response writer.
	r.Method(http.MethodGet, "/workers/connect", broker.NewHandler(app.broker, app.workerAuth, app.logger))

	jobHandler := api.NewJobHandler(app.broker, app.config.Broker.JobTimeout)
	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
		jobHandler.Routes(r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
