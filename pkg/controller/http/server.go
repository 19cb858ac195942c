package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	slackCtrl "github.com/secmon-lab/vantage/pkg/controller/slack"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/usecase"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router       chi.Router
	governance   *usecase.Governance
	notify       *usecase.Notify
	slackHandler *slackCtrl.Handler
}

// NewServer creates a new HTTP server. notify and slackHandler may be nil when Slack is not configured.
func NewServer(
	ctx context.Context,
	addr string,
	governance *usecase.Governance,
	notify *usecase.Notify,
	slackHandler *slackCtrl.Handler,
) *Server {
	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	s := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router:       router,
		governance:   governance,
		notify:       notify,
		slackHandler: slackHandler,
	}

	// Health check
	router.Get("/health", handleHealth)

	router.Route("/api", func(r chi.Router) {
		r.Post("/aging", s.handleAging)
		r.Post("/velocity", s.handleVelocity)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", s.handleListDatasets)
			r.Post("/", s.handleImportDataset)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDataset)
				r.Delete("/", s.handleDeleteDataset)
				r.Get("/report", s.handleReport)
				r.Post("/notify", s.handleNotify)
			})
		})
	})

	router.Get("/metrics", s.handleMetrics)

	// Slack webhook routes
	if slackHandler != nil {
		router.Route("/hooks/slack", func(r chi.Router) {
			r.Post("/command", slackHandler.HandleCommand)
		})
	}

	return s
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "vantage",
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// errorStatus maps use case errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrDatasetNotFound):
		return http.StatusNotFound
	case goerr.HasTag(err, model.ErrTagInvalidInput):
		return http.StatusBadRequest
	case goerr.HasTag(err, usecase.ErrTagSlackDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError logs err and writes it with the status it maps to
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	logger := ctxlog.From(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "status", status)
	} else {
		logger.Debug("Request rejected", "error", err, "status", status)
	}
	writeError(w, r.Context(), err, status)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, ctx context.Context, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		ctxlog.From(ctx).Error("Failed to encode error response", "error", err)
	}
}
