// Package httpapi exposes the wizard as a session-scoped HTTP API and
// hosts the operational endpoints (health, metrics).
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/davidcamilo0710/shift-planner/internal/metrics"
)

// NewRouter wires all routes. The returned handler already carries the
// logging, metrics, CORS and panic-recovery middleware.
func NewRouter(logger *slog.Logger, h *Handlers, health *HealthState, m *metrics.Metrics) http.Handler {
	r := mux.NewRouter()
	// Logging runs inside the mux chain so route templates are
	// available for bounded-cardinality metric labels.
	r.Use(func(next http.Handler) http.Handler {
		return wrapWithLogging(logger, m, next)
	})

	r.HandleFunc("/health", healthLiveHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/live", healthLiveHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", healthReadyHandler(health)).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/advance", h.Advance).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/back", h.Back).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/reset", h.Reset).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/optimize", h.Optimize).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/progress", h.ProgressSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/result", h.Result).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/result/export", h.Export).Methods(http.MethodGet)

	r.HandleFunc("/strategies", h.Strategies).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(cors(r))
}
