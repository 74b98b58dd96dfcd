package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/davidcamilo0710/shift-planner/internal/metrics"
)

// wrapWithLogging decorates the router with structured access logs and
// per-route Prometheus observations.
func wrapWithLogging(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		logger.Info("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.String("duration", duration.String()),
		)
		if m != nil {
			m.ObserveHTTP(routeLabel(r), rw.status, duration)
		}
	})
}

// routeLabel collapses session IDs so the metric cardinality stays
// bounded. It relies on running inside the mux middleware chain, after
// route matching.
func routeLabel(r *http.Request) string {
	if tpl, err := routeTemplate(r); err == nil && tpl != "" {
		return tpl
	}
	return r.URL.Path
}

func routeTemplate(r *http.Request) (string, error) {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "", errors.New("no matched route")
	}
	return route.GetPathTemplate()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader stores the status code so the middleware can log it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
