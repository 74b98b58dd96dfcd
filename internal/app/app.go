// Package app wires configuration, logging, the wizard components and
// the HTTP server into one runnable service with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davidcamilo0710/shift-planner/internal/breaker"
	"github.com/davidcamilo0710/shift-planner/internal/config"
	"github.com/davidcamilo0710/shift-planner/internal/events"
	"github.com/davidcamilo0710/shift-planner/internal/httpapi"
	"github.com/davidcamilo0710/shift-planner/internal/metrics"
	"github.com/davidcamilo0710/shift-planner/internal/orchestrate"
	"github.com/davidcamilo0710/shift-planner/internal/results"
	"github.com/davidcamilo0710/shift-planner/internal/solver"
	"github.com/davidcamilo0710/shift-planner/internal/wizard"
)

// Application holds the wired service instance.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	logFile *os.File
	server  *http.Server
	health  *httpapi.HealthState
	events  *events.Publisher
}

// New prepares a fully wired service from the supplied configuration.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if logPath == "" {
		return nil, errors.New("log file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := newLogger(lf)
	m := metrics.New()
	health := httpapi.NewHealthState()

	publisher := events.New(cfg.KafkaBrokers, cfg.EventsTopic, logger)

	solverClient := solver.New(cfg.SolverBaseURL, solver.Options{
		Timeout: cfg.SolverTimeout,
		Breaker: breaker.Config{
			MaxFailures:  cfg.BreakerMaxFailures,
			ResetTimeout: cfg.BreakerResetTimeout,
			OnStateChange: func(s breaker.State) {
				m.SetBreakerState(int(s))
			},
		},
		Observe: m.ObserveSolverCall,
	}, logger)

	manager := wizard.NewManager(solverClient, solverClient, publisher, logger)
	orch := orchestrate.New(solverClient, cfg.ProgressTick, logger)
	stats := &results.Stats{}
	exporter := results.NewExporter(cfg.ExportDir, logger)

	h := httpapi.NewHandlers(manager, orch, solverClient, stats, exporter, m, logger)
	router := httpapi.NewRouter(logger, h, health, m)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       time.Minute,
	}

	return &Application{
		cfg:     cfg,
		logger:  logger,
		logFile: lf,
		server:  server,
		health:  health,
		events:  publisher,
	}, nil
}

// Logger exposes the configured slog logger so callers such as main
// can emit structured logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Run blocks until the context is cancelled or the HTTP server
// terminates unexpectedly.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		httpCh <- a.server.ListenAndServe()
	}()

	var httpErr error
	for {
		select {
		case err := <-httpCh:
			httpErr = err
			httpCh = nil
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http_server_error", slog.Any("err", err))
			} else {
				a.logger.Info("server_closed")
			}
			cancel()
		case <-ctx.Done():
			a.logger.Info("shutdown_signal")
			a.health.SetReady(false)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("server_shutdown_failed", slog.Any("err", err))
				if httpErr == nil {
					httpErr = fmt.Errorf("shutdown: %w", err)
				}
			}
			shutdownCancel()

			if httpCh != nil {
				if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("server_shutdown_error", slog.Any("err", err))
					if httpErr == nil {
						httpErr = err
					}
				}
			}

			if httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
				return httpErr
			}
			a.logger.Info("shutdown_complete")
			return nil
		}
	}
}

// Close flushes and closes resources owned by the application.
func (a *Application) Close() error {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			return err
		}
		a.events = nil
	}
	if a.logFile == nil {
		return nil
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	a.logFile = nil
	return nil
}
