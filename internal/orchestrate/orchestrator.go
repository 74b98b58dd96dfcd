// Package orchestrate submits finished configurations to the solver
// and manages the run lifecycle: the single-flight gate, the simulated
// progress indicator, and outcome classification.
package orchestrate

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

// ErrInFlight is returned when an optimization is already running.
// There is no queue; callers resubmit manually.
var ErrInFlight = errors.New("an optimization is already in flight")

// Optimizer is the remote solve call, satisfied by the solver client.
type Optimizer interface {
	Optimize(ctx context.Context, req schema.OptimizationRequest) (schema.OptimizationResponse, error)
}

// Progress is the externally visible indicator state. The percentage
// is simulated for perceived responsiveness and carries no information
// about true solver progress.
type Progress struct {
	Active    bool   `json:"active"`
	SessionID string `json:"session_id,omitempty"`
	Percent   int    `json:"percent"`
}

// Orchestrator drives optimize runs. Safe for concurrent use; at most
// one run is admitted at a time.
type Orchestrator struct {
	client Optimizer
	log    *slog.Logger

	tick    time.Duration
	maxStep int

	mu          sync.Mutex
	optimizing  bool
	progressPct int
	sessionID   string
	stopTicker  chan struct{}
}

// New builds an orchestrator. tick is the progress cadence; zero means
// 400ms.
func New(client Optimizer, tick time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if tick <= 0 {
		tick = 400 * time.Millisecond
	}
	return &Orchestrator{
		client:  client,
		log:     logger.With(slog.String("component", "orchestrator")),
		tick:    tick,
		maxStep: 8,
	}
}

// IsOptimizing reports whether a run is in flight.
func (o *Orchestrator) IsOptimizing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.optimizing
}

// Progress returns the current indicator snapshot.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Progress{Active: o.optimizing, SessionID: o.sessionID, Percent: o.progressPct}
}

// Run submits the configuration to the solver and blocks until the
// response arrives. A second call while one is pending returns
// ErrInFlight. A transport failure returns an error; a soft failure
// (success:false body) returns the response with a nil error. The
// in-flight flag and the progress ticker are released on every path.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, cfg schema.OptimizationConfig, strategy, sundayStrategy string, seed int) (schema.OptimizationResponse, error) {
	if seed == 0 {
		seed = schema.DefaultSeed
	}

	o.mu.Lock()
	if o.optimizing {
		o.mu.Unlock()
		return schema.OptimizationResponse{}, ErrInFlight
	}
	o.optimizing = true
	o.sessionID = sessionID
	o.progressPct = 0
	stop := make(chan struct{})
	o.stopTicker = stop
	o.mu.Unlock()

	go o.simulateProgress(stop)

	// Guaranteed release: the gate and the ticker are cleared no matter
	// how the remote call ends. Completion is visible as the indicator
	// going idle, not as a terminal 100%.
	defer func() {
		close(stop)
		o.mu.Lock()
		o.optimizing = false
		o.sessionID = ""
		o.progressPct = 0
		o.stopTicker = nil
		o.mu.Unlock()
	}()

	o.log.Info("optimize_started",
		slog.String("session_id", sessionID),
		slog.String("strategy", strategy),
		slog.String("sunday_strategy", sundayStrategy),
		slog.Int("seed", seed),
		slog.Int("posts_count", cfg.PostsCount),
	)

	resp, err := o.client.Optimize(ctx, schema.OptimizationRequest{
		Config:         cfg,
		Strategy:       strategy,
		SundayStrategy: sundayStrategy,
		Seed:           seed,
	})
	if err != nil {
		o.log.Error("optimize_transport_failed", slog.String("session_id", sessionID), slog.Any("err", err))
		return schema.OptimizationResponse{}, err
	}

	if !resp.Success {
		o.log.Warn("optimize_rejected",
			slog.String("session_id", sessionID),
			slog.String("solver_status", resp.SolverStatus),
			slog.String("message", resp.Message),
		)
		return resp, nil
	}

	o.log.Info("optimize_completed",
		slog.String("session_id", sessionID),
		slog.String("solver_status", resp.SolverStatus),
		slog.Float64("solve_time", resp.SolveTime),
		slog.Int("total_shifts", resp.TotalShifts),
	)
	return resp, nil
}

// simulateProgress advances the displayed percentage by a bounded
// random step each tick, capped at 90 until the response arrives.
func (o *Orchestrator) simulateProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			step := rand.Intn(o.maxStep) + 2
			o.progressPct += step
			if o.progressPct > 90 {
				o.progressPct = 90
			}
			o.mu.Unlock()
		}
	}
}
