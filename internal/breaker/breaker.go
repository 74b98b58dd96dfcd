// Package breaker implements a small circuit breaker used around the
// solver HTTP client. After a run of failures the breaker opens and
// fast-fails callers until a reset timeout elapses; the first call
// after the timeout probes the upstream before letting traffic through
// again.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State enumerates the breaker positions.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrOpen is returned when the breaker refuses an operation without
// attempting it.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config tunes a breaker instance.
type Config struct {
	// MaxFailures is the consecutive-failure count that opens the breaker.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration
	// OnStateChange, when set, is invoked after every state transition.
	// It must not block.
	OnStateChange func(State)
}

// Breaker guards one upstream. Safe for concurrent use.
type Breaker struct {
	name  string
	cfg   Config
	log   *slog.Logger
	probe func(ctx context.Context) error

	mu          sync.Mutex
	state       State
	recentFails int
	openedAt    time.Time
}

// New builds a breaker. The probe is optional; when present it runs
// before the first operation after the reset timeout.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{
		name:  name,
		cfg:   cfg,
		log:   logger.With(slog.String("component", "breaker"), slog.String("name", name)),
		probe: probe,
		state: Closed,
	}
	b.log.Info("breaker_created",
		slog.Int("max_failures", cfg.MaxFailures),
		slog.String("reset_timeout", cfg.ResetTimeout.String()),
	)
	return b
}

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs op through the breaker. While open and inside the reset
// window it returns ErrOpen without calling op.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			b.log.Warn("breaker_fast_fail", slog.String("since_open", time.Since(openedAt).String()))
			return ErrOpen
		}
		return b.probeThenOp(ctx, op)
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	b.onFailure(err)
	return err
}

func (b *Breaker) notify(state State) {
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(state)
	}
}

func (b *Breaker) probeThenOp(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	b.state = HalfOpen
	had := b.recentFails
	b.mu.Unlock()
	b.notify(HalfOpen)
	b.log.Info("breaker_probe_start", slog.Int("previous_failures", had))

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.log.Warn("breaker_probe_failed", slog.Any("err", err))
			b.reopen()
			return ErrOpen
		}
	}

	if err := op(ctx); err != nil {
		b.log.Warn("breaker_halfopen_op_failed", slog.Any("err", err))
		b.reopen()
		return err
	}

	b.mu.Lock()
	b.state = Closed
	b.recentFails = 0
	b.mu.Unlock()
	b.notify(Closed)
	b.log.Info("breaker_closed_after_probe")
	return nil
}

func (b *Breaker) reopen() {
	b.mu.Lock()
	b.state = Open
	b.openedAt = time.Now()
	b.recentFails++
	b.mu.Unlock()
	b.notify(Open)
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	changed := b.recentFails != 0 || b.state != Closed
	b.state = Closed
	b.recentFails = 0
	b.mu.Unlock()
	if changed {
		b.notify(Closed)
		b.log.Info("breaker_reset")
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	b.recentFails++
	fails := b.recentFails
	opened := false
	if b.state == Closed && fails >= b.cfg.MaxFailures {
		b.state = Open
		b.openedAt = time.Now()
		opened = true
	}
	b.mu.Unlock()

	if opened {
		b.notify(Open)
		b.log.Warn("breaker_opened", slog.Int("failures", fails), slog.Any("err", err))
	}
}
