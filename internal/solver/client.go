// Package solver is the HTTP client for the external shift-optimization
// service. It normalizes transport failures (network errors, non-2xx
// statuses, breaker fast-fails) into Go errors and leaves semantic
// outcomes (valid:false, success:false) to the caller.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/davidcamilo0710/shift-planner/internal/breaker"
	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

// doer abstracts the breaker-wrapped HTTP client for tests.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one solver deployment.
type Client struct {
	base    string
	h       doer
	log     *slog.Logger
	observe func(endpoint string, d time.Duration)
}

// Options tunes client construction.
type Options struct {
	// Timeout bounds each solver call. Optimize runs can take a while,
	// so this should be generous; zero means 5 minutes.
	Timeout time.Duration
	// Breaker configures the circuit breaker around the transport.
	Breaker breaker.Config
	// Observe, when set, receives the duration of every solver round
	// trip keyed by the logical endpoint.
	Observe func(endpoint string, d time.Duration)
}

// New builds a client for the solver at baseURL. Health at the base
// path serves as the breaker probe.
func New(baseURL string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	base := strings.TrimRight(baseURL, "/")
	hc := &http.Client{Timeout: timeout}
	return &Client{
		base:    base,
		h:       breaker.NewHTTP("solver", opts.Breaker, logger, base+"/health", hc),
		log:     logger.With(slog.String("component", "solver_client")),
		observe: opts.Observe,
	}
}

// Validate submits the assembled configuration for advisory validation.
// A transport failure returns an error; a semantic valid:false comes
// back as a normal outcome.
func (c *Client) Validate(ctx context.Context, cfg schema.OptimizationConfig) (schema.ValidationResponse, error) {
	var out schema.ValidationResponse
	if err := c.postJSON(ctx, "/config/validate", cfg, &out); err != nil {
		return schema.ValidationResponse{}, err
	}
	c.log.Info("config_validated",
		slog.Bool("valid", out.Valid),
		slog.Int("errors", len(out.Errors)),
		slog.Int("warnings", len(out.Warnings)),
		slog.Int("estimated_shifts", out.EstimatedShifts),
	)
	return out, nil
}

// Optimize runs the solver. The response body is returned as-is,
// including soft failures (success:false); only transport problems
// become errors.
func (c *Client) Optimize(ctx context.Context, req schema.OptimizationRequest) (schema.OptimizationResponse, error) {
	var out schema.OptimizationResponse
	if err := c.postJSON(ctx, "/optimize", req, &out); err != nil {
		return schema.OptimizationResponse{}, err
	}
	c.log.Info("optimize_response",
		slog.Bool("success", out.Success),
		slog.String("solver_status", out.SolverStatus),
		slog.Float64("solve_time", out.SolveTime),
	)
	return out, nil
}

// Strategies fetches the strategy catalog.
func (c *Client) Strategies(ctx context.Context) (schema.StrategiesResponse, error) {
	var out schema.StrategiesResponse
	if err := c.getJSON(ctx, "/strategies", &out); err != nil {
		return schema.StrategiesResponse{}, err
	}
	return out, nil
}

// Holidays fetches the holiday calendar for a year. Failures are
// non-fatal by contract: the caller gets an empty list and the error
// is logged here, not propagated.
func (c *Client) Holidays(ctx context.Context, year int) []string {
	var out schema.HolidaysResponse
	if err := c.getJSONLabeled(ctx, fmt.Sprintf("/holidays/%d", year), "/holidays", &out); err != nil {
		c.log.Warn("holiday_fetch_failed", slog.Int("year", year), slog.Any("err", err))
		return nil
	}
	return out.Holidays
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.getJSONLabeled(ctx, path, path, out)
}

// getJSONLabeled lets parameterized paths report under a fixed endpoint
// label so duration metrics keep bounded cardinality.
func (c *Client) getJSONLabeled(ctx context.Context, path, label string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, label, out)
}

func (c *Client) do(req *http.Request, label string, out any) error {
	start := time.Now()
	resp, err := c.h.Do(req)
	if c.observe != nil {
		c.observe(label, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("solver %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("solver %s: %s", req.URL.Path, errorDetail(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode solver response: %w", err)
	}
	return nil
}

// errorDetail extracts the solver's error payload {"detail": "..."}
// from a non-2xx response, falling back to a generic status message.
func errorDetail(resp *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(b) > 0 {
		var body struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(b, &body) == nil && body.Detail != "" {
			return fmt.Sprintf("http %d: %s", resp.StatusCode, body.Detail)
		}
	}
	return fmt.Sprintf("http %d", resp.StatusCode)
}
