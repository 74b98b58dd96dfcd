package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/davidcamilo0710/shift-planner/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		ListenAddress:       "127.0.0.1:0",
		LogFilePath:         filepath.Join(dir, "logs", "shift-planner.log"),
		ExportDir:           filepath.Join(dir, "exports"),
		SolverBaseURL:       "http://127.0.0.1:1",
		SolverTimeout:       time.Second,
		HTTPReadTimeout:     time.Second,
		HTTPWriteTimeout:    time.Second,
		ShutdownTimeout:     time.Second,
		ProgressTick:        10 * time.Millisecond,
		BreakerMaxFailures:  3,
		BreakerResetTimeout: time.Second,
	}
}

func TestNewCreatesLogFile(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if a.Logger() == nil {
		t.Fatalf("expected logger")
	}
}

func TestNewRejectsEmptyListenAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.ListenAddress = "  "
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for empty listen address")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
