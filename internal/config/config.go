// Package config resolves runtime settings for the wizard service by
// layering compiled defaults, an optional properties file, and finally
// environment variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime settings. The solver base URL is the
// only external configuration point the wizard core depends on; the
// rest is operational plumbing.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the path to the service log file.
	LogFilePath string
	// ExportDir is where result artifacts are written.
	ExportDir string
	// SolverBaseURL is the base path of the external solving service.
	SolverBaseURL string
	// SolverTimeout bounds each solver call, optimize included.
	SolverTimeout time.Duration
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// ProgressTick is the cadence of the simulated progress indicator.
	ProgressTick time.Duration
	// BreakerMaxFailures opens the solver circuit breaker.
	BreakerMaxFailures int
	// BreakerResetTimeout is how long the breaker stays open.
	BreakerResetTimeout time.Duration
	// KafkaBrokers lists bootstrap brokers for lifecycle events; empty
	// disables publication.
	KafkaBrokers []string
	// EventsTopic is the Kafka topic carrying wizard lifecycle events.
	EventsTopic string
	// PropertiesPath records the path used to load property values.
	PropertiesPath string
}

const (
	defaultListenAddress = ":8090"
	defaultLogFile       = "logs/shift-planner.log"
	defaultExportDir     = "exports"
	defaultSolverBase    = "http://solver:8001"
	defaultSolverTimeout = 5 * time.Minute
	defaultReadTimeout   = 10 * time.Second
	defaultWriteTimeout  = 6 * time.Minute
	defaultShutdown      = 5 * time.Second
	defaultProgressTick  = 400 * time.Millisecond
	defaultBreakerFails  = 3
	defaultBreakerReset  = 30 * time.Second
	defaultEventsTopic   = "wizard.lifecycle"
	defaultPropsPath     = "shift-planner.properties"
)

// Load resolves configuration by layering defaults, an optional
// properties file, and environment variables. The properties file
// location can be overridden with SHIFTPLANNER_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := Config{
		ListenAddress:       defaultListenAddress,
		LogFilePath:         filepath.Clean(defaultLogFile),
		ExportDir:           defaultExportDir,
		SolverBaseURL:       defaultSolverBase,
		SolverTimeout:       defaultSolverTimeout,
		HTTPReadTimeout:     defaultReadTimeout,
		HTTPWriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout:     defaultShutdown,
		ProgressTick:        defaultProgressTick,
		BreakerMaxFailures:  defaultBreakerFails,
		BreakerResetTimeout: defaultBreakerReset,
		EventsTopic:         defaultEventsTopic,
	}

	propsPath := strings.TrimSpace(os.Getenv("SHIFTPLANNER_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		// Close errors are ignored; loading has already completed and
		// no logger exists at this stage of initialization.
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "log_path":
		if value == "" {
			return errors.New("log_path cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(value)
	case "export_dir":
		if value == "" {
			return errors.New("export_dir cannot be empty")
		}
		cfg.ExportDir = filepath.Clean(value)
	case "solver_base_url":
		if value == "" {
			return errors.New("solver_base_url cannot be empty")
		}
		cfg.SolverBaseURL = value
	case "solver_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.SolverTimeout = d
	case "http_read_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPReadTimeout = d
	case "http_write_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPWriteTimeout = d
	case "shutdown_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = d
	case "progress_tick_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ProgressTick = d
	case "breaker_max_failures":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid breaker_max_failures: %w", err)
		}
		if n <= 0 {
			return errors.New("breaker_max_failures must be positive")
		}
		cfg.BreakerMaxFailures = n
	case "breaker_reset_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.BreakerResetTimeout = d
	case "kafka_brokers":
		cfg.KafkaBrokers = splitAndTrim(value)
	case "events_topic":
		if value == "" {
			return errors.New("events_topic cannot be empty")
		}
		cfg.EventsTopic = value
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_LISTEN_ADDRESS"); ok {
		if v == "" {
			return errors.New("SHIFTPLANNER_LISTEN_ADDRESS cannot be empty")
		}
		cfg.ListenAddress = v
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_LOG_PATH"); ok {
		if v == "" {
			return errors.New("SHIFTPLANNER_LOG_PATH cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_EXPORT_DIR"); ok {
		if v == "" {
			return errors.New("SHIFTPLANNER_EXPORT_DIR cannot be empty")
		}
		cfg.ExportDir = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_SOLVER_BASE_URL"); ok {
		if v == "" {
			return errors.New("SHIFTPLANNER_SOLVER_BASE_URL cannot be empty")
		}
		cfg.SolverBaseURL = v
	} else if v, ok := lookupEnvTrimmed("SOLVER_BASE_URL"); ok && v != "" {
		cfg.SolverBaseURL = v
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_SOLVER_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_SOLVER_TIMEOUT_MS: %w", err)
		}
		cfg.SolverTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_HTTP_READ_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_HTTP_READ_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPReadTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_HTTP_WRITE_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_HTTP_WRITE_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPWriteTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_SHUTDOWN_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_SHUTDOWN_TIMEOUT_MS: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_PROGRESS_TICK_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_PROGRESS_TICK_MS: %w", err)
		}
		cfg.ProgressTick = d
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_BREAKER_MAX_FAILURES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_BREAKER_MAX_FAILURES: %w", err)
		}
		if n <= 0 {
			return errors.New("SHIFTPLANNER_BREAKER_MAX_FAILURES must be positive")
		}
		cfg.BreakerMaxFailures = n
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_BREAKER_RESET_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHIFTPLANNER_BREAKER_RESET_TIMEOUT_MS: %w", err)
		}
		cfg.BreakerResetTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitAndTrim(v)
	} else if v, ok := lookupEnvTrimmed("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitAndTrim(v)
	}
	if v, ok := lookupEnvTrimmed("SHIFTPLANNER_EVENTS_TOPIC"); ok {
		if v == "" {
			return errors.New("SHIFTPLANNER_EVENTS_TOPIC cannot be empty")
		}
		cfg.EventsTopic = v
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
