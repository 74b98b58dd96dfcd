// Package results post-processes successful optimization responses:
// per-employee ranking, session-level success statistics, and export
// of the full result as a downloadable artifact.
package results

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

// DefaultTopN is how many employees the ranked view returns unless the
// caller asks otherwise.
const DefaultTopN = 10

// RankTopEmployees sorts employee metrics by total_employee descending
// and returns the top n. Ties keep map iteration order, which the
// solver leaves unspecified; equal totals may therefore order
// differently across calls. Accepted non-determinism, not a bug.
func RankTopEmployees(metrics map[string]schema.EmployeeMetrics, n int) []schema.EmployeeMetrics {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := make([]schema.EmployeeMetrics, 0, len(metrics))
	for _, m := range metrics {
		ranked = append(ranked, m)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalEmployee > ranked[j].TotalEmployee
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// StatsSnapshot is the externally visible counter state. Total always
// equals Successful+Failed.
type StatsSnapshot struct {
	Successful  int `json:"successful"`
	Failed      int `json:"failed"`
	Total       int `json:"total"`
	SuccessRate int `json:"success_rate"`
}

// Stats tracks optimization attempts for the lifetime of the process.
// Safe for concurrent use.
type Stats struct {
	mu         sync.Mutex
	successful int
	failed     int
}

// RecordSuccess counts one successful attempt.
func (s *Stats) RecordSuccess() {
	s.mu.Lock()
	s.successful++
	s.mu.Unlock()
}

// RecordFailure counts one failed attempt (soft or hard).
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

// Snapshot returns the current counters and derived rate.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.successful + s.failed
	return StatsSnapshot{
		Successful:  s.successful,
		Failed:      s.failed,
		Total:       total,
		SuccessRate: successRate(s.successful, total),
	}
}

// successRate is round(100*successful/total), or 0 for an empty
// session.
func successRate(successful, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(successful) / float64(total)))
}

// Exporter serializes full optimization results into dated JSON
// artifacts under a configured directory.
type Exporter struct {
	dir string
	log *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewExporter builds an exporter writing into dir, creating it on
// first use.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		dir: dir,
		log: logger.With(slog.String("component", "exporter")),
		now: time.Now,
	}
}

// Export writes the full result (not a top-N view) to a dated file and
// returns its path.
func (e *Exporter) Export(result schema.OptimizationResponse) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	name := fmt.Sprintf("shift_planner_result_%s_%s.json",
		e.now().UTC().Format("2006-01-02"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(e.dir, name)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	e.log.Info("result_exported",
		slog.String("path", path),
		slog.Int("bytes", len(payload)),
	)
	return path, nil
}

// Write streams the serialized result to w, for direct download
// responses.
func (e *Exporter) Write(w io.Writer, result schema.OptimizationResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
