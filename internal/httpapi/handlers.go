package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/davidcamilo0710/shift-planner/internal/metrics"
	"github.com/davidcamilo0710/shift-planner/internal/orchestrate"
	"github.com/davidcamilo0710/shift-planner/internal/results"
	"github.com/davidcamilo0710/shift-planner/internal/schema"
	"github.com/davidcamilo0710/shift-planner/internal/wizard"
)

// StrategySource is the strategy catalog pass-through, satisfied by
// the solver client.
type StrategySource interface {
	Strategies(ctx context.Context) (schema.StrategiesResponse, error)
}

// Handlers bundles the components behind the HTTP surface.
type Handlers struct {
	wizard     *wizard.Manager
	orch       *orchestrate.Orchestrator
	strategies StrategySource
	stats      *results.Stats
	exporter   *results.Exporter
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(w *wizard.Manager, o *orchestrate.Orchestrator, s StrategySource, st *results.Stats, e *results.Exporter, m *metrics.Metrics, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		wizard:     w,
		orch:       o,
		strategies: s,
		stats:      st,
		exporter:   e,
		metrics:    m,
		log:        logger.With(slog.String("component", "httpapi")),
	}
}

type errorBody struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeWizardError maps wizard errors onto HTTP statuses: stage-local
// violations are 422, unknown sessions 404, wrong-stage or busy
// operations 409, and anything else (solver transport) 502.
func writeWizardError(w http.ResponseWriter, err error) {
	var violation *wizard.ViolationError
	switch {
	case errors.As(err, &violation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:      "stage input rejected",
			Violations: violation.Violations,
		})
	case errors.Is(err, wizard.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, wizard.ErrGenerating):
		writeError(w, http.StatusConflict, "session is generating; retry shortly")
	case errors.Is(err, wizard.ErrInvalidStage):
		writeError(w, http.StatusConflict, "operation not valid for current stage")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// CreateSession starts a new wizard run.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	snap := h.wizard.Create(r.Context())
	if h.metrics != nil {
		h.metrics.SessionCreated()
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession returns the session snapshot.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Get(mux.Vars(r)["id"])
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Advance submits the current stage's input. A semantic validation
// rejection comes back as 200 with the outcome embedded in the
// snapshot; the session has already been returned to Salaries.
func (h *Handlers) Advance(w http.ResponseWriter, r *http.Request) {
	var in wizard.AdvanceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	snap, err := h.wizard.Advance(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Back returns to the preceding stage.
func (h *Handlers) Back(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Back(mux.Vars(r)["id"])
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Reset starts a fresh run in the same session.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.wizard.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type optimizeRequest struct {
	Seed int `json:"seed"`
}

// Optimize runs the solver for a session sitting on the Optimize
// stage. Hard failures are 502, soft failures 200 with success:false;
// both leave the session on Optimize for manual resubmission.
func (h *Handlers) Optimize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// An empty body means default seed; only malformed JSON is an error.
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	cfg, strategy, sunday, err := h.wizard.OptimizePayload(id)
	if err != nil {
		writeWizardError(w, err)
		return
	}

	resp, err := h.orch.Run(r.Context(), id, cfg, strategy, sunday, req.Seed)
	switch {
	case errors.Is(err, orchestrate.ErrInFlight):
		writeError(w, http.StatusConflict, "an optimization is already in flight")
		return
	case err != nil:
		h.stats.RecordFailure()
		h.observeOutcome("hard_failure")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case !resp.Success:
		h.stats.RecordFailure()
		h.observeOutcome("soft_failure")
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if _, err := h.wizard.StoreResult(r.Context(), id, resp); err != nil {
		writeWizardError(w, err)
		return
	}
	h.stats.RecordSuccess()
	h.observeOutcome("success")
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) observeOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.OptimizeOutcome(outcome)
	}
}

// ProgressSnapshot serves the simulated progress indicator.
func (h *Handlers) ProgressSnapshot(w http.ResponseWriter, r *http.Request) {
	p := h.orch.Progress()
	if p.SessionID != "" && p.SessionID != mux.Vars(r)["id"] {
		// A different session's run is in flight; this one shows idle.
		p = orchestrate.Progress{}
	}
	writeJSON(w, http.StatusOK, p)
}

type resultView struct {
	Result       schema.OptimizationResponse `json:"result"`
	TopEmployees []schema.EmployeeMetrics    `json:"top_employees"`
}

// Result returns the stored result plus the ranked top-employee view.
func (h *Handlers) Result(w http.ResponseWriter, r *http.Request) {
	res, err := h.wizard.Result(mux.Vars(r)["id"])
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultView{
		Result:       res,
		TopEmployees: results.RankTopEmployees(res.EmployeeMetrics, results.DefaultTopN),
	})
}

// Export persists the full result artifact and streams it back as a
// download.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	res, err := h.wizard.Result(mux.Vars(r)["id"])
	if err != nil {
		writeWizardError(w, err)
		return
	}
	path, err := h.exporter.Export(res)
	if err != nil {
		h.log.Error("export_failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	if err := h.exporter.Write(w, res); err != nil {
		h.log.Error("export_stream_failed", slog.Any("err", err))
	}
}

// Strategies proxies the solver's strategy catalog.
func (h *Handlers) Strategies(w http.ResponseWriter, r *http.Request) {
	cat, err := h.strategies.Strategies(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// Stats serves the session-level success counters.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}
