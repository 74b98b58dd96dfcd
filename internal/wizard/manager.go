package wizard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

// Validator is the advisory validation gate, satisfied by the solver
// client.
type Validator interface {
	Validate(ctx context.Context, cfg schema.OptimizationConfig) (schema.ValidationResponse, error)
}

// HolidaySource fetches the holiday calendar for a year. Failure is
// non-fatal by contract, so the interface returns no error.
type HolidaySource interface {
	Holidays(ctx context.Context, year int) []string
}

// EventSink receives wizard lifecycle events. Implementations must not
// block; a nil sink disables publication.
type EventSink interface {
	Emit(ctx context.Context, event, sessionID string)
}

// Manager owns all live wizard sessions. One lock guards the session
// map and every session's fields; remote calls are made with the lock
// released and their outcome applied afterwards, with the Generating
// stage acting as the navigation guard in between.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	validator Validator
	holidays  HolidaySource
	events    EventSink
	log       *slog.Logger
}

// NewManager wires a session manager. validator must be non-nil;
// holidays and events may be nil.
func NewManager(validator Validator, holidays HolidaySource, events EventSink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sessions:  make(map[string]*Session),
		validator: validator,
		holidays:  holidays,
		events:    events,
		log:       logger.With(slog.String("component", "wizard")),
	}
	return m
}

func (m *Manager) lock()   { m.mu.Lock() }
func (m *Manager) unlock() { m.mu.Unlock() }

func (m *Manager) emit(ctx context.Context, event, sessionID string) {
	if m.events != nil {
		m.events.Emit(ctx, event, sessionID)
	}
}

// Create starts a new wizard run at the Posts stage.
func (m *Manager) Create(ctx context.Context) Snapshot {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Stage:     StagePosts,
	}
	m.lock()
	m.sessions[s.ID] = s
	snap := s.snapshot()
	m.unlock()

	m.log.Info("session_created", slog.String("session_id", s.ID))
	m.emit(ctx, "session_created", s.ID)
	return snap
}

// Get returns the session snapshot.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.lock()
	defer m.unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s.snapshot(), nil
}

// AdvanceInput wraps the stage payloads; exactly the block matching
// the session's current stage must be present.
type AdvanceInput struct {
	Posts     *PostsInput     `json:"posts,omitempty"`
	Employees *EmployeesInput `json:"employees,omitempty"`
	Salaries  *SalariesInput  `json:"salaries,omitempty"`
}

// Advance submits the current stage's input and moves the session
// forward. Stage-local violations leave the session where it is and
// return a *ViolationError. Completing Salaries triggers assembly and
// the remote validation gate; a transport failure or a valid:false
// outcome both return the session to Salaries, the latter without an
// error so callers can surface the problem list.
func (m *Manager) Advance(ctx context.Context, id string, in AdvanceInput) (Snapshot, error) {
	m.lock()
	s, ok := m.sessions[id]
	if !ok {
		m.unlock()
		return Snapshot{}, ErrNotFound
	}

	switch s.Stage {
	case StagePosts:
		// advancePosts manages the lock itself around the holiday fetch.
		return m.advancePosts(ctx, s, in.Posts)
	case StageEmployees:
		snap, err := m.advanceEmployees(s, in.Employees)
		m.unlock()
		return snap, err
	case StageSalaries:
		// advanceSalaries manages the lock itself around the remote call.
		return m.advanceSalaries(ctx, s, in.Salaries)
	case StageGenerating:
		m.unlock()
		return Snapshot{}, ErrGenerating
	default:
		m.unlock()
		return Snapshot{}, ErrInvalidStage
	}
}

// advancePosts is entered with the lock held and returns with it
// released. A period change needs the holiday calendar, a remote fetch;
// the session parks in Generating while the lock is released around it
// so every other session and endpoint stays responsive.
func (m *Manager) advancePosts(ctx context.Context, s *Session, in *PostsInput) (Snapshot, error) {
	if in == nil {
		snap := s.snapshot()
		m.unlock()
		return snap, &ViolationError{Violations: []string{"posts input required"}}
	}
	if err := validatePosts(*in); err != nil {
		snap := s.snapshot()
		m.unlock()
		return snap, err
	}

	// Changing the post count invalidates everything built on top of
	// the old structure. Same count keeps downstream data intact.
	structuralChange := s.Posts == nil || s.Posts.PostsCount != in.PostsCount
	periodChange := s.Posts == nil || s.Posts.Year != in.Year || s.Posts.Month != in.Month
	s.Posts = in
	if structuralChange {
		s.Employees = nil
		s.Salaries = nil
		s.Config = nil
		s.Validation = nil
		s.Result = nil
	}

	if periodChange && m.holidays != nil {
		s.Stage = StageGenerating
		m.unlock()
		holidays := m.holidays.Holidays(ctx, in.Year)
		m.lock()
		s.Holidays = holidays
	}
	s.Stage = StageEmployees
	snap := s.snapshot()
	m.unlock()

	m.log.Info("stage_advanced",
		slog.String("session_id", s.ID),
		slog.String("stage", string(StageEmployees)),
		slog.Int("posts_count", in.PostsCount),
		slog.Bool("structural_change", structuralChange),
	)
	m.emit(ctx, "stage_advanced", s.ID)
	return snap, nil
}

func (m *Manager) advanceEmployees(s *Session, in *EmployeesInput) (Snapshot, error) {
	if in == nil {
		return s.snapshot(), &ViolationError{Violations: []string{"employees input required"}}
	}
	if err := validateEmployees(*in, s.Posts.PostsCount); err != nil {
		return s.snapshot(), err
	}

	if s.Employees == nil || !equalCounts(s.Employees.EmployeeCounts, in.EmployeeCounts) || s.Employees.ComodinesCount != in.ComodinesCount {
		// Structural change: previously entered salaries no longer line
		// up with the new headcounts and are discarded.
		s.Salaries = nil
		s.Config = nil
		s.Validation = nil
		s.Result = nil
	}
	s.Employees = in
	s.Stage = StageSalaries

	m.log.Info("stage_advanced",
		slog.String("session_id", s.ID),
		slog.String("stage", string(s.Stage)),
		slog.Int("comodines_count", in.ComodinesCount),
	)
	return s.snapshot(), nil
}

// advanceSalaries is entered with the lock held and returns with it
// released. The session sits in Generating while the remote validation
// runs, which rejects any concurrent navigation.
func (m *Manager) advanceSalaries(ctx context.Context, s *Session, in *SalariesInput) (Snapshot, error) {
	if in == nil {
		m.unlock()
		return s.snapshot(), &ViolationError{Violations: []string{"salaries input required"}}
	}
	if err := validateSalaries(*in, s.Employees.EmployeeCounts, s.Employees.ComodinesCount); err != nil {
		snap := s.snapshot()
		m.unlock()
		return snap, err
	}

	s.Salaries = in
	s.Stage = StageGenerating
	cfg := s.assembleConfig()
	m.unlock()

	m.log.Info("config_assembled",
		slog.String("session_id", s.ID),
		slog.Int("posts_count", cfg.PostsCount),
		slog.Int("total_employees", cfg.TotalEmployees()),
	)

	outcome, err := m.validator.Validate(ctx, cfg)

	m.lock()
	defer m.unlock()
	if err != nil {
		// Transport failure: abort the gate and return to Salaries so
		// the user can retry by resubmitting.
		s.Stage = StageSalaries
		m.log.Error("validation_transport_failed", slog.String("session_id", s.ID), slog.Any("err", err))
		return s.snapshot(), err
	}

	s.Validation = &outcome
	if !outcome.Valid {
		s.Stage = StageSalaries
		m.log.Warn("validation_rejected",
			slog.String("session_id", s.ID),
			slog.Int("errors", len(outcome.Errors)),
		)
		m.emit(ctx, "validation_rejected", s.ID)
		return s.snapshot(), nil
	}

	s.Config = &cfg
	s.Stage = StageOptimize
	m.log.Info("stage_advanced",
		slog.String("session_id", s.ID),
		slog.String("stage", string(s.Stage)),
		slog.Int("estimated_shifts", outcome.EstimatedShifts),
	)
	m.emit(ctx, "config_validated", s.ID)
	return s.snapshot(), nil
}

// Back moves to the immediately preceding stage. Only Employees and
// Salaries permit it; data entered on the stage being left stays in
// memory.
func (m *Manager) Back(id string) (Snapshot, error) {
	m.lock()
	defer m.unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	switch s.Stage {
	case StageEmployees:
		s.Stage = StagePosts
	case StageSalaries:
		s.Stage = StageEmployees
	case StageGenerating:
		return Snapshot{}, ErrGenerating
	default:
		return Snapshot{}, ErrInvalidStage
	}
	m.log.Info("stage_back", slog.String("session_id", s.ID), slog.String("stage", string(s.Stage)))
	return s.snapshot(), nil
}

// Reset starts a fresh run in the same session: back to Posts with all
// accumulated stage data discarded.
func (m *Manager) Reset(ctx context.Context, id string) (Snapshot, error) {
	m.lock()
	defer m.unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if s.Stage == StageGenerating {
		return Snapshot{}, ErrGenerating
	}
	s.Stage = StagePosts
	s.Posts = nil
	s.Employees = nil
	s.Salaries = nil
	s.Holidays = nil
	s.Config = nil
	s.Validation = nil
	s.Result = nil

	m.log.Info("session_reset", slog.String("session_id", s.ID))
	m.emit(ctx, "session_reset", s.ID)
	return s.snapshot(), nil
}

// OptimizePayload returns what the orchestrator needs for a run. The
// session must sit on the Optimize stage.
func (m *Manager) OptimizePayload(id string) (schema.OptimizationConfig, string, string, error) {
	m.lock()
	defer m.unlock()
	s, ok := m.sessions[id]
	if !ok {
		return schema.OptimizationConfig{}, "", "", ErrNotFound
	}
	if s.Stage != StageOptimize || s.Config == nil {
		return schema.OptimizationConfig{}, "", "", ErrInvalidStage
	}
	strategy := s.Posts.Strategy
	if strategy == "" {
		strategy = schema.StrategyLexicographic
	}
	sunday := s.Posts.SundayStrategy
	if sunday == "" {
		sunday = schema.SundaySmart
	}
	return *s.Config, strategy, sunday, nil
}

// StoreResult records a successful optimization and moves the session
// to Results. Failed attempts leave the session on Optimize for manual
// resubmission, so callers only invoke this on success.
func (m *Manager) StoreResult(ctx context.Context, id string, resp schema.OptimizationResponse) (Snapshot, error) {
	m.lock()
	defer m.unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if s.Stage != StageOptimize {
		return Snapshot{}, ErrInvalidStage
	}
	s.Result = &resp
	s.Stage = StageResults

	m.log.Info("session_completed",
		slog.String("session_id", s.ID),
		slog.String("solver_status", resp.SolverStatus),
		slog.Float64("solve_time", resp.SolveTime),
	)
	m.emit(ctx, "session_completed", s.ID)
	return s.snapshot(), nil
}

// Result returns the stored optimization result for a session.
func (m *Manager) Result(id string) (schema.OptimizationResponse, error) {
	m.lock()
	defer m.unlock()
	s, ok := m.sessions[id]
	if !ok {
		return schema.OptimizationResponse{}, ErrNotFound
	}
	if s.Result == nil {
		return schema.OptimizationResponse{}, ErrInvalidStage
	}
	return *s.Result, nil
}

func equalCounts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
