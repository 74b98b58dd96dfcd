package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

type fakeValidator struct {
	outcome schema.ValidationResponse
	err     error
	calls   int
}

func (f *fakeValidator) Validate(_ context.Context, cfg schema.OptimizationConfig) (schema.ValidationResponse, error) {
	f.calls++
	if f.err != nil {
		return schema.ValidationResponse{}, f.err
	}
	out := f.outcome
	out.TotalPosts = cfg.PostsCount
	out.TotalFijos = cfg.TotalFijos()
	out.TotalComodines = cfg.ComodinesCount
	out.EstimatedShifts = cfg.EstimatedShifts()
	return out, nil
}

type fakeHolidays struct {
	dates []string
	calls int
}

func (f *fakeHolidays) Holidays(_ context.Context, _ int) []string {
	f.calls++
	return f.dates
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(v Validator) *Manager {
	return NewManager(v, &fakeHolidays{dates: []string{"2025-08-07"}}, nil, testLogger())
}

func postsInput(count int) PostsInput {
	return PostsInput{PostsCount: count, Year: 2025, Month: 8}
}

func employeesInput(counts []int, comodines int) EmployeesInput {
	return EmployeesInput{EmployeeCounts: counts, ComodinesCount: comodines}
}

func salariesInput(counts []int, comodines int) SalariesInput {
	post := make([][]float64, len(counts))
	for i, n := range counts {
		post[i] = make([]float64, n)
		for j := range post[i] {
			post[i][j] = 1400000
		}
	}
	com := make([]float64, comodines)
	for i := range com {
		com[i] = 1350000
	}
	return SalariesInput{PostSalaries: post, ComodinesSalaries: com}
}

// runToOptimize drives a fresh session through all three input stages.
func runToOptimize(t *testing.T, m *Manager, posts int) string {
	t.Helper()
	ctx := context.Background()
	snap := m.Create(ctx)

	counts := make([]int, posts)
	for i := range counts {
		counts[i] = 3
	}

	in := postsInput(posts)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput(counts, 2)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}
	sal := salariesInput(counts, 2)
	got, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal})
	if err != nil {
		t.Fatalf("salaries advance failed: %v", err)
	}
	if got.Stage != StageOptimize {
		t.Fatalf("expected optimize stage, got %s", got.Stage)
	}
	return snap.ID
}

func TestFullAdvanceFlow(t *testing.T) {
	v := &fakeValidator{outcome: schema.ValidationResponse{Valid: true}}
	m := newTestManager(v)
	id := runToOptimize(t, m, 3)

	cfg, strategy, sunday, err := m.OptimizePayload(id)
	if err != nil {
		t.Fatalf("OptimizePayload failed: %v", err)
	}
	if cfg.PostsCount != 3 || len(cfg.PostsConfig) != 3 {
		t.Fatalf("unexpected assembled config: %+v", cfg)
	}
	if cfg.TotalEmployees() != 11 {
		t.Fatalf("expected 11 employees, got %d", cfg.TotalEmployees())
	}
	if strategy != schema.StrategyLexicographic || sunday != schema.SundaySmart {
		t.Fatalf("expected default strategies, got %s/%s", strategy, sunday)
	}
	if v.calls != 1 {
		t.Fatalf("expected exactly one validate call, got %d", v.calls)
	}
}

func TestAdvanceRejectsOutOfBoundsPosts(t *testing.T) {
	m := newTestManager(&fakeValidator{outcome: schema.ValidationResponse{Valid: true}})
	ctx := context.Background()
	snap := m.Create(ctx)

	for _, count := range []int{0, 21, -1} {
		in := postsInput(count)
		got, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in})
		var v *ViolationError
		if !errors.As(err, &v) {
			t.Fatalf("posts_count=%d: expected ViolationError, got %v", count, err)
		}
		if got.Stage != StagePosts {
			t.Fatalf("posts_count=%d: expected session to stay on posts, got %s", count, got.Stage)
		}
	}
}

func TestAdvanceRejectsOutOfBoundsEmployees(t *testing.T) {
	m := newTestManager(&fakeValidator{outcome: schema.ValidationResponse{Valid: true}})
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(2)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}

	emp := employeesInput([]int{3, 11}, 0)
	_, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp})
	var v *ViolationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ViolationError, got %v", err)
	}
}

func TestAdvanceRejectsOutOfBoundsSalaries(t *testing.T) {
	m := newTestManager(&fakeValidator{outcome: schema.ValidationResponse{Valid: true}})
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(1)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput([]int{1}, 0)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}

	sal := SalariesInput{PostSalaries: [][]float64{{400000}}}
	got, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal})
	var v *ViolationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ViolationError, got %v", err)
	}
	if got.Stage != StageSalaries {
		t.Fatalf("expected session to stay on salaries, got %s", got.Stage)
	}
}

func TestValidationRejectionBlocksOptimize(t *testing.T) {
	v := &fakeValidator{outcome: schema.ValidationResponse{Valid: false, Errors: []string{"x"}}}
	m := newTestManager(v)
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(1)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput([]int{3}, 0)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}
	sal := salariesInput([]int{3}, 0)
	got, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal})
	if err != nil {
		t.Fatalf("semantic rejection must not be an error: %v", err)
	}
	if got.Stage != StageSalaries {
		t.Fatalf("expected return to salaries, got %s", got.Stage)
	}
	if got.Validation == nil || got.Validation.Valid || len(got.Validation.Errors) != 1 {
		t.Fatalf("expected rejection outcome surfaced, got %+v", got.Validation)
	}

	if _, _, _, err := m.OptimizePayload(snap.ID); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("optimize must be unreachable after rejection, got %v", err)
	}
}

func TestValidationTransportFailureReturnsToSalaries(t *testing.T) {
	v := &fakeValidator{err: errors.New("connection refused")}
	m := newTestManager(v)
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(1)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput([]int{3}, 0)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}
	sal := salariesInput([]int{3}, 0)
	got, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if got.Stage != StageSalaries {
		t.Fatalf("expected return to salaries, got %s", got.Stage)
	}

	// The user retries by resubmitting; a healthy validator now passes.
	v.err = nil
	v.outcome = schema.ValidationResponse{Valid: true}
	got, err = m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got.Stage != StageOptimize {
		t.Fatalf("expected optimize after retry, got %s", got.Stage)
	}
}

func TestBackNavigation(t *testing.T) {
	m := newTestManager(&fakeValidator{outcome: schema.ValidationResponse{Valid: true}})
	ctx := context.Background()
	snap := m.Create(ctx)

	// Back is invalid from Posts.
	if _, err := m.Back(snap.ID); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage from posts, got %v", err)
	}

	in := postsInput(2)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput([]int{3, 3}, 1)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}

	got, err := m.Back(snap.ID)
	if err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if got.Stage != StageEmployees {
		t.Fatalf("expected employees, got %s", got.Stage)
	}
	// Data entered on the stage being left is preserved.
	if got.Employees == nil || got.Employees.ComodinesCount != 1 {
		t.Fatalf("expected employees input preserved, got %+v", got.Employees)
	}

	got, err = m.Back(snap.ID)
	if err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if got.Stage != StagePosts {
		t.Fatalf("expected posts, got %s", got.Stage)
	}
}

func TestStructuralChangeDiscardsDownstream(t *testing.T) {
	v := &fakeValidator{outcome: schema.ValidationResponse{Valid: true}}
	m := newTestManager(v)
	ctx := context.Background()
	id := runToOptimize(t, m, 3)

	// The session sits on Optimize; only Reset can reach Posts again.
	if _, err := m.Back(id); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected back rejected from optimize, got %v", err)
	}
	if _, err := m.Reset(ctx, id); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	in := postsInput(5)
	got, err := m.Advance(ctx, id, AdvanceInput{Posts: &in})
	if err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	if got.Employees != nil || got.Salaries != nil || got.Config != nil {
		t.Fatalf("expected downstream data discarded, got %+v", got)
	}

	counts := []int{3, 3, 3, 3, 3}
	emp := employeesInput(counts, 2)
	if _, err := m.Advance(ctx, id, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}
	sal := salariesInput(counts, 2)
	if _, err := m.Advance(ctx, id, AdvanceInput{Salaries: &sal}); err != nil {
		t.Fatalf("salaries advance failed: %v", err)
	}

	cfg, _, _, err := m.OptimizePayload(id)
	if err != nil {
		t.Fatalf("OptimizePayload failed: %v", err)
	}
	if cfg.PostsCount != 5 || len(cfg.PostsConfig) != 5 {
		t.Fatalf("expected regenerated posts_config sized 5, got %d entries", len(cfg.PostsConfig))
	}
	if cfg.PostsConfig[4].PostID != "P005" {
		t.Fatalf("expected sequential ids after regeneration, got %s", cfg.PostsConfig[4].PostID)
	}
}

func TestBackWithUnchangedCountsPreservesSalaries(t *testing.T) {
	// Semantic rejection keeps the session on Salaries with its data
	// stored, which lets us observe preservation across back/forward.
	v := &fakeValidator{outcome: schema.ValidationResponse{Valid: false, Errors: []string{"x"}}}
	m := newTestManager(v)
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(1)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput([]int{3}, 0)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}
	sal := salariesInput([]int{3}, 0)
	sal.PostSalaries[0][0] = 2000000
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal}); err != nil {
		t.Fatalf("salaries advance failed: %v", err)
	}

	if _, err := m.Back(snap.ID); err != nil {
		t.Fatalf("back failed: %v", err)
	}
	got, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp})
	if err != nil {
		t.Fatalf("employees re-advance failed: %v", err)
	}
	if got.Salaries == nil || got.Salaries.PostSalaries[0][0] != 2000000 {
		t.Fatalf("expected salaries preserved across unchanged structure, got %+v", got.Salaries)
	}

	// A changed comodín count is structural and discards them.
	emp2 := employeesInput([]int{3}, 1)
	got, err = m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp2})
	if err != nil {
		t.Fatalf("employees re-advance failed: %v", err)
	}
	if got.Salaries != nil {
		t.Fatalf("expected salaries discarded after structural change, got %+v", got.Salaries)
	}
}

func TestResetDiscardsEverything(t *testing.T) {
	v := &fakeValidator{outcome: schema.ValidationResponse{Valid: true}}
	m := newTestManager(v)
	ctx := context.Background()
	id := runToOptimize(t, m, 2)

	got, err := m.Reset(ctx, id)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if got.Stage != StagePosts {
		t.Fatalf("expected posts after reset, got %s", got.Stage)
	}
	if got.Posts != nil || got.Employees != nil || got.Salaries != nil || got.Config != nil || got.HasResult {
		t.Fatalf("expected all data discarded, got %+v", got)
	}
}

func TestStoreResultMovesToResults(t *testing.T) {
	v := &fakeValidator{outcome: schema.ValidationResponse{Valid: true}}
	m := newTestManager(v)
	ctx := context.Background()
	id := runToOptimize(t, m, 1)

	resp := schema.OptimizationResponse{Success: true, SolverStatus: schema.SolverOptimal}
	got, err := m.StoreResult(ctx, id, resp)
	if err != nil {
		t.Fatalf("StoreResult failed: %v", err)
	}
	if got.Stage != StageResults || !got.HasResult {
		t.Fatalf("expected results stage with result, got %+v", got)
	}

	stored, err := m.Result(id)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if stored.SolverStatus != schema.SolverOptimal {
		t.Fatalf("unexpected stored result: %+v", stored)
	}
}

func TestUnknownSession(t *testing.T) {
	m := newTestManager(&fakeValidator{})
	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Back("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Advance(context.Background(), "missing", AdvanceInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// blockingHolidays parks the fetch until released so tests can observe
// the manager mid-call.
type blockingHolidays struct {
	started chan struct{}
	release chan struct{}
	dates   []string
}

func (b *blockingHolidays) Holidays(_ context.Context, _ int) []string {
	close(b.started)
	<-b.release
	return b.dates
}

// blockingValidator parks the validation until released.
type blockingValidator struct {
	started chan struct{}
	release chan struct{}
	outcome schema.ValidationResponse
}

func (b *blockingValidator) Validate(_ context.Context, cfg schema.OptimizationConfig) (schema.ValidationResponse, error) {
	close(b.started)
	<-b.release
	out := b.outcome
	out.TotalPosts = cfg.PostsCount
	out.EstimatedShifts = cfg.EstimatedShifts()
	return out, nil
}

func TestHolidayFetchDoesNotBlockOtherSessions(t *testing.T) {
	hs := &blockingHolidays{
		started: make(chan struct{}),
		release: make(chan struct{}),
		dates:   []string{"2025-08-07"},
	}
	m := NewManager(&fakeValidator{outcome: schema.ValidationResponse{Valid: true}}, hs, nil, testLogger())
	ctx := context.Background()
	a := m.Create(ctx)
	b := m.Create(ctx)

	advanced := make(chan error, 1)
	go func() {
		in := postsInput(1)
		_, err := m.Advance(ctx, a.ID, AdvanceInput{Posts: &in})
		advanced <- err
	}()
	<-hs.started

	// Unrelated sessions must stay fully usable during the fetch.
	got := make(chan Snapshot, 1)
	go func() {
		snap, err := m.Get(b.ID)
		if err == nil {
			got <- snap
		}
	}()
	select {
	case snap := <-got:
		if snap.Stage != StagePosts {
			t.Fatalf("unexpected snapshot for unrelated session: %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Get on an unrelated session blocked behind the holiday fetch")
	}

	// The fetching session sits in Generating with navigation disabled.
	snap, err := m.Get(a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Stage != StageGenerating {
		t.Fatalf("expected generating during fetch, got %s", snap.Stage)
	}
	in := postsInput(1)
	if _, err := m.Advance(ctx, a.ID, AdvanceInput{Posts: &in}); !errors.Is(err, ErrGenerating) {
		t.Fatalf("expected ErrGenerating from advance, got %v", err)
	}
	if _, err := m.Back(a.ID); !errors.Is(err, ErrGenerating) {
		t.Fatalf("expected ErrGenerating from back, got %v", err)
	}

	close(hs.release)
	if err := <-advanced; err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	snap, err = m.Get(a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Stage != StageEmployees || len(snap.Holidays) != 1 {
		t.Fatalf("expected employees stage with holidays applied, got %+v", snap)
	}
}

func TestGeneratingGuardDuringValidation(t *testing.T) {
	v := &blockingValidator{
		started: make(chan struct{}),
		release: make(chan struct{}),
		outcome: schema.ValidationResponse{Valid: true},
	}
	m := newTestManager(v)
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(1)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in}); err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	emp := employeesInput([]int{3}, 0)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Employees: &emp}); err != nil {
		t.Fatalf("employees advance failed: %v", err)
	}

	advanced := make(chan error, 1)
	go func() {
		sal := salariesInput([]int{3}, 0)
		_, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal})
		advanced <- err
	}()
	<-v.started

	// Mid-validation the guard rejects every navigation.
	sal := salariesInput([]int{3}, 0)
	if _, err := m.Advance(ctx, snap.ID, AdvanceInput{Salaries: &sal}); !errors.Is(err, ErrGenerating) {
		t.Fatalf("expected ErrGenerating from advance, got %v", err)
	}
	if _, err := m.Back(snap.ID); !errors.Is(err, ErrGenerating) {
		t.Fatalf("expected ErrGenerating from back, got %v", err)
	}
	if _, err := m.Reset(ctx, snap.ID); !errors.Is(err, ErrGenerating) {
		t.Fatalf("expected ErrGenerating from reset, got %v", err)
	}

	close(v.release)
	if err := <-advanced; err != nil {
		t.Fatalf("salaries advance failed: %v", err)
	}
	got, err := m.Get(snap.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Stage != StageOptimize {
		t.Fatalf("expected optimize after release, got %s", got.Stage)
	}
}

func TestHolidaysFetchedOnPeriodChange(t *testing.T) {
	hs := &fakeHolidays{dates: []string{"2025-08-07", "2025-08-15"}}
	m := NewManager(&fakeValidator{outcome: schema.ValidationResponse{Valid: true}}, hs, nil, testLogger())
	ctx := context.Background()
	snap := m.Create(ctx)

	in := postsInput(1)
	got, err := m.Advance(ctx, snap.ID, AdvanceInput{Posts: &in})
	if err != nil {
		t.Fatalf("posts advance failed: %v", err)
	}
	if len(got.Holidays) != 2 {
		t.Fatalf("expected holidays fetched, got %v", got.Holidays)
	}
	if hs.calls != 1 {
		t.Fatalf("expected one holiday fetch, got %d", hs.calls)
	}
}
