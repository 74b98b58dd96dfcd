// Package wizard drives the staged configuration flow: posts, per-post
// employee counts, per-employee salaries, assembly plus advisory
// validation, optimization, results. Each wizard run is one Session
// owned by the Manager; all cross-stage state lives there and nowhere
// else.
package wizard

import "errors"

// Stage identifies where a session currently sits. Values appear on
// the wire, so they are lowercase strings rather than opaque ints.
type Stage string

const (
	StagePosts      Stage = "posts"
	StageEmployees  Stage = "employees"
	StageSalaries   Stage = "salaries"
	StageGenerating Stage = "generating"
	StageOptimize   Stage = "optimize"
	StageResults    Stage = "results"
)

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	switch s {
	case StagePosts, StageEmployees, StageSalaries, StageGenerating, StageOptimize, StageResults:
		return true
	}
	return false
}

var (
	// ErrNotFound means the session id is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidStage means the requested operation does not apply to
	// the session's current stage.
	ErrInvalidStage = errors.New("operation not valid for current stage")
	// ErrGenerating means the session is mid-assembly/validation and
	// navigation is disabled until that completes.
	ErrGenerating = errors.New("session is generating; navigation disabled")
)

// ViolationError carries stage-local constraint violations. These are
// rejected synchronously and never reach the network layer.
type ViolationError struct {
	Violations []string
}

func (e *ViolationError) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0]
	}
	return "stage input rejected"
}

// Stage-local bounds. Violations outside these never reach the solver.
const (
	MinPosts            = 1
	MaxPosts            = 20
	MinEmployeesPerPost = 1
	MaxEmployeesPerPost = 10
	MaxComodines        = 10
	MinSalary           = 500000.0
	MaxSalary           = 10000000.0
	MinYear             = 2020
	MaxYear             = 2030
)
