package wizard

import (
	"fmt"
	"time"

	"github.com/davidcamilo0710/shift-planner/internal/assemble"
	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

// PostsInput is the first stage's payload: how many posts need
// coverage, the scheduling period, the advanced tunables, and the
// strategy pairing used later at optimize time.
type PostsInput struct {
	PostsCount     int               `json:"posts_count"`
	Year           int               `json:"year"`
	Month          int               `json:"month"`
	Advanced       assemble.Advanced `json:"advanced"`
	Strategy       string            `json:"strategy"`
	SundayStrategy string            `json:"sunday_strategy"`
}

// EmployeesInput is the second stage's payload: FIJO headcount per
// post plus the floating comodín count.
type EmployeesInput struct {
	EmployeeCounts []int `json:"employee_counts"`
	ComodinesCount int   `json:"comodines_count"`
}

// SalariesInput is the third stage's payload: salaries per post per
// employee, and one salary per comodín.
type SalariesInput struct {
	PostSalaries      [][]float64 `json:"post_salaries"`
	ComodinesSalaries []float64   `json:"comodines_salaries"`
}

// Session is one wizard run. All fields are guarded by the Manager's
// lock; nothing outside this package mutates them.
type Session struct {
	ID        string
	CreatedAt time.Time
	Stage     Stage

	Posts     *PostsInput
	Employees *EmployeesInput
	Salaries  *SalariesInput
	Holidays  []string

	// Config and Validation are set once Generating succeeds.
	Config     *schema.OptimizationConfig
	Validation *schema.ValidationResponse

	// Result is set when an optimization attempt succeeds.
	Result *schema.OptimizationResponse
}

func validatePosts(in PostsInput) error {
	var v []string
	if in.PostsCount < MinPosts || in.PostsCount > MaxPosts {
		v = append(v, fmt.Sprintf("posts_count %d outside [%d, %d]", in.PostsCount, MinPosts, MaxPosts))
	}
	if in.Year < MinYear || in.Year > MaxYear {
		v = append(v, fmt.Sprintf("year %d outside [%d, %d]", in.Year, MinYear, MaxYear))
	}
	if in.Month < 1 || in.Month > 12 {
		v = append(v, fmt.Sprintf("month %d outside [1, 12]", in.Month))
	}
	switch in.Strategy {
	case "", schema.StrategyLexicographic, schema.StrategyWeighted:
	default:
		v = append(v, fmt.Sprintf("unknown strategy %q", in.Strategy))
	}
	switch in.SundayStrategy {
	case "", schema.SundaySmart, schema.SundayBalanced, schema.SundayCostFocused:
	default:
		v = append(v, fmt.Sprintf("unknown sunday_strategy %q", in.SundayStrategy))
	}
	if len(v) > 0 {
		return &ViolationError{Violations: v}
	}
	return nil
}

func validateEmployees(in EmployeesInput, postsCount int) error {
	var v []string
	if len(in.EmployeeCounts) != postsCount {
		v = append(v, fmt.Sprintf("employee_counts has %d entries, expected %d", len(in.EmployeeCounts), postsCount))
	}
	for i, n := range in.EmployeeCounts {
		if n < MinEmployeesPerPost || n > MaxEmployeesPerPost {
			v = append(v, fmt.Sprintf("post %s employee count %d outside [%d, %d]", assemble.PostID(i+1), n, MinEmployeesPerPost, MaxEmployeesPerPost))
		}
	}
	if in.ComodinesCount < 0 || in.ComodinesCount > MaxComodines {
		v = append(v, fmt.Sprintf("comodines_count %d outside [0, %d]", in.ComodinesCount, MaxComodines))
	}
	if len(v) > 0 {
		return &ViolationError{Violations: v}
	}
	return nil
}

func validateSalaries(in SalariesInput, counts []int, comodines int) error {
	var v []string
	if len(in.PostSalaries) != len(counts) {
		v = append(v, fmt.Sprintf("post_salaries has %d entries, expected %d", len(in.PostSalaries), len(counts)))
	}
	for i, salaries := range in.PostSalaries {
		if i < len(counts) && len(salaries) != counts[i] {
			v = append(v, fmt.Sprintf("post %s has %d salaries, expected %d", assemble.PostID(i+1), len(salaries), counts[i]))
		}
		for _, s := range salaries {
			if s < MinSalary || s > MaxSalary {
				v = append(v, fmt.Sprintf("salary %.0f outside [%.0f, %.0f]", s, MinSalary, MaxSalary))
			}
		}
	}
	if len(in.ComodinesSalaries) > comodines {
		v = append(v, fmt.Sprintf("comodines_salaries has %d entries, expected at most %d", len(in.ComodinesSalaries), comodines))
	}
	for _, s := range in.ComodinesSalaries {
		if s < MinSalary || s > MaxSalary {
			v = append(v, fmt.Sprintf("comodín salary %.0f outside [%.0f, %.0f]", s, MinSalary, MaxSalary))
		}
	}
	if len(v) > 0 {
		return &ViolationError{Violations: v}
	}
	return nil
}

// assembleConfig builds the solver payload from the session's
// accumulated stages. Callers ensure all three stage inputs are set.
func (s *Session) assembleConfig() schema.OptimizationConfig {
	posts := make([]assemble.PostInput, len(s.Employees.EmployeeCounts))
	for i, n := range s.Employees.EmployeeCounts {
		var salaries []float64
		if i < len(s.Salaries.PostSalaries) {
			salaries = s.Salaries.PostSalaries[i]
		}
		posts[i] = assemble.PostInput{EmployeesCount: n, Salaries: salaries}
	}
	return assemble.Assemble(
		posts,
		s.Employees.ComodinesCount,
		s.Salaries.ComodinesSalaries,
		s.Posts.Advanced,
		s.Posts.Year,
		s.Posts.Month,
		s.Holidays,
	)
}

// Snapshot is the externally visible view of a session.
type Snapshot struct {
	ID        string          `json:"id"`
	Stage     Stage           `json:"stage"`
	CreatedAt time.Time       `json:"created_at"`
	Posts     *PostsInput     `json:"posts,omitempty"`
	Employees *EmployeesInput `json:"employees,omitempty"`
	Salaries  *SalariesInput  `json:"salaries,omitempty"`
	Holidays  []string        `json:"holidays,omitempty"`

	Config     *schema.OptimizationConfig `json:"config,omitempty"`
	Validation *schema.ValidationResponse `json:"validation,omitempty"`
	HasResult  bool                       `json:"has_result"`
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:         s.ID,
		Stage:      s.Stage,
		CreatedAt:  s.CreatedAt,
		Posts:      s.Posts,
		Employees:  s.Employees,
		Salaries:   s.Salaries,
		Holidays:   s.Holidays,
		Config:     s.Config,
		Validation: s.Validation,
		HasResult:  s.Result != nil,
	}
}
