// Package schema defines the wire types exchanged with the external
// shift-optimization solver. Field names follow the solver's JSON
// contract exactly; the rest of the service converts into and out of
// these types at its boundaries.
package schema

import "time"

// Optimization strategies accepted by the solver.
const (
	StrategyLexicographic = "lexicographic"
	StrategyWeighted      = "weighted"
)

// Sunday distribution strategies accepted by the solver.
const (
	SundaySmart       = "smart"
	SundayBalanced    = "balanced"
	SundayCostFocused = "cost_focused"
)

// Solver termination statuses that count as a solved model.
const (
	SolverOptimal  = "OPTIMAL"
	SolverFeasible = "FEASIBLE"
)

// DefaultSeed is used when the caller does not supply one.
const DefaultSeed = 42

// DefaultSalary fills gaps when a salary list is shorter than the
// employee count it describes.
const DefaultSalary = 1400000.0

// GlobalConfig carries the period and the solver-side tunables. The
// surcharge percentages travel as percentages (25.0 means 25%), not
// fractions.
type GlobalConfig struct {
	Year               int     `json:"year"`
	Month              int     `json:"month"`
	HoursPerWeek       float64 `json:"hours_per_week"`
	HoursBaseMonth     float64 `json:"hours_base_month"`
	ShiftLengthHours   int     `json:"shift_length_hours"`
	ShiftStartTime     string  `json:"shift_start_time"`
	DayStart           string  `json:"day_start"`
	NightStart         string  `json:"night_start"`
	SundayThreshold    int     `json:"sunday_threshold"`
	MinFixedPerPost    int     `json:"min_fixed_per_post"`
	MaxPostsPerComodin int     `json:"max_posts_per_comodin"`
	MinRestHours       float64 `json:"min_rest_hours"`
	HEPct              float64 `json:"he_pct"`
	RFPct              float64 `json:"rf_pct"`
	RNPct              float64 `json:"rn_pct"`
	WHE                float64 `json:"w_he"`
	WRF                float64 `json:"w_rf"`
	WRN                float64 `json:"w_rn"`
	WBase              float64 `json:"w_base"`
	UseLexicographic   bool    `json:"use_lexicographic"`
}

// HolidayConfig is one entry of the holiday calendar, date in
// YYYY-MM-DD form.
type HolidayConfig struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// PostConfig is one finalized post: its identifier, how many FIJO
// employees it carries, and their salaries in employee order.
type PostConfig struct {
	PostID              string    `json:"post_id"`
	FixedEmployeesCount int       `json:"fixed_employees_count"`
	EmployeeSalaries    []float64 `json:"employee_salaries"`
}

// OptimizationConfig is the full solver request payload.
type OptimizationConfig struct {
	GlobalConfig      GlobalConfig    `json:"global_config"`
	Holidays          []HolidayConfig `json:"holidays"`
	PostsCount        int             `json:"posts_count"`
	PostsConfig       []PostConfig    `json:"posts_config"`
	ComodinesCount    int             `json:"comodines_count"`
	ComodinesSalaries []float64       `json:"comodines_salaries"`
}

// TotalFijos sums the fixed employee counts across all posts.
func (c OptimizationConfig) TotalFijos() int {
	total := 0
	for _, p := range c.PostsConfig {
		total += p.FixedEmployeesCount
	}
	return total
}

// TotalEmployees is fijos plus comodines.
func (c OptimizationConfig) TotalEmployees() int {
	return c.TotalFijos() + c.ComodinesCount
}

// EstimatedShifts applies the solver's rough estimate: two shifts per
// post per day of the configured month.
func (c OptimizationConfig) EstimatedShifts() int {
	return c.PostsCount * 2 * daysInMonth(c.GlobalConfig.Year, c.GlobalConfig.Month)
}

func daysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

// OptimizationRequest is the body of POST /optimize.
type OptimizationRequest struct {
	Config         OptimizationConfig `json:"config"`
	Strategy       string             `json:"strategy"`
	SundayStrategy string             `json:"sunday_strategy"`
	Seed           int                `json:"seed"`
}

// ValidationResponse is the body of POST /config/validate.
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	TotalPosts      int `json:"total_posts"`
	TotalFijos      int `json:"total_fijos"`
	TotalComodines  int `json:"total_comodines"`
	EstimatedShifts int `json:"estimated_shifts"`
}

// EmployeeMetrics describes one employee's computed outcome. Produced
// by the solver, never derived locally.
type EmployeeMetrics struct {
	EmpID           string  `json:"emp_id"`
	Empresa         string  `json:"empresa"`
	Cargo           string  `json:"cargo"`
	Cliente         string  `json:"cliente"`
	SalarioContrato float64 `json:"salario_contrato"`
	SueldoHora      float64 `json:"sueldo_hora"`
	HoursAssigned   int     `json:"hours_assigned"`
	HoursToWork     float64 `json:"hours_to_work"`
	HoursNight      float64 `json:"hours_night"`
	HoursHoliday    float64 `json:"hours_holiday"`
	HoursSunday     float64 `json:"hours_sunday"`
	NumSundays      int     `json:"num_sundays"`
	HEHours         float64 `json:"he_hours"`
	RFHoursApplied  float64 `json:"rf_hours_applied"`
	ValRN           float64 `json:"val_rn"`
	ValRF           float64 `json:"val_rf"`
	ValHE           float64 `json:"val_he"`
	SalaryBase      float64 `json:"salary_base"`
	TotalEmployee   float64 `json:"total_employee"`
}

// PostMetrics describes one post's aggregate outcome.
type PostMetrics struct {
	PostID      string  `json:"post_id"`
	Nombre      string  `json:"nombre"`
	TotalShifts int     `json:"total_shifts"`
	TotalCost   float64 `json:"total_cost"`
}

// TotalMetrics carries the run-level aggregates.
type TotalMetrics struct {
	TotalEmpleadosActivos      int     `json:"total_empleados_activos"`
	FijosActivos               int     `json:"fijos_activos"`
	ComodinesActivos           int     `json:"comodines_activos"`
	TotalHEHours               float64 `json:"total_he_hours"`
	TotalRFHours               float64 `json:"total_rf_hours"`
	TotalRNHours               float64 `json:"total_rn_hours"`
	TotalValHE                 float64 `json:"total_val_he"`
	TotalValRF                 float64 `json:"total_val_rf"`
	TotalValRN                 float64 `json:"total_val_rn"`
	TotalSalaryBase            float64 `json:"total_salary_base"`
	TotalCost                  float64 `json:"total_cost"`
	CostPerPost                float64 `json:"cost_per_post"`
	EmployeesWithExcessSundays int     `json:"employees_with_excess_sundays"`
}

// OptimizationResponse is the body of POST /optimize. On failure only
// Success, Message, SolverStatus and SolveTime are meaningful.
type OptimizationResponse struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	SolverStatus string  `json:"solver_status"`
	SolveTime    float64 `json:"solve_time"`

	Assignments     map[string]string          `json:"assignments"`
	ActiveEmployees []string                   `json:"active_employees"`
	EmployeeMetrics map[string]EmployeeMetrics `json:"employee_metrics"`
	PostMetrics     map[string]PostMetrics     `json:"post_metrics"`
	TotalMetrics    *TotalMetrics              `json:"total_metrics"`

	TotalShifts          int    `json:"total_shifts"`
	OptimizationStrategy string `json:"optimization_strategy"`
	SundayStrategy       string `json:"sunday_strategy"`
	RandomSeed           int    `json:"random_seed"`
}

// StrategiesResponse is the body of GET /strategies.
type StrategiesResponse struct {
	OptimizationStrategies map[string]string   `json:"optimization_strategies"`
	SundayStrategies       map[string]string   `json:"sunday_strategies"`
	Recommended            RecommendedStrategy `json:"recommended"`
}

// RecommendedStrategy is the solver's suggested pairing.
type RecommendedStrategy struct {
	Strategy       string `json:"strategy"`
	SundayStrategy string `json:"sunday_strategy"`
}

// HolidaysResponse is the body of GET /holidays/{year}.
type HolidaysResponse struct {
	Holidays []string `json:"holidays"`
}
