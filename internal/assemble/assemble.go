// Package assemble turns accumulated wizard input into the solver's
// request payload. It is a pure transform: no I/O, no clock, no
// randomness. All implicit defaulting happens here, once, so the rest
// of the service never has to guess which fields were filled in.
package assemble

import (
	"fmt"
	"math"

	"github.com/davidcamilo0710/shift-planner/internal/schema"
)

// Advanced carries the tunable business parameters in the wizard's
// vocabulary. Surcharge percentages are fractions in [0,1]; they are
// scaled to wire percentages during assembly. Zero values mean "not
// set" and are replaced by the documented defaults, except for the
// fields listed in ApplyDefaults.
type Advanced struct {
	DayStart           string  `json:"day_start"`
	NightStart         string  `json:"night_start"`
	RNPct              float64 `json:"rn_pct"`
	RFPct              float64 `json:"rf_pct"`
	HEPct              float64 `json:"he_pct"`
	HoursBaseMonth     float64 `json:"hours_base_month"`
	HoursPerWeek       float64 `json:"hours_per_week"`
	MinFixedPerPost    int     `json:"min_fixed_per_post"`
	ShiftLengthHours   int     `json:"shift_length_hours"`
	FirstShiftStart    string  `json:"first_shift_start"`
	SundayThreshold    int     `json:"sunday_threshold"`
	MaxPostsPerComodin int     `json:"max_posts_per_comodin"`
	MinRestHours       float64 `json:"min_rest_hours"`
	UseLexicographic   *bool   `json:"use_lexicographic,omitempty"`
	WHE                float64 `json:"w_he"`
	WRF                float64 `json:"w_rf"`
	WRN                float64 `json:"w_rn"`
	WBase              float64 `json:"w_base"`
}

// Defaults returns the documented advanced configuration defaults.
func Defaults() Advanced {
	lex := true
	return Advanced{
		DayStart:           "06:00",
		NightStart:         "21:00",
		RNPct:              0.35,
		RFPct:              0.75,
		HEPct:              0.25,
		HoursBaseMonth:     192,
		HoursPerWeek:       48,
		MinFixedPerPost:    3,
		ShiftLengthHours:   12,
		FirstShiftStart:    "06:00",
		SundayThreshold:    2,
		MaxPostsPerComodin: 5,
		MinRestHours:       0,
		UseLexicographic:   &lex,
		WHE:                1000,
		WRF:                800,
		WRN:                600,
		WBase:              1,
	}
}

// ApplyDefaults fills every unset field of a with its default. Strings
// default when empty, numbers when zero, and UseLexicographic when nil.
// MinRestHours defaults to zero so it never needs filling. A shift
// length other than 8 or 12 is coerced to the 12-hour default.
func ApplyDefaults(a Advanced) Advanced {
	d := Defaults()
	if a.DayStart == "" {
		a.DayStart = d.DayStart
	}
	if a.NightStart == "" {
		a.NightStart = d.NightStart
	}
	if a.RNPct == 0 {
		a.RNPct = d.RNPct
	}
	if a.RFPct == 0 {
		a.RFPct = d.RFPct
	}
	if a.HEPct == 0 {
		a.HEPct = d.HEPct
	}
	if a.HoursBaseMonth == 0 {
		a.HoursBaseMonth = d.HoursBaseMonth
	}
	if a.HoursPerWeek == 0 {
		a.HoursPerWeek = d.HoursPerWeek
	}
	if a.MinFixedPerPost == 0 {
		a.MinFixedPerPost = d.MinFixedPerPost
	}
	if a.ShiftLengthHours != 8 && a.ShiftLengthHours != 12 {
		a.ShiftLengthHours = d.ShiftLengthHours
	}
	if a.FirstShiftStart == "" {
		a.FirstShiftStart = d.FirstShiftStart
	}
	if a.SundayThreshold == 0 {
		a.SundayThreshold = d.SundayThreshold
	}
	if a.MaxPostsPerComodin == 0 {
		a.MaxPostsPerComodin = d.MaxPostsPerComodin
	}
	if a.UseLexicographic == nil {
		a.UseLexicographic = d.UseLexicographic
	}
	if a.WHE == 0 {
		a.WHE = d.WHE
	}
	if a.WRF == 0 {
		a.WRF = d.WRF
	}
	if a.WRN == 0 {
		a.WRN = d.WRN
	}
	if a.WBase == 0 {
		a.WBase = d.WBase
	}
	return a
}

// PostID formats the zero-padded sequential identifier for a post
// ordinal (1-based): P001, P002, ...
func PostID(ordinal int) string {
	return fmt.Sprintf("P%03d", ordinal)
}

// PostInput is one post's assembled stage data: how many FIJO
// employees it carries and their salaries in employee order.
type PostInput struct {
	EmployeesCount int
	Salaries       []float64
}

// Assemble builds the solver payload from the wizard's accumulated
// stage data. Post identifiers are generated sequentially in slice
// order; the solver correlates posts both by id and by position, so
// the output order always matches the input order. Short salary lists
// are padded with the default salary rather than rejected, matching
// the solver's own tolerance.
func Assemble(posts []PostInput, comodinesCount int, comodinesSalaries []float64, adv Advanced, year, month int, holidays []string) schema.OptimizationConfig {
	adv = ApplyDefaults(adv)

	postsConfig := make([]schema.PostConfig, 0, len(posts))
	for i, p := range posts {
		salaries := make([]float64, p.EmployeesCount)
		for j := 0; j < p.EmployeesCount; j++ {
			if j < len(p.Salaries) {
				salaries[j] = p.Salaries[j]
			} else {
				salaries[j] = schema.DefaultSalary
			}
		}
		postsConfig = append(postsConfig, schema.PostConfig{
			PostID:              PostID(i + 1),
			FixedEmployeesCount: p.EmployeesCount,
			EmployeeSalaries:    salaries,
		})
	}

	comodines := make([]float64, comodinesCount)
	for i := 0; i < comodinesCount; i++ {
		if i < len(comodinesSalaries) {
			comodines[i] = comodinesSalaries[i]
		} else {
			comodines[i] = schema.DefaultSalary
		}
	}

	holidayConfigs := make([]schema.HolidayConfig, 0, len(holidays))
	for _, h := range holidays {
		holidayConfigs = append(holidayConfigs, schema.HolidayConfig{Date: h, Name: "Holiday"})
	}

	return schema.OptimizationConfig{
		GlobalConfig: schema.GlobalConfig{
			Year:               year,
			Month:              month,
			HoursPerWeek:       adv.HoursPerWeek,
			HoursBaseMonth:     adv.HoursBaseMonth,
			ShiftLengthHours:   adv.ShiftLengthHours,
			ShiftStartTime:     adv.FirstShiftStart,
			DayStart:           adv.DayStart,
			NightStart:         adv.NightStart,
			SundayThreshold:    adv.SundayThreshold,
			MinFixedPerPost:    adv.MinFixedPerPost,
			MaxPostsPerComodin: adv.MaxPostsPerComodin,
			MinRestHours:       adv.MinRestHours,
			HEPct:              toWirePct(adv.HEPct),
			RFPct:              toWirePct(adv.RFPct),
			RNPct:              toWirePct(adv.RNPct),
			WHE:                adv.WHE,
			WRF:                adv.WRF,
			WRN:                adv.WRN,
			WBase:              adv.WBase,
			UseLexicographic:   *adv.UseLexicographic,
		},
		Holidays:          holidayConfigs,
		PostsCount:        len(posts),
		PostsConfig:       postsConfig,
		ComodinesCount:    comodinesCount,
		ComodinesSalaries: comodines,
	}
}

// toWirePct scales the wizard's [0,1] fraction to the percentage the
// solver expects, rounded to avoid float noise on the wire.
func toWirePct(fraction float64) float64 {
	return math.Round(fraction*10000) / 100
}
