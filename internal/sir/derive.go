// Package sir implements the SIR compartment derivation, rate estimation,
// forward simulation, and incidence comparison stages of the analysis.
package sir

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/model"
)

// Warning is an advisory data-quality finding attached to a derived series.
// Warnings never stop the pipeline.
type Warning struct {
	Week    time.Time `json:"week"`
	Message string    `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Week.Format("2006-01-02"), w.Message)
}

// Derive converts weekly cumulative observations into SIR compartment
// states for a fixed population:
//
//	S = N - cases
//	I = cases - deaths - recovered
//	R = deaths + recovered
//
// Each row is derived independently and S+I+R = N holds for every week.
// A negative susceptible count means the configured population is smaller
// than reported cumulative cases; that is surfaced as a warning and the
// value is kept as computed. Negative infected counts from inconsistent
// reporting are likewise kept.
func Derive(obs []model.WeeklyObservation, population float64) ([]model.CompartmentState, []Warning) {
	states := make([]model.CompartmentState, 0, len(obs))
	var warnings []Warning

	for _, o := range obs {
		s := model.CompartmentState{
			Week:        o.Week,
			Susceptible: population - o.CumulativeCases,
			Infected:    o.CumulativeCases - o.CumulativeDeaths - o.CumulativeRecovered,
			Removed:     o.CumulativeDeaths + o.CumulativeRecovered,
		}
		if s.Susceptible < 0 {
			warnings = append(warnings, Warning{
				Week: o.Week,
				Message: fmt.Sprintf("susceptible is negative (%.0f): population %.0f below cumulative cases %.0f",
					s.Susceptible, population, o.CumulativeCases),
			})
		}
		states = append(states, s)
	}

	if len(warnings) > 0 {
		zap.L().Warn("sir: population assumption violated",
			zap.Int("weeks_affected", len(warnings)),
			zap.Float64("population", population),
		)
	}

	return states, warnings
}

// TrainingWindow restricts a chronologically ordered series to the weeks at
// or before end.
func TrainingWindow(states []model.CompartmentState, end time.Time) []model.CompartmentState {
	var out []model.CompartmentState
	for _, s := range states {
		if !s.Week.After(end) {
			out = append(out, s)
		}
	}
	return out
}
