// Package model defines the data types shared across the analysis pipeline.
package model

import "time"

// WeeklyObservation is one week of cumulative COVID reporting figures,
// produced by the weekly bucketing of a daily cumulative series. Missing
// fields are zero-filled at the join stage.
type WeeklyObservation struct {
	Week                time.Time `json:"week"`
	CumulativeCases     float64   `json:"cumulative_cases"`
	CumulativeDeaths    float64   `json:"cumulative_deaths"`
	CumulativeRecovered float64   `json:"cumulative_recovered"`
}

// CompartmentState is the SIR decomposition of one WeeklyObservation for a
// fixed population. Susceptible + Infected + Removed always equals the
// population by construction. Infected may go negative when reported
// recoveries plus deaths exceed cumulative cases; that inconsistency is
// carried through, not masked.
type CompartmentState struct {
	Week        time.Time `json:"week"`
	Susceptible float64   `json:"susceptible"`
	Infected    float64   `json:"infected"`
	Removed     float64   `json:"removed"`
}

// RateEstimate holds the fitted SIR rate constants. Beta is the infection
// rate, Gamma the removal rate; both are medians of per-week finite
// difference ratios over the training window.
type RateEstimate struct {
	Beta         float64 `json:"beta"`
	Gamma        float64 `json:"gamma"`
	PairsUsed    int     `json:"pairs_used"`
	PairsDropped int     `json:"pairs_dropped"`
}

// ProjectedState is one step of the forward simulation. The simulator owns
// the sequence; consumers treat it as read-only.
type ProjectedState struct {
	Week        time.Time `json:"week"`
	Susceptible float64   `json:"pred_susceptible"`
	Infected    float64   `json:"pred_infected"`
	Removed     float64   `json:"pred_removed"`
}

// IncidenceRow compares actual and predicted weekly new cases. Projected
// is false where no projection covers the week (inside the training
// window); Predicted then falls back to Actual.
type IncidenceRow struct {
	Week      time.Time `json:"week"`
	Actual    float64   `json:"actual_new_cases"`
	Predicted float64   `json:"pred_new_cases"`
	Projected bool      `json:"projected"`
}
