package incidents

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/harborview-research/epi-cli/internal/model"
)

// ErrInsufficientObservations means fewer than two joined precincts were
// available for the regression.
var ErrInsufficientObservations = eris.New("incidents: insufficient joined observations")

// Regression holds an OLS fit of incident counts against vote share.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	R2        float64 `json:"r2"`
	N         int     `json:"n"`
}

// Predict evaluates the fitted line at x.
func (r Regression) Predict(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// FitShare regresses per-precinct incident counts on the two-party
// Democratic vote share.
func FitShare(summaries []model.PrecinctSummary) (Regression, error) {
	if len(summaries) < 2 {
		return Regression{}, eris.Wrap(ErrInsufficientObservations, "incidents: fit vote-share regression")
	}

	xs := make([]float64, len(summaries))
	ys := make([]float64, len(summaries))
	for i, s := range summaries {
		xs[i] = s.DemShare
		ys[i] = float64(s.Incidents)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return Regression{}, eris.New("incidents: degenerate regression, vote share has no variance")
	}

	r := stat.Correlation(xs, ys, nil)
	return Regression{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		R2:        r * r,
		N:         len(summaries),
	}, nil
}
