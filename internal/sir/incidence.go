package sir

import (
	"time"

	"github.com/harborview-research/epi-cli/internal/model"
)

// Incidence differences the susceptible series of the actual and projected
// states into weekly new-case counts, joined by week:
//
//	actual_new_cases[t] = S_actual[t-1] - S_actual[t]
//	pred_new_cases[t]   = S_pred[t-1]   - S_pred[t]
//
// Predicted falls back to the actual figure for any week where either t or
// t-1 lacks a projection (weeks inside the training window). The first
// actual week has no predecessor and is excluded rather than zero-filled.
func Incidence(actual []model.CompartmentState, projected []model.ProjectedState) []model.IncidenceRow {
	pred := make(map[time.Time]float64, len(projected))
	for _, p := range projected {
		pred[p.Week] = p.Susceptible
	}

	var rows []model.IncidenceRow
	for t := 1; t < len(actual); t++ {
		prev, cur := actual[t-1], actual[t]
		row := model.IncidenceRow{
			Week:   cur.Week,
			Actual: prev.Susceptible - cur.Susceptible,
		}

		prevPred, okPrev := pred[prev.Week]
		curPred, okCur := pred[cur.Week]
		if okPrev && okCur {
			row.Predicted = prevPred - curPred
			row.Projected = true
		} else {
			row.Predicted = row.Actual
		}

		rows = append(rows, row)
	}

	return rows
}
