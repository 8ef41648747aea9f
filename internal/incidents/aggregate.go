// Package incidents aggregates shooting incidents by precinct and correlates
// them with election results.
package incidents

import (
	"sort"

	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/model"
)

// Summarize counts incidents per precinct and joins the two-party vote share
// from election results. Precincts without election results are dropped from
// the join; the first row of any analysis needs both sides present.
func Summarize(incidents []model.ShootingIncident, results []model.PrecinctResult) []model.PrecinctSummary {
	counts := make(map[int]int)
	murders := make(map[int]int)
	boroughs := make(map[int]string)
	for _, in := range incidents {
		counts[in.Precinct]++
		if in.Murder {
			murders[in.Precinct]++
		}
		if _, ok := boroughs[in.Precinct]; !ok && in.Borough != "" {
			boroughs[in.Precinct] = in.Borough
		}
	}

	resultsByPrecinct := make(map[int]model.PrecinctResult, len(results))
	for _, r := range results {
		resultsByPrecinct[r.Precinct] = r
	}

	var summaries []model.PrecinctSummary
	var unmatched int
	for precinct, n := range counts {
		r, ok := resultsByPrecinct[precinct]
		if !ok {
			unmatched++
			continue
		}
		borough := boroughs[precinct]
		if borough == "" {
			borough = r.Borough
		}
		summaries = append(summaries, model.PrecinctSummary{
			Precinct:  precinct,
			Borough:   borough,
			Incidents: n,
			Murders:   murders[precinct],
			DemShare:  r.DemShare(),
		})
	}

	if unmatched > 0 {
		zap.L().Debug("incidents: precincts without election results", zap.Int("precincts", unmatched))
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Precinct < summaries[j].Precinct })
	return summaries
}
