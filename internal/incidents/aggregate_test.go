package incidents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview-research/epi-cli/internal/model"
)

func TestSummarize(t *testing.T) {
	incidents := []model.ShootingIncident{
		{IncidentKey: "K1", Precinct: 73, Borough: "BROOKLYN", Murder: true},
		{IncidentKey: "K2", Precinct: 73, Borough: "BROOKLYN"},
		{IncidentKey: "K3", Precinct: 122, Borough: "STATEN ISLAND"},
		{IncidentKey: "K4", Precinct: 999}, // no election results for this precinct
	}
	results := []model.PrecinctResult{
		{Precinct: 73, Borough: "BROOKLYN", VotesDem: 9000, VotesRep: 1000},
		{Precinct: 122, Borough: "STATEN ISLAND", VotesDem: 4000, VotesRep: 6000},
		{Precinct: 1, Borough: "MANHATTAN", VotesDem: 100, VotesRep: 100}, // no incidents
	}

	summaries := Summarize(incidents, results)
	require.Len(t, summaries, 2)

	assert.Equal(t, 73, summaries[0].Precinct)
	assert.Equal(t, 2, summaries[0].Incidents)
	assert.Equal(t, 1, summaries[0].Murders)
	assert.InDelta(t, 0.9, summaries[0].DemShare, 1e-9)

	assert.Equal(t, 122, summaries[1].Precinct)
	assert.Equal(t, 1, summaries[1].Incidents)
	assert.Zero(t, summaries[1].Murders)
	assert.InDelta(t, 0.4, summaries[1].DemShare, 1e-9)
}

func TestSummarize_BoroughFromResultsWhenMissing(t *testing.T) {
	incidents := []model.ShootingIncident{{IncidentKey: "K1", Precinct: 73}}
	results := []model.PrecinctResult{{Precinct: 73, Borough: "BROOKLYN", VotesDem: 1, VotesRep: 1}}

	summaries := Summarize(incidents, results)
	require.Len(t, summaries, 1)
	assert.Equal(t, "BROOKLYN", summaries[0].Borough)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil, nil))
}
