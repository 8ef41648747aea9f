package sir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview-research/epi-cli/internal/model"
)

func week(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDerive_Formulas(t *testing.T) {
	obs := []model.WeeklyObservation{
		{Week: week(2020, 3, 2), CumulativeCases: 100, CumulativeDeaths: 10, CumulativeRecovered: 30},
		{Week: week(2020, 3, 9), CumulativeCases: 250, CumulativeDeaths: 25, CumulativeRecovered: 75},
	}

	states, warnings := Derive(obs, 1000)
	require.Len(t, states, 2)
	assert.Empty(t, warnings)

	assert.Equal(t, 900.0, states[0].Susceptible)
	assert.Equal(t, 60.0, states[0].Infected)
	assert.Equal(t, 40.0, states[0].Removed)

	assert.Equal(t, 750.0, states[1].Susceptible)
	assert.Equal(t, 150.0, states[1].Infected)
	assert.Equal(t, 100.0, states[1].Removed)
}

func TestDerive_PopulationConservation(t *testing.T) {
	obs := []model.WeeklyObservation{
		{Week: week(2020, 3, 2), CumulativeCases: 0},
		{Week: week(2020, 3, 9), CumulativeCases: 123, CumulativeDeaths: 4, CumulativeRecovered: 56},
		{Week: week(2020, 3, 16), CumulativeCases: 999, CumulativeDeaths: 88, CumulativeRecovered: 700},
	}

	const population = 5000.0
	states, _ := Derive(obs, population)
	for _, s := range states {
		assert.Equal(t, population, s.Susceptible+s.Infected+s.Removed, "week %s", s.Week)
	}
}

func TestDerive_NegativeSusceptibleWarns(t *testing.T) {
	obs := []model.WeeklyObservation{
		{Week: week(2020, 3, 2), CumulativeCases: 1500},
	}

	states, warnings := Derive(obs, 1000)
	require.Len(t, states, 1)

	// The value is kept as computed, not clamped.
	assert.Equal(t, -500.0, states[0].Susceptible)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "susceptible is negative")
	assert.Equal(t, week(2020, 3, 2), warnings[0].Week)
}

func TestDerive_NegativeInfectedPropagates(t *testing.T) {
	// Recoveries + deaths exceed cumulative cases: a known reporting
	// inconsistency that must flow through unclamped.
	obs := []model.WeeklyObservation{
		{Week: week(2020, 3, 2), CumulativeCases: 100, CumulativeDeaths: 60, CumulativeRecovered: 70},
	}

	states, warnings := Derive(obs, 1000)
	require.Len(t, states, 1)
	assert.Equal(t, -30.0, states[0].Infected)
	assert.Empty(t, warnings)
}

func TestDerive_Empty(t *testing.T) {
	states, warnings := Derive(nil, 1000)
	assert.Empty(t, states)
	assert.Empty(t, warnings)
}

func TestTrainingWindow(t *testing.T) {
	states := []model.CompartmentState{
		{Week: week(2020, 3, 2)},
		{Week: week(2020, 3, 9)},
		{Week: week(2020, 3, 16)},
	}

	got := TrainingWindow(states, week(2020, 3, 9))
	require.Len(t, got, 2)
	assert.Equal(t, week(2020, 3, 9), got[1].Week)

	assert.Len(t, TrainingWindow(states, week(2020, 2, 1)), 0)
	assert.Len(t, TrainingWindow(states, week(2021, 1, 1)), 3)
}
