package sir

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview-research/epi-cli/internal/model"
)

func TestEstimateRates_SinglePair(t *testing.T) {
	// S[0]=100, I[0]=10, S[1]=90, I[1]=15, R[0]=0, R[1]=5:
	// beta  = -(90-100)/(100*10) = 0.01
	// gamma = (5-0)/10 = 0.5
	// With one valid pair, the median is that single value.
	states := []model.CompartmentState{
		{Week: week(2020, 3, 2), Susceptible: 100, Infected: 10, Removed: 0},
		{Week: week(2020, 3, 9), Susceptible: 90, Infected: 15, Removed: 5},
	}

	est, err := EstimateRates(states)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, est.Beta, 1e-12)
	assert.InDelta(t, 0.5, est.Gamma, 1e-12)
	assert.Equal(t, 1, est.PairsUsed)
	assert.Equal(t, 0, est.PairsDropped)
}

func TestEstimateRates_MedianSuppressesOutlier(t *testing.T) {
	// Three pairs with betas {0.01, 0.01, 1.0}: the backfill outlier must
	// not drag the point estimate the way a mean would.
	states := []model.CompartmentState{
		{Susceptible: 100, Infected: 10, Removed: 0},
		{Susceptible: 90, Infected: 15, Removed: 5},   // beta 0.01, gamma 0.5
		{Susceptible: 76.5, Infected: 21, Removed: 12.5}, // beta 0.01, gamma 0.5
		{Susceptible: -1530, Infected: 1617, Removed: 23}, // beta 1.0, gamma 0.5
	}

	est, err := EstimateRates(states)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, est.Beta, 1e-9)
	assert.InDelta(t, 0.5, est.Gamma, 1e-9)
	assert.Equal(t, 3, est.PairsUsed)
}

func TestEstimateRates_FewerThanTwoObservations(t *testing.T) {
	_, err := EstimateRates(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientData))

	_, err = EstimateRates([]model.CompartmentState{{Susceptible: 100, Infected: 10}})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientData))
}

func TestEstimateRates_DegenerateDenominatorsDropped(t *testing.T) {
	// Zero infected in the prior week makes both ratios undefined: the pair
	// is excluded from the median, not treated as zero.
	states := []model.CompartmentState{
		{Susceptible: 100, Infected: 0, Removed: 0},
		{Susceptible: 100, Infected: 10, Removed: 0},
		{Susceptible: 90, Infected: 15, Removed: 5},
	}

	est, err := EstimateRates(states)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, est.Beta, 1e-12)
	assert.InDelta(t, 0.5, est.Gamma, 1e-12)
	assert.Equal(t, 1, est.PairsUsed)
	assert.Equal(t, 1, est.PairsDropped)
}

func TestEstimateRates_AllPairsDegenerate(t *testing.T) {
	states := []model.CompartmentState{
		{Susceptible: 100, Infected: 0, Removed: 0},
		{Susceptible: 100, Infected: 0, Removed: 0},
		{Susceptible: 100, Infected: 0, Removed: 0},
	}

	_, err := EstimateRates(states)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientData))
}

func TestEstimateRates_FirstWeekContributesNothing(t *testing.T) {
	// n states yield at most n-1 pairs.
	states := []model.CompartmentState{
		{Week: week(2020, 3, 2), Susceptible: 100, Infected: 10, Removed: 0},
		{Week: week(2020, 3, 9), Susceptible: 90, Infected: 15, Removed: 5},
		{Week: week(2020, 3, 16), Susceptible: 80, Infected: 18, Removed: 12},
	}

	est, err := EstimateRates(states)
	require.NoError(t, err)
	assert.Equal(t, 2, est.PairsUsed)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"single", []float64{4.2}, 4.2},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"unsorted outlier", []float64{100, 1, 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.xs))
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	_ = median(xs)
	assert.Equal(t, []float64{3, 1, 2}, xs)
}
