package sir

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/model"
)

// ErrInsufficientData is returned when the training window yields no usable
// consecutive pair for rate estimation.
var ErrInsufficientData = eris.New("sir: insufficient data in training window")

// EstimateRates computes the SIR rate constants from a chronologically
// ordered training series using consecutive-pair finite differences:
//
//	beta_t  = -(S[t] - S[t-1]) / (S[t-1] * I[t-1])
//	gamma_t =  (R[t] - R[t-1]) / I[t-1]
//
// Pairs whose denominator is zero or whose ratio is not finite are dropped
// rather than treated as zero. The point estimates are the medians of the
// surviving per-week ratios; the median suppresses outlier weeks caused by
// reporting backfills. The first week has no predecessor and contributes
// nothing. Returns ErrInsufficientData when no valid pair remains.
func EstimateRates(states []model.CompartmentState) (model.RateEstimate, error) {
	if len(states) < 2 {
		return model.RateEstimate{}, eris.Wrap(ErrInsufficientData, "fewer than 2 observations")
	}

	var betas, gammas []float64
	dropped := 0

	for t := 1; t < len(states); t++ {
		prev, cur := states[t-1], states[t]

		betaDen := prev.Susceptible * prev.Infected
		gammaDen := prev.Infected
		if betaDen == 0 || gammaDen == 0 {
			dropped++
			continue
		}

		beta := -(cur.Susceptible - prev.Susceptible) / betaDen
		gamma := (cur.Removed - prev.Removed) / gammaDen
		if math.IsNaN(beta) || math.IsInf(beta, 0) || math.IsNaN(gamma) || math.IsInf(gamma, 0) {
			dropped++
			continue
		}

		betas = append(betas, beta)
		gammas = append(gammas, gamma)
	}

	if len(betas) == 0 {
		return model.RateEstimate{}, eris.Wrapf(ErrInsufficientData, "all %d pairs had degenerate denominators", dropped)
	}

	est := model.RateEstimate{
		Beta:         median(betas),
		Gamma:        median(gammas),
		PairsUsed:    len(betas),
		PairsDropped: dropped,
	}

	zap.L().Info("sir: rates estimated",
		zap.Float64("beta", est.Beta),
		zap.Float64("gamma", est.Gamma),
		zap.Int("pairs_used", est.PairsUsed),
		zap.Int("pairs_dropped", est.PairsDropped),
	)

	return est, nil
}

// median returns the midpoint-averaged median of xs. gonum's stat.Quantile
// selects an empirical sample point rather than averaging the middle pair,
// so the conventional definition is computed directly here. xs must be
// non-empty; the input slice is not modified.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
