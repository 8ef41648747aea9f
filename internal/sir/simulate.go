package sir

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/harborview-research/epi-cli/internal/model"
)

// Simulate iterates the discretized SIR equations forward from the seed
// state for horizon weekly steps:
//
//	S[t+1] = S[t] - beta*S[t]*I[t]
//	I[t+1] = I[t] + beta*S[t]*I[t] - gamma*I[t]
//	R[t+1] = R[t] + gamma*I[t]
//
// Each step is a pure function of the previous step, so the sum S+I+R is
// conserved exactly. No clamping is applied: compartments are allowed to
// drift negative or diverge when the rates extrapolate poorly — that
// overshoot is the finding the analysis exists to expose, so the simulator
// must not correct it.
func Simulate(seed model.CompartmentState, rates model.RateEstimate, horizon int) ([]model.ProjectedState, error) {
	if horizon < 1 {
		return nil, eris.Errorf("sir: forecast horizon must be positive, got %d", horizon)
	}

	out := make([]model.ProjectedState, 0, horizon)
	s, i, r := seed.Susceptible, seed.Infected, seed.Removed
	week := seed.Week

	for step := 0; step < horizon; step++ {
		infections := rates.Beta * s * i
		removals := rates.Gamma * i

		s -= infections
		i += infections - removals
		r += removals
		week = week.Add(7 * 24 * time.Hour)

		out = append(out, model.ProjectedState{
			Week:        week,
			Susceptible: s,
			Infected:    i,
			Removed:     r,
		})
	}

	return out, nil
}
