package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bitbucket.org/Davydov/mcx/hamiltonian"
	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/proposal"
	"bitbucket.org/Davydov/mcx/rng"
	"bitbucket.org/Davydov/mcx/stats"
	"bitbucket.org/Davydov/mcx/target"
)

const (
	nChains = 3000
	nSteps  = 5
	mu      = 1.0
	sigma   = 2.0
)

// Chains started from the target distribution stay in it. Every chain
// gives one independent sample.

func TestHMCStationary(t *testing.T) {
	tg := target.NewNormal([]float64{mu}, []float64{sigma})
	k := hamiltonian.Kernel(tg.LogProbGrad, hamiltonian.NewUnitMetric(1), 0.8, 4, 0.2, kernel.DefaultDivergenceThreshold)

	samples := make([]float64, nChains)
	var accepted int
	for i, key := range rng.New(21).Keys(nChains) {
		keys := key.Keys(nSteps + 1)
		x0 := mu + sigma*rng.Normals(keys[0], 1)[0]
		state := hamiltonian.NewState(tg.LogProbGrad, kernel.Position{x0})
		for _, stepKey := range keys[1:] {
			var info kernel.HMCInfo
			state, info = k(stepKey, state)
			if info.IsAccepted {
				accepted++
			}
		}
		samples[i] = state.Position[0]
	}
	assert.Greater(t, accepted, nChains*nSteps/2)
	_, p := stats.ChiSquareNormal(samples, mu, sigma, 15)
	assert.Greater(t, p, 1e-4)
}

func TestRWMStationary(t *testing.T) {
	tg := target.NewNormal([]float64{mu}, []float64{sigma})
	k := kernel.NewRWM(tg.LogProb, proposal.Normal(2.5, 1))

	samples := make([]float64, nChains)
	for i, key := range rng.New(22).Keys(nChains) {
		keys := key.Keys(nSteps + 1)
		x0 := kernel.Position{mu + sigma*rng.Normals(keys[0], 1)[0]}
		state := kernel.RWMState{Position: x0, LogProb: tg.LogProb(x0)}
		for _, stepKey := range keys[1:] {
			state, _ = k(stepKey, state)
		}
		samples[i] = state.Position[0]
	}
	_, p := stats.ChiSquareNormal(samples, mu, sigma, 15)
	assert.Greater(t, p, 1e-4)
}

// A chain started far from the mode reaches the target.
func TestHMCConverges(t *testing.T) {
	tg := target.NewNormal([]float64{mu}, []float64{sigma})
	k := hamiltonian.Kernel(tg.LogProbGrad, hamiltonian.NewUnitMetric(1), 0.8, 4, 0, kernel.DefaultDivergenceThreshold)
	state := hamiltonian.NewState(tg.LogProbGrad, kernel.Position{40})
	key := rng.New(23)
	samples := make([][]float64, 0, 5000)
	for i := 0; i < 5500; i++ {
		keys := key.Keys(2)
		key = keys[0]
		state, _ = k(keys[1], state)
		if i >= 500 {
			samples = append(samples, state.Position.Copy())
		}
	}
	means, sds := stats.MeanStdDev(samples)
	assert.InDelta(t, mu, means[0], 0.25)
	assert.InDelta(t, sigma, sds[0], 0.25)
}
