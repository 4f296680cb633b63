package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/mcx/rng"
)

// DefaultDivergenceThreshold is the energy difference above which a
// transition is reported as divergent.
const DefaultDivergenceThreshold = 1000.0

// HMCKernel moves an HMC chain by one step.
type HMCKernel func(s rng.Stream, state HMCState) (HMCState, HMCInfo)

// HMC creates a Hamiltonian Monte Carlo transition kernel.
//
// At every step a fresh momentum is drawn from momentumGenerator and
// the state is pushed along the Hamiltonian dynamics by the
// integrator. The final momentum is flipped to make the proposal
// reversible, and a Metropolis test on the total energy (potential
// -log-density plus kineticEnergy) corrects for integration errors.
//
// A transition whose absolute energy difference exceeds
// divergenceThreshold is flagged as divergent. The flag is a
// diagnostic; divergent proposals go through the same acceptance test.
func HMC(integrator Integrator, momentumGenerator MomentumGenerator, kineticEnergy KineticEnergy, divergenceThreshold float64) HMCKernel {
	if divergenceThreshold <= 0 || math.IsNaN(divergenceThreshold) {
		panic("divergence threshold should be > 0")
	}
	log.Debugf("HMC kernel, divergence threshold=%v", divergenceThreshold)

	return func(s rng.Stream, state HMCState) (HMCState, HMCInfo) {
		streams := s.Split(3)
		momentumStream, integratorStream, acceptStream := streams[0], streams[1], streams[2]

		momentum := momentumGenerator(momentumStream)
		// total energy of the start, with the fresh momentum
		energy := state.Energy + kineticEnergy(momentum)

		position, newMomentum, logProb, logProbGrad := integrator(
			integratorStream, state.Position, momentum, state.LogProbGrad, state.LogProb)

		// the proposal is only reversible with the momentum flipped
		floats.Scale(-1, newMomentum)
		newState := HMCState{
			Position:    position,
			LogProb:     logProb,
			LogProbGrad: logProbGrad,
			Energy:      -logProb,
		}
		newEnergy := newState.Energy + kineticEnergy(newMomentum)

		deltaEnergy := energy - newEnergy
		if math.IsNaN(deltaEnergy) {
			deltaEnergy = math.Inf(-1)
		}
		isDivergent := math.Abs(deltaEnergy) > divergenceThreshold
		pAccept := AcceptanceProbability(deltaEnergy)

		doAccept := rng.Bernoulli(acceptStream, pAccept)
		acceptInfo := HMCInfo{newState, pAccept, true, isDivergent, deltaEnergy}
		rejectInfo := HMCInfo{newState, pAccept, false, isDivergent, deltaEnergy}
		if doAccept {
			return newState, acceptInfo
		}
		return state, rejectInfo
	}
}

// AcceptanceProbability returns min(1, exp(deltaEnergy)). The result
// is clamped explicitly and is 0 for -Inf or NaN.
func AcceptanceProbability(deltaEnergy float64) float64 {
	if math.IsNaN(deltaEnergy) {
		return 0
	}
	return math.Min(1, math.Exp(deltaEnergy))
}
