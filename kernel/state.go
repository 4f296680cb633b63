// Package kernel implements Hamiltonian Monte Carlo and Random Walk
// Metropolis transition kernels.
//
// Kernels work in a flat zone: positions are one-dimensional vectors
// of unconstrained parameters. Converting them to and from structured
// model parameters happens outside (see package ravel).
//
// A kernel keeps no state between calls. Each call takes the current
// state of a chain and a random stream and returns the next state, so
// calling it twice with the same arguments gives the same result.
package kernel

import (
	"github.com/op/go-logging"

	"bitbucket.org/Davydov/mcx/rng"
)

// log is the global logging variable.
var log = logging.MustGetLogger("kernel")

// Position is a point in the flat unconstrained parameter space.
type Position []float64

// Copy returns a copy of the position with its own storage.
func (p Position) Copy() Position {
	if p == nil {
		return nil
	}
	c := make(Position, len(p))
	copy(c, p)
	return c
}

// HMCState is the minimal state needed to move an HMC chain forward.
// LogProb and LogProbGrad are the target log-density and its gradient
// at Position; Energy is the potential energy -LogProb.
type HMCState struct {
	Position    Position
	LogProb     float64
	LogProbGrad []float64
	Energy      float64
}

// HMCInfo describes a single HMC step.
type HMCInfo struct {
	// ProposedState is the end of the simulated trajectory, reported
	// whether it was accepted or not.
	ProposedState HMCState
	// AcceptanceProbability is min(1, exp(DeltaEnergy)).
	AcceptanceProbability float64
	IsAccepted            bool
	// IsDivergent is set when |DeltaEnergy| exceeds the divergence
	// threshold. It does not force rejection.
	IsDivergent bool
	// DeltaEnergy is the initial minus the proposed total energy,
	// -Inf when the difference was NaN.
	DeltaEnergy float64
}

// RWMState is the state of a Random Walk Metropolis chain.
type RWMState struct {
	Position Position
	LogProb  float64
}

// RWMInfo describes a single RWM step.
type RWMInfo struct {
	IsAccepted    bool
	ProposedState RWMState
}

// Integrator moves a position and momentum along the Hamiltonian
// dynamics. It returns the new position, momentum, log-density and
// gradient, which must be consistent with each other. Integrators
// return new slices and never modify their arguments.
type Integrator func(s rng.Stream, position Position, momentum, logProbGrad []float64, logProb float64) (Position, []float64, float64, []float64)

// MomentumGenerator draws a new momentum.
type MomentumGenerator func(s rng.Stream) []float64

// KineticEnergy computes the kinetic energy of a momentum.
type KineticEnergy func(momentum []float64) float64

// LogDensity is an unnormalized log-density. It may return -Inf
// outside of the support.
type LogDensity func(position Position) float64

// ProposalGenerator draws a move for the random walk.
type ProposalGenerator func(s rng.Stream) []float64
