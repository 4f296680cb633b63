package kernel

import (
	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/mcx/rng"
)

// RWMKernel moves a Random Walk Metropolis chain by one step.
type RWMKernel func(s rng.Stream, state RWMState) (RWMState, RWMInfo)

// NewRWM creates a Random Walk Metropolis kernel for a fixed target
// and proposal.
func NewRWM(logDensity LogDensity, proposal ProposalGenerator) RWMKernel {
	log.Debug("RWM kernel")
	return func(s rng.Stream, state RWMState) (RWMState, RWMInfo) {
		return RWMWithInfo(s, logDensity, proposal, state)
	}
}

// RWM moves the chain by one step using the Random Walk Metropolis
// algorithm. The proposal must be symmetric.
func RWM(s rng.Stream, logDensity LogDensity, proposal ProposalGenerator, state RWMState) RWMState {
	newState, _ := RWMWithInfo(s, logDensity, proposal, state)
	return newState
}

// RWMWithInfo is RWM which also reports the proposed state and the
// acceptance decision.
func RWMWithInfo(s rng.Stream, logDensity LogDensity, proposal ProposalGenerator, state RWMState) (RWMState, RWMInfo) {
	streams := s.Split(2)
	moveStream, uniformStream := streams[0], streams[1]

	move := proposal(moveStream)
	candidate := make(Position, len(state.Position))
	floats.AddTo(candidate, state.Position, move)
	proposed := RWMState{
		Position: candidate,
		LogProb:  logDensity(candidate),
	}

	// NaN ratios compare false and are rejected
	doAccept := rng.LogUniform(uniformStream) < proposed.LogProb-state.LogProb
	if doAccept {
		return proposed, RWMInfo{IsAccepted: true, ProposedState: proposed}
	}
	return state, RWMInfo{IsAccepted: false, ProposedState: proposed}
}
