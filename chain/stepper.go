package chain

import (
	"math"

	"bitbucket.org/Davydov/mcx/hamiltonian"
	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/rng"
)

// Transition summarizes one kernel step.
type Transition struct {
	Accepted              bool
	Divergent             bool
	AcceptanceProbability float64
}

// Stepper holds the state of a chain and moves it with a kernel.
type Stepper interface {
	Step(s rng.Stream) Transition
	Position() kernel.Position
	LogProb() float64
	// SetPosition replaces the state by the state at position.
	SetPosition(position kernel.Position)
}

// HMCStepper moves a chain with an HMC kernel.
type HMCStepper struct {
	kernel kernel.HMCKernel
	ld     hamiltonian.LogDensityGrad
	state  kernel.HMCState
}

// NewHMCStepper creates an HMC stepper starting at position.
func NewHMCStepper(k kernel.HMCKernel, ld hamiltonian.LogDensityGrad, position kernel.Position) *HMCStepper {
	s := &HMCStepper{kernel: k, ld: ld}
	s.SetPosition(position)
	return s
}

func (s *HMCStepper) Step(st rng.Stream) Transition {
	var info kernel.HMCInfo
	s.state, info = s.kernel(st, s.state)
	return Transition{
		Accepted:              info.IsAccepted,
		Divergent:             info.IsDivergent,
		AcceptanceProbability: info.AcceptanceProbability,
	}
}

func (s *HMCStepper) Position() kernel.Position {
	return s.state.Position
}

func (s *HMCStepper) LogProb() float64 {
	return s.state.LogProb
}

func (s *HMCStepper) SetPosition(position kernel.Position) {
	s.state = hamiltonian.NewState(s.ld, position)
}

// State returns the current HMC state.
func (s *HMCStepper) State() kernel.HMCState {
	return s.state
}

// RWMStepper moves a chain with a Random Walk Metropolis kernel.
type RWMStepper struct {
	kernel kernel.RWMKernel
	ld     kernel.LogDensity
	state  kernel.RWMState
}

// NewRWMStepper creates an RWM stepper starting at position.
func NewRWMStepper(k kernel.RWMKernel, ld kernel.LogDensity, position kernel.Position) *RWMStepper {
	s := &RWMStepper{kernel: k, ld: ld}
	s.SetPosition(position)
	return s
}

func (s *RWMStepper) Step(st rng.Stream) Transition {
	var info kernel.RWMInfo
	old := s.state.LogProb
	s.state, info = s.kernel(st, s.state)
	return Transition{
		Accepted:              info.IsAccepted,
		AcceptanceProbability: kernel.AcceptanceProbability(info.ProposedState.LogProb - old),
	}
}

func (s *RWMStepper) Position() kernel.Position {
	return s.state.Position
}

func (s *RWMStepper) LogProb() float64 {
	return s.state.LogProb
}

func (s *RWMStepper) SetPosition(position kernel.Position) {
	position = position.Copy()
	s.state = kernel.RWMState{Position: position, LogProb: s.ld(position)}
}

// finite reports whether the stepper is inside the support.
func finite(s Stepper) bool {
	lp := s.LogProb()
	return !math.IsNaN(lp) && !math.IsInf(lp, 0)
}
