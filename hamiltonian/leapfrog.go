// Package hamiltonian provides the collaborators of the HMC kernel:
// Euclidean metrics and leapfrog integrators.
package hamiltonian

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/rng"
)

// LogDensityGrad returns the log-density and its gradient at a
// position. The gradient slice belongs to the caller.
type LogDensityGrad func(position kernel.Position) (float64, []float64)

// Leapfrog creates a velocity Verlet integrator doing nSteps steps of
// size stepSize. The random stream is not used.
func Leapfrog(ld LogDensityGrad, metric Metric, stepSize float64, nSteps int) kernel.Integrator {
	checkSteps(stepSize, nSteps)
	return func(_ rng.Stream, position kernel.Position, momentum, logProbGrad []float64, logProb float64) (kernel.Position, []float64, float64, []float64) {
		return leapfrog(ld, metric, stepSize, nSteps, position, momentum, logProbGrad, logProb)
	}
}

// JitteredLeapfrog creates a leapfrog integrator whose step size is
// drawn at every call uniformly from stepSize*(1-jitter) to
// stepSize*(1+jitter). The step size depends on the stream only, so
// the integrator stays reversible.
func JitteredLeapfrog(ld LogDensityGrad, metric Metric, stepSize float64, nSteps int, jitter float64) kernel.Integrator {
	checkSteps(stepSize, nSteps)
	if jitter < 0 || jitter >= 1 {
		panic("jitter should be in [0, 1)")
	}
	return func(s rng.Stream, position kernel.Position, momentum, logProbGrad []float64, logProb float64) (kernel.Position, []float64, float64, []float64) {
		eps := stepSize * (1 + jitter*(2*rng.Uniform(s)-1))
		return leapfrog(ld, metric, eps, nSteps, position, momentum, logProbGrad, logProb)
	}
}

func checkSteps(stepSize float64, nSteps int) {
	if stepSize <= 0 || math.IsInf(stepSize, 0) || math.IsNaN(stepSize) {
		panic("step size should be > 0")
	}
	if nSteps < 1 {
		panic("number of steps should be >= 1")
	}
}

// leapfrog integrates the dynamics without modifying its arguments.
func leapfrog(ld LogDensityGrad, metric Metric, eps float64, nSteps int,
	position kernel.Position, momentum, grad []float64, logProb float64) (kernel.Position, []float64, float64, []float64) {
	q := position.Copy()
	p := make([]float64, len(momentum))
	copy(p, momentum)
	v := make([]float64, len(momentum))

	// the force is the gradient of the log-density
	floats.AddScaled(p, eps/2, grad)
	for i := 0; i < nSteps; i++ {
		metric.Velocity(p, v)
		floats.AddScaled(q, eps, v)
		logProb, grad = ld(q)
		if i != nSteps-1 {
			floats.AddScaled(p, eps, grad)
		}
	}
	floats.AddScaled(p, eps/2, grad)
	return q, p, logProb, grad
}

// NewState evaluates the target at position and returns the HMC state.
func NewState(ld LogDensityGrad, position kernel.Position) kernel.HMCState {
	q := position.Copy()
	logProb, grad := ld(q)
	return kernel.HMCState{
		Position:    q,
		LogProb:     logProb,
		LogProbGrad: grad,
		Energy:      -logProb,
	}
}

// Kernel wires a leapfrog integrator and a metric into an HMC kernel.
// Jitter 0 gives the plain leapfrog.
func Kernel(ld LogDensityGrad, metric Metric, stepSize float64, nSteps int, jitter, divergenceThreshold float64) kernel.HMCKernel {
	var integrator kernel.Integrator
	if jitter > 0 {
		integrator = JitteredLeapfrog(ld, metric, stepSize, nSteps, jitter)
	} else {
		integrator = Leapfrog(ld, metric, stepSize, nSteps)
	}
	return kernel.HMC(integrator, metric.Momentum, metric.KineticEnergy, divergenceThreshold)
}
