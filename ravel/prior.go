package ravel

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is a log-prior density of one parameter.
type Prior func(float64) float64

// UniformPrior returns a uniform log-prior on the interval from min
// to max. incmin and incmax control whether the ends are included.
func UniformPrior(min, max float64, incmin, incmax bool) Prior {
	if max <= min {
		panic("max <= min")
	}
	return func(x float64) float64 {
		if (incmin && x < min) ||
			(!incmin && x <= min) ||
			(incmax && x > max) ||
			(!incmax && x >= max) {
			return math.Inf(-1)
		}
		return -math.Log(max - min)
	}
}

// GammaPrior returns a gamma log-prior.
func GammaPrior(shape, scale float64, inczero bool) Prior {
	if shape <= 0 || scale <= 0 {
		panic("shape and scale of gamma distribution must be > 0")
	}
	g, _ := math.Lgamma(shape)
	return func(x float64) float64 {
		if x < 0 || (x == 0 && !inczero) {
			return math.Inf(-1)
		}
		return (shape-1)*math.Log(x) - x/scale - shape*math.Log(scale) - g
	}
}

// ExponentialPrior returns an exponential log-prior.
func ExponentialPrior(rate float64, inczero bool) Prior {
	if rate <= 0 {
		panic("exponential rate should be > 0")
	}
	return func(x float64) float64 {
		if x < 0 || (x == 0 && !inczero) {
			return math.Inf(-1)
		}
		return math.Log(rate) - rate*x
	}
}

// NormalPrior returns a normal log-prior.
func NormalPrior(mu, sigma float64) Prior {
	if sigma <= 0 {
		panic("sigma should be > 0")
	}
	d := distuv.Normal{Mu: mu, Sigma: sigma}
	return d.LogProb
}

// FlatPrior is an improper constant log-prior.
func FlatPrior(float64) float64 {
	return 0
}

// JointPrior returns the log of the product of the prior densities f
// and g.
func JointPrior(f, g Prior) Prior {
	return func(x float64) float64 {
		return f(x) + g(x)
	}
}
