package ravel

import (
	"math"
)

// Transform maps an unconstrained value z to the constrained
// parameter space.
type Transform interface {
	Constrain(z float64) float64
	Unconstrain(x float64) float64
	// LogJacobian is log |dx/dz|.
	LogJacobian(z float64) float64
}

// Identity is the transform of an unbounded parameter.
type Identity struct{}

func (Identity) Constrain(z float64) float64   { return z }
func (Identity) Unconstrain(x float64) float64 { return x }
func (Identity) LogJacobian(float64) float64   { return 0 }

// Lower maps the real line to (Min, +Inf) with x = Min + exp(z).
type Lower struct {
	Min float64
}

func (t Lower) Constrain(z float64) float64 {
	return t.Min + math.Exp(z)
}

func (t Lower) Unconstrain(x float64) float64 {
	return math.Log(x - t.Min)
}

func (t Lower) LogJacobian(z float64) float64 {
	return z
}

// Upper maps the real line to (-Inf, Max) with x = Max - exp(z).
type Upper struct {
	Max float64
}

func (t Upper) Constrain(z float64) float64 {
	return t.Max - math.Exp(z)
}

func (t Upper) Unconstrain(x float64) float64 {
	return math.Log(t.Max - x)
}

func (t Upper) LogJacobian(z float64) float64 {
	return z
}

// Interval maps the real line to (Min, Max) with a logistic function.
type Interval struct {
	Min, Max float64
}

func (t Interval) Constrain(z float64) float64 {
	return t.Min + (t.Max-t.Min)*logistic(z)
}

func (t Interval) Unconstrain(x float64) float64 {
	u := (x - t.Min) / (t.Max - t.Min)
	return math.Log(u) - math.Log1p(-u)
}

func (t Interval) LogJacobian(z float64) float64 {
	// log(sigma(z)) + log(1-sigma(z)) = -|z| - 2 log(1 + exp(-|z|))
	a := math.Abs(z)
	return math.Log(t.Max-t.Min) - a - 2*math.Log1p(math.Exp(-a))
}

func logistic(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// NewTransform chooses a transform for the bounds min and max, which
// can be infinite.
func NewTransform(min, max float64) Transform {
	if max <= min {
		panic("max <= min")
	}
	switch {
	case math.IsInf(min, -1) && math.IsInf(max, 1):
		return Identity{}
	case math.IsInf(max, 1):
		return Lower{min}
	case math.IsInf(min, -1):
		return Upper{max}
	}
	return Interval{min, max}
}
