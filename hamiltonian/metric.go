package hamiltonian

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/mcx/rng"
)

// Metric is a Euclidean metric: a Gaussian momentum distribution
// with mass matrix M and kinetic energy 0.5 p' M^-1 p.
type Metric interface {
	// Dim returns the dimension of the momentum.
	Dim() int
	// Momentum draws p ~ N(0, M).
	Momentum(s rng.Stream) []float64
	// KineticEnergy returns 0.5 p' M^-1 p.
	KineticEnergy(p []float64) float64
	// Velocity computes M^-1 p into dst, allocating it if nil.
	Velocity(p, dst []float64) []float64
}

// DiagonalMetric is a metric with a diagonal mass matrix.
type DiagonalMetric struct {
	invMass  []float64
	sqrtMass []float64
}

// NewDiagonalMetric creates a diagonal metric from the diagonal of the
// inverse mass matrix.
func NewDiagonalMetric(invMass []float64) *DiagonalMetric {
	m := &DiagonalMetric{
		invMass:  make([]float64, len(invMass)),
		sqrtMass: make([]float64, len(invMass)),
	}
	for i, v := range invMass {
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			panic("inverse mass should be positive and finite")
		}
		m.invMass[i] = v
		m.sqrtMass[i] = math.Sqrt(1 / v)
	}
	return m
}

// NewUnitMetric creates an identity metric of dimension n.
func NewUnitMetric(n int) *DiagonalMetric {
	invMass := make([]float64, n)
	for i := range invMass {
		invMass[i] = 1
	}
	return NewDiagonalMetric(invMass)
}

func (m *DiagonalMetric) Dim() int {
	return len(m.invMass)
}

func (m *DiagonalMetric) Momentum(s rng.Stream) []float64 {
	p := rng.Normals(s, len(m.sqrtMass))
	for i := range p {
		p[i] *= m.sqrtMass[i]
	}
	return p
}

func (m *DiagonalMetric) KineticEnergy(p []float64) (k float64) {
	for i, v := range p {
		k += m.invMass[i] * v * v
	}
	return k / 2
}

func (m *DiagonalMetric) Velocity(p, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(p))
	}
	for i, v := range p {
		dst[i] = m.invMass[i] * v
	}
	return dst
}

// DenseMetric is a metric with a dense mass matrix.
type DenseMetric struct {
	n       int
	invMass *mat.SymDense
	// lower Cholesky factor of the mass matrix
	l *mat.TriDense
}

// NewDenseMetric creates a dense metric from the inverse mass matrix,
// which should be symmetric positive definite.
func NewDenseMetric(invMass *mat.SymDense) (*DenseMetric, error) {
	n := invMass.Symmetric()
	if n == 0 {
		return nil, errors.New("empty inverse mass matrix")
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(invMass); !ok {
		return nil, errors.New("inverse mass matrix is not positive definite")
	}
	var mass mat.SymDense
	if err := chol.InverseTo(&mass); err != nil {
		return nil, fmt.Errorf("inverting the inverse mass matrix: %w", err)
	}
	var massChol mat.Cholesky
	if ok := massChol.Factorize(&mass); !ok {
		return nil, errors.New("mass matrix is not positive definite")
	}
	var l mat.TriDense
	massChol.LTo(&l)

	m := &DenseMetric{
		n:       n,
		invMass: mat.NewSymDense(n, nil),
		l:       &l,
	}
	m.invMass.CopySym(invMass)
	return m, nil
}

func (m *DenseMetric) Dim() int {
	return m.n
}

func (m *DenseMetric) Momentum(s rng.Stream) []float64 {
	z := mat.NewVecDense(m.n, rng.Normals(s, m.n))
	p := make([]float64, m.n)
	mat.NewVecDense(m.n, p).MulVec(m.l, z)
	return p
}

func (m *DenseMetric) KineticEnergy(p []float64) float64 {
	v := mat.NewVecDense(m.n, p)
	return mat.Inner(v, m.invMass, v) / 2
}

func (m *DenseMetric) Velocity(p, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(p))
	}
	mat.NewVecDense(m.n, dst).MulVec(m.invMass, mat.NewVecDense(m.n, p))
	return dst
}
