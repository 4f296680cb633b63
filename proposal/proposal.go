// Package proposal implements symmetric move generators for the
// Random Walk Metropolis kernel.
package proposal

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/rng"
)

// Normal returns an isotropic normal proposal with standard
// deviation sd.
func Normal(sd float64, dim int) kernel.ProposalGenerator {
	if sd <= 0 {
		panic("sd should be > 0")
	}
	checkDim(dim)
	return func(s rng.Stream) []float64 {
		move := rng.Normals(s, dim)
		for i := range move {
			move[i] *= sd
		}
		return move
	}
}

// Uniform returns a proposal moving every coordinate uniformly in
// [-width/2, width/2).
func Uniform(width float64, dim int) kernel.ProposalGenerator {
	if width <= 0 {
		panic("width should be > 0")
	}
	checkDim(dim)
	return func(s rng.Stream) []float64 {
		r := s.Rand()
		move := make([]float64, dim)
		for i := range move {
			move[i] = r.Float64()*width - width/2
		}
		return move
	}
}

// MultivariateNormal returns a normal proposal with covariance cov.
func MultivariateNormal(cov *mat.SymDense) (kernel.ProposalGenerator, error) {
	dim := cov.Symmetric()
	if dim == 0 {
		return nil, errors.New("empty covariance matrix")
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, errors.New("covariance matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)
	return func(s rng.Stream) []float64 {
		move := make([]float64, dim)
		mat.NewVecDense(dim, move).MulVec(&l, mat.NewVecDense(dim, rng.Normals(s, dim)))
		return move
	}, nil
}

func checkDim(dim int) {
	if dim < 1 {
		panic("dimension should be >= 1")
	}
}
