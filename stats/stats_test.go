package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bitbucket.org/Davydov/mcx/rng"
)

func TestMeanStdDev(t *testing.T) {
	means, sds := MeanStdDev([][]float64{{1, 10}, {2, 10}, {3, 10}})
	assert.InDeltaSlice(t, []float64{2, 10}, means, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, sds, 1e-12)

	means, sds = MeanStdDev(nil)
	assert.Nil(t, means)
	assert.Nil(t, sds)
}

func TestChiSquareNormal(t *testing.T) {
	x := rng.Normals(rng.New(5), 5000)
	for i := range x {
		x[i] = 2 + 3*x[i]
	}
	_, p := ChiSquareNormal(x, 2, 3, 20)
	assert.Greater(t, p, 1e-3)

	// a wrong mean is rejected
	_, p = ChiSquareNormal(x, 2.5, 3, 20)
	assert.Less(t, p, 1e-6)
}

func TestChiSquarePanics(t *testing.T) {
	assert.Panics(t, func() { ChiSquareNormal([]float64{1}, 0, 1, 1) })
	assert.Panics(t, func() { ChiSquareNormal(nil, 0, 1, 5) })
}
