package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/mcx/rng"
)

func TestNormal(t *testing.T) {
	prop := Normal(0.5, 2)
	k := rng.New(1)
	assert.Equal(t, prop(k), prop(k))

	const n = 20000
	var sum, sumsq float64
	for _, k := range k.Keys(n) {
		move := prop(k)
		require.Len(t, move, 2)
		sum += move[1]
		sumsq += move[1] * move[1]
	}
	assert.InDelta(t, 0, sum/n, 0.02)
	assert.InDelta(t, 0.25, sumsq/n, 0.015)
}

func TestUniform(t *testing.T) {
	prop := Uniform(2, 3)
	for _, k := range rng.New(2).Keys(1000) {
		for _, v := range prop(k) {
			require.True(t, v >= -1 && v < 1, "move out of range: %v", v)
		}
	}
}

func TestMultivariateNormal(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0.9, 0.9, 1})
	prop, err := MultivariateNormal(cov)
	require.NoError(t, err)

	const n = 20000
	var c01 float64
	for _, k := range rng.New(3).Keys(n) {
		move := prop(k)
		c01 += move[0] * move[1]
	}
	assert.InDelta(t, 0.9, c01/n, 0.04)

	_, err = MultivariateNormal(mat.NewSymDense(2, []float64{1, 2, 2, 1}))
	assert.Error(t, err)
}

func TestPanics(t *testing.T) {
	assert.Panics(t, func() { Normal(0, 1) })
	assert.Panics(t, func() { Normal(1, 0) })
	assert.Panics(t, func() { Uniform(-1, 1) })
}
