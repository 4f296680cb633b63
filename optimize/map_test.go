package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/target"
)

func TestMAPNormal(t *testing.T) {
	tg := target.NewNormal([]float64{1, -3}, []float64{0.5, 2})
	m := NewMAP(tg)
	pos, lp := m.Run(kernel.Position{10, 10})
	assert.InDeltaSlice(t, []float64{1, -3}, pos, 1e-4)
	assert.InDelta(t, tg.LogProb(kernel.Position{1, -3}), lp, 1e-6)
	assert.Greater(t, m.Calls(), 0)
}

func TestMAPMVNormal(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0.8, 0.8, 1})
	tg, err := target.NewMVNormal([]float64{2, 3}, cov)
	assert.NoError(t, err)
	pos, _ := NewMAP(tg).Run(kernel.Position{0, 0})
	assert.InDeltaSlice(t, []float64{2, 3}, pos, 1e-3)
}

func TestMAPNormalModel(t *testing.T) {
	data := []float64{4.1, 3.9, 5.2, 4.6, 4.2, 3.5}
	m := target.NewNormalModel(data)
	pos, _ := NewMAP(m).Run(m.Unconstrain([]float64{0, 1}))
	x := m.Constrain(pos)
	// the mode of the mean is the sample mean
	assert.InDelta(t, 25.5/6, x[0], 1e-3)
	assert.Greater(t, x[1], 0.0)
}

func TestMAPPanics(t *testing.T) {
	m := NewMAP(target.Flat{N: 2})
	assert.Panics(t, func() { m.Run(kernel.Position{0}) })
	assert.Panics(t, func() { m.SetReportPeriod(0) })
}
