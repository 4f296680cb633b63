package kernel

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/mcx/rng"
)

// fixedSource makes Float64 return the same value u.
type fixedSource float64

func (u fixedSource) Uint64() uint64 {
	return uint64(float64(u) * (1 << 53))
}

// fixedStream is a stream whose sub-streams all draw the uniform u.
type fixedStream float64

func (s fixedStream) Split(n int) []rng.Stream {
	out := make([]rng.Stream, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func (s fixedStream) Rand() *rand.Rand {
	return rand.New(fixedSource(s))
}

func stdNormalLogProb(x Position) (res float64) {
	for _, v := range x {
		res -= v*v/2 + math.Log(2*math.Pi)/2
	}
	return
}

func unitMomentum(s rng.Stream) []float64 {
	return rng.Normals(s, 2)
}

func kinetic(p []float64) (k float64) {
	for _, v := range p {
		k += v * v / 2
	}
	return
}

// identity returns copies of its inputs.
func identity(_ rng.Stream, q Position, p, g []float64, lp float64) (Position, []float64, float64, []float64) {
	return q.Copy(), append([]float64(nil), p...), lp, append([]float64(nil), g...)
}

// shifted returns an integrator which moves the log-density by d.
func shifted(d float64) Integrator {
	return func(s rng.Stream, q Position, p, g []float64, lp float64) (Position, []float64, float64, []float64) {
		q, p, lp, g = identity(s, q, p, g, lp)
		q[0] += 1
		return q, p, lp + d, g
	}
}

func flatState() HMCState {
	return HMCState{
		Position:    Position{0.3, -1.2},
		LogProb:     0,
		LogProbGrad: []float64{0, 0},
		Energy:      0,
	}
}

func TestFixedStream(t *testing.T) {
	assert.Equal(t, 0.99, rng.Uniform(fixedStream(0.99)))
	assert.Equal(t, 0.996, rng.Uniform(fixedStream(0.996)))
}

func TestHMCFlatIdentity(t *testing.T) {
	k := HMC(identity, unitMomentum, kinetic, DefaultDivergenceThreshold)
	state := flatState()
	for _, key := range rng.New(11).Keys(50) {
		newState, info := k(key, state)
		assert.Equal(t, 0.0, info.DeltaEnergy)
		assert.Equal(t, 1.0, info.AcceptanceProbability)
		assert.True(t, info.IsAccepted)
		assert.False(t, info.IsDivergent)
		assert.Equal(t, state.Position, newState.Position)
		assert.Equal(t, info.ProposedState, newState)
	}
}

func TestHMCDeterministic(t *testing.T) {
	k := HMC(shifted(-0.7), unitMomentum, kinetic, DefaultDivergenceThreshold)
	state := flatState()
	key := rng.New(3)
	s1, i1 := k(key, state)
	s2, i2 := k(key, state)
	assert.Equal(t, s1, s2)
	assert.Equal(t, i1, i2)
}

func TestHMCAcceptanceProbability(t *testing.T) {
	k := HMC(shifted(-0.7), unitMomentum, kinetic, DefaultDivergenceThreshold)
	var accepted int
	const n = 4000
	for _, key := range rng.New(4).Keys(n) {
		_, info := k(key, flatState())
		require.InDelta(t, -0.7, info.DeltaEnergy, 1e-12)
		require.InDelta(t, math.Exp(-0.7), info.AcceptanceProbability, 1e-12)
		if info.IsAccepted {
			accepted++
		}
	}
	assert.InDelta(t, math.Exp(-0.7), float64(accepted)/n, 0.03)
}

func TestAcceptanceProbabilityBounds(t *testing.T) {
	for _, d := range []float64{math.Inf(-1), -1e300, -3, 0, 1e-10, 5, 1e300, math.Inf(1), math.NaN()} {
		p := AcceptanceProbability(d)
		assert.True(t, p >= 0 && p <= 1, "p(%v) = %v", d, p)
	}
	assert.Equal(t, 0.0, AcceptanceProbability(math.NaN()))
	assert.Equal(t, 0.0, AcceptanceProbability(math.Inf(-1)))
	assert.Equal(t, 1.0, AcceptanceProbability(math.Inf(1)))
}

func TestHMCNaN(t *testing.T) {
	k := HMC(shifted(math.NaN()), unitMomentum, kinetic, DefaultDivergenceThreshold)
	state := flatState()
	for _, key := range rng.New(5).Keys(20) {
		newState, info := k(key, state)
		assert.False(t, info.IsAccepted)
		assert.Equal(t, 0.0, info.AcceptanceProbability)
		assert.True(t, math.IsInf(info.DeltaEnergy, -1))
		assert.True(t, info.IsDivergent)
		assert.Equal(t, state, newState)
	}
}

func TestHMCDivergence(t *testing.T) {
	// the proposal is far more probable: accepted and divergent
	k := HMC(shifted(1e6), unitMomentum, kinetic, DefaultDivergenceThreshold)
	_, info := k(rng.New(6), flatState())
	assert.True(t, info.IsAccepted)
	assert.True(t, info.IsDivergent)

	// far less probable: rejected and divergent
	k = HMC(shifted(-1e6), unitMomentum, kinetic, DefaultDivergenceThreshold)
	_, info = k(rng.New(6), flatState())
	assert.False(t, info.IsAccepted)
	assert.True(t, info.IsDivergent)

	// below a custom threshold
	k = HMC(shifted(-5), unitMomentum, kinetic, 10)
	_, info = k(rng.New(6), flatState())
	assert.False(t, info.IsDivergent)
	k = HMC(shifted(-5), unitMomentum, kinetic, 4)
	_, info = k(rng.New(6), flatState())
	assert.True(t, info.IsDivergent)
}

func TestHMCRejectIdentity(t *testing.T) {
	k := HMC(shifted(-1e6), unitMomentum, kinetic, DefaultDivergenceThreshold)
	state := flatState()
	newState, info := k(rng.New(7), state)
	require.False(t, info.IsAccepted)
	assert.Same(t, &state.Position[0], &newState.Position[0])
	assert.Same(t, &state.LogProbGrad[0], &newState.LogProbGrad[0])
	assert.Equal(t, state.LogProb, newState.LogProb)
	assert.Equal(t, state.Energy, newState.Energy)
	// the proposal is still reported
	assert.Equal(t, 1.3, info.ProposedState.Position[0])
}

func TestHMCEnergyUsesFreshMomentum(t *testing.T) {
	// The kinetic energy of the drawn momentum enters the initial
	// energy, so a momentum change is seen in DeltaEnergy.
	double := func(s rng.Stream, q Position, p, g []float64, lp float64) (Position, []float64, float64, []float64) {
		q, p, lp, g = identity(s, q, p, g, lp)
		for i := range p {
			p[i] *= 2
		}
		return q, p, lp, g
	}
	k := HMC(double, unitMomentum, kinetic, DefaultDivergenceThreshold)
	key := rng.New(8)
	p0 := unitMomentum(key.Split(3)[0])
	_, info := k(key, flatState())
	assert.InDelta(t, kinetic(p0)-4*kinetic(p0), info.DeltaEnergy, 1e-12)
}

func TestHMCPanics(t *testing.T) {
	assert.Panics(t, func() { HMC(identity, unitMomentum, kinetic, 0) })
	assert.Panics(t, func() { HMC(identity, unitMomentum, kinetic, math.NaN()) })
}

func TestRWMExample(t *testing.T) {
	logDensity := LogDensity(stdNormalLogProb)
	move := func(rng.Stream) []float64 { return []float64{0.1} }
	state := RWMState{Position: Position{0}, LogProb: stdNormalLogProb(Position{0})}

	// log N(0.1) - log N(0) = -0.005 > log(0.99) = -0.01005
	newState, info := RWMWithInfo(fixedStream(0.99), logDensity, move, state)
	assert.True(t, info.IsAccepted)
	assert.InDelta(t, 0.1, newState.Position[0], 1e-15)
	assert.Equal(t, stdNormalLogProb(Position{0.1}), newState.LogProb)

	// log(0.996) = -0.004008 > -0.005
	newState, info = RWMWithInfo(fixedStream(0.996), logDensity, move, state)
	assert.False(t, info.IsAccepted)
	assert.Equal(t, state, newState)
	assert.InDelta(t, 0.1, info.ProposedState.Position[0], 1e-15)
}

func TestRWMRejectIdentity(t *testing.T) {
	move := func(rng.Stream) []float64 { return []float64{3} }
	state := RWMState{Position: Position{0}, LogProb: stdNormalLogProb(Position{0})}
	newState := RWM(fixedStream(0.5), stdNormalLogProb, move, state)
	assert.Same(t, &state.Position[0], &newState.Position[0])
	assert.Equal(t, state.LogProb, newState.LogProb)
}

func TestRWMOutOfSupport(t *testing.T) {
	positive := func(x Position) float64 {
		if x[0] <= 0 {
			return math.Inf(-1)
		}
		return -x[0]
	}
	k := NewRWM(positive, func(s rng.Stream) []float64 {
		return []float64{rng.Uniform(s)*4 - 2}
	})
	state := RWMState{Position: Position{0.5}, LogProb: -0.5}
	for _, key := range rng.New(9).Keys(500) {
		var info RWMInfo
		state, info = k(key, state)
		require.True(t, state.Position[0] > 0)
		if info.ProposedState.Position[0] <= 0 {
			require.False(t, info.IsAccepted)
		}
	}
}

func TestRWMNaN(t *testing.T) {
	move := func(rng.Stream) []float64 { return []float64{1} }
	nan := func(Position) float64 { return math.NaN() }
	state := RWMState{Position: Position{0}, LogProb: 0}
	for _, u := range []float64{0, 0.5, 0.999} {
		_, info := RWMWithInfo(fixedStream(u), nan, move, state)
		assert.False(t, info.IsAccepted)
	}
}

func TestRWMDeterministic(t *testing.T) {
	move := func(s rng.Stream) []float64 { return rng.Normals(s, 2) }
	k := NewRWM(stdNormalLogProb, move)
	state := RWMState{Position: Position{0.1, 0.2}, LogProb: stdNormalLogProb(Position{0.1, 0.2})}
	key := rng.New(10)
	s1, i1 := k(key, state)
	s2, i2 := k(key, state)
	assert.Equal(t, s1, s2)
	assert.Equal(t, i1, i2)
}

func TestPositionCopy(t *testing.T) {
	p := Position{1, 2}
	c := p.Copy()
	c[0] = 3
	assert.Equal(t, 1.0, p[0])
	assert.Nil(t, Position(nil).Copy())
}

func BenchmarkRWM(b *testing.B) {
	move := func(s rng.Stream) []float64 { return rng.Normals(s, 10) }
	k := NewRWM(stdNormalLogProb, move)
	state := RWMState{Position: make(Position, 10)}
	state.LogProb = stdNormalLogProb(state.Position)
	key := rng.New(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keys := key.Keys(2)
		key = keys[0]
		state, _ = k(keys[1], state)
	}
}
