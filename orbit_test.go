package gotransit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveKeplerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 20000; n++ {
		m := rng.Float64()*40 - 20
		e := rng.Float64() * 0.99

		ecc, iters, ok := SolveKepler(m, e)
		require.True(t, ok, "M=%v e=%v", m, e)
		require.LessOrEqual(t, iters, KeplerMaxIterations)

		want := math.Mod(m, 2*math.Pi)
		if want < 0 {
			want += 2 * math.Pi
		}
		assert.InDelta(t, want, ecc-e*math.Sin(ecc), KeplerTolerance, "M=%v e=%v", m, e)
	}
}

func TestSolveKeplerCircular(t *testing.T) {
	ecc, iters, ok := SolveKepler(1.25, 0)
	assert.True(t, ok)
	assert.Zero(t, iters)
	assert.Equal(t, 1.25, ecc)
}

func TestSolveKeplerReturnsLastIterate(t *testing.T) {
	ecc, iters, ok := solveKepler(0.3, 0.95, KeplerTolerance, 1)
	assert.False(t, ok)
	assert.Equal(t, 1, iters)
	assert.False(t, math.IsNaN(ecc) || math.IsInf(ecc, 0))
}

func TestOrbitSolverCountsNonConvergence(t *testing.T) {
	s := NewOrbitSolver(nil)
	s.MaxIterations = 1

	o := Orbit{Period: 3, A: 7, Inc: math.Pi / 2, Ecc: 0.9}
	z, _ := s.Separation(0, o)

	assert.False(t, math.IsNaN(z))
	assert.Equal(t, uint64(1), s.NonConverged())
}

func TestCircularSeparation(t *testing.T) {
	s := NewOrbitSolver(nil)
	o := Orbit{Period: 3, A: 7, Inc: math.Pi / 2}

	tests := []struct {
		name    string
		t       float64
		z       float64
		eclipse bool
	}{
		{"mid-transit", 0, 0, false},
		{"quadrature", 0.75, 7, false},
		{"mid-eclipse", 1.5, 0, true},
		{"next transit", 3, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, eclipse := s.Separation(tt.t, o)
			assert.InDelta(t, tt.z, z, 1e-12)
			assert.Equal(t, tt.eclipse, eclipse)
		})
	}
}

func TestInclinedImpactParameter(t *testing.T) {
	s := NewOrbitSolver(nil)
	o := Orbit{Period: 2, A: 10, Inc: math.Acos(0.05)}

	z, eclipse := s.Separation(0, o)
	assert.InDelta(t, 0.5, z, 1e-12)
	assert.False(t, eclipse)
}

func TestEccentricMidTransit(t *testing.T) {
	s := NewOrbitSolver(nil)
	o := Orbit{Period: 5, A: 12, Inc: 1.5, Ecc: 0.3, W: 0.5, T0: 1}

	f := math.Pi/2 - o.W
	r := o.A * (1 - o.Ecc*o.Ecc) / (1 + o.Ecc*math.Cos(f))

	z, eclipse := s.Separation(o.T0, o)
	assert.InDelta(t, r*math.Cos(o.Inc), z, 1e-9)
	assert.False(t, eclipse)
}

func TestEccentricApproachesCircular(t *testing.T) {
	s := NewOrbitSolver(nil)
	circ := Orbit{Period: 3, A: 7, Inc: 1.52, T0: 0.2}
	ecc := circ
	ecc.Ecc = 1e-9
	ecc.W = 1.3

	for _, tm := range []float64{-0.4, 0, 0.1, 0.2, 0.35, 1.1, 2.0} {
		zc, ec := s.Separation(tm, circ)
		ze, ee := s.Separation(tm, ecc)
		assert.InDelta(t, zc, ze, 1e-6, "t=%v", tm)
		assert.Equal(t, ec, ee, "t=%v", tm)
	}
}

func TestOrbitValidate(t *testing.T) {
	good := Orbit{Period: 3, A: 7, Inc: math.Pi / 2}
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(o *Orbit)
	}{
		{"zero period", func(o *Orbit) { o.Period = 0 }},
		{"negative axis", func(o *Orbit) { o.A = -1 }},
		{"inclination", func(o *Orbit) { o.Inc = 4 }},
		{"parabolic", func(o *Orbit) { o.Ecc = 1 }},
		{"nan epoch", func(o *Orbit) { o.T0 = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := good
			tt.mutate(&o)
			assert.ErrorIs(t, o.Validate(), ErrInvalidOrbit)
		})
	}
}

func TestSolveSeries(t *testing.T) {
	s := NewOrbitSolver(nil)
	times := []float64{-0.1, 0, 0.1, 1.5}

	seps, err := s.Solve(times, Orbit{Period: 3, A: 7, Inc: math.Pi / 2})
	require.NoError(t, err)
	require.Len(t, seps, len(times))
	for i, sep := range seps {
		assert.Equal(t, times[i], sep.Time)
		assert.GreaterOrEqual(t, sep.Z, 0.0)
	}
	assert.True(t, seps[3].Eclipse)

	_, err = s.Solve(times, Orbit{Period: -1, A: 7})
	assert.ErrorIs(t, err, ErrInvalidOrbit)
}
