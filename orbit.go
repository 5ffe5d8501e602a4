package gotransit

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

const (
	// KeplerTolerance is the convergence threshold on the eccentric anomaly.
	KeplerTolerance = 1e-8
	// KeplerMaxIterations caps the Newton iteration.
	KeplerMaxIterations = 64

	twoPi = 2 * math.Pi
)

// Orbit holds the orbital elements of the companion. Angles are in radians,
// A is the semi-major axis in stellar radii and Period and T0 share the time unit
// of the evaluated time stamps.
type Orbit struct {
	Period float64
	A      float64
	Inc    float64
	Ecc    float64
	W      float64
	T0     float64
}

// Validate checks the physical ranges of the elements.
func (o Orbit) Validate() error {
	switch {
	case !(o.Period > 0):
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidOrbit, o.Period)
	case !(o.A > 0):
		return fmt.Errorf("%w: semi-major axis must be positive, got %v", ErrInvalidOrbit, o.A)
	case !(o.Inc >= 0 && o.Inc <= math.Pi):
		return fmt.Errorf("%w: inclination must be in [0, pi], got %v", ErrInvalidOrbit, o.Inc)
	case !(o.Ecc >= 0 && o.Ecc < 1):
		return fmt.Errorf("%w: eccentricity must be in [0, 1), got %v", ErrInvalidOrbit, o.Ecc)
	case math.IsNaN(o.W) || math.IsInf(o.W, 0) || math.IsNaN(o.T0) || math.IsInf(o.T0, 0):
		return fmt.Errorf("%w: non-finite periastron or epoch", ErrInvalidOrbit)
	}
	return nil
}

// Separation is the sky-projected center distance at one time stamp.
type Separation struct {
	Time    float64
	Z       float64
	Eclipse bool
}

// SolveKepler solves M = E - e sin E for the eccentric anomaly with Newton's
// method. When the iteration does not converge the last iterate is returned
// with converged set to false.
func SolveKepler(m, e float64) (ecc float64, iterations int, converged bool) {
	return solveKepler(m, e, KeplerTolerance, KeplerMaxIterations)
}

func solveKepler(m, e, tol float64, maxIter int) (float64, int, bool) {
	m = math.Mod(m, twoPi)
	if m < 0 {
		m += twoPi
	}
	if e == 0 {
		return m, 0, true
	}

	// Danby's starting value
	ecc := m + 0.85*e*math.Copysign(1, math.Sin(m))
	for i := 1; i <= maxIter; i++ {
		sinE, cosE := math.Sincos(ecc)
		step := (ecc - e*sinE - m) / (1 - e*cosE)
		ecc -= step
		if math.Abs(step) < tol {
			return ecc, i, true
		}
	}
	return ecc, maxIter, false
}

// OrbitSolver converts time stamps into projected separations. It is safe for
// concurrent use.
type OrbitSolver struct {
	Tolerance     float64
	MaxIterations int
	Logger        hclog.Logger

	nonConverged atomic.Uint64
}

// NewOrbitSolver returns a solver with the default tolerance and iteration cap.
func NewOrbitSolver(logger hclog.Logger) *OrbitSolver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &OrbitSolver{
		Tolerance:     KeplerTolerance,
		MaxIterations: KeplerMaxIterations,
		Logger:        logger,
	}
}

// NonConverged reports how many Kepler solves hit the iteration cap.
func (s *OrbitSolver) NonConverged() uint64 {
	return s.nonConverged.Load()
}

// Separation returns z and the eclipse flag for a single time stamp. The
// orbit is not validated.
func (s *OrbitSolver) Separation(t float64, o Orbit) (float64, bool) {
	ph := twoPi * (t - o.T0) / o.Period

	if o.Ecc == 0 {
		sinPh, cosPh := math.Sincos(ph)
		cosI := math.Cos(o.Inc)
		z := o.A * math.Sqrt(sinPh*sinPh+cosI*cosI*cosPh*cosPh)
		return z, cosPh < 0
	}

	e := o.Ecc
	sqp, sqm := math.Sqrt(1+e), math.Sqrt(1-e)

	// mean anomaly at mid-transit, where w + f = pi/2
	ft := math.Pi/2 - o.W
	et := 2 * math.Atan2(sqm*math.Sin(ft/2), sqp*math.Cos(ft/2))
	mt := et - e*math.Sin(et)

	ecc, iters, ok := solveKepler(ph+mt, e, s.tolerance(), s.maxIterations())
	if !ok {
		n := s.nonConverged.Add(1)
		s.Logger.Trace("kepler solve did not converge", "t", t, "e", e, "iterations", iters, "total", n)
	}

	f := 2 * math.Atan2(sqp*math.Sin(ecc/2), sqm*math.Cos(ecc/2))
	r := o.A * (1 - e*e) / (1 + e*math.Cos(f))
	sinWF := math.Sin(o.W + f)
	sinI := math.Sin(o.Inc)
	z := r * math.Sqrt(math.Max(0, 1-sinWF*sinWF*sinI*sinI))
	return z, sinWF < 0
}

// Solve computes the separation series for times.
func (s *OrbitSolver) Solve(times []float64, o Orbit) ([]Separation, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	out := make([]Separation, len(times))
	for i, t := range times {
		z, ecl := s.Separation(t, o)
		out[i] = Separation{Time: t, Z: z, Eclipse: ecl}
	}
	return out, nil
}

func (s *OrbitSolver) tolerance() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return KeplerTolerance
}

func (s *OrbitSolver) maxIterations() int {
	if s.MaxIterations > 0 {
		return s.MaxIterations
	}
	return KeplerMaxIterations
}
