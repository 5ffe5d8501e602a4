package gotransit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Model evaluates transit light curves for a fixed configuration. Evaluation
// methods are safe for concurrent use.
type Model struct {
	cfg         Config
	kernel      Kernel
	interpolate bool
	solver      *OrbitSolver
	log         hclog.Logger

	data atomic.Pointer[data]

	tableOnce sync.Once
	table     *Table
	tableErr  error
}

// New validates cfg and returns a model. Configuration errors are reported
// here, before any data is seen.
func New(cfg Config) (*Model, error) {
	kind, interpolate, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	if interpolate {
		if err := cfg.tableKey().Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.Supersampling < 1 {
		cfg.Supersampling = 1
	}
	if cfg.ExposureTime < 0 || math.IsNaN(cfg.ExposureTime) {
		return nil, fmt.Errorf("%w: exposure time must be non-negative, got %v", ErrInvalidData, cfg.ExposureTime)
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	var kernel Kernel
	if kind == Chromosphere {
		// the shell is only ever seen behind the planet
		cfg.Eclipse = true
		kernel = newChromosphereKernel(cfg.ChromosphereNodes)
	} else if kernel, err = NewKernel(kind); err != nil {
		return nil, err
	}

	return &Model{
		cfg:         cfg,
		kernel:      kernel,
		interpolate: interpolate,
		solver:      NewOrbitSolver(cfg.Logger),
		log:         cfg.Logger,
	}, nil
}

// Kind returns the kernel the configuration dispatches to.
func (m *Model) Kind() Kind { return m.kernel.Kind() }

// NLDC returns the number of limb darkening coefficients per passband.
func (m *Model) NLDC() int { return m.kernel.NLDC() }

// HasTable reports whether the model evaluates through an interpolation table.
func (m *Model) HasTable() bool { return m.interpolate }

// Config returns the configuration the model was built with.
func (m *Model) Config() Config { return m.cfg }

// NonConverged returns the number of Kepler solves that hit the iteration cap.
func (m *Model) NonConverged() uint64 { return m.solver.NonConverged() }

// SetData validates and installs the observations to evaluate against.
func (m *Model) SetData(ds Dataset) error {
	d, err := newData(ds, m.cfg.Supersampling, m.cfg.ExposureTime)
	if err != nil {
		return err
	}
	m.data.Store(d)
	return nil
}

// NumObservations returns the number of observations set with SetData.
func (m *Model) NumObservations() int {
	if d := m.data.Load(); d != nil {
		return len(d.time)
	}
	return 0
}

// Table returns the interpolation table, building it on first use. The build
// happens once even when several goroutines ask concurrently.
func (m *Model) Table() (*Table, error) {
	if !m.interpolate {
		return nil, fmt.Errorf("%w: model %q does not interpolate", ErrInvalidTable, m.cfg.Model)
	}
	m.tableOnce.Do(func() {
		m.table, m.tableErr = m.loadOrBuildTable()
	})
	return m.table, m.tableErr
}

func (m *Model) loadOrBuildTable() (*Table, error) {
	key := m.cfg.tableKey()
	ctx := context.Background()

	if m.cfg.Tables != nil {
		t, err := m.cfg.Tables.Load(ctx, key)
		switch {
		case err == nil:
			m.log.Debug("interpolation table loaded", "key", key.String())
			return t, nil
		case !errors.Is(err, ErrTableNotFound):
			m.log.Warn("interpolation table load failed, rebuilding", "key", key.String(), "error", err)
		}
	}

	start := time.Now()
	t, err := buildTable(key, m.cfg.Workers)
	if err != nil {
		return nil, err
	}
	m.log.Info("interpolation table built", "key", key.String(), "duration", time.Since(start))

	if m.cfg.Tables != nil {
		if err := m.cfg.Tables.Save(ctx, t); err != nil {
			m.log.Warn("interpolation table save failed", "key", key.String(), "error", err)
		}
	}
	return t, nil
}

// evaluator returns the kernel used for evaluation and checks the radius
// ratios against the table when interpolating.
func (m *Model) evaluator(ks ...[]float64) (Kernel, error) {
	if !m.interpolate {
		return m.kernel, nil
	}
	t, err := m.Table()
	if err != nil {
		return nil, err
	}
	for _, set := range ks {
		for _, k := range set {
			if !t.Contains(k) {
				return nil, fmt.Errorf("%w: k=%v not in [%v, %v]", ErrRadiusRatioOutOfRange, k, t.KMin, t.KMax)
			}
		}
	}
	return tableKernel{table: t}, nil
}

// Evaluate computes one flux value per observation for a single parameter
// set. ldc holds NLDC coefficients per passband, or a single set shared by all
// passbands. contamination holds one value per passband, a single shared
// value, or nothing.
func (m *Model) Evaluate(p Params, ldc, contamination []float64) ([]float64, error) {
	d := m.data.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}
	if err := p.validate(d.npb); err != nil {
		return nil, err
	}
	pt, err := newPassbandTerms(ldc, contamination, d.npb, m.NLDC())
	if err != nil {
		return nil, err
	}
	kernel, err := m.evaluator(p.K)
	if err != nil {
		return nil, err
	}

	flux := make([]float64, len(d.time))
	m.evaluateInto(flux, d, kernel, p, pt, m.cfg.Workers)
	return flux, nil
}

// EvaluatePV evaluates a batch of parameter vectors against the same
// observations. Each row of pv is [k..., t0, p, a, i, e, w]; ldc holds one
// coefficient row per parameter row, or a single shared row, and may be nil
// for models without limb darkening. The result has one row per parameter
// vector and one column per observation.
func (m *Model) EvaluatePV(pv, ldc *mat.Dense, contamination []float64) (*mat.Dense, error) {
	d := m.data.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}
	npv, ncol := pv.Dims()
	nk := ncol - orbitColumns
	if nk < 1 {
		return nil, fmt.Errorf("%w: parameter matrix needs at least %d columns, got %d", ErrInvalidParams, orbitColumns+1, ncol)
	}

	nldc := m.NLDC()
	var ldcRows int
	if nldc > 0 {
		if ldc == nil {
			return nil, fmt.Errorf("%w: missing coefficient matrix", ErrLDCCount)
		}
		ldcRows, _ = ldc.Dims()
		if ldcRows != 1 && ldcRows != npv {
			return nil, fmt.Errorf("%w: %d coefficient rows for %d parameter vectors", ErrLDCCount, ldcRows, npv)
		}
	}

	params := make([]Params, npv)
	terms := make([]passbandTerms, npv)
	ks := make([][]float64, npv)
	for r := 0; r < npv; r++ {
		params[r] = paramsFromVector(mat.Row(nil, r, pv), nk)
		if err := params[r].validate(d.npb); err != nil {
			return nil, fmt.Errorf("parameter vector %d: %w", r, err)
		}
		var row []float64
		if nldc > 0 {
			row = ldc.RawRowView(min(r, ldcRows-1))
		}
		pt, err := newPassbandTerms(row, contamination, d.npb, nldc)
		if err != nil {
			return nil, fmt.Errorf("parameter vector %d: %w", r, err)
		}
		terms[r] = pt
		ks[r] = params[r].K
	}
	kernel, err := m.evaluator(ks...)
	if err != nil {
		return nil, err
	}

	flux := mat.NewDense(npv, len(d.time), nil)
	if npv == 1 {
		m.evaluateInto(flux.RawRowView(0), d, kernel, params[0], terms[0], m.cfg.Workers)
		return flux, nil
	}
	parallelRange(npv, m.cfg.Workers, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			m.evaluateInto(flux.RawRowView(r), d, kernel, params[r], terms[r], 1)
		}
	})
	return flux, nil
}

// FluxAt evaluates the kernel directly at the separations z for a single
// passband.
func (m *Model) FluxAt(z []float64, k float64, ldc []float64, c float64) ([]float64, error) {
	if !(k > 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("%w: radius ratio must be positive and finite, got %v", ErrInvalidParams, k)
	}
	pt, err := newPassbandTerms(ldc, []float64{c}, 1, m.NLDC())
	if err != nil {
		return nil, err
	}
	kernel, err := m.evaluator([]float64{k})
	if err != nil {
		return nil, err
	}
	u := pt.coefficients(0, m.NLDC())
	flux := make([]float64, len(z))
	for i, zi := range z {
		flux[i] = kernel.Flux(zi, k, u, c)
	}
	return flux, nil
}

// Sensitivity returns the finite-difference Jacobian of the light curve with
// respect to the parameter vector [k..., t0, p, a, i, e, w], one row per
// observation.
func (m *Model) Sensitivity(p Params, ldc, contamination []float64) (*mat.Dense, error) {
	d := m.data.Load()
	if d == nil {
		return nil, ErrNotConfigured
	}
	if err := p.validate(d.npb); err != nil {
		return nil, err
	}
	pt, err := newPassbandTerms(ldc, contamination, d.npb, m.NLDC())
	if err != nil {
		return nil, err
	}
	kernel, err := m.evaluator(p.K)
	if err != nil {
		return nil, err
	}

	x := p.Vector()
	nk := len(p.K)
	eval := func(y, x []float64) {
		m.evaluateInto(y, d, kernel, paramsFromVector(x, nk), pt, m.cfg.Workers)
	}
	jac := mat.NewDense(len(d.time), len(x), nil)
	fd.Jacobian(jac, eval, x, &fd.JacobianSettings{Formula: fd.Central})

	tk, ok := kernel.(tableKernel)
	if !ok {
		return jac, nil
	}
	// A central step off a table limit lands outside the table, so those
	// radius ratio columns are redone one-sided.
	col := mat.NewDense(len(d.time), 1, nil)
	for j, k := range p.K {
		var formula fd.Formula
		switch {
		case k+fd.Central.Step > tk.table.KMax:
			formula = fd.Backward
		case k-fd.Central.Step < tk.table.KMin:
			formula = fd.Forward
		default:
			continue
		}
		fd.Jacobian(col, func(y, kj []float64) {
			xs := append([]float64(nil), x...)
			xs[j] = kj[0]
			eval(y, xs)
		}, []float64{k}, &fd.JacobianSettings{Formula: formula})
		jac.SetCol(j, mat.Col(nil, 0, col))
	}
	return jac, nil
}

// evaluateInto writes one supersampled flux value per observation into flux.
// All inputs are already validated.
func (m *Model) evaluateInto(flux []float64, d *data, kernel Kernel, p Params, pt passbandTerms, workers int) {
	nldc := kernel.NLDC()
	parallelRange(len(flux), workers, func(lo, hi int) {
		var buf []float64
		for i := lo; i < hi; i++ {
			exp, pb := d.exposure(i)
			k := p.radiusRatio(pb)
			u := pt.coefficients(pb, nldc)
			c := pt.cont[pb]
			if cap(buf) < exp.Samples {
				buf = make([]float64, exp.Samples)
			}
			flux[i] = exp.Integrate(buf, func(t float64) float64 {
				z, eclipse := m.solver.Separation(t, p.Orbit)
				if eclipse != m.cfg.Eclipse {
					return 1
				}
				return kernel.Flux(z, k, u, c)
			})
		}
	})
}
