package gotransit

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Default interpolation table layout.
const (
	DefaultKMin = 0.07
	DefaultKMax = 0.13
	DefaultNK   = 128
	DefaultNZ   = 256
)

// TableKey identifies a table by its limits and resolution.
type TableKey struct {
	KMin float64
	KMax float64
	NK   int
	NZ   int
}

func (k TableKey) String() string {
	return fmt.Sprintf("k[%g,%g] nk=%d nz=%d", k.KMin, k.KMax, k.NK, k.NZ)
}

// Validate checks that the key describes a buildable table.
func (k TableKey) Validate() error {
	if !(k.KMin > 0 && k.KMin < k.KMax && k.KMax < 1) {
		return fmt.Errorf("%w: radius ratio limits must satisfy 0 < kmin < kmax < 1, got [%v, %v]", ErrInvalidTable, k.KMin, k.KMax)
	}
	if k.NK < 2 || k.NZ < 4 {
		return fmt.Errorf("%w: resolution too low (nk=%d, nz=%d)", ErrInvalidTable, k.NK, k.NZ)
	}
	return nil
}

// Table holds the quadratic model components precomputed on a (k, z) grid.
// The grids are stored row-major with one row per k breakpoint. A Table is
// immutable once built.
type Table struct {
	TableKey

	KT []float64
	ZT []float64
	LE []float64
	LD []float64
	ED []float64
}

// BuildTable evaluates the quadratic model components over k in [kmin, kmax]
// and z in [0, 1+kmax]. Half of the z breakpoints cover the ingress and egress
// zone (1-kmax, 1+kmax] where the flux changes fastest.
func BuildTable(kmin, kmax float64, nk, nz int) (*Table, error) {
	return buildTable(TableKey{KMin: kmin, KMax: kmax, NK: nk, NZ: nz}, 0)
}

func buildTable(key TableKey, workers int) (*Table, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	kt := floats.Span(make([]float64, key.NK), key.KMin, key.KMax)
	zt := zBreakpoints(key.KMax, key.NZ)

	t := &Table{
		TableKey: key,
		KT:       kt,
		ZT:       zt,
		LE:       make([]float64, key.NK*key.NZ),
		LD:       make([]float64, key.NK*key.NZ),
		ED:       make([]float64, key.NK*key.NZ),
	}
	parallelRange(key.NK, workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := i * key.NZ
			for j, z := range zt {
				t.LE[row+j], t.LD[row+j], t.ED[row+j] = quadraticComponents(z, kt[i])
			}
		}
	})
	return t, nil
}

func zBreakpoints(kmax float64, nz int) []float64 {
	inner := nz / 2
	zt := make([]float64, nz)
	floats.Span(zt[:inner], 0, 1-kmax)
	edge := floats.Span(make([]float64, nz-inner+1), 1-kmax, 1+kmax)
	copy(zt[inner:], edge[1:])
	return zt
}

// NewTable assembles a table from stored grids, checking their shapes.
func NewTable(key TableKey, kt, zt, le, ld, ed []float64) (*Table, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if len(kt) != key.NK || len(zt) != key.NZ {
		return nil, fmt.Errorf("%w: axis lengths %d, %d do not match %v", ErrInvalidTable, len(kt), len(zt), key)
	}
	n := key.NK * key.NZ
	if len(le) != n || len(ld) != n || len(ed) != n {
		return nil, fmt.Errorf("%w: grid size mismatch for %v", ErrInvalidTable, key)
	}
	if !sort.Float64sAreSorted(kt) || !sort.Float64sAreSorted(zt) {
		return nil, fmt.Errorf("%w: breakpoints are not increasing", ErrInvalidTable)
	}
	return &Table{TableKey: key, KT: kt, ZT: zt, LE: le, LD: ld, ED: ed}, nil
}

// Key returns the identity of the table.
func (t *Table) Key() TableKey {
	return t.TableKey
}

// Contains reports whether k lies inside the table limits.
func (t *Table) Contains(k float64) bool {
	return k >= t.KMin && k <= t.KMax
}

// Lookup interpolates the quadratic flux bilinearly in (k, z) and applies
// contamination. k outside the table limits is rejected.
func (t *Table) Lookup(z, k, u1, u2, c float64) (float64, error) {
	if !t.Contains(k) {
		return 0, fmt.Errorf("%w: k=%v not in [%v, %v]", ErrRadiusRatioOutOfRange, k, t.KMin, t.KMax)
	}
	return Contaminate(t.lookup(z, k, u1, u2), c), nil
}

func (t *Table) lookup(z, k, u1, u2 float64) float64 {
	if z < 0 {
		z = -z
	}
	if z >= 1+k {
		return 1
	}

	i := cell(t.KT, k)
	j := cell(t.ZT, z)
	ak := (k - t.KT[i]) / (t.KT[i+1] - t.KT[i])
	az := (z - t.ZT[j]) / (t.ZT[j+1] - t.ZT[j])

	w00 := (1 - ak) * (1 - az)
	w10 := ak * (1 - az)
	w01 := (1 - ak) * az
	w11 := ak * az
	r0 := i*t.NZ + j
	r1 := r0 + t.NZ
	bilinear := func(g []float64) float64 {
		return w00*g[r0] + w10*g[r1] + w01*g[r0+1] + w11*g[r1+1]
	}
	return combineQuadratic(bilinear(t.LE), bilinear(t.LD), bilinear(t.ED), u1, u2)
}

// cell returns the index of the grid interval holding x, clamped so that
// both ends exist.
func cell(grid []float64, x float64) int {
	i := sort.SearchFloat64s(grid, x) - 1
	if i < 0 {
		return 0
	}
	if i > len(grid)-2 {
		return len(grid) - 2
	}
	return i
}
