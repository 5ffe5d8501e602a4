package gotransit

import (
	"fmt"
	"math"
)

// orbitColumns is the number of trailing orbit columns in a parameter vector.
const orbitColumns = 6

// Params is one set of physical parameters. K holds either a single radius
// ratio or one per passband.
type Params struct {
	K []float64
	Orbit
}

// Vector flattens the parameters as [k..., t0, p, a, i, e, w].
func (p Params) Vector() []float64 {
	v := make([]float64, 0, len(p.K)+orbitColumns)
	v = append(v, p.K...)
	return append(v, p.T0, p.Period, p.A, p.Inc, p.Ecc, p.W)
}

// ParamsFromVector is the inverse of Vector. Every leading column before the
// six orbit columns is a radius ratio.
func ParamsFromVector(v []float64) (Params, error) {
	nk := len(v) - orbitColumns
	if nk < 1 {
		return Params{}, fmt.Errorf("%w: parameter vector needs at least %d columns, got %d", ErrInvalidParams, orbitColumns+1, len(v))
	}
	return paramsFromVector(v, nk), nil
}

func paramsFromVector(v []float64, nk int) Params {
	o := v[nk:]
	return Params{
		K: v[:nk:nk],
		Orbit: Orbit{
			T0:     o[0],
			Period: o[1],
			A:      o[2],
			Inc:    o[3],
			Ecc:    o[4],
			W:      o[5],
		},
	}
}

// radiusRatio picks the radius ratio of passband pb.
func (p Params) radiusRatio(pb int) float64 {
	if len(p.K) == 1 {
		return p.K[0]
	}
	return p.K[pb]
}

func (p Params) validate(npb int) error {
	if len(p.K) != 1 && len(p.K) != npb {
		return fmt.Errorf("%w: %d radius ratios for %d passbands", ErrInvalidParams, len(p.K), npb)
	}
	for _, k := range p.K {
		if !(k > 0) || math.IsInf(k, 0) {
			return fmt.Errorf("%w: radius ratio must be positive and finite, got %v", ErrInvalidParams, k)
		}
	}
	return p.Orbit.Validate()
}

// passbandTerms expands limb darkening and contamination input into one entry
// per passband.
type passbandTerms struct {
	ldc  []float64 // npb * nldc
	cont []float64 // npb
}

func newPassbandTerms(ldc, contamination []float64, npb, nldc int) (passbandTerms, error) {
	var pt passbandTerms
	switch {
	case nldc == 0:
	case len(ldc) == npb*nldc:
		pt.ldc = ldc
	case len(ldc) == nldc:
		pt.ldc = make([]float64, npb*nldc)
		for pb := 0; pb < npb; pb++ {
			copy(pt.ldc[pb*nldc:], ldc)
		}
	default:
		return pt, fmt.Errorf("%w: got %d coefficients, want %d per passband for %d passbands", ErrLDCCount, len(ldc), nldc, npb)
	}

	pt.cont = make([]float64, npb)
	switch len(contamination) {
	case 0:
	case 1:
		for pb := range pt.cont {
			pt.cont[pb] = contamination[0]
		}
	case npb:
		copy(pt.cont, contamination)
	default:
		return pt, fmt.Errorf("%w: %d contamination values for %d passbands", ErrInvalidParams, len(contamination), npb)
	}
	for _, c := range pt.cont {
		if !(c >= 0 && c < 1) {
			return pt, fmt.Errorf("%w: contamination must be in [0, 1), got %v", ErrInvalidParams, c)
		}
	}
	return pt, nil
}

func (pt passbandTerms) coefficients(pb, nldc int) []float64 {
	if nldc == 0 {
		return nil
	}
	return pt.ldc[pb*nldc : (pb+1)*nldc]
}
