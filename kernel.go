package gotransit

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the occultation model.
type Kind int

const (
	Uniform Kind = iota
	Quadratic
	Power2
	Chromosphere
)

var kindNames = map[Kind]string{
	Uniform:      "uniform",
	Quadratic:    "quadratic",
	Power2:       "power-2",
	Chromosphere: "chromosphere",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kernel name to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// Kernel evaluates the flux of one occultation model at a single separation.
// Implementations apply contamination as their final step and return exactly
// one for z >= 1+k.
type Kernel interface {
	Kind() Kind
	// NLDC is the number of limb darkening coefficients per passband.
	NLDC() int
	Flux(z, k float64, ldc []float64, c float64) float64
}

// NewKernel returns the analytic kernel for kind.
func NewKernel(kind Kind) (Kernel, error) {
	switch kind {
	case Uniform:
		return uniformKernel{}, nil
	case Quadratic:
		return quadraticKernel{}, nil
	case Power2:
		return power2Kernel{}, nil
	case Chromosphere:
		return newChromosphereKernel(DefaultChromosphereNodes), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownModel, kind)
}

// Contaminate dilutes the model flux f with the third light fraction c.
func Contaminate(f, c float64) float64 {
	if c == 0 {
		return f
	}
	return 1 - (1-f)*(1-c)
}

type uniformKernel struct{}

func (uniformKernel) Kind() Kind { return Uniform }
func (uniformKernel) NLDC() int  { return 0 }
func (uniformKernel) Flux(z, k float64, _ []float64, c float64) float64 {
	return Contaminate(UniformFlux(z, k), c)
}

type quadraticKernel struct{}

func (quadraticKernel) Kind() Kind { return Quadratic }
func (quadraticKernel) NLDC() int  { return 2 }
func (quadraticKernel) Flux(z, k float64, ldc []float64, c float64) float64 {
	return Contaminate(QuadraticFlux(z, k, ldc[0], ldc[1]), c)
}

type power2Kernel struct{}

func (power2Kernel) Kind() Kind { return Power2 }
func (power2Kernel) NLDC() int  { return 2 }
func (power2Kernel) Flux(z, k float64, ldc []float64, c float64) float64 {
	return Contaminate(Power2Flux(z, k, ldc[0], ldc[1]), c)
}

// tableKernel evaluates the quadratic model through an interpolation table.
// k outside the table limits yields NaN rather than an extrapolated value.
type tableKernel struct {
	table *Table
}

func (tableKernel) Kind() Kind { return Quadratic }
func (tableKernel) NLDC() int  { return 2 }
func (t tableKernel) Flux(z, k float64, ldc []float64, c float64) float64 {
	if !t.table.Contains(k) {
		return math.NaN()
	}
	return Contaminate(t.table.lookup(z, k, ldc[0], ldc[1]), c)
}
