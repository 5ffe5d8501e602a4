package gotransit

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// DefaultChromosphereNodes is the Gauss-Legendre order of the shell integral.
const DefaultChromosphereNodes = 64

// ChromosphereFlux is the flux of an optically thin, uniformly emitting
// spherical shell occulted by a dark disk of radius k. The projected surface
// brightness of such a shell grows as 1/sqrt(1-r^2) toward the limb.
func ChromosphereFlux(z, k float64) float64 {
	return chromosphereFlux(z, k, DefaultChromosphereNodes)
}

func chromosphereFlux(z, k float64, nodes int) float64 {
	z = math.Abs(z)
	if k <= 0 || z >= 1+k {
		return 1
	}

	var blocked float64
	if k > z {
		// the disk inside radius k-z is covered completely
		r := k - z
		if r >= 1 {
			return 0
		}
		blocked = 1 - math.Sqrt(1-r*r)
	}

	ra := math.Abs(z - k)
	rb := math.Min(1, z+k)
	if rb <= ra || z == 0 {
		return 1 - blocked
	}

	// With r = sin(theta) the 1/sqrt(1-r^2) weight cancels, and the cosine
	// remap of theta clusters nodes at both ends of the annulus.
	ta, tb := math.Asin(ra), math.Asin(rb)
	half := 0.5 * (tb - ta)
	integrand := func(phi float64) float64 {
		sinPhi, cosPhi := math.Sincos(phi)
		theta := ta + half*(1-cosPhi)
		r := math.Sin(theta)
		cosArc := clamp((r*r+z*z-k*k)/(2*r*z), -1, 1)
		return math.Acos(cosArc) * r * half * sinPhi
	}
	blocked += quad.Fixed(integrand, 0, math.Pi, nodes, quad.Legendre{}, 0) / math.Pi
	return 1 - blocked
}

type chromosphereKernel struct {
	nodes int
}

func newChromosphereKernel(nodes int) chromosphereKernel {
	if nodes <= 0 {
		nodes = DefaultChromosphereNodes
	}
	return chromosphereKernel{nodes: nodes}
}

func (chromosphereKernel) Kind() Kind { return Chromosphere }
func (chromosphereKernel) NLDC() int  { return 0 }
func (ch chromosphereKernel) Flux(z, k float64, _ []float64, c float64) float64 {
	return Contaminate(chromosphereFlux(z, k, ch.nodes), c)
}
