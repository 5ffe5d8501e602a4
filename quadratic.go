package gotransit

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Separations closer than this to a branch boundary are snapped onto it.
const boundaryTolerance = 1e-14

// QuadraticFlux is the Mandel & Agol (2002) flux for quadratic limb darkening
// I(mu) = 1 - u1(1-mu) - u2(1-mu)^2.
func QuadraticFlux(z, k, u1, u2 float64) float64 {
	le, ld, ed := quadraticComponents(z, k)
	return combineQuadratic(le, ld, ed, u1, u2)
}

func combineQuadratic(le, ld, ed, u1, u2 float64) float64 {
	omega := 1 - u1/3 - u2/6
	return clamp(1-((1-u1-2*u2)*le+(u1+2*u2)*ld+u2*ed)/omega, 0, 1)
}

// quadraticComponents returns the uniform (lambda_e), linear (lambda_d) and
// quadratic (eta_d) occulted fractions. lambda_d already includes the
// 2/3 step for z < k.
func quadraticComponents(z, p float64) (le, ld, ed float64) {
	z = math.Abs(z)
	if math.Abs(p-z) < boundaryTolerance {
		z = p
	}
	if math.Abs((p-1)-z) < boundaryTolerance {
		z = p - 1
	}
	if math.Abs((1-p)-z) < boundaryTolerance {
		z = 1 - p
	}
	if z < boundaryTolerance {
		z = 0
	}

	if p <= 0 || z >= 1+p {
		return 0, 0, 0
	}
	if p >= 1 && z <= p-1 {
		return 1, 2.0 / 3, 0.5
	}

	x1 := (p - z) * (p - z)
	x2 := (p + z) * (p + z)
	x3 := p*p - z*z

	var kap0, kap1, root float64
	if z >= math.Abs(1-p) {
		kap0, kap1, root = lensAngles(z, p)
		le = math.Max(0, p*p*kap0+kap1-0.5*root) / math.Pi
	}
	edgeEta := func() float64 {
		return (kap1 + p*p*(p*p+2*z*z)*kap0 - 0.25*(1+5*p*p+z*z)*root) / (2 * math.Pi)
	}

	switch {
	case z == p:
		// planet edge crosses the disk center
		switch {
		case p < 0.5:
			q := 2 * p
			kk, ek := completeKE(q * q)
			ld = 1.0/3 + 2/(9*math.Pi)*(4*(2*p*p-1)*ek+(1-4*p*p)*kk)
			ed = p * p / 2 * (p*p + 2*z*z)
			le = p * p
		case p > 0.5:
			q := 0.5 / p
			kk, ek := completeKE(q * q)
			ld = 1.0/3 + 16*p/(9*math.Pi)*(2*p*p-1)*ek - (32*p*p*p*p-20*p*p+3)/(9*math.Pi*p)*kk
			ed = edgeEta()
		default:
			ld = 1.0/3 - 4/(9*math.Pi)
			ed = 3.0 / 32
		}
		return le, ld, ed

	case (z > 0.5+math.Abs(p-0.5) && z < 1+p) || (p > 0.5 && z > math.Abs(1-p) && z < p):
		// ingress and egress
		q := math.Sqrt((1 - x1) / (x2 - x1))
		kk, ek := completeKE(q * q)
		pi := ellipticPi(1/x1-1, q)
		ld = 1 / (9 * math.Pi * math.Sqrt(p*z)) *
			(((1-x2)*(2*x2+x1-3)-3*x3*(x2-2))*kk + 4*p*z*(z*z+7*p*p-4)*ek - 3*x3/x1*pi)
		if z < p {
			ld += 2.0 / 3
		}
		return le, ld, edgeEta()
	}

	// planet fully inside the stellar disk
	le = p * p
	ed = p * p / 2 * (p*p + 2*z*z)
	switch {
	case z == 0:
		ld = 2.0/3 - 2.0/3*math.Pow(1-p*p, 1.5)
		return le, ld, ed
	case z == 1-p:
		ld = innerTangentLambda(p)
	default:
		q := math.Sqrt((x2 - x1) / (1 - x1))
		kk, ek := completeKE(q * q)
		pi := ellipticPi(x2/x1-1, q)
		ld = 2 / (9 * math.Pi * math.Sqrt(1-x1)) *
			((1-5*z*z+p*p+x3*x3)*kk + (1-x1)*(z*z+7*p*p-4)*ek - 3*x3/x1*pi)
	}
	if z < p {
		ld += 2.0 / 3
	}
	return le, ld, ed
}

// innerTangentLambda is lambda_d (without the 2/3 step) at z = 1-p.
func innerTangentLambda(p float64) float64 {
	ld := 2/(3*math.Pi)*math.Acos(1-2*p) - 4/(9*math.Pi)*math.Sqrt(p*(1-p))*(3+2*p-8*p*p)
	if p > 0.5 {
		ld -= 2.0 / 3
	}
	return ld
}

// completeKE returns the complete elliptic integrals of the first and second
// kind for the parameter m = k^2.
func completeKE(m float64) (float64, float64) {
	m = clamp(m, 0, 1)
	return mathext.CompleteK(m), mathext.CompleteE(m)
}

// ellipticPi is the complete elliptic integral of the third kind computed with
// Bulirsch's iteration.
func ellipticPi(n, k float64) float64 {
	kc := math.Sqrt(math.Max(0, 1-k*k))
	p := math.Sqrt(n + 1)
	m0, c, d, e := 1.0, 1.0, 1/p, kc
	var res float64
	for i := 0; i < 1000; i++ {
		f := c
		c = d/p + c
		g := e / p
		d = 2 * (f*g + d)
		p = g + p
		g = m0
		m0 = kc + m0
		res = 0.5 * math.Pi * (c*m0 + d) / (m0 * (m0 + p))
		if math.Abs(1-kc/g) <= 1e-8 {
			break
		}
		kc = 2 * math.Sqrt(e)
		e = kc * m0
	}
	return res
}
