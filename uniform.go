package gotransit

import "math"

// UniformFlux is the flux of a uniformly bright stellar disk of unit radius
// occulted by a dark disk of radius k at center distance z.
func UniformFlux(z, k float64) float64 {
	z = math.Abs(z)
	if z >= 1+k || k <= 0 {
		return 1
	}
	if k >= 1 && z <= k-1 {
		return 0
	}
	if z <= 1-k {
		return 1 - k*k
	}
	return clamp(1-overlapArea(z, k)/math.Pi, 0, 1)
}

// overlapArea is the intersection area of the unit circle and a circle of
// radius k centered at distance z, for |1-k| < z < 1+k.
func overlapArea(z, k float64) float64 {
	kap0, kap1, root := lensAngles(z, k)
	return math.Max(0, k*k*kap0+kap1-0.5*root)
}

// lensAngles returns the half angles subtended by the lens at the planet
// (kap0) and stellar (kap1) centers, and root, four times the area of the
// triangle with sides 1, k and z. The triangle area uses Kahan's ordering
// and the angles use atan2 so that both stay accurate at the contacts.
func lensAngles(z, k float64) (kap0, kap1, root float64) {
	a, b, c := 1.0, k, z
	if a < b {
		a, b = b, a
	}
	if b < c {
		b, c = c, b
	}
	if a < b {
		a, b = b, a
	}
	root = math.Sqrt(math.Max(0, (a+(b+c))*(c-(a-b))*(c+(a-b))*(a+(b-c))))
	kap0 = math.Atan2(root, (k-1)*(k+1)+z*z)
	kap1 = math.Atan2(root, (1-k)*(1+k)+z*z)
	return kap0, kap1, root
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
