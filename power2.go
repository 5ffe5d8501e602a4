package gotransit

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// power2ContactWidth is the distance inside first contact below which the
	// deficit is integrated directly. The closed form loses all precision
	// there because both chord end points approach the limb.
	power2ContactWidth = 1e-4
	// power2InnerWidth widens the inner branch past second contact where the
	// chord end point on the limb would take a zero to a negative power.
	power2InnerWidth = 1e-12
	power2LimbNodes  = 24
	// power2MinS keeps 1-r^2 at the chord end points positive.
	power2MinS = 0x1p-52
)

// Power2Flux is the qpower2 approximation of Maxted & Gill (2019) for the
// power-2 limb darkening law I(mu) = 1 - c(1 - mu^alpha).
func Power2Flux(z, k, c, alpha float64) float64 {
	z = math.Abs(z)
	if k <= 0 || z >= 1+k {
		return 1
	}
	if k >= 1 && z <= k-1 {
		return 0
	}

	i0 := (alpha + 2) / (math.Pi * (alpha - c*alpha + 2))
	g := 0.5 * alpha

	if z <= 1-k+power2InnerWidth {
		return clamp(power2Inner(z, k, c, alpha, g, i0), 0, 1)
	}
	if 1+k-z < power2ContactWidth {
		return clamp(power2Limb(z, k, c, alpha, i0), 0, 1)
	}

	d := (z*z - k*k + 1) / (2 * z)
	if d >= 1 {
		return clamp(power2Inner(z, k, c, alpha, g, i0), 0, 1)
	}
	if 0.5*(z-k+d) >= 1 {
		return 1
	}
	return clamp(power2Edge(z, k, c, alpha, g, i0, d), 0, 1)
}

// power2Inner is the small-planet expansion used while the planet disk lies
// within the stellar disk.
func power2Inner(z, k, c, alpha, g, i0 float64) float64 {
	s := 1 - z*z
	c0 := 1 - c + c*math.Pow(s, g)
	c2 := 0.5 * alpha * c * math.Pow(s, g-2) * ((alpha-1)*z*z - 1)
	return 1 - i0*math.Pi*k*k*(c0+0.25*k*k*c2-0.125*alpha*c*k*k*math.Pow(s, g-1))
}

// power2Edge covers ingress and egress.
func power2Edge(z, k, c, alpha, g, i0, d float64) float64 {
	ra := 0.5 * (z - k + d)
	rb := 0.5 * (1 + d)
	sa := math.Max(1-ra*ra, power2MinS)
	sb := math.Max(1-rb*rb, power2MinS)
	q := clamp((z-d)/k, -1, 1)
	w2 := k*k - (d-z)*(d-z)
	w := math.Sqrt(math.Max(w2, 0))

	b0 := 1 - c + c*math.Pow(sa, g)
	b1 := -alpha * c * ra * math.Pow(sa, g-1)
	b2 := 0.5 * alpha * c * math.Pow(sa, g-2) * ((alpha-1)*ra*ra - 1)
	a0 := b0 + b1*(z-ra) + b2*(z-ra)*(z-ra)
	a1 := b1 + 2*b2*(z-ra)
	aq := math.Acos(q)

	j1 := (a0*(d-z)-(2.0/3)*a1*w2+0.25*b2*(d-z)*(2*(d-z)*(d-z)-k*k))*w + (a0*k*k+0.25*b2*k*k*k*k)*aq
	j2 := alpha * c * math.Pow(sa, g-1) * k * k * k * k * (0.125*aq + (1.0/12)*q*(q*q-2.5)*math.Sqrt(math.Max(0, 1-q*q)))

	d0 := 1 - c + c*math.Pow(sb, g)
	d1 := -alpha * c * rb * math.Pow(sb, g-1)
	k1 := (d0-rb*d1)*math.Acos(d) + ((rb*d+(2.0/3)*(1-d*d))*d1-d*d0)*math.Sqrt(math.Max(0, 1-d*d))
	k2 := (1.0 / 3) * c * alpha * math.Pow(sb, g+0.5) * (1 - d)

	return 1 - i0*(j1-j2+k1-k2)
}

// power2Limb integrates the brightness over the thin lens cut from the limb
// just after first contact. The lens spans radii z-k to 1 and r = ra +
// (1-ra)sin^2(t) removes the square root behaviour at both ends.
func power2Limb(z, k, c, alpha, i0 float64) float64 {
	ra := z - k
	span := 1 - ra
	if span <= 0 {
		return 1
	}
	integrand := func(t float64) float64 {
		sinT, cosT := math.Sincos(t)
		r := ra + span*sinT*sinT
		mu := math.Sqrt(math.Max(0, (1-r)*(1+r)))
		arc := math.Acos(clamp((r*r+z*z-k*k)/(2*r*z), -1, 1))
		return (1 - c + c*math.Pow(mu, alpha)) * 2 * r * arc * 2 * span * sinT * cosT
	}
	return 1 - i0*quad.Fixed(integrand, 0, 0.5*math.Pi, power2LimbNodes, quad.Legendre{}, 0)
}
