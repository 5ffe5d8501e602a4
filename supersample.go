package gotransit

import "gonum.org/v1/gonum/stat"

// DefaultExposureTime is the default exposure duration in days (a Kepler long
// cadence exposure).
const DefaultExposureTime = 0.020433598

// Exposure describes one finite integration centered on Mid.
type Exposure struct {
	Mid      float64
	Duration float64
	Samples  int
}

// SubTimes fills dst with Samples evenly spaced times spanning the exposure
// and returns it. dst is grown when too short. A single sample lands exactly
// on Mid.
func (e Exposure) SubTimes(dst []float64) []float64 {
	n := e.Samples
	if n < 1 {
		n = 1
	}
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	if n == 1 {
		dst[0] = e.Mid
		return dst
	}
	for j := range dst {
		dst[j] = e.Mid + e.Duration*((float64(j)+0.5)/float64(n)-0.5)
	}
	return dst
}

// Integrate evaluates f at the sub-times of the exposure and returns their
// mean. buf is scratch space, reused when large enough.
func (e Exposure) Integrate(buf []float64, f func(t float64) float64) float64 {
	ts := e.SubTimes(buf)
	if len(ts) == 1 {
		return f(ts[0])
	}
	for j, t := range ts {
		ts[j] = f(t)
	}
	return stat.Mean(ts, nil)
}
