package gotransit

import (
	"fmt"
	"math"
)

// Dataset describes the observations a model is evaluated against.
//
// LCIDs maps every observation to a light curve, PBIDs maps every light curve
// to a passband, and NSamples and ExpTimes give the supersampling of each light
// curve. Nil index slices describe a single light curve in a single passband;
// nil NSamples and ExpTimes take the model defaults.
type Dataset struct {
	Time     []float64
	LCIDs    []int
	PBIDs    []int
	NSamples []int
	ExpTimes []float64
}

// data is the validated, fully expanded form of a Dataset.
type data struct {
	time     []float64
	lcids    []int
	pbids    []int
	nsamples []int
	exptimes []float64
	npb      int
}

func (d *data) exposure(i int) (Exposure, int) {
	lc := d.lcids[i]
	return Exposure{Mid: d.time[i], Duration: d.exptimes[lc], Samples: d.nsamples[lc]}, d.pbids[lc]
}

func newData(ds Dataset, samples int, exptime float64) (*data, error) {
	nobs := len(ds.Time)
	if nobs == 0 {
		return nil, fmt.Errorf("%w: empty time array", ErrInvalidData)
	}
	for i, t := range ds.Time {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: non-finite time at index %d", ErrInvalidData, i)
		}
	}

	d := &data{time: append([]float64(nil), ds.Time...)}

	nlc := 1
	if ds.LCIDs != nil {
		if len(ds.LCIDs) != nobs {
			return nil, fmt.Errorf("%w: %d light curve ids for %d observations", ErrInvalidData, len(ds.LCIDs), nobs)
		}
		for i, id := range ds.LCIDs {
			if id < 0 {
				return nil, fmt.Errorf("%w: negative light curve id at index %d", ErrInvalidData, i)
			}
			nlc = max(nlc, id+1)
		}
		d.lcids = append([]int(nil), ds.LCIDs...)
	} else {
		d.lcids = make([]int, nobs)
	}

	d.npb = 1
	if ds.PBIDs != nil {
		if len(ds.PBIDs) != nlc {
			return nil, fmt.Errorf("%w: %d passband ids for %d light curves", ErrInvalidData, len(ds.PBIDs), nlc)
		}
		for i, id := range ds.PBIDs {
			if id < 0 {
				return nil, fmt.Errorf("%w: negative passband id for light curve %d", ErrInvalidData, i)
			}
			d.npb = max(d.npb, id+1)
		}
		d.pbids = append([]int(nil), ds.PBIDs...)
	} else {
		d.pbids = make([]int, nlc)
	}

	if ds.NSamples != nil {
		if len(ds.NSamples) != nlc {
			return nil, fmt.Errorf("%w: %d supersampling counts for %d light curves", ErrInvalidData, len(ds.NSamples), nlc)
		}
		for i, n := range ds.NSamples {
			if n < 1 {
				return nil, fmt.Errorf("%w: supersampling count for light curve %d must be at least 1", ErrInvalidData, i)
			}
		}
		d.nsamples = append([]int(nil), ds.NSamples...)
	} else {
		d.nsamples = make([]int, nlc)
		for i := range d.nsamples {
			d.nsamples[i] = samples
		}
	}

	if ds.ExpTimes != nil {
		if len(ds.ExpTimes) != nlc {
			return nil, fmt.Errorf("%w: %d exposure times for %d light curves", ErrInvalidData, len(ds.ExpTimes), nlc)
		}
		for i, e := range ds.ExpTimes {
			if !(e >= 0) || math.IsInf(e, 0) {
				return nil, fmt.Errorf("%w: exposure time for light curve %d must be finite and non-negative", ErrInvalidData, i)
			}
		}
		d.exptimes = append([]float64(nil), ds.ExpTimes...)
	} else {
		d.exptimes = make([]float64, nlc)
		for i := range d.exptimes {
			d.exptimes[i] = exptime
		}
	}
	return d, nil
}
