package webhook

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kristinelam/gotransit/pkg/models"
)

// Summarize reduces a light curve to the numbers a dashboard needs: the
// deepest point and when it happens, how many points are dimmed, and the flux
// mean and spread.
func Summarize(times, flux []float64) models.Summary {
	if len(flux) == 0 {
		return models.Summary{}
	}
	i := floats.MinIdx(flux)
	s := models.Summary{
		MinFlux: flux[i],
		Depth:   1 - flux[i],
	}
	if i < len(times) {
		s.TimeOfMinimum = times[i]
	}
	for _, f := range flux {
		if f < 1 {
			s.InTransit++
		}
	}
	if len(flux) > 1 {
		s.MeanFlux, s.StdFlux = stat.MeanStdDev(flux, nil)
	} else {
		s.MeanFlux = flux[0]
	}
	return s
}
