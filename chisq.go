package gotransit

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

type Weighting int

const (
	UNITY Weighting = iota
	SIGMA
)

// ChiSq returns the reduced chi-square of a model light curve against
// observed flux. With SIGMA weighting every residual is scaled by its
// uncertainty; non-positive uncertainties fall back to unit weight.
func ChiSq(observed, model, sigma []float64, weighting Weighting) (float64, error) {
	if len(observed) != len(model) {
		return 0, fmt.Errorf("%w: %d observed values for %d model values", ErrInvalidData, len(observed), len(model))
	}
	if len(observed) == 0 {
		return 0, fmt.Errorf("%w: no observations", ErrInvalidData)
	}
	if weighting == SIGMA && len(sigma) != len(observed) {
		return 0, fmt.Errorf("%w: %d uncertainties for %d observations", ErrInvalidData, len(sigma), len(observed))
	}

	residuals := floats.SubTo(make([]float64, len(observed)), observed, model)
	if weighting == SIGMA {
		for i, s := range sigma {
			if s > 0 {
				residuals[i] /= s
			}
		}
	}
	return floats.Dot(residuals, residuals) / float64(len(observed)), nil
}
