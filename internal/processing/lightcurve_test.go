package processing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/internal/tablestore"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/models"
)

func transitRequest() models.LightCurveRequest {
	return models.LightCurveRequest{
		Time:  []float64{-0.05, 0, 0.05, 0.75},
		K:     []float64{0.1},
		Orbit: models.OrbitParams{Period: 3, A: 7, Inc: math.Pi / 2},
		LDC:   []float64{0.3, 0.2},
	}
}

func TestProcessExampleTransit(t *testing.T) {
	p := NewLightCurveProcessor(nil, nil, nil)

	ev, err := p.Process(transitRequest())
	require.NoError(t, err)
	require.Len(t, ev.Flux, 4)
	assert.Equal(t, gotransit.ModelQuadratic, ev.Model)
	assert.InDelta(t, 0.98847, ev.Flux[1], 1e-5)
	assert.Equal(t, 1.0, ev.Flux[3])
	assert.False(t, ev.HasChiSquare)
	assert.Zero(t, ev.NonConverged)
}

func TestProcessChiSquare(t *testing.T) {
	p := NewLightCurveProcessor(nil, nil, nil)
	req := transitRequest()

	ev, err := p.Process(req)
	require.NoError(t, err)

	req.Observed = ev.Flux
	ev, err = p.Process(req)
	require.NoError(t, err)
	assert.True(t, ev.HasChiSquare)
	assert.Zero(t, ev.ChiSquare)

	req.Observed = []float64{1, 1}
	_, err = p.Process(req)
	assert.ErrorIs(t, err, gotransit.ErrInvalidData)
}

func TestProcessUsesDefaultCoefficients(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LDC = config.ArrayFlags{0.3, 0.2}
	p := NewLightCurveProcessor(cfg, nil, nil)

	req := transitRequest()
	req.LDC = nil
	ev, err := p.Process(req)
	require.NoError(t, err)
	assert.InDelta(t, 0.98847, ev.Flux[1], 1e-5)
}

func TestProcessPresets(t *testing.T) {
	cache := tablestore.NewCache(nil, nil)
	cfg := config.DefaultConfig()
	cfg.NK, cfg.NZ = 16, 32
	p := NewLightCurveProcessor(cfg, cache, nil)

	tests := []struct {
		model string
		ldc   []float64
	}{
		{"uniform", nil},
		{"power-2", []float64{0.6, 0.6}},
		{"interpolated-quadratic", []float64{0.3, 0.2}},
		{"chromosphere", nil},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			req := transitRequest()
			req.Model = tt.model
			req.LDC = tt.ldc
			ev, err := p.Process(req)
			require.NoError(t, err)
			assert.Len(t, ev.Flux, len(req.Time))
			for _, f := range ev.Flux {
				assert.LessOrEqual(t, f, 1.0)
			}
		})
	}
	assert.Equal(t, 1, cache.Len())
}

func TestProcessErrors(t *testing.T) {
	p := NewLightCurveProcessor(nil, nil, nil)

	req := transitRequest()
	req.Time = nil
	_, err := p.Process(req)
	assert.ErrorIs(t, err, gotransit.ErrInvalidData)

	req = transitRequest()
	req.Model = "claret"
	_, err = p.Process(req)
	assert.ErrorIs(t, err, gotransit.ErrUnknownModel)

	req = transitRequest()
	req.LDC = []float64{0.3}
	_, err = p.Process(req)
	assert.ErrorIs(t, err, gotransit.ErrLDCCount)

	req = transitRequest()
	req.Orbit.Period = -3
	_, err = p.Process(req)
	assert.ErrorIs(t, err, gotransit.ErrInvalidOrbit)
}

func TestProcessorFunc(t *testing.T) {
	fn := NewLightCurveProcessor(nil, nil, nil).ProcessorFunc()
	ev, err := fn(transitRequest())
	require.NoError(t, err)
	assert.Len(t, ev.Flux, 4)
}
