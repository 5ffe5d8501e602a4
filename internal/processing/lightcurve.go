package processing

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/metrics"
	"github.com/kristinelam/gotransit/pkg/models"
)

// LightCurveProcessor evaluates light curve requests. A model is built per
// request; interpolation tables are shared through the table store.
type LightCurveProcessor struct {
	config *config.Config
	tables gotransit.TableStore
	log    hclog.Logger
}

// NewLightCurveProcessor creates a processor. tables may be nil, in which case
// every interpolating model builds its own table.
func NewLightCurveProcessor(cfg *config.Config, tables gotransit.TableStore, logger hclog.Logger) *LightCurveProcessor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LightCurveProcessor{config: cfg, tables: tables, log: logger}
}

// modelConfig resolves the request's model name against the service defaults.
// A named preset keeps the service's table layout, sampling and parallelism,
// and the service can switch on interpolation and eclipses for every preset.
func (p *LightCurveProcessor) modelConfig(name string) (gotransit.Config, error) {
	mc := p.config.ModelConfig()
	if name = strings.TrimSpace(name); name != "" {
		preset, err := gotransit.Preset(name)
		if err != nil {
			return gotransit.Config{}, err
		}
		preset.KMin, preset.KMax, preset.NK, preset.NZ = mc.KMin, mc.KMax, mc.NK, mc.NZ
		preset.Supersampling, preset.ExposureTime = mc.Supersampling, mc.ExposureTime
		preset.Workers = mc.Workers
		preset.Interpolate = preset.Interpolate || mc.Interpolate
		preset.Eclipse = preset.Eclipse || mc.Eclipse
		mc = preset
	}
	mc.Tables = p.tables
	mc.Logger = p.log.Named("model")
	return mc, nil
}

// Process evaluates one request.
func (p *LightCurveProcessor) Process(req models.LightCurveRequest) (models.Evaluation, error) {
	if len(req.Time) == 0 {
		return models.Evaluation{}, fmt.Errorf("%w: no time stamps provided", gotransit.ErrInvalidData)
	}
	if len(req.Observed) > 0 && len(req.Observed) != len(req.Time) {
		return models.Evaluation{}, fmt.Errorf("%w: observed flux length mismatch: %d vs %d", gotransit.ErrInvalidData, len(req.Observed), len(req.Time))
	}

	mc, err := p.modelConfig(req.Model)
	if err != nil {
		return models.Evaluation{}, err
	}
	label := mc.Model

	start := time.Now()
	ev, err := p.evaluate(mc, req)
	metrics.ObserveEvaluation(label, time.Since(start), err)
	if err != nil {
		p.log.Debug("evaluation failed", "model", label, "error", err)
		return models.Evaluation{}, err
	}
	metrics.AddNonConverged(ev.NonConverged)

	if !p.config.Quiet {
		p.log.Debug("evaluation completed", "model", label, "points", len(ev.Flux), "duration", time.Since(start))
	}
	return ev, nil
}

func (p *LightCurveProcessor) evaluate(mc gotransit.Config, req models.LightCurveRequest) (models.Evaluation, error) {
	m, err := gotransit.New(mc)
	if err != nil {
		return models.Evaluation{}, err
	}
	if err := m.SetData(gotransit.Dataset{
		Time:     req.Time,
		LCIDs:    req.LCIDs,
		PBIDs:    req.PBIDs,
		NSamples: req.NSamples,
		ExpTimes: req.ExpTimes,
	}); err != nil {
		return models.Evaluation{}, err
	}

	params := gotransit.Params{
		K: req.K,
		Orbit: gotransit.Orbit{
			T0:     req.Orbit.T0,
			Period: req.Orbit.Period,
			A:      req.Orbit.A,
			Inc:    req.Orbit.Inc,
			Ecc:    req.Orbit.Ecc,
			W:      req.Orbit.W,
		},
	}
	ldc := req.LDC
	if len(ldc) == 0 && m.NLDC() > 0 {
		ldc = p.config.LDC
	}

	flux, err := m.Evaluate(params, ldc, req.Contamination)
	if err != nil {
		return models.Evaluation{}, err
	}

	ev := models.Evaluation{
		Model:        mc.Model,
		Flux:         flux,
		NonConverged: m.NonConverged(),
	}
	if len(req.Observed) > 0 {
		weighting := gotransit.UNITY
		if len(req.Sigma) > 0 {
			weighting = gotransit.SIGMA
		}
		chi, err := gotransit.ChiSq(req.Observed, flux, req.Sigma, weighting)
		if err != nil {
			return models.Evaluation{}, err
		}
		ev.ChiSquare, ev.HasChiSquare = chi, true
	}
	return ev, nil
}

// ProcessorFunc creates a function compatible with the worker pool
func (p *LightCurveProcessor) ProcessorFunc() func(req models.LightCurveRequest) (models.Evaluation, error) {
	return p.Process
}
