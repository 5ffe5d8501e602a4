package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit/internal/utils"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/models"
	"github.com/kristinelam/gotransit/pkg/webhook"
	"github.com/kristinelam/gotransit/pkg/worker"
)

// LightCurveHandler evaluates a single light curve and answers with the flux
type LightCurveHandler struct {
	config    *config.Config
	processor worker.ProcessorFunc
	log       hclog.Logger
}

// NewLightCurveHandler creates a new light curve handler
func NewLightCurveHandler(cfg *config.Config, processor worker.ProcessorFunc, logger hclog.Logger) *LightCurveHandler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LightCurveHandler{config: cfg, processor: processor, log: logger}
}

// ServeHTTP implements the http.Handler interface
func (h *LightCurveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}

	var req models.LightCurveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(req.Time) == 0 {
		writeError(w, "No time stamps provided", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = utils.GenerateID()
	}

	start := time.Now()
	ev, err := h.processor(req)
	elapsed := time.Since(start)
	if err != nil {
		h.log.Warn("light curve request failed", "id", req.ID, "error", err)
		writeError(w, err.Error(), statusFor(err))
		return
	}

	resp := models.LightCurveResponse{
		ID:           req.ID,
		Model:        ev.Model,
		Flux:         ev.Flux,
		Summary:      webhook.Summarize(req.Time, ev.Flux),
		NonConverged: ev.NonConverged,
		DurationMs:   float64(elapsed.Microseconds()) / 1000,
	}
	if ev.HasChiSquare {
		chi := ev.ChiSquare
		resp.ChiSquare = &chi
	}

	if !h.config.Quiet {
		h.log.Info("light curve evaluated", "id", req.ID, "model", ev.Model, "points", len(ev.Flux), "duration", elapsed)
	}
	writeJSON(w, http.StatusOK, resp)
}
