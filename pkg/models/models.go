package models

import (
	"time"
)

// OrbitParams is the orbit block of a light curve request. Angles are in
// radians, times in days.
type OrbitParams struct {
	T0     float64 `json:"t0"`
	Period float64 `json:"period"`
	A      float64 `json:"a"`
	Inc    float64 `json:"inc"`
	Ecc    float64 `json:"ecc"`
	W      float64 `json:"w"`
}

// LightCurveRequest represents one light curve evaluation
type LightCurveRequest struct {
	ID            string      `json:"id,omitempty"`
	Model         string      `json:"model,omitempty"`
	Time          []float64   `json:"time"`
	LCIDs         []int       `json:"lcids,omitempty"`
	PBIDs         []int       `json:"pbids,omitempty"`
	NSamples      []int       `json:"nsamples,omitempty"`
	ExpTimes      []float64   `json:"exptimes,omitempty"`
	K             []float64   `json:"k"`
	Orbit         OrbitParams `json:"orbit"`
	LDC           []float64   `json:"ldc,omitempty"`
	Contamination []float64   `json:"contamination,omitempty"`

	// Observed flux and its uncertainties; when set the response carries a
	// chi-square.
	Observed []float64 `json:"observed,omitempty"`
	Sigma    []float64 `json:"sigma,omitempty"`
}

// Summary describes the shape of an evaluated light curve
type Summary struct {
	MinFlux       float64 `json:"min_flux"`
	Depth         float64 `json:"depth"`
	TimeOfMinimum float64 `json:"time_of_minimum"`
	InTransit     int     `json:"in_transit"`
	MeanFlux      float64 `json:"mean_flux"`
	StdFlux       float64 `json:"std_flux"`
}

// Evaluation is the outcome of processing one request
type Evaluation struct {
	Model        string
	Flux         []float64
	ChiSquare    float64
	HasChiSquare bool
	NonConverged uint64
}

// LightCurveResponse is returned by the synchronous endpoint
type LightCurveResponse struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Flux         []float64 `json:"flux"`
	Summary      Summary   `json:"summary"`
	ChiSquare    *float64  `json:"chi_square,omitempty"`
	NonConverged uint64    `json:"non_converged"`
	DurationMs   float64   `json:"duration_ms"`
}

// BatchItem represents a single light curve with iteration number
type BatchItem struct {
	Request   LightCurveRequest `json:"request"`
	Iteration int               `json:"iteration"`
}

// LightCurveBatch represents a batch of light curve evaluations
type LightCurveBatch struct {
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Items     []BatchItem `json:"items"`
}

// WorkItem represents a single evaluation task. The result is delivered on
// Reply.
type WorkItem struct {
	ID        int
	RequestID string
	BatchID   string
	Iteration int
	Request   LightCurveRequest
	StartTime time.Time
	Reply     chan<- WorkResult
}

// WorkResult contains the result of an evaluation task
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Iteration      int
	Evaluation     Evaluation
	Time           []float64
	ProcessingTime time.Duration
	Success        bool
	Error          string
}

// WebhookItem represents a webhook task
type WebhookItem struct {
	RequestID    string
	BatchID      string
	Iteration    int
	Model        string
	Time         []float64
	Flux         []float64
	ChiSquare    float64
	NonConverged uint64
	Summary      Summary
	Error        string
}

// WebhookResponse represents the webhook payload structure
type WebhookResponse struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id,omitempty"`
	Iteration    int       `json:"iteration"`
	Time         string    `json:"time"`
	Model        string    `json:"model"`
	ChiSquare    float64   `json:"chi_square"`
	Times        []float64 `json:"times"`
	Flux         []float64 `json:"flux"`
	NonConverged uint64    `json:"non_converged"`
	Summary      Summary   `json:"summary"`
	Error        string    `json:"error,omitempty"`
}

// EvaluationTiming tracks performance metrics for individual evaluations
type EvaluationTiming struct {
	Iteration      int           `json:"iteration"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	ChiSquare      float64       `json:"chi_square"`
	Points         int           `json:"points"`
	Success        bool          `json:"success"`
	Model          string        `json:"model"`
}
