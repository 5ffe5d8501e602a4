package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit/internal/utils"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/models"
	"github.com/kristinelam/gotransit/pkg/webhook"
	"github.com/kristinelam/gotransit/pkg/worker"
)

// BatchHandler handles batch light curve requests. Items are evaluated on the
// worker pool and every result is delivered by webhook.
type BatchHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	timingFile string
	log        hclog.Logger
}

// NewBatchHandler creates a new batch handler. An empty timingFile disables
// the timing log.
func NewBatchHandler(cfg *config.Config, pool *worker.Pool, timingFile string, logger hclog.Logger) *BatchHandler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &BatchHandler{
		config:     cfg,
		workerPool: pool,
		timingFile: timingFile,
		log:        logger,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}

	var batch models.LightCurveBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if len(batch.Items) == 0 {
		writeError(w, "No light curves provided in batch", http.StatusBadRequest)
		return
	}
	if batch.BatchID == "" {
		batch.BatchID = utils.GenerateID()
	}

	h.log.Info("🔄 batch processing started", "batch_id", batch.BatchID, "items", len(batch.Items))

	go h.processBatchAsync(batch)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":  true,
		"batch_id": batch.BatchID,
		"items":    len(batch.Items),
		"message":  "Batch processing started with worker pool",
	})
}

// processBatchAsync evaluates every item on the pool and waits for all of
// them before writing the timing record. A batch still running when the pool
// shuts down is abandoned.
func (h *BatchHandler) processBatchAsync(batch models.LightCurveBatch) {
	batchStart := time.Now()
	reply := make(chan models.WorkResult, len(batch.Items))

	for i, item := range batch.Items {
		if err := h.workerPool.SubmitJob(h.createWorkItem(i, item, batch.BatchID, reply)); err != nil {
			h.log.Warn("⚠️ batch abandoned", "batch_id", batch.BatchID, "submitted", i, "items", len(batch.Items), "error", err)
			return
		}
	}

	timings := make([]models.EvaluationTiming, len(batch.Items))
	for done := 0; done < len(batch.Items); done++ {
		select {
		case result := <-reply:
			h.processResult(result, timings)
		case <-h.workerPool.Done():
			h.log.Warn("⚠️ batch abandoned, worker pool closed", "batch_id", batch.BatchID, "completed", done, "items", len(batch.Items))
			return
		}
	}

	total := time.Since(batchStart)
	if h.timingFile != "" {
		if err := h.saveTimingResults(batch.BatchID, total, timings, h.workerPool.Workers()); err != nil {
			h.log.Error("failed to save timing results", "file", h.timingFile, "error", err)
		}
	}

	h.log.Info("🎉 batch processing completed", "batch_id", batch.BatchID, "total", total)
}

// createWorkItem wraps a batch item for the pool. ID indexes the item inside
// the batch.
func (h *BatchHandler) createWorkItem(idx int, item models.BatchItem, batchID string, reply chan<- models.WorkResult) models.WorkItem {
	requestID := item.Request.ID
	if requestID == "" {
		requestID = utils.GenerateID()
	}
	return models.WorkItem{
		ID:        idx,
		RequestID: requestID,
		BatchID:   batchID,
		Iteration: item.Iteration,
		Request:   item.Request,
		StartTime: time.Now(),
		Reply:     reply,
	}
}

// processResult records timing and queues the webhook for one result
func (h *BatchHandler) processResult(result models.WorkResult, timings []models.EvaluationTiming) {
	timings[result.ID] = models.EvaluationTiming{
		Iteration:      result.Iteration,
		ProcessingTime: result.ProcessingTime,
		ChiSquare:      result.Evaluation.ChiSquare,
		Points:         len(result.Time),
		Success:        result.Success,
		Model:          result.Evaluation.Model,
	}

	item := models.WebhookItem{
		RequestID:    fmt.Sprintf("%s_iter_%03d", result.RequestID, result.Iteration),
		BatchID:      result.BatchID,
		Iteration:    result.Iteration,
		Model:        result.Evaluation.Model,
		Time:         result.Time,
		Flux:         result.Evaluation.Flux,
		ChiSquare:    result.Evaluation.ChiSquare,
		NonConverged: result.Evaluation.NonConverged,
		Error:        result.Error,
	}
	if result.Success {
		item.Summary = webhook.Summarize(result.Time, result.Evaluation.Flux)
	}
	h.workerPool.QueueWebhook(item)

	if !h.config.Quiet {
		h.log.Debug("✅ processed light curve", "batch_id", result.BatchID, "iteration", result.Iteration, "success", result.Success)
	}
}

// saveTimingResults appends one CSV row of batch statistics to the timing file
func (h *BatchHandler) saveTimingResults(batchID string, totalTime time.Duration, timings []models.EvaluationTiming, concurrency int) error {
	_, statErr := os.Stat(h.timingFile)
	writeHeader := os.IsNotExist(statErr)

	file, err := os.OpenFile(h.timingFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening timing file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		header := []string{
			"Timestamp",
			"BatchID",
			"TotalCurves",
			"Concurrency",
			"TotalBatchTime_ms",
			"AvgCurveTime_ms",
			"MinCurveTime_ms",
			"MaxCurveTime_ms",
			"SuccessRate",
			"AvgChiSquare",
			"PointsPerSecond",
			"EfficiencyScore",
			"Model",
		}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("writing timing header: %w", err)
		}
	}

	var sum time.Duration
	minTime, maxTime := time.Duration(1<<62), time.Duration(0)
	var successful, points int
	var totalChiSq float64
	for _, t := range timings {
		sum += t.ProcessingTime
		if t.ProcessingTime < minTime {
			minTime = t.ProcessingTime
		}
		if t.ProcessingTime > maxTime {
			maxTime = t.ProcessingTime
		}
		if t.Success {
			successful++
			points += t.Points
			totalChiSq += t.ChiSquare
		}
	}

	n := len(timings)
	avg := sum / time.Duration(n)
	successRate := float64(successful) / float64(n) * 100
	avgChiSq := 0.0
	if successful > 0 {
		avgChiSq = totalChiSq / float64(successful)
	}
	pointsPerSecond := 0.0
	efficiency := 0.0
	if secs := totalTime.Seconds(); secs > 0 {
		pointsPerSecond = float64(points) / secs
		// 1.0 means linear speedup over the workers
		efficiency = sum.Seconds() / secs / float64(concurrency)
	}

	model := "unknown"
	if n > 0 && timings[0].Model != "" {
		model = timings[0].Model
	}

	record := []string{
		time.Now().Format(time.RFC3339),
		batchID,
		fmt.Sprintf("%d", n),
		fmt.Sprintf("%d", concurrency),
		fmt.Sprintf("%.2f", ms(totalTime)),
		fmt.Sprintf("%.2f", ms(avg)),
		fmt.Sprintf("%.2f", ms(minTime)),
		fmt.Sprintf("%.2f", ms(maxTime)),
		fmt.Sprintf("%.1f", successRate),
		fmt.Sprintf("%.6e", avgChiSq),
		fmt.Sprintf("%.2f", pointsPerSecond),
		fmt.Sprintf("%.3f", efficiency),
		model,
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("writing timing record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	h.log.Info("📊 timing saved", "curves", n, "workers", concurrency, "total_ms", ms(totalTime), "success_rate", successRate, "efficiency", efficiency)
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
