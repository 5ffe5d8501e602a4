package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/models"
	"github.com/kristinelam/gotransit/pkg/worker"
)

// dip returns a flux series with a single point at 0.99 in the middle.
func dip(req models.LightCurveRequest) (models.Evaluation, error) {
	if len(req.K) == 0 {
		return models.Evaluation{}, fmt.Errorf("%w: radius ratio missing", gotransit.ErrInvalidParams)
	}
	flux := make([]float64, len(req.Time))
	for i := range flux {
		flux[i] = 1
	}
	flux[len(flux)/2] = 0.99
	ev := models.Evaluation{Model: "quadratic", Flux: flux}
	if len(req.Observed) > 0 {
		ev.ChiSquare, ev.HasChiSquare = 2.5, true
	}
	return ev, nil
}

type recordingSender struct {
	mu    sync.Mutex
	items []models.WebhookItem
}

func (s *recordingSender) Send(item models.WebhookItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *recordingSender) snapshot() []models.WebhookItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WebhookItem(nil), s.items...)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLightCurveHandler(t *testing.T) {
	h := NewLightCurveHandler(config.DefaultConfig(), dip, nil)

	rec := post(t, h, `{"id":"abc","time":[-0.1,0,0.1],"k":[0.1],"observed":[1,1,1]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp models.LightCurveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.ID)
	assert.Equal(t, "quadratic", resp.Model)
	assert.Equal(t, []float64{1, 0.99, 1}, resp.Flux)
	assert.Equal(t, 0.99, resp.Summary.MinFlux)
	assert.Equal(t, 0.0, resp.Summary.TimeOfMinimum)
	assert.Equal(t, 1, resp.Summary.InTransit)
	require.NotNil(t, resp.ChiSquare)
	assert.Equal(t, 2.5, *resp.ChiSquare)
}

func TestLightCurveHandlerGeneratesID(t *testing.T) {
	h := NewLightCurveHandler(nil, dip, nil)
	rec := post(t, h, `{"time":[0,1],"k":[0.1]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.LightCurveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Nil(t, resp.ChiSquare)
}

func TestLightCurveHandlerErrors(t *testing.T) {
	failing := func(models.LightCurveRequest) (models.Evaluation, error) {
		return models.Evaluation{}, errors.New("boom")
	}

	tests := []struct {
		name      string
		processor worker.ProcessorFunc
		method    string
		body      string
		code      int
	}{
		{"options", dip, http.MethodOptions, "", http.StatusOK},
		{"get", dip, http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", dip, http.MethodPost, "{", http.StatusBadRequest},
		{"no times", dip, http.MethodPost, `{"k":[0.1]}`, http.StatusBadRequest},
		{"invalid params", dip, http.MethodPost, `{"time":[0]}`, http.StatusBadRequest},
		{"internal", failing, http.MethodPost, `{"time":[0],"k":[0.1]}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLightCurveHandler(nil, tt.processor, nil)
			req := httptest.NewRequest(tt.method, "/lightcurve", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	for _, err := range []error{
		gotransit.ErrInvalidData,
		gotransit.ErrInvalidOrbit,
		gotransit.ErrInvalidParams,
		gotransit.ErrLDCCount,
		fmt.Errorf("wrapped: %w", gotransit.ErrUnknownModel),
		gotransit.ErrRadiusRatioOutOfRange,
		gotransit.ErrTableNotFound,
	} {
		assert.Equal(t, http.StatusBadRequest, statusFor(err), err.Error())
	}
	assert.Equal(t, http.StatusInternalServerError, statusFor(gotransit.ErrNotConfigured))
}

func TestBatchHandler(t *testing.T) {
	sender := &recordingSender{}
	pool := worker.New(worker.Options{Workers: 2, Processor: dip, Sender: sender})
	defer pool.Shutdown()

	timing := filepath.Join(t.TempDir(), "timing.csv")
	h := NewBatchHandler(config.DefaultConfig(), pool, timing, nil)

	body := `{"items":[
		{"iteration":0,"request":{"id":"a","time":[0,1,2],"k":[0.1]}},
		{"iteration":1,"request":{"id":"b","time":[0,1,2],"k":[0.1]}},
		{"iteration":2,"request":{"id":"c","time":[0,1,2]}}
	]}`
	rec := post(t, h, body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var ack map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, true, ack["success"])
	assert.NotEmpty(t, ack["batch_id"])
	assert.Equal(t, float64(3), ack["items"])

	require.Eventually(t, func() bool { return len(sender.snapshot()) == 3 }, 5*time.Second, time.Millisecond)

	byID := make(map[string]models.WebhookItem)
	for _, item := range sender.snapshot() {
		byID[item.RequestID] = item
		assert.Equal(t, ack["batch_id"], item.BatchID)
	}
	require.Contains(t, byID, "a_iter_000")
	require.Contains(t, byID, "b_iter_001")
	require.Contains(t, byID, "c_iter_002")
	assert.Equal(t, 0.99, byID["a_iter_000"].Summary.MinFlux)
	assert.NotEmpty(t, byID["c_iter_002"].Error)

	var rows [][]string
	require.Eventually(t, func() bool {
		f, err := os.Open(timing)
		if err != nil {
			return false
		}
		defer f.Close()
		rows, err = csv.NewReader(f).ReadAll()
		return err == nil && len(rows) == 2
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "BatchID", rows[0][1])
	assert.Equal(t, ack["batch_id"], rows[1][1])
	assert.Equal(t, "3", rows[1][2])
	assert.Equal(t, "2", rows[1][3])
	assert.Equal(t, "66.7", rows[1][8])
}

func TestBatchHandlerRejects(t *testing.T) {
	pool := worker.New(worker.Options{Workers: 1, Processor: dip})
	defer pool.Shutdown()
	h := NewBatchHandler(nil, pool, "", nil)

	assert.Equal(t, http.StatusBadRequest, post(t, h, "not json").Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h, `{"batch_id":"x","items":[]}`).Code)
}

func TestBatchAbandonedWhenPoolShutsDown(t *testing.T) {
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	stuck := func(req models.LightCurveRequest) (models.Evaluation, error) {
		started <- struct{}{}
		<-release
		return dip(req)
	}
	pool := worker.New(worker.Options{Workers: 1, Processor: stuck})
	h := NewBatchHandler(nil, pool, "", nil)

	batch := models.LightCurveBatch{BatchID: "stalled"}
	for i := 0; i < 3; i++ {
		batch.Items = append(batch.Items, models.BatchItem{
			Iteration: i,
			Request:   models.LightCurveRequest{Time: []float64{0, 1, 2}, K: []float64{0.1}},
		})
	}

	finished := make(chan struct{})
	go func() {
		h.processBatchAsync(batch)
		close(finished)
	}()
	<-started

	stopped := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(stopped)
	}()
	<-pool.Done()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("batch still waiting after pool shutdown")
	}

	close(release)
	<-stopped

	// a closed pool refuses new batches outright
	again := make(chan struct{})
	go func() {
		h.processBatchAsync(batch)
		close(again)
	}()
	select {
	case <-again:
	case <-time.After(5 * time.Second):
		t.Fatal("batch submitted to a closed pool did not return")
	}
}
