package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristinelam/gotransit/internal/processing"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/models"
)

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

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func newTestServer(t *testing.T, sender *recordingSender) *httptest.Server {
	t.Helper()
	srvCfg := config.DefaultServerConfig()
	srvCfg.WorkerCount = 2
	srvCfg.TimingFile = ""

	s, err := New(Options{
		ServerConfig: srvCfg,
		Processor:    processing.NewLightCurveProcessor(nil, nil, nil).ProcessorFunc(),
		Sender:       sender,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return ts
}

const transitBody = `{"time":[-0.05,0,0.05,0.75],"k":[0.1],"orbit":{"period":3,"a":7,"inc":1.5707963267948966},"ldc":[0.3,0.2]}`

func TestNewRequiresProcessor(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestLightCurveEndpoint(t *testing.T) {
	ts := newTestServer(t, &recordingSender{})

	resp, err := http.Post(ts.URL+"/lightcurve", "application/json", strings.NewReader(transitBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lc models.LightCurveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lc))
	require.Len(t, lc.Flux, 4)
	assert.InDelta(t, 0.98847, lc.Flux[1], 1e-5)
	assert.Equal(t, 1.0, lc.Flux[3])
	assert.InDelta(t, 0.0115, lc.Summary.Depth, 1e-4)
	assert.Equal(t, 0.0, lc.Summary.TimeOfMinimum)
}

func TestLightCurveEndpointRejectsBadModel(t *testing.T) {
	ts := newTestServer(t, &recordingSender{})

	body := strings.Replace(transitBody, `"time"`, `"model":"nope","time"`, 1)
	resp, err := http.Post(ts.URL+"/lightcurve", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBatchEndpointDeliversWebhooks(t *testing.T) {
	sender := &recordingSender{}
	ts := newTestServer(t, sender)

	body := `{"batch_id":"b-1","items":[{"iteration":0,"request":` + transitBody + `},{"iteration":1,"request":` + transitBody + `}]}`
	resp, err := http.Post(ts.URL+"/lightcurve/batch", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool { return sender.count() == 2 }, 5*time.Second, time.Millisecond)
}

func TestOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t, &recordingSender{})

	for _, path := range []string{"/health", "/debug/gc", "/debug/memory"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err, path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body), path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `gotransit_http_requests_total{code="200",method="GET",path="/health"}`)
}
