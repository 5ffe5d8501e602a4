package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/lightcurve", "/lightcurve"},
		{"/lightcurve/batch", "/lightcurve/batch"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/debug/gc", "/debug/gc"},
		{"/lightcurve/42", "other"},
		{"/wp-admin", "other"},
		{"/", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeRoute(tt.path))
		})
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareCountsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	assert.Contains(t, scrape(t), `gotransit_http_requests_total{code="418",method="GET",path="/health"} 1`)
}

func TestObserveEvaluation(t *testing.T) {
	ObserveEvaluation("metrics-test", time.Millisecond, nil)
	ObserveEvaluation("metrics-test", time.Millisecond, errors.New("boom"))
	ObserveEvaluation("metrics-test", time.Millisecond, errors.New("boom"))

	body := scrape(t)
	assert.Contains(t, body, `gotransit_evaluations_total{model="metrics-test",status="ok"} 1`)
	assert.Contains(t, body, `gotransit_evaluations_total{model="metrics-test",status="error"} 2`)
	assert.Contains(t, body, `gotransit_evaluation_duration_seconds_count{model="metrics-test"} 3`)
}

func TestGaugesAndCounters(t *testing.T) {
	AddNonConverged(0)
	AddNonConverged(2)
	RecordTableLookup("hit")
	RecordWebhook("sent")
	SetBreakerState("metrics-test", 2)
	SetQueueDepth("metrics-test", 3)

	body := scrape(t)
	assert.Contains(t, body, "gotransit_kepler_nonconverged_total 2")
	assert.Contains(t, body, `gotransit_table_lookups_total{result="hit"}`)
	assert.Contains(t, body, `gotransit_webhook_deliveries_total{status="sent"}`)
	assert.Contains(t, body, `gotransit_webhook_breaker_state{name="metrics-test"} 2`)
	assert.Contains(t, body, `gotransit_worker_queue_depth{queue="metrics-test"} 3`)
}
