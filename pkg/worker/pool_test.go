package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristinelam/gotransit/pkg/models"
)

type recordingSender struct {
	mu    sync.Mutex
	items []models.WebhookItem
	err   error
}

func (s *recordingSender) Send(item models.WebhookItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func constantFlux(req models.LightCurveRequest) (models.Evaluation, error) {
	if len(req.Time) == 0 {
		return models.Evaluation{}, errors.New("no time stamps")
	}
	flux := make([]float64, len(req.Time))
	for i := range flux {
		flux[i] = 1
	}
	return models.Evaluation{Model: "uniform", Flux: flux}, nil
}

func TestPoolRepliesPerJob(t *testing.T) {
	p := New(Options{Workers: 3, Processor: constantFlux})
	defer p.Shutdown()

	const n = 20
	reply := make(chan models.WorkResult, n)
	for i := 0; i < n; i++ {
		require.NoError(t, p.SubmitJob(models.WorkItem{
			ID:        i,
			Iteration: i,
			BatchID:   "b1",
			Request:   models.LightCurveRequest{Time: make([]float64, i)},
			Reply:     reply,
		}))
	}

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		select {
		case r := <-reply:
			seen[r.Iteration] = true
			assert.Equal(t, "b1", r.BatchID)
			assert.Equal(t, r.Iteration != 0, r.Success, "iteration %d", r.Iteration)
			if !r.Success {
				assert.NotEmpty(t, r.Error)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}
	assert.Len(t, seen, n)
}

func TestPoolSharedResults(t *testing.T) {
	p := New(Options{Workers: 1, Processor: constantFlux})
	defer p.Shutdown()

	_, ok := p.GetResult()
	assert.False(t, ok)

	require.NoError(t, p.SubmitJob(models.WorkItem{ID: 7, Request: models.LightCurveRequest{Time: []float64{0, 1}}}))
	require.Eventually(t, func() bool {
		r, ok := p.GetResult()
		return ok && r.ID == 7 && len(r.Evaluation.Flux) == 2
	}, 5*time.Second, time.Millisecond)
}

func TestPoolDeliversWebhooks(t *testing.T) {
	sender := &recordingSender{err: errors.New("unreachable")}
	p := New(Options{Workers: 2, Processor: constantFlux, Sender: sender})

	for i := 0; i < 5; i++ {
		p.QueueWebhook(models.WebhookItem{RequestID: "r", Iteration: i})
	}
	require.Eventually(t, func() bool { return sender.count() == 5 }, 5*time.Second, time.Millisecond)
	p.Shutdown()
}

func TestPoolWithoutSender(t *testing.T) {
	p := New(Options{Processor: constantFlux})
	p.QueueWebhook(models.WebhookItem{RequestID: "dropped"})
	p.Shutdown()
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := New(Options{Workers: 1, Processor: constantFlux})
	select {
	case <-p.Done():
		t.Fatal("pool reported done before shutdown")
	default:
	}

	p.Shutdown()
	p.Shutdown()

	_, open := <-p.Done()
	assert.False(t, open)
	assert.ErrorIs(t, p.SubmitJob(models.WorkItem{ID: 1}), ErrPoolClosed)
}

func TestSubmitUnblocksOnShutdown(t *testing.T) {
	release := make(chan struct{})
	blocking := func(req models.LightCurveRequest) (models.Evaluation, error) {
		<-release
		return constantFlux(req)
	}
	p := New(Options{Workers: 1, Processor: blocking})

	// one job held by the worker plus a full queue
	for i := 0; i < 3; i++ {
		require.NoError(t, p.SubmitJob(models.WorkItem{ID: i, Request: models.LightCurveRequest{Time: []float64{0}}}))
	}

	errc := make(chan error, 1)
	go func() {
		errc <- p.SubmitJob(models.WorkItem{ID: 3})
	}()

	stopped := make(chan struct{})
	go func() {
		p.Shutdown()
		close(stopped)
	}()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("SubmitJob still blocked after shutdown")
	}
	close(release)
	<-stopped
}
