package worker

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/kristinelam/gotransit/pkg/metrics"
	"github.com/kristinelam/gotransit/pkg/models"
)

// ErrPoolClosed is returned for jobs submitted after Shutdown.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Pool manages concurrent light curve workers
type Pool struct {
	jobs         chan models.WorkItem
	results      chan models.WorkResult
	webhookQueue chan models.WebhookItem
	workers      int
	shutdown     chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
	sends        sync.WaitGroup
	processor    ProcessorFunc
	sender       Sender
	log          hclog.Logger
}

// ProcessorFunc defines the signature for light curve evaluation
type ProcessorFunc func(req models.LightCurveRequest) (models.Evaluation, error)

// Sender delivers webhook items.
type Sender interface {
	Send(item models.WebhookItem) error
}

// Options holds configuration for creating a new worker pool
type Options struct {
	Workers   int
	Processor ProcessorFunc
	Sender    Sender
	Logger    hclog.Logger
}

// New creates a new worker pool with specified configuration
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	// do not block queueing new jobs and results while the workers are busy
	pool := &Pool{
		jobs:         make(chan models.WorkItem, opts.Workers*2),
		results:      make(chan models.WorkResult, opts.Workers*2),
		webhookQueue: make(chan models.WebhookItem, opts.Workers*4),
		workers:      opts.Workers,
		shutdown:     make(chan struct{}),
		processor:    opts.Processor,
		sender:       opts.Sender,
		log:          opts.Logger,
	}

	pool.start()
	return pool
}

// start initializes and starts all workers
func (p *Pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.webhookProcessor()

	p.log.Info("🔧 worker pool started", "workers", p.workers)
}

// worker processes jobs from the jobs channel
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobs:
			metrics.SetQueueDepth("jobs", len(p.jobs))
			result := p.processJob(job)
			out := job.Reply
			if out == nil {
				out = p.results
			}
			select {
			case out <- result:
			case <-p.shutdown:
				return
			}

		case <-p.shutdown:
			return
		}
	}
}

// processJob runs the processor for a single job
func (p *Pool) processJob(job models.WorkItem) models.WorkResult {
	startTime := time.Now()
	ev, err := p.processor(job.Request)
	processingTime := time.Since(startTime)

	result := models.WorkResult{
		ID:             job.ID,
		RequestID:      job.RequestID,
		BatchID:        job.BatchID,
		Iteration:      job.Iteration,
		Evaluation:     ev,
		Time:           job.Request.Time,
		ProcessingTime: processingTime,
		Success:        err == nil,
	}
	if err != nil {
		result.Error = err.Error()
		p.log.Warn("evaluation failed", "request_id", job.RequestID, "iteration", job.Iteration, "error", err)
	}
	return result
}

// webhookProcessor hands queued webhooks to the sender without blocking the
// workers
func (p *Pool) webhookProcessor() {
	defer p.wg.Done()

	for {
		select {
		case item := <-p.webhookQueue:
			metrics.SetQueueDepth("webhooks", len(p.webhookQueue))
			p.sends.Add(1)
			go p.sendWebhook(item)

		case <-p.shutdown:
			return
		}
	}
}

func (p *Pool) sendWebhook(item models.WebhookItem) {
	defer p.sends.Done()
	if p.sender == nil {
		p.log.Debug("no webhook sender configured, dropping", "request_id", item.RequestID)
		return
	}
	if err := p.sender.Send(item); err != nil {
		p.log.Warn("webhook delivery failed", "request_id", item.RequestID, "error", err)
	}
}

// Workers returns the number of evaluation workers
func (p *Pool) Workers() int {
	return p.workers
}

// SubmitJob submits a job to the worker pool. It blocks while the queue is
// full and fails with ErrPoolClosed once the pool is shutting down.
func (p *Pool) SubmitJob(job models.WorkItem) error {
	select {
	case <-p.shutdown:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
	default:
		p.log.Warn("⚠️ jobs channel full, job may be delayed", "request_id", job.RequestID)
		select {
		case p.jobs <- job:
		case <-p.shutdown:
			return ErrPoolClosed
		}
	}
	metrics.SetQueueDepth("jobs", len(p.jobs))
	return nil
}

// Done is closed when the pool starts shutting down. Callers waiting on reply
// channels select on it to stop waiting for jobs that will never finish.
func (p *Pool) Done() <-chan struct{} {
	return p.shutdown
}

// GetResult retrieves a result for a job submitted without a reply channel
// (non-blocking)
func (p *Pool) GetResult() (models.WorkResult, bool) {
	select {
	case result := <-p.results:
		return result, true
	default:
		return models.WorkResult{}, false
	}
}

// QueueWebhook queues a webhook for async processing
func (p *Pool) QueueWebhook(item models.WebhookItem) {
	select {
	case p.webhookQueue <- item:
	default:
		p.log.Warn("⚠️ webhook queue full, dropping webhook", "request_id", item.RequestID)
	}
}

// Shutdown stops the workers and waits for in-flight webhooks. It is safe to
// call more than once.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.log.Info("🛑 shutting down worker pool")
		close(p.shutdown)
	})
	p.wg.Wait()
	p.sends.Wait()
	p.log.Info("✅ worker pool shutdown complete")
}
