package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"

	"github.com/kristinelam/gotransit/pkg/metrics"
	"github.com/kristinelam/gotransit/pkg/models"
)

// ErrStatus is returned when the receiver answers with an HTTP error.
var ErrStatus = errors.New("webhook request failed")

// Options configures a Client.
type Options struct {
	URL string
	// FailureThreshold consecutive failures open the breaker for
	// BreakerTimeout.
	FailureThreshold uint32
	BreakerTimeout   time.Duration
	Timeout          time.Duration
	Quiet            bool
	Logger           hclog.Logger
}

// Client handles webhook HTTP requests with connection pooling and a circuit
// breaker in front of the receiver
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[int]
	quiet      bool
	log        hclog.Logger
	bufferPool sync.Pool
}

// NewClient creates a new webhook client
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		// payloads are small JSON documents
		DisableCompression: true,
		ForceAttemptHTTP2:  false,
	}

	c := &Client{
		url:   opts.URL,
		quiet: opts.Quiet,
		log:   opts.Logger,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 4096))
			},
		},
	}

	c.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Info("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.SetBreakerState(name, int(to))
		},
	})
	return c
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Send posts the webhook payload for item. While the breaker is open the call
// fails fast with gobreaker.ErrOpenState.
func (c *Client) Send(item models.WebhookItem) error {
	payload := models.WebhookResponse{
		ID:           item.RequestID,
		BatchID:      item.BatchID,
		Iteration:    item.Iteration,
		Time:         time.Now().Format(time.RFC3339Nano),
		Model:        item.Model,
		ChiSquare:    sanitizeFloat(item.ChiSquare),
		Times:        item.Time,
		Flux:         sanitizeFloats(item.Flux),
		NonConverged: item.NonConverged,
		Summary:      sanitizeSummary(item.Summary),
		Error:        item.Error,
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	status, err := c.breaker.Execute(func() (int, error) {
		resp, err := c.httpClient.Post(c.url, "application/json", bytes.NewReader(buf.Bytes()))
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			return resp.StatusCode, fmt.Errorf("%w with status %d", ErrStatus, resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordWebhook("rejected")
		return fmt.Errorf("failed to send webhook: %w", err)
	case err != nil:
		metrics.RecordWebhook("failed")
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	metrics.RecordWebhook("sent")

	if !c.quiet {
		c.log.Debug("webhook sent", "id", item.RequestID, "model", item.Model, "chi_square", item.ChiSquare, "status", status)
	}
	return nil
}

// sanitizeFloat cleans float64 values for JSON compatibility
func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0.0
	}
	return value
}

func sanitizeFloats(values []float64) []float64 {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out := make([]float64, len(values))
			for i, v := range values {
				out[i] = sanitizeFloat(v)
			}
			return out
		}
	}
	return values
}

func sanitizeSummary(s models.Summary) models.Summary {
	s.MinFlux = sanitizeFloat(s.MinFlux)
	s.Depth = sanitizeFloat(s.Depth)
	s.TimeOfMinimum = sanitizeFloat(s.TimeOfMinimum)
	s.MeanFlux = sanitizeFloat(s.MeanFlux)
	s.StdFlux = sanitizeFloat(s.StdFlux)
	return s
}
