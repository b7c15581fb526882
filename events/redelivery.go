/*
redelivery.go - Background redelivery of events that failed to publish

PURPOSE:
  A grant is committed before its LeaveGranted event is published, so a
  broker outage must not lose the event. Redeliverer wraps a Publisher,
  queues events whose first delivery failed and retries them on a ticker.

DESIGN:
  - Publish tries the inner publisher once, bounded by Timeout; on failure
    the event is queued and Publish returns nil
  - While the queue is non-empty new events go straight to its tail, so
    queued events keep the order they were published in
  - A background goroutine retries the queue every Interval, oldest first,
    stopping at the first failure
  - The queue is bounded by MaxPending; a full queue rejects new events
    with ErrQueueFull

CONFIGURATION:
  - Interval:   How often to retry (default: 30 seconds)
  - MaxPending: Queue bound (default: 1000)
  - Timeout:    Bound on each delivery attempt (default: 10 seconds)

USAGE:
  r := events.NewRedeliverer(kafkaPublisher, log)
  r.Start()
  // ... later
  r.Stop()

SEE ALSO:
  - events/kafka/publisher.go: The usual inner publisher
  - cli/server.go: Start/Stop around the HTTP server
*/
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/leave-ledger/logger"
)

// ErrQueueFull is returned when an undeliverable event cannot be queued.
var ErrQueueFull = errors.New("redelivery queue full")

const (
	DefaultRedeliveryInterval = 30 * time.Second
	DefaultMaxPending         = 1000
)

// Redeliverer retries failed event deliveries in the background.
type Redeliverer struct {
	Inner      Publisher
	Interval   time.Duration
	MaxPending int
	Timeout    time.Duration // per delivery attempt

	log logger.Logger

	mu      sync.Mutex
	pending []LeaveGranted
	retryMu sync.Mutex

	runMu  sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewRedeliverer wraps inner with default settings.
func NewRedeliverer(inner Publisher, log logger.Logger) *Redeliverer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Redeliverer{
		Inner:      inner,
		Interval:   DefaultRedeliveryInterval,
		MaxPending: DefaultMaxPending,
		Timeout:    10 * time.Second,
		log:        log,
	}
}

// Publish delivers event now or queues it for a later attempt.
func (r *Redeliverer) Publish(ctx context.Context, event LeaveGranted) error {
	if r.Pending() == 0 {
		attemptCtx, cancel := context.WithTimeout(ctx, r.Timeout)
		err := r.Inner.Publish(attemptCtx, event)
		cancel()
		if err == nil {
			return nil
		}
		r.log.LogWarning(ctx, "Event delivery failed, queued for retry",
			"event_id", event.ID,
			"employee_id", event.EmployeeID,
			"error", err.Error())
	}
	return r.enqueue(event)
}

func (r *Redeliverer) enqueue(event LeaveGranted) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) >= r.MaxPending {
		return ErrQueueFull
	}
	r.pending = append(r.pending, event)
	return nil
}

// Pending returns the number of queued events.
func (r *Redeliverer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Start begins the retry loop.
func (r *Redeliverer) Start() {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(r.Interval)
	r.stop = make(chan struct{})
	r.wg.Add(1)

	go r.run(r.ticker, r.stop)

	r.log.LogInfo(context.TODO(), "Event redelivery started", "interval", r.Interval.String())
}

// Stop ends the retry loop. Events still queued are logged and dropped.
func (r *Redeliverer) Stop() {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.wg.Wait()
	r.ticker = nil

	if n := r.Pending(); n > 0 {
		r.log.LogWarning(context.TODO(), "Event redelivery stopped with undelivered events", "pending", n)
	}
}

func (r *Redeliverer) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer r.wg.Done()

	for {
		select {
		case <-ticker.C:
			r.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow retries queued events once and returns how many were delivered.
func (r *Redeliverer) RunNow(ctx context.Context) int {
	r.retryMu.Lock()
	defer r.retryMu.Unlock()

	r.mu.Lock()
	batch := append([]LeaveGranted(nil), r.pending...)
	r.mu.Unlock()

	delivered := 0
	for _, event := range batch {
		attemptCtx, cancel := context.WithTimeout(ctx, r.Timeout)
		err := r.Inner.Publish(attemptCtx, event)
		cancel()
		if err != nil {
			r.log.LogWarning(ctx, "Event redelivery failed",
				"event_id", event.ID,
				"pending", len(batch)-delivered,
				"error", err.Error())
			break
		}
		delivered++
	}

	if delivered > 0 {
		r.mu.Lock()
		r.pending = r.pending[delivered:]
		r.mu.Unlock()
		r.log.LogInfo(ctx, "Redelivered events", "count", delivered)
	}
	return delivered
}
