package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyPublisher fails while down is set and records what it delivered.
type flakyPublisher struct {
	mu        sync.Mutex
	down      bool
	delivered []string
}

func (p *flakyPublisher) Publish(_ context.Context, e LeaveGranted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return errors.New("broker unavailable")
	}
	p.delivered = append(p.delivered, e.ID)
	return nil
}

func (p *flakyPublisher) setDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func (p *flakyPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.delivered...)
}

func event(id string) LeaveGranted {
	return LeaveGranted{ID: id, EmployeeID: "E001"}
}

func TestRedeliverer_DeliversImmediatelyWhenHealthy(t *testing.T) {
	inner := &flakyPublisher{}
	r := NewRedeliverer(inner, nil)

	require.NoError(t, r.Publish(context.Background(), event("a")))

	assert.Equal(t, []string{"a"}, inner.ids())
	assert.Zero(t, r.Pending())
}

func TestRedeliverer_QueuesAndKeepsOrder(t *testing.T) {
	// GIVEN: The broker is down
	// WHEN: Two events are published, the broker recovers, a third arrives
	// THEN: All three are delivered in publish order after one retry

	inner := &flakyPublisher{down: true}
	r := NewRedeliverer(inner, nil)
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, event("a")))
	require.NoError(t, r.Publish(ctx, event("b")))
	assert.Equal(t, 2, r.Pending())

	inner.setDown(false)
	require.NoError(t, r.Publish(ctx, event("c")))
	assert.Empty(t, inner.ids(), "new events wait behind the queue")

	assert.Equal(t, 3, r.RunNow(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, inner.ids())
	assert.Zero(t, r.Pending())
}

func TestRedeliverer_QueueFull(t *testing.T) {
	inner := &flakyPublisher{down: true}
	r := NewRedeliverer(inner, nil)
	r.MaxPending = 1

	require.NoError(t, r.Publish(context.Background(), event("a")))
	assert.ErrorIs(t, r.Publish(context.Background(), event("b")), ErrQueueFull)
	assert.Equal(t, 1, r.Pending())
}

func TestRedeliverer_RunNow_StopsAtFirstFailure(t *testing.T) {
	inner := &flakyPublisher{down: true}
	r := NewRedeliverer(inner, nil)
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, event("a")))
	assert.Zero(t, r.RunNow(ctx))
	assert.Equal(t, 1, r.Pending())
}

func TestRedeliverer_BackgroundLoop(t *testing.T) {
	inner := &flakyPublisher{down: true}
	r := NewRedeliverer(inner, nil)
	r.Interval = 10 * time.Millisecond

	require.NoError(t, r.Publish(context.Background(), event("a")))
	inner.setDown(false)

	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool { return r.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, inner.ids())
}

// hangingPublisher never delivers; it waits for the context to end.
type hangingPublisher struct{}

func (hangingPublisher) Publish(ctx context.Context, _ LeaveGranted) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRedeliverer_FirstAttemptIsBounded(t *testing.T) {
	// GIVEN: A broker that accepts connections but never answers
	// WHEN: Publishing with no deadline on the caller's context
	// THEN: Publish gives up after Timeout and queues the event

	r := NewRedeliverer(hangingPublisher{}, nil)
	r.Timeout = 20 * time.Millisecond

	start := time.Now()
	require.NoError(t, r.Publish(context.Background(), event("a")))

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, r.Pending())
}
