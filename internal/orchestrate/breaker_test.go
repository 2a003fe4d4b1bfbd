package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerTripsOnFailureRate(t *testing.T) {
	b := newCircuitBreaker(0.5, 4, 50*time.Millisecond)

	assert.False(t, b.paused())
	b.record(false)
	b.record(false)
	b.record(false)
	b.record(false)

	assert.True(t, b.paused())
}

func TestCircuitBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := newCircuitBreaker(0.5, 4, 50*time.Millisecond)

	b.record(true)
	b.record(true)
	b.record(true)
	b.record(false)

	assert.False(t, b.paused())
}

func TestCircuitBreakerWaitOutReturnsAfterPause(t *testing.T) {
	b := newCircuitBreaker(0.0, 1, 10*time.Millisecond)
	b.record(false)
	assert.True(t, b.paused())

	start := time.Now()
	b.waitOut(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.False(t, b.paused())
}

func TestCircuitBreakerWaitOutRespectsCancellation(t *testing.T) {
	b := newCircuitBreaker(0.0, 1, time.Hour)
	b.record(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		b.waitOut(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitOut did not return promptly on cancelled context")
	}
}
