package orchestrate

import (
	"context"
	"sync"
	"time"
)

// circuitBreaker tracks a sliding window of the last N completions and
// pauses the pool when the failure rate exceeds threshold (spec §4.10
// "Error budget"), ported conceptually from the teacher's
// inactivity-counter pattern in DomainCrawler.monitor().
type circuitBreaker struct {
	mu        sync.Mutex
	threshold float64
	window    int
	pause     time.Duration

	outcomes  []bool // true = success
	pausedUntil time.Time
}

func newCircuitBreaker(threshold float64, window int, pause time.Duration) *circuitBreaker {
	if window <= 0 {
		window = 50
	}
	return &circuitBreaker{threshold: threshold, window: window, pause: pause}
}

// record appends one completion outcome and trips the breaker if the
// failure rate over the trailing window exceeds threshold.
func (b *circuitBreaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outcomes = append(b.outcomes, success)
	if len(b.outcomes) > b.window {
		b.outcomes = b.outcomes[len(b.outcomes)-b.window:]
	}
	if len(b.outcomes) < b.window {
		return
	}

	failures := 0
	for _, ok := range b.outcomes {
		if !ok {
			failures++
		}
	}
	rate := float64(failures) / float64(len(b.outcomes))
	if rate > b.threshold {
		b.pausedUntil = time.Now().Add(b.pause)
		b.outcomes = b.outcomes[:0]
	}
}

// paused reports whether the breaker is currently tripped.
func (b *circuitBreaker) paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Now().Before(b.pausedUntil)
}

// waitOut blocks until the pause window elapses or ctx is cancelled.
func (b *circuitBreaker) waitOut(ctx context.Context) {
	b.mu.Lock()
	until := b.pausedUntil
	b.mu.Unlock()

	d := time.Until(until)
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
