// Package trigger turns user presses (hotkey, TUI key) into send requests
// for the session controller, throttled by a token-bucket limiter.
package trigger

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/chaz8081/bluno-link/internal/session"
)

// Enqueuer accepts requests for the session event loop.
type Enqueuer interface {
	Enqueue(r session.Request) bool
}

// Trigger posts a fixed command value each time it fires.
type Trigger struct {
	q       Enqueuer
	value   uint64
	limiter *rate.Limiter
}

// New creates a Trigger that sends value to q at most once per minInterval.
// A zero minInterval disables throttling.
func New(q Enqueuer, value uint64, minInterval time.Duration) *Trigger {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Trigger{
		q:       q,
		value:   value,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Value returns the command value sent on each fire.
func (t *Trigger) Value() uint64 { return t.value }

// Fire posts one SendRequest. It reports false if the press was throttled
// or the controller's queue was full.
func (t *Trigger) Fire() bool {
	if !t.limiter.Allow() {
		slog.Debug("[TRIGGER] press throttled", "value", t.value)
		return false
	}
	return t.q.Enqueue(session.SendRequest{Value: t.value})
}

// Forward fires t once per value received on presses until ctx is done or
// presses is closed.
func Forward[E any](ctx context.Context, t *Trigger, presses <-chan E) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-presses:
			if !ok {
				return
			}
			t.Fire()
		}
	}
}
