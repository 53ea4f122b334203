package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Ramsey-B/sage/pkg/errors"
)

// Gate bounds the number of simultaneous crawl sessions. A slot that cannot
// be acquired within the timeout fails with a CapacityError instead of
// queueing indefinitely.
type Gate struct {
	sem     *semaphore.Weighted
	limit   int
	timeout time.Duration
}

// NewGate creates a Gate with limit slots. A non-positive limit means one slot.
func NewGate(limit int, timeout time.Duration) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{
		sem:     semaphore.NewWeighted(int64(limit)),
		limit:   limit,
		timeout: timeout,
	}
}

// Limit returns the number of slots.
func (g *Gate) Limit() int {
	return g.limit
}

// Acquire waits for a slot and returns its release func, which is safe to
// call more than once. Cancellation of ctx is returned as ctx.Err().
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	waitCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewCapacityError(g.limit, g.timeout.String())
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, nil
}
