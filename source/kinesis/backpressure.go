package kinesis

import (
	"context"
	"errors"
	"sync"
)

// Gate bounds records in flight between the shard pollers and the sinks.
// It is shared across shards, unlike the per-shard tracker cap.
type Gate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	free   int64
	closed bool
}

func NewGate(capacity int64) *Gate {
	g := &Gate{free: capacity}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Acquire takes one slot, blocking until one frees up.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	defer stop()

	for g.free == 0 && !g.closed && ctx.Err() == nil {
		g.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.closed {
		return errors.New("kinesis: gate closed")
	}
	g.free--
	return nil
}

func (g *Gate) Release() {
	g.mu.Lock()
	g.free++
	g.mu.Unlock()
	g.cond.Broadcast()
}

func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}
