package kinesis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tributary/internal/offsets"
)

/* ───────────────────────── resolution ledger ───────────────────────────── */

type entry struct {
	pos        offsets.Position
	prev, next *entry
}

// ledger keeps in-flight records of one shard in emit order and yields the
// highest position whose predecessors have all resolved. Resolving out of
// order never advances the committable position past an unresolved record,
// which is what keeps a commit from skipping an undelivered record.
type ledger struct {
	committed  *offsets.Position
	head, tail *entry
}

func (l *ledger) track(pos offsets.Position) func() *offsets.Position {
	e := &entry{pos: pos}
	if l.head == nil {
		l.head = e
	}
	if l.tail != nil {
		e.prev = l.tail
		l.tail.next = e
	}
	l.tail = e
	return func() *offsets.Position {
		if e.prev != nil {
			// An older record is still unresolved; fold this position into
			// it so its eventual resolution carries ours forward.
			e.prev.pos = e.pos
			e.prev.next = e.next
		} else {
			p := e.pos
			l.committed = &p
			l.head = e.next
		}
		if e.next != nil {
			e.next.prev = e.prev
		} else {
			l.tail = e.prev
		}
		return l.committed
	}
}

/* ───────────────────────── Tracker ─────────────────────────────────────── */

// Tracker bounds unresolved records per shard and decides when the highest
// contiguous position is due for a commit to the offset store.
type Tracker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	led     ledger
	pending int
	cap     int

	commitEveryNS int64
	lastCommitNS  int64
}

// NewTracker builds a tracker whose first resolution is always commit-due:
// lastCommitNS starts at zero, so a fresh shard checkpoints immediately
// instead of waiting out a full interval after a restart.
func NewTracker(capacity int, commitEvery time.Duration) *Tracker {
	t := &Tracker{cap: capacity, commitEveryNS: commitEvery.Nanoseconds()}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Track registers an emitted record, blocking while the shard already has
// capacity records unresolved. The returned resolve reports the highest
// contiguous position and whether a commit is now due.
func (t *Tracker) Track(ctx context.Context, pos offsets.Position) (func() (*offsets.Position, bool), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stop()

	for t.pending >= t.cap && ctx.Err() == nil {
		t.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.pending++
	resolve := t.led.track(pos)

	return func() (*offsets.Position, bool) {
		t.mu.Lock()
		highest := resolve()
		t.pending--
		t.cond.Broadcast()
		t.mu.Unlock()

		now := time.Now().UnixNano()
		if atomic.LoadInt64(&t.lastCommitNS)+t.commitEveryNS <= now {
			atomic.StoreInt64(&t.lastCommitNS, now)
			return highest, true
		}
		return highest, false
	}, nil
}

// Pending reports unresolved records.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Highest reports the committable position, nil until the first resolution.
func (t *Tracker) Highest() *offsets.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.led.committed
}
