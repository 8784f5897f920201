package kinesis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tributary/connect"
	"tributary/internal/offsets"
)

func testDriverE2E(t *testing.T, capacity int64) *Driver {
	t.Helper()
	d := &Driver{}
	d.mode = CommitE2E
	d.pending = make(map[offsets.Position]func())
	d.ackCh = make(chan offsets.Position, 8)
	d.gate = NewGate(capacity)
	d.store = offsets.NewMemory()
	return d
}

func convertOne(t *testing.T, seq string) *connect.SourceRecord {
	t.Helper()
	conv, err := NewConverter("orders-topic", "shard-0")
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	sr, err := conv.SourceRecord("orders", "shard-0", testRecord{seq: seq, ts: time.UnixMilli(1)})
	if err != nil {
		t.Fatalf("SourceRecord: %v", err)
	}
	return sr
}

func TestDriver_OnAck_Enqueue(t *testing.T) {
	d := &Driver{}
	d.ackCh = make(chan offsets.Position, 1)

	want := offsets.Position{ShardID: "shard-1", SequenceNumber: "seq-42"}
	d.OnAck(want)

	got := <-d.ackCh
	if got != want {
		t.Fatalf("unexpected position enqueued: %+v", got)
	}
}

func TestDriver_AckLoopRunsPendingCallback(t *testing.T) {
	d := &Driver{}
	d.ackCh = make(chan offsets.Position, 1)
	d.pending = make(map[offsets.Position]func())

	var called int32
	pos := offsets.Position{ShardID: "shard-2", SequenceNumber: "seq-99"}
	d.pending[pos] = func() { atomic.AddInt32(&called, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.ackLoop(ctx)

	d.OnAck(pos)

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&called) == 0 {
		select {
		case <-deadline:
			t.Fatal("pending callback was not executed")
		case <-time.After(time.Millisecond):
		}
	}

	d.mu.Lock()
	_, still := d.pending[pos]
	d.mu.Unlock()
	if still {
		t.Fatal("callback left in pending map")
	}
}

func TestDriver_OnAck_DropsWhenFull(t *testing.T) {
	d := &Driver{}
	d.ackCh = make(chan offsets.Position, 1)

	d.OnAck(offsets.Position{ShardID: "s", SequenceNumber: "1"})
	d.OnAck(offsets.Position{ShardID: "s", SequenceNumber: "2"}) // must not block

	got := <-d.ackCh
	if got.SequenceNumber != "1" {
		t.Fatalf("first ack should survive, got %+v", got)
	}
}

func TestDriver_DispatchAckDuringEmit(t *testing.T) {
	d := testDriverE2E(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.ackLoop(ctx)

	sr := convertOne(t, "seq-1")
	tracker := NewTracker(16, time.Hour)
	resolve, err := tracker.Track(ctx, offsets.FromRecord(sr))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if err := d.gate.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// a synchronous sink confirms delivery before emit returns
	emit := func(r *connect.SourceRecord) error {
		d.OnAck(offsets.FromRecord(r))
		return nil
	}
	if err := d.dispatch(ctx, "shard-0", sr, resolve, emit); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	deadline := time.After(time.Second)
	for tracker.Pending() != 0 {
		select {
		case <-deadline:
			t.Fatal("ack delivered during emit was dropped; record never settled")
		case <-time.After(time.Millisecond):
		}
	}

	acquired := make(chan error, 1)
	go func() { acquired <- d.gate.Acquire(ctx) }()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("reacquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("gate slot was never released")
	}

	pos, ok, err := d.store.Load(ctx, "shard-0")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if pos.SequenceNumber != "seq-1" {
		t.Fatalf("committed sequence = %q, want seq-1", pos.SequenceNumber)
	}
}

func TestDriver_DispatchRedeliverySettlesDisplaced(t *testing.T) {
	d := testDriverE2E(t, 2)
	ctx := context.Background()

	sr := convertOne(t, "seq-1")
	tracker := NewTracker(16, time.Hour)
	noop := func(*connect.SourceRecord) error { return nil }

	for i := 0; i < 2; i++ {
		resolve, err := tracker.Track(ctx, offsets.FromRecord(sr))
		if err != nil {
			t.Fatalf("Track %d: %v", i, err)
		}
		if err := d.gate.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		if err := d.dispatch(ctx, "shard-0", sr, resolve, noop); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	if got := tracker.Pending(); got != 1 {
		t.Fatalf("tracker pending = %d, displaced delivery leaked its slot", got)
	}
	d.mu.Lock()
	n := len(d.pending)
	d.mu.Unlock()
	if n != 1 {
		t.Fatalf("pending callbacks = %d, want 1", n)
	}

	// the displaced delivery's gate slot must be free again
	if err := d.gate.Acquire(ctx); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
}

func TestDriver_DispatchEmitErrorUnregisters(t *testing.T) {
	d := testDriverE2E(t, 1)
	ctx := context.Background()

	sr := convertOne(t, "seq-1")
	tracker := NewTracker(16, time.Hour)
	resolve, err := tracker.Track(ctx, offsets.FromRecord(sr))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if err := d.gate.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	failing := func(*connect.SourceRecord) error { return errors.New("sink down") }
	if err := d.dispatch(ctx, "shard-0", sr, resolve, failing); err == nil {
		t.Fatal("expected emit error to propagate")
	}

	d.mu.Lock()
	n := len(d.pending)
	d.mu.Unlock()
	if n != 0 {
		t.Fatalf("pending callbacks = %d after failed emit, want 0", n)
	}
	if err := d.gate.Acquire(ctx); err != nil {
		t.Fatalf("gate slot not released after failed emit: %v", err)
	}
}
