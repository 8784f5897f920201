package pipeline

import (
	"context"
	"testing"

	"tributary/connect"
	"tributary/internal/offsets"
	"tributary/sink"
	"tributary/source/kinesis"
)

type captureSink struct {
	pushed []*connect.SourceRecord
	ackFn  sink.EmitFn
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(r *connect.SourceRecord) error {
	c.pushed = append(c.pushed, r)
	if c.ackFn != nil {
		c.ackFn(offsets.FromRecord(r))
	}
	return nil
}
func (c *captureSink) Close() error           { return nil }
func (c *captureSink) BindAck(fn sink.EmitFn) { c.ackFn = fn }

type fakeSource struct{ closed bool }

func (f *fakeSource) Configure(kinesis.Config) error { return nil }
func (f *fakeSource) Run(ctx context.Context, _ kinesis.EmitFunc) error {
	<-ctx.Done()
	return ctx.Err()
}
func (f *fakeSource) Close() error { f.closed = true; return nil }

func makeRecord(seq string) *connect.SourceRecord {
	pos := offsets.Position{ShardID: "shard-0", SequenceNumber: seq}
	return &connect.SourceRecord{
		SourcePartition: pos.SourcePartition(),
		SourceOffset:    pos.SourceOffset(),
		Topic:           "orders-topic",
		Timestamp:       1700000000000,
	}
}

func TestRunner_PushFansOutToAllSinks(t *testing.T) {
	r := NewRunner()
	a, b := &captureSink{}, &captureSink{}
	r.AddSink(a)
	r.AddSink(b)

	if err := r.pushRecord(makeRecord("1")); err != nil {
		t.Fatalf("pushRecord: %v", err)
	}
	if len(a.pushed) != 1 || len(b.pushed) != 1 {
		t.Fatalf("fanout = %d / %d", len(a.pushed), len(b.pushed))
	}
}

func TestRunner_SinkAckReachesSubscribers(t *testing.T) {
	r := NewRunner()
	cs := &captureSink{}
	cs.BindAck(r.Ack)
	r.AddSink(cs)

	var acked []offsets.Position
	r.SubscribeAck(func(p offsets.Position) { acked = append(acked, p) })

	if err := r.pushRecord(makeRecord("seq-9")); err != nil {
		t.Fatalf("pushRecord: %v", err)
	}
	if len(acked) != 1 || acked[0].SequenceNumber != "seq-9" {
		t.Fatalf("acked = %+v", acked)
	}
}

func TestRunner_StartWithoutSource(t *testing.T) {
	r := NewRunner()
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error when no source is configured")
	}
}

func TestRunner_CloseClosesSourceAndSinks(t *testing.T) {
	r := NewRunner()
	src := &fakeSource{}
	r.SetSource(src)
	r.AddSink(&captureSink{})

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed {
		t.Fatal("source was not closed")
	}
}
