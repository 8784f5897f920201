package pipeline

import (
	"context"
	"errors"
	"sync"

	"tributary/connect"
	"tributary/internal/offsets"
	"tributary/sink"
	"tributary/source/kinesis"
)

// Runner wires one source adapter to its sinks and fans delivery acks back
// to the source so it can advance checkpoints.
type Runner struct {
	source kinesis.Adapter
	sinks  []sink.Adapter

	mu   sync.Mutex
	subs []func(offsets.Position)
}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) AddSink(s sink.Adapter)      { r.sinks = append(r.sinks, s) }
func (r *Runner) SetSource(s kinesis.Adapter) { r.source = s }

func (r *Runner) SubscribeAck(fn func(offsets.Position)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Ack is handed to AckAware sinks as their delivery-confirmation callback.
func (r *Runner) Ack(pos offsets.Position) {
	r.mu.Lock()
	handlers := append([]func(offsets.Position){}, r.subs...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(pos)
	}
}

/*──────── record routing ───────*/
func (r *Runner) pushRecord(rec *connect.SourceRecord) error {
	for _, s := range r.sinks {
		if err := s.Push(rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	go func() { _ = r.source.Run(ctx, r.pushRecord) }()
	return nil
}

func (r *Runner) Close() error {
	var err error
	if r.source != nil {
		err = r.source.Close()
	}
	for _, s := range r.sinks {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
