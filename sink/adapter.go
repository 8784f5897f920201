package sink

import (
	"fmt"

	"tributary/connect"
	"tributary/internal/offsets"
)

// EmitFn is what a sink calls once a record has been durably delivered, so
// the source can advance its checkpoint.
type EmitFn func(offsets.Position)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error               // driver-specific config struct
	Push(*connect.SourceRecord) error  // deliver one record
	Close() error                      // idempotent
}

// AckAware is optional; sinks that confirm delivery back to the source
// implement it and the compiler wires the callback.
type AckAware interface {
	BindAck(EmitFn)
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
