package kinesis

import (
	"context"

	"tributary/connect"
)

// EmitFunc hands one converted source record to the pipeline.
type EmitFunc func(*connect.SourceRecord) error

type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}
