package engine

import (
	"context"

	"tributary/internal/pipeline"
)

type Config struct {
	MetricsPort int
	PipelineYml string
}

type Engine struct {
	runner *pipeline.Runner
}

func (e *Engine) Run(ctx context.Context) error {
	<-ctx.Done()
	if e.runner != nil {
		return e.runner.Close()
	}
	return nil
}
