package engine

import (
	"context"
	"fmt"

	"tributary/internal/pipeline"
	"tributary/internal/telemetry"
)

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	// 1. pipeline runner
	runner, err := pipeline.Compile(cfg.PipelineYml)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := runner.Start(ctx); err != nil {
		return nil, err
	}

	// 2. metrics
	telemetry.Expose(cfg.MetricsPort)

	return &Engine{runner: runner}, nil
}
