package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"tributary/internal/engine"
	"tributary/internal/logging"
	"tributary/source/kinesis"
)

func main() {
	pipelineYml := flag.String("pipeline", "pipeline.yml", "path to the pipeline spec")
	metricsPort := flag.Int("metrics-port", 9100, "port for /metrics and /healthz")
	flag.Parse()

	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	kinesis.Register("awsv2", func() kinesis.Adapter { return &kinesis.Driver{} })

	e, err := engine.Bootstrap(ctx, engine.Config{
		MetricsPort: *metricsPort,
		PipelineYml: *pipelineYml,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("connector: %v", err)
	}
}
