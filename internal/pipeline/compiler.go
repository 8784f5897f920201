package pipeline

import (
	"fmt"
	"time"

	"tributary/internal/config"
	"tributary/internal/offsets"
	"tributary/sink"
	kafkasink "tributary/sink/kafka"
	"tributary/sink/stdout"
	"tributary/source/kinesis"
)

func Compile(path string) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(path, r); err != nil {
		return nil, err
	}
	return r, nil
}

func LoadYAML(path string, r *Runner) error {
	cfg, confPath, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}

	if cfg.Source.Kind != "kinesis" {
		return fmt.Errorf("unsupported source %q", cfg.Source.Kind)
	}
	kc, err := config.LoadKinesisConfig(confPath)
	if err != nil {
		return err
	}

	src, err := kinesis.NewAdapter(cfg.Source.Driver)
	if err != nil {
		return err
	}
	if err = src.Configure(kc); err != nil {
		return err
	}
	r.SetSource(src)

	if aw, ok := src.(interface{ OnAck(offsets.Position) }); ok {
		r.SubscribeAck(aw.OnAck)
	}

	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "kafka":
			err = sDrv.Configure(kafkasink.Config{
				Brokers: cfg.SinkConfigs.Kafka.Brokers,
				Acks:    cfg.SinkConfigs.Kafka.RequiredAcks,
				Version: cfg.SinkConfigs.Kafka.Version,
			})
		case "stdout":
			delay := time.Duration(cfg.Debug.PerRecordDelayMS) * time.Millisecond
			err = sDrv.Configure(stdout.Config{
				DelayMS:       int(delay / time.Millisecond),
				PrintCounter:  cfg.Debug.PrintCounter,
				BatchSize:     cfg.Debug.AckBatchSize,
				FlushMS:       cfg.Debug.AckFlushMS,
				PrintValue:    cfg.Debug.PrintValue,
				ValueMaxBytes: cfg.Debug.ValueMaxBytes,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return err
		}

		if ackAware, ok := sDrv.(sink.AckAware); ok {
			ackAware.BindAck(r.Ack)
		}
		r.AddSink(sDrv)
	}
	return nil
}
