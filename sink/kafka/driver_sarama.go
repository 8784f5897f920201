package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"tributary/connect"
	"tributary/internal/offsets"
	"tributary/sink"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
	Version string   `yaml:"version"`
}

type driver struct {
	cfg Config
	p   sarama.SyncProducer
	ack sink.EmitFn
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	}
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	var err error
	d.p, err = sarama.NewSyncProducer(cfg.Brokers, sc)
	return err
}

// Push publishes one record and acks its checkpoint position only after the
// broker confirms the write. The send is synchronous, which preserves
// per-shard order all the way to the topic. No partition is assigned here:
// the producer's key hasher picks one from the structured key.
func (d *driver) Push(r *connect.SourceRecord) error {
	key, err := connect.MarshalStruct(r.Key)
	if err != nil {
		return err
	}
	value, err := connect.MarshalStruct(r.Value)
	if err != nil {
		return err
	}
	_, _, err = d.p.SendMessage(&sarama.ProducerMessage{
		Topic:     r.Topic,
		Key:       sarama.ByteEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.UnixMilli(r.Timestamp),
	})
	if err != nil {
		return fmt.Errorf("kafka-sink: send to %s: %w", r.Topic, err)
	}
	if d.ack != nil {
		d.ack(offsets.FromRecord(r))
	}
	return nil
}

func (d *driver) Close() error {
	return d.p.Close()
}

func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
