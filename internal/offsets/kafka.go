package offsets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"tributary/internal/logging"
)

// Kafka persists positions to a compacted topic, keyed by the checkpoint
// tuple's partition identity, the way Kafka Connect keeps source offsets. On
// open it replays the topic to rebuild the newest position per shard; commits
// are synchronous so a confirmed Commit survives a crash.
type Kafka struct {
	cfg  Config
	cl   sarama.Client
	prod sarama.SyncProducer

	mu        sync.RWMutex
	positions map[string]string
}

type storedPartition struct {
	ShardID string `json:"shardId"`
}

type storedOffset struct {
	SequenceNumber string `json:"sequenceNumber"`
}

func OpenKafka(cfg Config) (*Kafka, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("offsets: kafka backend needs brokers and a topic")
	}
	sc := sarama.NewConfig()
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, err
		}
		sc.Version = ver
	}
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true

	cl, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	prod, err := sarama.NewSyncProducerFromClient(cl)
	if err != nil {
		_ = cl.Close()
		return nil, err
	}
	s := &Kafka{cfg: cfg, cl: cl, prod: prod, positions: make(map[string]string)}
	if err := s.replay(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("offsets: replay %s: %w", cfg.Topic, err)
	}
	return s, nil
}

// replay reads the offsets topic end to end, keeping the newest position per
// shard. Compaction keeps the topic short; replay tolerates duplicates anyway
// because later records win.
func (s *Kafka) replay() error {
	cons, err := sarama.NewConsumerFromClient(s.cl)
	if err != nil {
		return err
	}
	defer cons.Close()

	parts, err := cons.Partitions(s.cfg.Topic)
	if err != nil {
		if errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			return nil // first run, nothing committed yet
		}
		return err
	}
	for _, p := range parts {
		newest, err := s.cl.GetOffset(s.cfg.Topic, p, sarama.OffsetNewest)
		if err != nil {
			return err
		}
		if newest == 0 {
			continue
		}
		pc, err := cons.ConsumePartition(s.cfg.Topic, p, sarama.OffsetOldest)
		if err != nil {
			return err
		}
		for msg := range pc.Messages() {
			s.apply(msg.Key, msg.Value)
			if msg.Offset >= newest-1 {
				break
			}
		}
		pc.Close()
	}
	logging.L().Info("offsets: replayed committed positions", "topic", s.cfg.Topic, "shards", len(s.positions))
	return nil
}

func (s *Kafka) apply(key, value []byte) {
	var part storedPartition
	if err := json.Unmarshal(key, &part); err != nil || part.ShardID == "" {
		logging.L().Warn("offsets: skipping malformed checkpoint key", "err", err)
		return
	}
	if value == nil {
		delete(s.positions, part.ShardID)
		return
	}
	var off storedOffset
	if err := json.Unmarshal(value, &off); err != nil {
		logging.L().Warn("offsets: skipping malformed checkpoint value", "shard", part.ShardID, "err", err)
		return
	}
	s.positions[part.ShardID] = off.SequenceNumber
}

func (s *Kafka) Load(_ context.Context, shardID string) (Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.positions[shardID]
	if !ok {
		return Position{}, false, nil
	}
	return Position{ShardID: shardID, SequenceNumber: seq}, true, nil
}

func (s *Kafka) Commit(_ context.Context, pos Position) error {
	key, err := json.Marshal(storedPartition{ShardID: pos.ShardID})
	if err != nil {
		return err
	}
	value, err := json.Marshal(storedOffset{SequenceNumber: pos.SequenceNumber})
	if err != nil {
		return err
	}
	_, _, err = s.prod.SendMessage(&sarama.ProducerMessage{
		Topic: s.cfg.Topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("offsets: commit shard %s: %w", pos.ShardID, err)
	}
	s.mu.Lock()
	s.positions[pos.ShardID] = pos.SequenceNumber
	s.mu.Unlock()
	return nil
}

func (s *Kafka) Close() error {
	_ = s.prod.Close()
	return s.cl.Close()
}
