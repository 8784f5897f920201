// Package offsets persists per-shard positions so a restarted connector
// resumes consumption strictly after the last committed sequence number.
package offsets

import (
	"context"
	"fmt"

	"tributary/connect"
)

// Keys of the checkpoint tuple maps carried on every source record. They
// mirror the value schema's field names; changing either breaks stored
// checkpoints and downstream consumers alike.
const (
	PartitionField = "shardId"
	OffsetField    = "sequenceNumber"
)

// Position is the resumable position of one shard. Commits for a shard are
// monotonic: a later position silently supersedes an earlier one.
type Position struct {
	ShardID        string `json:"shardId"`
	SequenceNumber string `json:"sequenceNumber"`
}

// SourcePartition renders the partition-identity half of the checkpoint tuple.
func (p Position) SourcePartition() map[string]string {
	return map[string]string{PartitionField: p.ShardID}
}

// SourceOffset renders the position half of the checkpoint tuple.
func (p Position) SourceOffset() map[string]string {
	return map[string]string{OffsetField: p.SequenceNumber}
}

// FromRecord extracts the position a source record's checkpoint tuple carries.
func FromRecord(r *connect.SourceRecord) Position {
	return Position{
		ShardID:        r.SourcePartition[PartitionField],
		SequenceNumber: r.SourceOffset[OffsetField],
	}
}

// Store persists shard positions. Load reports ok=false when a shard has no
// committed position yet.
type Store interface {
	Load(ctx context.Context, shardID string) (pos Position, ok bool, err error)
	Commit(ctx context.Context, pos Position) error
	Close() error
}

// Config selects and parameterizes a store backend.
type Config struct {
	Backend string   `koanf:"backend"` // memory | kafka
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	Version string   `koanf:"version"`
}

// Open builds the configured store. The empty backend means memory, which
// keeps single-run and test setups zero-config.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "kafka":
		return OpenKafka(cfg)
	default:
		return nil, fmt.Errorf("offsets: unknown backend %q", cfg.Backend)
	}
}
