package kinesis

import (
	"fmt"
	"io"
	"time"

	"tributary/connect"
	"tributary/internal/offsets"
)

// Record is the minimal surface the converter needs from a raw stream record.
// Data returns a single-use reader: reading it may drain an underlying
// buffer, so callers must not reuse the record after conversion.
type Record interface {
	Data() io.Reader
	PartitionKey() string
	SequenceNumber() string
	ArrivalTimestamp() time.Time
}

// Converter maps raw stream records onto the key/value schemas and derives
// the checkpoint tuple the offset store persists. It holds only configuration
// and is safe for concurrent use across shards; within one shard the caller
// must convert and emit in sequence-number order, since a later checkpoint
// supersedes an earlier one.
type Converter struct {
	topic   string
	shardID string // stable checkpoint identity for this shard
}

// NewConverter fails on empty configuration rather than producing records
// that cannot be delivered or checkpointed.
func NewConverter(topic, checkpointShardID string) (*Converter, error) {
	if topic == "" {
		return nil, fmt.Errorf("kinesis: converter needs a destination topic")
	}
	if checkpointShardID == "" {
		return nil, fmt.Errorf("kinesis: converter needs a checkpoint shard id")
	}
	return &Converter{topic: topic, shardID: checkpointShardID}, nil
}

// SourceRecord converts one raw record into a structured event bundled with
// its checkpoint tuple. The payload is copied into an owned buffer sized to
// the unread bytes, so the caller may invalidate the record's buffer as soon
// as this returns. Identical inputs yield identical outputs.
//
// A record without a sequence number is a hard error: emitting it would
// leave the checkpoint tuple without a position, and a silently incomplete
// event is worse than a failed conversion.
func (c *Converter) SourceRecord(streamName, shardID string, rec Record) (*connect.SourceRecord, error) {
	seq := rec.SequenceNumber()
	if seq == "" {
		return nil, fmt.Errorf("kinesis: record without sequence number (stream %q, shard %q)", streamName, shardID)
	}
	data, err := io.ReadAll(rec.Data())
	if err != nil {
		return nil, fmt.Errorf("kinesis: read record payload: %w", err)
	}

	key := connect.NewStruct(KeySchema)
	if err := key.Put(FieldPartitionKey, rec.PartitionKey()); err != nil {
		return nil, err
	}

	arrival := rec.ArrivalTimestamp()
	value := connect.NewStruct(ValueSchema)
	for _, f := range []struct {
		name string
		v    any
	}{
		{FieldSequenceNumber, seq},
		{FieldArrivalTimestamp, arrival},
		{FieldData, data},
		{FieldPartitionKey, rec.PartitionKey()},
		{FieldShardID, shardID},
		{FieldStreamName, streamName},
	} {
		if err := value.Put(f.name, f.v); err != nil {
			return nil, err
		}
	}

	pos := offsets.Position{ShardID: c.shardID, SequenceNumber: seq}
	return &connect.SourceRecord{
		SourcePartition: pos.SourcePartition(),
		SourceOffset:    pos.SourceOffset(),
		Topic:           c.topic,
		KeySchema:       KeySchema,
		Key:             key,
		ValueSchema:     ValueSchema,
		Value:           value,
		Timestamp:       arrival.UnixMilli(),
	}, nil
}
