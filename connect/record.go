package connect

// SourceRecord is one structured event together with the checkpoint tuple it
// was derived from. The pairing is 1:1 by construction: no event leaves the
// converter without its tuple, and no checkpoint advances without its event.
//
// SourcePartition identifies the logical partition the event came from within
// the connector's checkpoint namespace; SourceOffset is the position at which
// consumption for that partition resumes after a restart. Both maps are owned
// by the record and not mutated after construction.
type SourceRecord struct {
	SourcePartition map[string]string
	SourceOffset    map[string]string

	// Topic is the destination topic. KafkaPartition stays nil: partition
	// selection belongs to the downstream producer, keyed off Key.
	Topic          string
	KafkaPartition *int32

	KeySchema   *Schema
	Key         *Struct
	ValueSchema *Schema
	Value       *Struct

	// Timestamp is the event's own timestamp in epoch milliseconds.
	Timestamp int64
}
