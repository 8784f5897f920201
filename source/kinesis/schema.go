package kinesis

import "tributary/connect"

// Field names of the key and value schemas. They are part of the wire
// contract and must not change.
const (
	FieldSequenceNumber   = "sequenceNumber"
	FieldArrivalTimestamp = "approximateArrivalTimestamp"
	FieldData             = "data"
	FieldPartitionKey     = "partitionKey"
	FieldShardID          = "shardId"
	FieldStreamName       = "streamName"
)

const (
	keySchemaName   = "tributary.kinesis.Key"
	valueSchemaName = "tributary.kinesis.Value"
	schemaVersion   = 1
)

// All fields are declared optional for schema-evolvability, not because
// absence is a valid steady state: every record the stream service hands us
// carries a sequence number, shard id and partition key.
var (
	// KeySchema is the structured key: the partition key alone.
	KeySchema = connect.MustSchema(keySchemaName, schemaVersion,
		"Identifies the shard a record was grouped into within its stream.",
		connect.Field{
			Name: FieldPartitionKey, Type: connect.TypeString, Optional: true,
			Doc: "Application-supplied grouping key, a Unicode string of at most 256 bytes. " +
				"The stream service hashes it to pick the shard a record lands on; it is " +
				"passed through here unvalidated.",
		},
	)

	// ValueSchema is the structured value: the full record as pulled from the
	// stream, plus the stream and shard it came from.
	ValueSchema = connect.MustSchema(valueSchemaName, schemaVersion,
		"One unit of data of the source stream: sequence number, partition key and payload, "+
			"annotated with the stream and shard it was read from.",
		connect.Field{
			Name: FieldSequenceNumber, Type: connect.TypeString, Optional: true,
			Doc: "Unique identifier of the record, strictly increasing within a shard. " +
				"Doubles as the resumable checkpoint position.",
		},
		connect.Field{
			Name: FieldArrivalTimestamp, Type: connect.TypeTimestamp, Optional: true,
			Doc: "Approximate time the record was inserted into the stream.",
		},
		connect.Field{
			Name: FieldData, Type: connect.TypeBytes, Optional: true,
			Doc: "The opaque data blob, copied verbatim.",
		},
		connect.Field{
			Name: FieldPartitionKey, Type: connect.TypeString, Optional: true,
			Doc: "Application-supplied grouping key, duplicated from the record key for " +
				"consumers that only read values.",
		},
		connect.Field{
			Name: FieldShardID, Type: connect.TypeString, Optional: true,
			Doc: "Identifier of the shard within the stream the record was read from. " +
				"Stable across restarts for the same shard.",
		},
		connect.Field{
			Name: FieldStreamName, Type: connect.TypeString, Optional: true,
			Doc: "Name of the source stream.",
		},
	)
)
