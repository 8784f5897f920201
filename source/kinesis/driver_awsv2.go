package kinesis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskinesis "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"

	"tributary/connect"
	"tributary/internal/logging"
	"tributary/internal/offsets"
	"tributary/internal/telemetry"
)

// streamRecord adapts an SDK record to the converter's capability surface.
type streamRecord struct {
	rec types.Record
}

func (r streamRecord) Data() io.Reader          { return bytes.NewReader(r.rec.Data) }
func (r streamRecord) PartitionKey() string     { return aws.ToString(r.rec.PartitionKey) }
func (r streamRecord) SequenceNumber() string   { return aws.ToString(r.rec.SequenceNumber) }
func (r streamRecord) ArrivalTimestamp() time.Time {
	return aws.ToTime(r.rec.ApproximateArrivalTimestamp)
}

// Driver polls a stream through the aws-sdk-v2 client, one ordered worker per
// shard. Each worker converts records in sequence order, tracks them in a
// per-shard checkpoint ledger and emits them to the pipeline; cross-shard
// ordering is not a goal.
type Driver struct {
	cfg   Config
	cl    *awskinesis.Client
	store offsets.Store
	gate  *Gate
	mode  CommitMode

	mu      sync.Mutex
	pending map[offsets.Position]func()

	ackCh chan offsets.Position
}

func (d *Driver) Configure(cfg Config) error {
	d.cfg, d.mode = cfg, cfg.CommitMode
	d.pending = make(map[offsets.Position]func())
	d.ackCh = make(chan offsets.Position, int(cfg.BackPressure.Capacity))
	d.gate = NewGate(cfg.BackPressure.Capacity)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return err
	}
	var opts []func(*awskinesis.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *awskinesis.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	d.cl = awskinesis.NewFromConfig(awsCfg, opts...)

	d.store, err = offsets.Open(cfg.Offsets)
	return err
}

func (d *Driver) Run(ctx context.Context, emit EmitFunc) error {
	shards, err := d.listShards(ctx)
	if err != nil {
		return err
	}
	logging.L().Info("kinesis: starting shard workers", "stream", d.cfg.StreamName, "shards", len(shards))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.ackLoop(ctx)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, shardID := range shards {
		wg.Add(1)
		go func(shardID string) {
			defer wg.Done()
			if err := d.consumeShard(ctx, shardID, emit); err != nil && ctx.Err() == nil {
				once.Do(func() { firstErr = err; cancel() })
			}
		}(shardID)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (d *Driver) Close() error {
	d.gate.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// OnAck is wired by the pipeline when a sink confirms durable delivery
// (commit_mode e2e).
func (d *Driver) OnAck(pos offsets.Position) {
	select {
	case d.ackCh <- pos:
	default:
		logging.L().Warn("kinesis: ack channel full; dropping ack", "shard", pos.ShardID, "seq", pos.SequenceNumber)
	}
}

func (d *Driver) ackLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pos := <-d.ackCh:
			d.mu.Lock()
			cb, ok := d.pending[pos]
			if ok {
				delete(d.pending, pos)
			}
			d.mu.Unlock()
			if ok {
				cb()
			}
		}
	}
}

func (d *Driver) listShards(ctx context.Context) ([]string, error) {
	var (
		shards []string
		token  *string
	)
	for {
		in := &awskinesis.ListShardsInput{NextToken: token}
		if token == nil {
			in.StreamName = aws.String(d.cfg.StreamName)
		}
		out, err := d.cl.ListShards(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("kinesis: list shards of %s: %w", d.cfg.StreamName, err)
		}
		for _, s := range out.Shards {
			shards = append(shards, aws.ToString(s.ShardId))
		}
		if out.NextToken == nil {
			return shards, nil
		}
		token = out.NextToken
	}
}

func (d *Driver) shardIterator(ctx context.Context, shardID string) (*string, error) {
	in := &awskinesis.GetShardIteratorInput{
		StreamName: aws.String(d.cfg.StreamName),
		ShardId:    aws.String(shardID),
	}
	pos, ok, err := d.store.Load(ctx, shardID)
	switch {
	case err != nil:
		return nil, err
	case ok:
		in.ShardIteratorType = types.ShardIteratorTypeAfterSequenceNumber
		in.StartingSequenceNumber = aws.String(pos.SequenceNumber)
		logging.L().Info("kinesis: resuming shard", "shard", shardID, "after", pos.SequenceNumber)
	case d.cfg.StartFrom == StartTrimHorizon:
		in.ShardIteratorType = types.ShardIteratorTypeTrimHorizon
	default:
		in.ShardIteratorType = types.ShardIteratorTypeLatest
	}
	out, err := d.cl.GetShardIterator(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("kinesis: shard iterator for %s: %w", shardID, err)
	}
	return out.ShardIterator, nil
}

func (d *Driver) consumeShard(ctx context.Context, shardID string, emit EmitFunc) error {
	conv, err := NewConverter(d.cfg.Topic, shardID)
	if err != nil {
		return err
	}
	tracker := NewTracker(d.cfg.Checkpoint.InFlight, d.cfg.Checkpoint.CommitInt)
	defer d.flushShard(shardID, tracker)

	iter, err := d.shardIterator(ctx, shardID)
	if err != nil {
		return err
	}
	for {
		out, err := d.cl.GetRecords(ctx, &awskinesis.GetRecordsInput{
			ShardIterator: iter,
			Limit:         aws.Int32(d.cfg.BatchLimit),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kinesis: get records from %s: %w", shardID, err)
		}

		for _, raw := range out.Records {
			if err := d.gate.Acquire(ctx); err != nil {
				return err
			}
			sr, err := conv.SourceRecord(d.cfg.StreamName, shardID, streamRecord{rec: raw})
			if err != nil {
				d.gate.Release()
				telemetry.ConversionErrors.WithLabelValues(shardID).Inc()
				return err
			}
			telemetry.RecordsConverted.WithLabelValues(shardID).Inc()

			resolve, err := tracker.Track(ctx, offsets.FromRecord(sr))
			if err != nil {
				d.gate.Release()
				return err
			}
			if err := d.dispatch(ctx, shardID, sr, resolve, emit); err != nil {
				return err
			}
		}

		if out.NextShardIterator == nil {
			// shard was closed by a split or merge; its children are not
			// picked up until the next start
			logging.L().Info("kinesis: shard closed", "shard", shardID)
			return nil
		}
		iter = out.NextShardIterator

		if len(out.Records) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.PollIdle):
			}
		}
	}
}

// dispatch hands one tracked record to the pipeline and owns its gate slot
// from here on. In e2e mode a synchronous sink acks during emit, so the
// pending callback must be registered before the record is handed off;
// registering it after would let the ack loop dequeue the ack first and drop
// it, pinning the shard's committable position forever.
func (d *Driver) dispatch(ctx context.Context, shardID string, sr *connect.SourceRecord, resolve func() (*offsets.Position, bool), emit EmitFunc) error {
	if d.mode == CommitAuto {
		if err := emit(sr); err != nil {
			d.gate.Release()
			return err
		}
		telemetry.RecordsDelivered.Inc()
		d.finish(ctx, shardID, resolve)
		d.gate.Release()
		return nil
	}

	pos := offsets.FromRecord(sr)
	done := func() {
		d.finish(context.Background(), shardID, resolve)
		d.gate.Release()
	}

	d.mu.Lock()
	if prev, ok := d.pending[pos]; ok {
		// redelivered position still in flight; settle the displaced entry
		// so its tracker entry and gate slot do not leak
		d.mu.Unlock()
		prev()
		d.mu.Lock()
	}
	d.pending[pos] = done
	d.mu.Unlock()

	if err := emit(sr); err != nil {
		// the ack may already have settled the record through the ack loop
		d.mu.Lock()
		_, still := d.pending[pos]
		if still {
			delete(d.pending, pos)
		}
		d.mu.Unlock()
		if still {
			d.gate.Release()
		}
		return err
	}
	telemetry.RecordsDelivered.Inc()
	return nil
}

func (d *Driver) finish(ctx context.Context, shardID string, resolve func() (*offsets.Position, bool)) {
	highest, due := resolve()
	if !due || highest == nil {
		return
	}
	if err := d.store.Commit(ctx, *highest); err != nil {
		logging.L().Error("kinesis: commit checkpoint", "shard", shardID, "err", err)
		return
	}
	telemetry.CheckpointCommits.WithLabelValues(shardID).Inc()
}

// flushShard commits the last resolved position when a worker exits, so a
// clean shutdown does not replay the tail of the shard.
func (d *Driver) flushShard(shardID string, tracker *Tracker) {
	highest := tracker.Highest()
	if highest == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.store.Commit(ctx, *highest); err != nil {
		logging.L().Error("kinesis: final checkpoint commit", "shard", shardID, "err", err)
		return
	}
	telemetry.CheckpointCommits.WithLabelValues(shardID).Inc()
}
