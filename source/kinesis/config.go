package kinesis

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"tributary/internal/offsets"
)

type CommitMode string

const (
	CommitAuto CommitMode = "auto" // checkpoint as soon as the record is handed off
	CommitE2E  CommitMode = "e2e"  // checkpoint only after the sink acks delivery
)

type StartFrom string

const (
	StartTrimHorizon StartFrom = "trim_horizon"
	StartLatest      StartFrom = "latest"
)

type BackPressureCfg struct {
	Capacity int64 `koanf:"capacity"` // max records in flight across shards
}

type CheckpointCfg struct {
	CommitInt time.Duration `koanf:"commit_interval"` // flush cadence
	InFlight  int           `koanf:"in_flight"`       // unresolved records per shard
}

type Config struct {
	StreamName string `koanf:"stream_name"`
	Region     string `koanf:"region"`
	Endpoint   string `koanf:"endpoint"` // override for local stacks
	Topic      string `koanf:"topic"`    // destination topic

	StartFrom  StartFrom     `koanf:"start_from"`  // trim_horizon|latest (default latest)
	BatchLimit int32         `koanf:"batch_limit"` // records per GetRecords call
	PollIdle   time.Duration `koanf:"poll_idle"`   // pause when a shard is caught up

	CommitMode   CommitMode      `koanf:"commit_mode"` // auto|e2e
	Offsets      offsets.Config  `koanf:"offsets"`
	BackPressure BackPressureCfg `koanf:"backpressure"`
	Checkpoint   CheckpointCfg   `koanf:"checkpoint"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadConfig merges YAML (if present) with env-vars
// (prefix `TRIBUTARY_KINESIS__`, delimiter `__`).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	// schema version check (only when YAML is present)
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("kinesis schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider("TRIBUTARY_KINESIS__", "__", nil), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)

	if cfg.StreamName == "" {
		return cfg, errors.New("kinesis: stream_name is required")
	}
	if cfg.Topic == "" {
		return cfg, errors.New("kinesis: topic is required")
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.StartFrom != StartTrimHorizon && c.StartFrom != StartLatest {
		c.StartFrom = StartLatest
	}
	if c.BatchLimit == 0 {
		c.BatchLimit = 500
	}
	if c.PollIdle == 0 {
		c.PollIdle = time.Second
	}
	if c.CommitMode != CommitAuto && c.CommitMode != CommitE2E {
		c.CommitMode = CommitAuto
	}
	if c.BackPressure.Capacity == 0 {
		c.BackPressure.Capacity = 30_000
	}
	if c.Checkpoint.CommitInt == 0 {
		c.Checkpoint.CommitInt = 5 * time.Second
	}
	if c.Checkpoint.InFlight == 0 {
		c.Checkpoint.InFlight = 10_000
	}
}
