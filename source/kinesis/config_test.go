package kinesis

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kinesis_source.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `schema_version: v1
stream_name: orders
region: us-east-1
topic: orders-topic
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StartFrom != StartLatest {
		t.Fatalf("start_from default = %q", cfg.StartFrom)
	}
	if cfg.CommitMode != CommitAuto {
		t.Fatalf("commit_mode default = %q", cfg.CommitMode)
	}
	if cfg.BatchLimit != 500 || cfg.PollIdle != time.Second {
		t.Fatalf("poll defaults = %d / %v", cfg.BatchLimit, cfg.PollIdle)
	}
	if cfg.BackPressure.Capacity != 30_000 {
		t.Fatalf("backpressure default = %d", cfg.BackPressure.Capacity)
	}
	if cfg.Checkpoint.CommitInt != 5*time.Second || cfg.Checkpoint.InFlight != 10_000 {
		t.Fatalf("checkpoint defaults = %v / %d", cfg.Checkpoint.CommitInt, cfg.Checkpoint.InFlight)
	}
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `schema_version: v1
stream_name: orders
region: eu-west-1
topic: orders-topic
start_from: trim_horizon
commit_mode: e2e
batch_limit: 100
offsets:
  backend: kafka
  brokers: ["localhost:9092"]
  topic: tributary-offsets
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StartFrom != StartTrimHorizon || cfg.CommitMode != CommitE2E || cfg.BatchLimit != 100 {
		t.Fatalf("explicit values not honored: %+v", cfg)
	}
	if cfg.Offsets.Backend != "kafka" || cfg.Offsets.Topic != "tributary-offsets" {
		t.Fatalf("offsets config = %+v", cfg.Offsets)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	path := writeConfig(t, `schema_version: v1
region: us-east-1
topic: orders-topic
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing stream_name")
	}

	path = writeConfig(t, `schema_version: v1
stream_name: orders
region: us-east-1
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing topic")
	}
}

func TestLoadConfig_UnsupportedSchema(t *testing.T) {
	path := writeConfig(t, `schema_version: v999
stream_name: orders
topic: orders-topic
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unsupported schema_version")
	}
}
