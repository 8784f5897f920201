package config

import (
	kcfg "tributary/source/kinesis"
)

// LoadKinesisConfig delegates to the Kinesis source loader while centralizing
// loader entrypoints under internal/config.
func LoadKinesisConfig(path string) (kcfg.Config, error) {
	return kcfg.LoadConfig(path)
}
