package kinesis

import "fmt"

// Factory builds an Adapter (e.g. the aws-sdk-v2 driver).
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from main to make a driver selectable by name.
func Register(name string, f Factory) {
	registry[name] = f
}

// NewAdapter returns a driver by name ("awsv2", ...).
func NewAdapter(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("kinesis: unsupported driver %q", name)
}
