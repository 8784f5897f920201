package connect

import (
	"encoding/json"
	"fmt"
	"time"
)

// The JSON framing mirrors the Kafka Connect JSON converter: every message
// carries its schema alongside the payload so consumers can decode it without
// out-of-band coordination. Bytes serialize as base64, timestamps as epoch
// milliseconds.

type jsonEnvelope struct {
	Schema  jsonSchema     `json:"schema"`
	Payload map[string]any `json:"payload"`
}

type jsonSchema struct {
	Type    string      `json:"type"`
	Name    string      `json:"name"`
	Version int         `json:"version"`
	Fields  []jsonField `json:"fields"`
}

type jsonField struct {
	Field    string `json:"field"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
}

// MarshalStruct frames a schema-bound struct as a self-describing JSON
// message. Unset required fields fail; unset optional fields serialize as
// null. Output is deterministic for identical input.
func MarshalStruct(s *Struct) ([]byte, error) {
	schema := s.Schema()
	env := jsonEnvelope{
		Schema: jsonSchema{
			Type:    "struct",
			Name:    schema.Name,
			Version: schema.Version,
			Fields:  make([]jsonField, 0, len(schema.fields)),
		},
		Payload: make(map[string]any, len(schema.fields)),
	}
	for i, f := range schema.fields {
		env.Schema.Fields = append(env.Schema.Fields, jsonField{
			Field:    f.Name,
			Type:     f.Type.String(),
			Optional: f.Optional,
		})
		v := s.values[i]
		if v == nil {
			if !f.Optional {
				return nil, fmt.Errorf("connect: schema %s field %q is required but unset", schema.Name, f.Name)
			}
			env.Payload[f.Name] = nil
			continue
		}
		if ts, ok := v.(time.Time); ok {
			v = ts.UnixMilli()
		}
		env.Payload[f.Name] = v
	}
	return json.Marshal(env)
}
