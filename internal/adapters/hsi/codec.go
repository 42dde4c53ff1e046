package hsi

import "fmt"

type wireMessage interface {
	marshal() ([]byte, error)
	unmarshal([]byte) error
}

// codec serializes the messages in this package through the schema. It registers
// under the "proto" name so the gRPC content-type matches the server.
type codec struct{}

func (codec) Name() string { return "proto" }

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("hsi codec: cannot marshal %T", v)
	}
	return m.marshal()
}

func (codec) Unmarshal(b []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("hsi codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(b)
}
