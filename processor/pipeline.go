package processor

import (
	"encoding/json"
	"fmt"
)

// EncodeDocument combines two steps:
// 1. JSON serialization of v
// 2. Snappy compression of the serialized bytes
func EncodeDocument(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return Compress(raw), nil
}

// DecodeDocument reverses EncodeDocument into v
func DecodeDocument(data []byte, v interface{}) error {
	raw, err := Decompress(data)
	if err != nil {
		return fmt.Errorf("failed to decompress document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return nil
}
