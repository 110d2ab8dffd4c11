package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalPath converts a merkle path to JSON TEXT for storage.
// A nil path is stored as "[]" so reads always return a non-nil slice.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(path); err != nil {
		return "", fmt.Errorf("marshal merkle path: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalPath parses JSON TEXT to a merkle path.
func unmarshalPath(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var path []string
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil, fmt.Errorf("unmarshal merkle path: %w", err)
	}
	if path == nil {
		path = []string{}
	}
	return path, nil
}
