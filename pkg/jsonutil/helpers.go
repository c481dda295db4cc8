// Package jsonutil decodes list payloads that arrive in more than one shape
// and formats JSON for CLI output.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrNoList is returned when a payload is neither a bare array nor an
// object carrying one of the accepted envelope keys.
var ErrNoList = errors.New("payload contains no list")

// DecodeList decodes data as either a bare JSON array or an object whose
// first present key from keys holds the array, e.g. {"data": [...]}.
// A JSON null or an envelope whose list is null yields an empty slice.
func DecodeList[T any](data []byte, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decoding list: %w", ErrNoList)
	}

	switch trimmed[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decoding array: %w", err)
		}
		return nonNil(list), nil

	case 'n':
		if string(trimmed) == "null" {
			return []T{}, nil
		}

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decoding envelope: %w", err)
		}
		for _, key := range keys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			var list []T
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("decoding %q: %w", key, err)
			}
			return nonNil(list), nil
		}
	}
	return nil, fmt.Errorf("decoding list: %w", ErrNoList)
}

// DecodeYAMLList is the YAML counterpart of DecodeList: a top-level
// sequence, or a mapping with one of keys holding the sequence.
func DecodeYAMLList[T any](data []byte, keys ...string) ([]T, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, fmt.Errorf("decoding yaml: %w", ErrNoList)
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []T
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decoding yaml sequence: %w", err)
		}
		return nonNil(list), nil

	case yaml.MappingNode:
		for _, key := range keys {
			for i := 0; i+1 < len(root.Content); i += 2 {
				if root.Content[i].Value != key {
					continue
				}
				var list []T
				if err := root.Content[i+1].Decode(&list); err != nil {
					return nil, fmt.Errorf("decoding yaml %q: %w", key, err)
				}
				return nonNil(list), nil
			}
		}
	}
	return nil, fmt.Errorf("decoding yaml: %w", ErrNoList)
}

// PrettyJSON marshals v with two-space indentation.
func PrettyJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json: %w", err)
	}
	return string(b), nil
}

// TruncateString truncates s to maxLen bytes, adding "..." if truncation
// occurred.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
