package app

import (
	"encoding/json"
	"fmt"
	"os"
)

// HeaderKV maps header names to values.
type HeaderKV map[string]string

// Merge returns a new set where the values of other win over h.
func (h HeaderKV) Merge(other HeaderKV) HeaderKV {
	merged := make(HeaderKV, len(h)+len(other))
	for key, value := range h {
		merged[key] = value
	}
	for key, value := range other {
		merged[key] = value
	}

	return merged
}

// LoadHeadersFromFile reads a flat JSON object of header key-value pairs.
// An empty path yields an empty set.
func LoadHeadersFromFile(path string) (HeaderKV, error) {
	if path == "" {
		return HeaderKV{}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read header file: %w", err)
	}

	var headers HeaderKV
	err = json.Unmarshal(content, &headers)
	if err != nil {
		return nil, fmt.Errorf("cannot unmarshal %s file: %w", path, err)
	}

	return headers, nil
}
