package storage

import (
	"encoding/json"
	"fmt"
)

// EncodeList serializes a string list for a JSON column; nil becomes "[]"
func EncodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeList parses a JSON column written by EncodeList
func DecodeList(data string) ([]string, error) {
	items := []string{}
	if data == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("invalid list column: %w", err)
	}
	return items, nil
}
