package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ccdb/internal/model"
)

// marshalValues converts assignment rows to canonical JSON TEXT for storage.
func marshalValues(rows [][]string) (string, error) {
	data, err := model.MarshalCanonical(rows)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}

// unmarshalValues parses stored rows. An empty blob yields no rows.
func unmarshalValues(data string) ([][]string, error) {
	if data == "" || data == "[]" {
		return [][]string{}, nil
	}
	var rows [][]string
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	return rows, nil
}

// Timestamps are stored as UTC unix nanoseconds.
func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
