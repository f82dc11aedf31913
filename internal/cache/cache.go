// Package cache stores small JSON documents on disk with a timestamp so
// callers can expire them.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

type entry[T any] struct {
	Data      T         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Load reads the document at path if it is younger than ttl. An empty path,
// a missing or corrupt file, or an expired entry is a miss.
func Load[T any](path string, ttl time.Duration) (T, time.Time, bool) {
	var zero T
	if path == "" {
		return zero, time.Time{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, time.Time{}, false
	}
	var e entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return zero, time.Time{}, false
	}
	if time.Since(e.Timestamp) > ttl {
		return zero, e.Timestamp, false
	}
	return e.Data, e.Timestamp, true
}

// Save writes v to path stamped with the current time.
func Save[T any](path string, v T) error {
	return SaveAt(path, v, time.Now())
}

// SaveAt writes v with an explicit timestamp.
func SaveAt[T any](path string, v T, at time.Time) error {
	if path == "" {
		return nil
	}
	data, err := json.Marshal(entry[T]{Data: v, Timestamp: at})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Remove deletes the cache file, ignoring a missing one.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
