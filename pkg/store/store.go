// Package store holds the durable state of the relay: forwarding rules,
// pending bind requests and webhook registrations, each persisted to its
// own JSON file. Every mutation is written to disk before it is
// acknowledged; writes go through a temp file + rename so a crash can
// never leave a truncated store behind.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrDuplicateRule is returned when a (source, target) rule already exists.
	ErrDuplicateRule = errors.New("rule already exists")
	// ErrSelfLoop is returned when source and target are the same endpoint.
	ErrSelfLoop = errors.New("rule would forward a session to itself")
	// ErrRuleNotFound is returned when removing a rule that is not present.
	ErrRuleNotFound = errors.New("rule not found")
)

// loadJSON reads path into v. A missing file is not an error: v keeps its
// zero value. A corrupt file is reported so the caller can degrade to an
// empty store instead of refusing to start.
func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// saveJSON writes v to path atomically.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
