package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AgentBinding is the persisted form of one tracked agent. Runtime state
// such as open tools and timers is deliberately not saved; it is
// reconstructed from live transcript output after a restore.
type AgentBinding struct {
	ID          int    `json:"id"`
	ProcessName string `json:"process_name"`
	LogPath     string `json:"log_path"`
}

// StateStore reads and writes the agent-binding snapshot as a flat JSON
// file. Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated snapshot behind.
type StateStore struct {
	path string
}

// NewStateStore creates a store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load reads the snapshot. A missing file is not an error; it simply means
// no agents were tracked before.
func (s *StateStore) Load() ([]AgentBinding, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read agent snapshot: %w", err)
	}
	var bindings []AgentBinding
	if err := json.Unmarshal(data, &bindings); err != nil {
		return nil, fmt.Errorf("failed to parse agent snapshot: %w", err)
	}
	return bindings, nil
}

// Save writes the snapshot atomically.
func (s *StateStore) Save(bindings []AgentBinding) error {
	if bindings == nil {
		bindings = []AgentBinding{}
	}
	data, err := json.MarshalIndent(bindings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode agent snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".agents-*.json")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
