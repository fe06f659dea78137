package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chocoLedger/internal/model"
)

// CheckpointStore mirrors the feed cursor to a JSON file. It exists for the
// in-memory storage mode, where the cursor would otherwise vanish on
// restart; with Postgres the cursor row is authoritative and the file is
// just a local convenience.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled}
}

func (c *CheckpointStore) Load() (model.Cursor, bool, error) {
	if !c.enabled {
		return model.Cursor{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Cursor{}, false, nil
		}
		return model.Cursor{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return model.Cursor{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return model.Cursor{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cur model.Cursor
	if err := json.Unmarshal(data, &cur); err != nil {
		return model.Cursor{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	return cur, true, nil
}

func (c *CheckpointStore) Save(cur model.Cursor) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cur.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}
