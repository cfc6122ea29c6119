package tailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type checkpointData struct {
	Offsets map[string]int64 `json:"offsets"`
	Lines   map[string]int   `json:"lines"`
}

// Checkpoint persists per-file read offsets and line counts so following
// resumes where it stopped.
type Checkpoint struct {
	mu   sync.RWMutex
	path string
	data checkpointData
}

// NewCheckpoint loads path if it exists. An empty path keeps state in memory only.
func NewCheckpoint(path string) (*Checkpoint, error) {
	c := &Checkpoint{path: path}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read checkpoint: %w", err)
		default:
			if err := json.Unmarshal(raw, &c.data); err != nil {
				return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
			}
		}
	}
	if c.data.Offsets == nil {
		c.data.Offsets = make(map[string]int64)
	}
	if c.data.Lines == nil {
		c.data.Lines = make(map[string]int)
	}
	return c, nil
}

// Get returns the saved offset and line count for a file.
func (c *Checkpoint) Get(path string) (offset int64, line int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	offset, ok = c.data.Offsets[path]
	return offset, c.data.Lines[path], ok
}

// Set records the position after the last complete line of a file.
func (c *Checkpoint) Set(path string, offset int64, line int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Offsets[path] = offset
	c.data.Lines[path] = line
}

// Save writes the checkpoint atomically via a temp file and rename.
func (c *Checkpoint) Save() error {
	if c.path == "" {
		return nil
	}
	c.mu.RLock()
	raw, err := json.MarshalIndent(c.data, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
