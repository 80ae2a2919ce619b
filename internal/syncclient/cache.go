package syncclient

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/order"
)

// Snapshot is what the local cache keeps per owner: the table list and the
// working lines, as last seen.
type Snapshot struct {
	Tables  []order.Table    `json:"tables"`
	Lines   []order.LineItem `json:"lines"`
	SavedAt time.Time        `json:"saved_at"`
}

// Cache is a durable read-through cache used to show state before the
// first remote fetch completes. It is never authoritative.
type Cache interface {
	// Load returns nil and no error when nothing was cached yet.
	Load(owner uuid.UUID) (*Snapshot, error)
	Save(owner uuid.UUID, snap Snapshot) error
}

// FileCache stores one JSON file per owner under Dir.
type FileCache struct {
	Dir string

	mu sync.Mutex
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir}
}

func (c *FileCache) path(owner uuid.UUID) string {
	return filepath.Join(c.Dir, owner.String()+".json")
}

func (c *FileCache) Load(owner uuid.UUID) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(owner))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot to a temp file and renames it into place so a
// crash never leaves a half-written cache.
func (c *FileCache) Save(owner uuid.UUID, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	path := c.path(owner)
	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return os.Rename(temp, path)
}
