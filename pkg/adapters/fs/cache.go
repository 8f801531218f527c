package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// indexEntry represents collected front matter for a single post file.
type indexEntry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Date         string    `json:"date,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Draft        bool      `json:"draft,omitempty"`
	Series       string    `json:"series,omitempty"`
	Checksum     uint64    `json:"checksum"`
	LastModified time.Time `json:"lastModified"`
}

// index represents the persistent cache state.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // Key is relative path (e.g. "posts/foo.md")
	dirty   bool
	mu      sync.RWMutex
}

// cache manages the loading, updating, and saving of the index.
type cache struct {
	Path  string // Path to .mulch/index.json
	index *index
}

// checksum returns the xxhash digest of a file's raw bytes. It is stored per
// entry so rewrites that preserve mtime are still detected.
func checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// newCache initializes a cache at the given path.
func newCache(sitePath, systemDir string) *cache {
	cacheDir := filepath.Join(sitePath, systemDir)
	cachePath := filepath.Join(cacheDir, "index.json")

	return &cache{
		Path: cachePath,
		index: &index{
			Version: 1,
			Entries: make(map[string]*indexEntry),
		},
	}
}

// Load reads the cache from disk. If not found or invalid, returns an empty
// index (no error): corruption self-heals on the next full scan.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil // Start fresh
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(data, c.index); err != nil {
		c.index.Entries = make(map[string]*indexEntry)
		return nil
	}

	c.index.dirty = false
	return nil
}

// Save persists the cache to disk if it's dirty.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.index.mu.RUnlock()

	if err != nil {
		return err
	}

	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := writeFileAtomic(c.Path, data, 0644); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()

	return nil
}

// Get retrieves an entry if it exists and is fresh.
// Freshness requires both the mtime and the content checksum to match.
func (c *cache) Get(relPath string, currentMtime time.Time, sum uint64) (*indexEntry, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok {
		return nil, false
	}

	if !entry.LastModified.Equal(currentMtime) {
		return nil, false
	}
	if entry.Checksum != sum {
		return nil, false
	}

	return entry, true
}

// Set updates an entry in the cache.
func (c *cache) Set(relPath string, entry *indexEntry) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	c.index.Entries[relPath] = entry
	c.index.dirty = true
}

// Prune removes entries that are not in the 'keep' set.
func (c *cache) Prune(keep map[string]bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	for path := range c.index.Entries {
		if !keep[path] {
			delete(c.index.Entries, path)
			c.index.dirty = true
		}
	}
}

// Delete removes a single entry from the cache.
func (c *cache) Delete(relPath string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	delete(c.index.Entries, relPath)
	c.index.dirty = true
}

// Range iterates over all entries in the cache.
// callback returns true to continue, false to stop.
func (c *cache) Range(callback func(relPath string, entry *indexEntry) bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	for k, v := range c.index.Entries {
		if !callback(k, v) {
			break
		}
	}
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}
