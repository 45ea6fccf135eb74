package imaging

import (
	"fmt"
	"os"
	"sync"
)

// SheetCache provides thread-safe caching of raw sheet files to avoid
// redundant disk reads.
//
// The cache stores the encoded bytes keyed by file path, not decoded pixels:
// the binarized buffer depends on per-call thresholds, so decoding happens on
// every pipeline run while disk I/O happens once.
//
// SheetCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached files remain in memory until explicitly removed via Evict() or
// Clear(). Batch callers grading many sheets once should evict after use.
type SheetCache struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewSheetCache creates and initializes a new empty sheet cache.
func NewSheetCache() *SheetCache {
	return &SheetCache{
		files: make(map[string][]byte),
	}
}

// Load returns the bytes of the sheet at path, reading it from disk on the
// first call. The returned slice is shared and must not be modified.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is a directory
func (c *SheetCache) Load(path string) ([]byte, error) {
	c.mu.RLock()
	if data, ok := c.files[path]; ok {
		c.mu.RUnlock()
		return data, nil
	}
	c.mu.RUnlock()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("failed to open sheet: %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	c.mu.Lock()
	c.files[path] = data
	c.mu.Unlock()

	return data, nil
}

// Len returns the number of cached sheets.
func (c *SheetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Clear removes all sheets from the cache.
func (c *SheetCache) Clear() {
	c.mu.Lock()
	c.files = make(map[string][]byte)
	c.mu.Unlock()
}

// Evict removes a specific sheet from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *SheetCache) Evict(path string) {
	c.mu.Lock()
	delete(c.files, path)
	c.mu.Unlock()
}
