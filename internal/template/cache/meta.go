package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Meta is the cache.meta sidecar record (spec §4.5's "Cache metadata").
type Meta struct {
	CacheVersion   int           `json:"cache_version"`
	TotalEntries   int           `json:"total_entries"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	LastCleanup    time.Time     `json:"last_cleanup"`
	DefaultTTL     time.Duration `json:"default_ttl"`
	MaxSizeBytes   int64         `json:"max_size_bytes"`
}

func metaPath(root string) string { return filepath.Join(root, "cache.meta") }

func loadMeta(root string) (*Meta, error) {
	data, err := os.ReadFile(metaPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &Meta{CacheVersion: entryCacheVersion}, nil
		}
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return &Meta{CacheVersion: entryCacheVersion}, nil
	}
	return &m, nil
}

// save writes meta atomically: write to a temp file in the same directory,
// then rename over the target (spec §4.5, §5's atomic-write guarantee).
func (m *Meta) save(root string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(metaPath(root), data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
