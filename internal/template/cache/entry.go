// Package cache implements spec §4.5's per-template disk/LRU cache,
// including the acquire() coalescing algorithm and cache.meta maintenance.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/flyctl-dev/flymcp/internal/template"
)

// entryCacheVersion is bumped whenever the on-disk entry shape changes;
// mismatches cause the entry to be discarded (spec §6).
const entryCacheVersion = 1

// Entry is the on-disk/in-memory cache record for one (name, version)
// pair (spec §6's cache entry shape).
type Entry struct {
	Template     *template.Descriptor `json:"template"`
	DownloadedAt time.Time            `json:"downloaded_at"`
	ExpiresAt    time.Time            `json:"expires_at"`
	Version      string               `json:"version"`
	Checksum     string               `json:"checksum"`
	CacheVersion int                  `json:"cache_version"`
}

// newEntry builds an Entry with its checksum computed over the template's
// canonical JSON encoding.
func newEntry(name, version string, tpl *template.Descriptor, ttl time.Duration, now time.Time) (*Entry, error) {
	sum, err := checksumOf(tpl)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Template:     tpl,
		DownloadedAt: now,
		ExpiresAt:    now.Add(ttl),
		Version:      version,
		Checksum:     sum,
		CacheVersion: entryCacheVersion,
	}, nil
}

func checksumOf(tpl *template.Descriptor) (string, error) {
	data, err := json.Marshal(tpl)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// verify re-derives the checksum and compares it and the cache_version
// against what was persisted (spec §4.5's "corrupted" outcome).
func (e *Entry) verify() bool {
	if e.CacheVersion != entryCacheVersion {
		return false
	}
	sum, err := checksumOf(e.Template)
	if err != nil {
		return false
	}
	return sum == e.Checksum
}

func (e *Entry) size() int64 {
	data, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
