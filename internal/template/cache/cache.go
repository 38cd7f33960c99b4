package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/template"
)

// Status is the outcome of a cache lookup (spec §4.5).
type Status int

const (
	Miss Status = iota
	Hit
	Expired
	Corrupted
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Expired:
		return "expired"
	case Corrupted:
		return "corrupted"
	default:
		return "miss"
	}
}

// FetchFunc retrieves the freshest descriptor for name from upstream.
type FetchFunc func(ctx context.Context, name string) (*template.Descriptor, error)

// Options configures a Cache.
type Options struct {
	Root             string
	DefaultTTL       time.Duration
	MaxMemoryEntries int
	MaxSizeBytes     int64
	Offline          bool
	Fetch            FetchFunc
	Logger           *slog.Logger
}

// Cache is the per-template disk+LRU cache described in spec §4.5.
type Cache struct {
	root       string
	defaultTTL time.Duration
	maxEntries int
	offline    bool
	fetch      FetchFunc
	logger     *slog.Logger

	mu     sync.Mutex
	lru    *list.List               // of *list.Element holding lruItem
	index  map[string]*list.Element // disk key -> lru element
	latest map[string]string        // name -> most recently put version

	sf singleflight.Group
}

type lruItem struct {
	key   string
	entry *Entry
}

// New builds a Cache rooted at opts.Root, creating its templates/
// directory if absent.
func New(opts Options) (*Cache, error) {
	if opts.MaxMemoryEntries <= 0 {
		opts.MaxMemoryEntries = 256
	}
	if err := os.MkdirAll(filepath.Join(opts.Root, "templates"), 0o755); err != nil {
		return nil, err
	}
	return &Cache{
		root:       opts.Root,
		defaultTTL: opts.DefaultTTL,
		maxEntries: opts.MaxMemoryEntries,
		offline:    opts.Offline,
		fetch:      opts.Fetch,
		logger:     opts.Logger,
		lru:        list.New(),
		index:      make(map[string]*list.Element),
		latest:     make(map[string]string),
	}, nil
}

func diskKey(name, version string) string { return name + "@" + version }

func (c *Cache) diskPath(key string) string {
	return filepath.Join(c.root, "templates", key+".json")
}

// lookup implements spec §4.5's four-way lookup outcome for an explicit
// (name, version) pair.
func (c *Cache) lookup(name, version string) (*Entry, Status) {
	key := diskKey(name, version)

	c.mu.Lock()
	if el, ok := c.index[key]; ok {
		c.lru.MoveToFront(el)
		entry := el.Value.(*lruItem).entry
		c.mu.Unlock()
		return c.classify(entry)
	}
	c.mu.Unlock()

	data, err := os.ReadFile(c.diskPath(key))
	if err != nil {
		return nil, Miss
	}
	var entry Entry
	if json.Unmarshal(data, &entry) != nil {
		return nil, Corrupted
	}
	if !entry.verify() {
		return nil, Corrupted
	}
	c.promote(key, &entry)
	return c.classify(&entry)
}

func (c *Cache) classify(e *Entry) (*Entry, Status) {
	if !e.verify() {
		return nil, Corrupted
	}
	if time.Now().Before(e.ExpiresAt) {
		return e, Hit
	}
	return e, Expired
}

// promote inserts or refreshes key's LRU position, evicting the
// least-recently-used entry if over maxEntries.
func (c *Cache) promote(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		el.Value.(*lruItem).entry = entry
		c.lru.MoveToFront(el)
		return
	}
	el := c.lru.PushFront(&lruItem{key: key, entry: entry})
	c.index[key] = el
	if c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.index, oldest.Value.(*lruItem).key)
		}
	}
}

// put writes an entry atomically and updates the in-memory LRU
// (spec §4.5's "write tmp + rename").
func (c *Cache) put(name, version string, tpl *template.Descriptor, ttl time.Duration) (*Entry, error) {
	entry, err := newEntry(name, version, tpl, ttl, time.Now())
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, err
	}
	key := diskKey(name, version)
	if err := atomicWrite(c.diskPath(key), data); err != nil {
		return nil, err
	}
	c.promote(key, entry)

	c.mu.Lock()
	c.latest[name] = version
	c.mu.Unlock()

	c.updateMeta(int64(len(data)))
	return entry, nil
}

// anyEntryFor returns the entry most recently put for name by this Cache
// instance, regardless of expiry, used by acquire()'s stale-served fallback
// (spec §4.5). Entries written to disk by an earlier Cache or process are
// not found here until this instance puts a version of name.
func (c *Cache) anyEntryFor(name string) (*Entry, bool) {
	c.mu.Lock()
	version, ok := c.latest[name]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	entry, status := c.lookup(name, version)
	if status == Corrupted {
		return nil, false
	}
	return entry, entry != nil
}

// AcquireOptions parameterizes Acquire (spec §4.5).
type AcquireOptions struct {
	// Version, when set, is looked up in the cache first and returned on a
	// hit. Otherwise (empty, missed or expired) Acquire fetches upstream's
	// newest version of the name, or offline serves the most recently
	// cached entry; either may differ from Version.
	Version      string
	ForceRefresh bool
}

// AcquireResult carries the resolved descriptor. Stale is true when it was
// served from cache after an upstream fetch failed, or, offline, when the
// cached entry has expired.
type AcquireResult struct {
	Descriptor *Descriptor
	Stale      bool
}

// Descriptor re-exports template.Descriptor so callers of this package
// don't need a second import for the common case.
type Descriptor = template.Descriptor

// Acquire implements spec §4.5's canonical acquire(name, opts) routine,
// coalescing concurrent callers for the same name via singleflight
// (spec §8's singleflight invariant).
func (c *Cache) Acquire(ctx context.Context, name string, opts AcquireOptions) (*AcquireResult, error) {
	if !opts.ForceRefresh && opts.Version != "" {
		if entry, status := c.lookup(name, opts.Version); status == Hit {
			return &AcquireResult{Descriptor: entry.Template}, nil
		}
	}

	v, err, _ := c.sf.Do(name, func() (interface{}, error) {
		return c.acquireLocked(ctx, name, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AcquireResult), nil
}

func (c *Cache) acquireLocked(ctx context.Context, name string, opts AcquireOptions) (*AcquireResult, error) {
	if !c.offline {
		if c.fetch == nil {
			return nil, mcperr.New().Code(mcperr.CodeInternal).Message("no upstream fetcher configured").WithLocation().Build()
		}
		tpl, err := c.fetch(ctx, name)
		if err == nil {
			if _, putErr := c.put(name, tpl.Version, tpl, c.defaultTTL); putErr != nil {
				return nil, putErr
			}
			return &AcquireResult{Descriptor: tpl}, nil
		}

		if entry, ok := c.anyEntryFor(name); ok {
			if c.logger != nil {
				c.logger.Warn("stale-served", "template", name, "error", err)
			}
			return &AcquireResult{Descriptor: entry.Template, Stale: true}, nil
		}
		return nil, mcperr.NetworkFatalError(err)
	}

	if entry, ok := c.anyEntryFor(name); ok {
		_, status := c.classify(entry)
		return &AcquireResult{Descriptor: entry.Template, Stale: status == Expired}, nil
	}
	return nil, mcperr.OfflineUnavailableError(name, opts.Version)
}

func (c *Cache) updateMeta(deltaBytes int64) {
	m, err := loadMeta(c.root)
	if err != nil {
		return
	}
	m.CacheVersion = entryCacheVersion
	m.TotalEntries++
	m.TotalSizeBytes += deltaBytes
	m.DefaultTTL = c.defaultTTL
	_ = m.save(c.root)
}

// Cleanup removes expired or corrupted disk entries and, if over
// maxSizeBytes, evicts entries in order of file modification time, oldest
// first, until under the limit (spec §4.5's background maintenance). Reads
// do not update an entry's modification time, so eviction order follows
// when an entry was written, not when it was last accessed.
func (c *Cache) Cleanup(maxSizeBytes int64) error {
	entries, err := os.ReadDir(filepath.Join(c.root, "templates"))
	if err != nil {
		return err
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var total int64

	for _, e := range entries {
		path := filepath.Join(c.root, "templates", e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if json.Unmarshal(data, &entry) != nil || !entry.verify() {
			os.Remove(path)
			continue
		}
		if time.Now().After(entry.ExpiresAt) {
			os.Remove(path)
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}

	if maxSizeBytes > 0 && total > maxSizeBytes {
		// oldest-modified first (least-recently-written proxy for LRA).
		for len(files) > 0 && total > maxSizeBytes {
			oldest := 0
			for j := range files {
				if files[j].modTime.Before(files[oldest].modTime) {
					oldest = j
				}
			}
			total -= files[oldest].size
			os.Remove(files[oldest].path)
			files = append(files[:oldest], files[oldest+1:]...)
		}
	}

	m, err := loadMeta(c.root)
	if err != nil {
		return err
	}
	m.LastCleanup = time.Now()
	m.TotalSizeBytes = total
	m.TotalEntries = len(files)
	m.MaxSizeBytes = maxSizeBytes
	return m.save(c.root)
}
