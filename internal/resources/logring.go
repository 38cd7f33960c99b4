package resources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/registry"
)

// LogRingPrefix is shared by both run and build log URIs: logs://run/<pid>
// and logs://build/<pid> (spec §4.4).
const LogRingPrefix = "logs://"

// ring is a fixed-capacity byte buffer that evicts the oldest bytes first
// once full, so a runaway subprocess can't grow memory without bound.
type ring struct {
	mu   sync.Mutex
	cap  int
	buf  []byte
	// dropped counts bytes evicted before the retained window, so readers
	// can report the true start offset of what's left.
	dropped int64
}

func newRing(cap int) *ring {
	if cap <= 0 {
		cap = 1 << 20 // 1MiB default
	}
	return &ring{cap: cap}
}

func (r *ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, p...)
	if over := len(r.buf) - r.cap; over > 0 {
		r.dropped += int64(over)
		r.buf = r.buf[over:]
	}
	return len(p), nil
}

func (r *ring) snapshot() (data []byte, startOffset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	return out, r.dropped
}

// LogRings is the logs:// resource strategy. Each process id (run or
// build) gets its own bounded ring, registered by the component that
// spawns the subprocess. A ring outlives its process and is kept until
// Forget is called for it.
type LogRings struct {
	mu         sync.Mutex
	runs       map[string]*ring
	builds     map[string]*ring
	ringBytes  int
}

// NewLogRings builds an empty registry of per-process log rings.
// ringCapBytes bounds each individual ring (spec §4.4's log_ring_cap_bytes).
func NewLogRings(ringCapBytes int) *LogRings {
	return &LogRings{
		runs:      make(map[string]*ring),
		builds:    make(map[string]*ring),
		ringBytes: ringCapBytes,
	}
}

func (l *LogRings) Prefix() string      { return LogRingPrefix }
func (l *LogRings) Description() string { return "In-memory run/build process log tail" }
func (l *LogRings) ReadOnly() bool      { return true }

// Writer returns an io.Writer that appends to the named process's ring,
// creating it if absent. kind is "run" or "build".
func (l *LogRings) Writer(kind, pid string) *ring {
	l.mu.Lock()
	defer l.mu.Unlock()
	table := l.table(kind)
	r, ok := table[pid]
	if !ok {
		r = newRing(l.ringBytes)
		table[pid] = r
	}
	return r
}

// Forget drops the ring for a process once it has exited and its log has
// been drained by the caller, bounding total memory across a long-lived
// server.
func (l *LogRings) Forget(kind, pid string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.table(kind), pid)
}

func (l *LogRings) table(kind string) map[string]*ring {
	if kind == "build" {
		return l.builds
	}
	return l.runs
}

func (l *LogRings) parse(uri string) (kind, pid string, err error) {
	rest := strings.TrimPrefix(uri, LogRingPrefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", mcperr.New().Code(mcperr.CodeInvalidParams).
			Messagef("malformed log uri: %s", uri).WithLocation().Build()
	}
	if parts[0] != "run" && parts[0] != "build" {
		return "", "", mcperr.New().Code(mcperr.CodeInvalidParams).
			Messagef("unknown log kind: %s", parts[0]).WithLocation().Build()
	}
	return parts[0], parts[1], nil
}

func (l *LogRings) List(ctx context.Context, p registry.ListParams) (registry.Page, error) {
	// logs://run or logs://build lists every pid under that kind.
	bare := strings.TrimPrefix(strings.TrimSuffix(p.URI, "/"), LogRingPrefix)
	var kind string
	if bare == "run" || bare == "build" {
		kind = bare
	} else {
		var err error
		kind, _, err = l.parse(p.URI)
		if err != nil {
			return registry.Page{}, err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	table := l.table(kind)
	items := make([]registry.Item, 0, len(table))
	for pid, r := range table {
		data, _ := r.snapshot()
		size := int64(len(data))
		items = append(items, registry.Item{Name: pid, Kind: "file", Size: &size})
	}
	return registry.Page{Items: items, Total: len(items), Page: 1, PageSize: len(items)}, nil
}

func (l *LogRings) Read(ctx context.Context, p registry.ReadParams) (registry.Content, error) {
	kind, pid, err := l.parse(p.URI)
	if err != nil {
		return registry.Content{}, err
	}
	l.mu.Lock()
	r, ok := l.table(kind)[pid]
	l.mu.Unlock()
	if !ok {
		return registry.Content{}, mcperr.NotFoundError("log", fmt.Sprintf("%s/%s", kind, pid))
	}

	data, dropped := r.snapshot()
	start := p.Start
	if start < dropped {
		start = dropped
	}
	localStart := start - dropped
	if localStart >= int64(len(data)) {
		return registry.Content{Content: "", Encoding: "utf-8", Start: start, Length: 0}, nil
	}
	end := int64(len(data))
	if p.Length > 0 && localStart+p.Length < end {
		end = localStart + p.Length
	}
	slice := data[localStart:end]
	return registry.Content{Content: string(slice), Encoding: "utf-8", Start: start, Length: int64(len(slice))}, nil
}

// pidKey formats a process id for ring lookups, kept as a tiny helper so
// callers never hand-format the string representation inconsistently.
func pidKey(pid int) string { return strconv.Itoa(pid) }
