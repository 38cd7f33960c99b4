package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

// Item is one entry returned by resources/list (spec §4.4).
type Item struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"` // "file" | "dir"
	Size     *int64 `json:"size,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// Page is the paginated result of resources/list.
type Page struct {
	Items    []Item `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// Content is the result of resources/read.
type Content struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Start    int64  `json:"start"`
	Length   int64  `json:"length"`
}

// ListParams/ReadParams carry the resources/list and resources/read
// request parameters (spec §4.3).
type ListParams struct {
	URI string
}

type ReadParams struct {
	URI    string
	Start  int64
	Length int64
	HasRange bool
	Page     int
	PageSize int
}

// ResourceStrategy is the tagged-interface replacement for the teacher's
// duck-typed resource strategies (spec §9 REDESIGN FLAGS).
type ResourceStrategy interface {
	Prefix() string
	Description() string
	ReadOnly() bool
	List(ctx context.Context, p ListParams) (Page, error)
	Read(ctx context.Context, p ReadParams) (Content, error)
}

// ResourceRegistry dispatches by longest matching URI prefix (spec §4.3).
type ResourceRegistry struct {
	mu         sync.RWMutex
	strategies []ResourceStrategy
}

// NewResourceRegistry builds a registry from a fixed set of strategies,
// validating that prefixes are disjoint-by-construction (no two
// strategies share an identical prefix).
func NewResourceRegistry(strategies ...ResourceStrategy) (*ResourceRegistry, error) {
	seen := map[string]bool{}
	for _, s := range strategies {
		if seen[s.Prefix()] {
			return nil, mcperr.New().Code(mcperr.CodeInternal).
				Messagef("duplicate resource prefix: %s", s.Prefix()).WithLocation().Build()
		}
		seen[s.Prefix()] = true
	}
	cp := append([]ResourceStrategy(nil), strategies...)
	sort.Slice(cp, func(i, j int) bool { return len(cp[i].Prefix()) > len(cp[j].Prefix()) })
	return &ResourceRegistry{strategies: cp}, nil
}

// resolve finds the strategy with the longest matching prefix for uri.
func (r *ResourceRegistry) resolve(uri string) (ResourceStrategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.strategies { // pre-sorted longest-prefix-first
		if strings.HasPrefix(uri, s.Prefix()) {
			return s, true
		}
	}
	return nil, false
}

// List dispatches resources/list.
func (r *ResourceRegistry) List(ctx context.Context, p ListParams) (Page, error) {
	s, ok := r.resolve(p.URI)
	if !ok {
		return Page{}, mcperr.NotFoundError("resource", p.URI)
	}
	return s.List(ctx, p)
}

// Read dispatches resources/read.
func (r *ResourceRegistry) Read(ctx context.Context, p ReadParams) (Content, error) {
	s, ok := r.resolve(p.URI)
	if !ok {
		return Content{}, mcperr.NotFoundError("resource", p.URI)
	}
	return s.Read(ctx, p)
}

// Strategies exposes the registered strategies (used by wiring code to
// report capability metadata).
func (r *ResourceRegistry) Strategies() []ResourceStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ResourceStrategy(nil), r.strategies...)
}
