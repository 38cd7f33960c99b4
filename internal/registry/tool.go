// Package registry implements spec §4.3: strategy tables for tools,
// resources, and prompts, keyed by name/URI prefix, frozen after
// construction per the REDESIGN FLAGS in spec §9 ("mutable registries via
// runtime registration" -> freeze after build).
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

// ProgressFunc lets a handler report incremental progress; the dispatcher
// turns each call into a $/progress notification (spec §4.2).
type ProgressFunc func(message string, percent float64)

// ToolHandler is the typed execute function behind a Tool, replacing the
// teacher's duck-typed "strategy" objects with methods returning loosely
// typed maps (spec §9 REDESIGN FLAGS).
type ToolHandler func(ctx context.Context, args json.RawMessage, progress ProgressFunc) (interface{}, error)

// Tool is the immutable tool record from spec §3.
type Tool struct {
	Name                 string
	Description          string
	InputSchema          *Schema
	OutputSchema         *Schema
	ReadOnly             bool
	WritesToDisk         bool
	RequiresConfirmation bool
	Idempotent           bool
	Timeout              time.Duration // zero means use dispatcher default
	MaxConcurrency       int           // zero means no per-tool cap

	Handler ToolHandler
}

// Metadata is the public, client-facing shape returned by tools/list.
type Metadata struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	InputSchema          json.RawMessage `json:"inputSchema"`
	OutputSchema         json.RawMessage `json:"outputSchema,omitempty"`
	ReadOnly             bool            `json:"readOnly"`
	WritesToDisk         bool            `json:"writesToDisk"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	Idempotent           bool            `json:"idempotent"`
}

func (t *Tool) metadata() Metadata {
	m := Metadata{
		Name:                 t.Name,
		Description:          t.Description,
		ReadOnly:             t.ReadOnly,
		WritesToDisk:         t.WritesToDisk,
		RequiresConfirmation: t.RequiresConfirmation,
		Idempotent:           t.Idempotent,
	}
	if t.InputSchema != nil {
		m.InputSchema = t.InputSchema.Raw()
	}
	if t.OutputSchema != nil {
		m.OutputSchema = t.OutputSchema.Raw()
	}
	return m
}

// ToolBuilder accumulates tools before the registry is frozen.
type ToolBuilder struct {
	tools map[string]*Tool
	err   error
}

// NewToolBuilder starts a fresh tool registry build.
func NewToolBuilder() *ToolBuilder {
	return &ToolBuilder{tools: make(map[string]*Tool)}
}

// Register adds a tool. Name collisions are a build-time error, matching
// spec §3's "name is unique within the server".
func (b *ToolBuilder) Register(t *Tool) *ToolBuilder {
	if b.err != nil {
		return b
	}
	if t.Name == "" {
		b.err = fmt.Errorf("tool registered with empty name")
		return b
	}
	if _, exists := b.tools[t.Name]; exists {
		b.err = fmt.Errorf("tool %q already registered", t.Name)
		return b
	}
	b.tools[t.Name] = t
	return b
}

// Build freezes the registry. No further registration is possible.
func (b *ToolBuilder) Build() (*ToolRegistry, error) {
	if b.err != nil {
		return nil, b.err
	}
	frozen := make(map[string]*Tool, len(b.tools))
	for k, v := range b.tools {
		frozen[k] = v
	}
	return &ToolRegistry{tools: frozen}, nil
}

// ToolRegistry is the frozen name->strategy mapping for tools/list and
// tools/call.
type ToolRegistry struct {
	tools map[string]*Tool
	mu    sync.RWMutex // guards nothing post-freeze; kept for defensive symmetry with other registries
}

// Get returns the tool by name.
func (r *ToolRegistry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every tool's public metadata, sorted by name for stable
// output.
func (r *ToolRegistry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Metadata, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n].metadata())
	}
	return out
}

// ValidateInput validates arguments against a tool's input schema,
// returning an *mcperr.Error(invalid_params) on failure.
func (t *Tool) ValidateInput(args interface{}) error {
	if t.InputSchema == nil {
		return nil
	}
	if errs := t.InputSchema.Validate(args); len(errs) > 0 {
		return mcperr.InvalidParamsError(t.Name, errs)
	}
	return nil
}

// ValidateOutput validates a handler's result against a tool's output
// schema; failures here are a bug, not a client error (spec §4.3). Handlers
// return typed Go values, so result is round-tripped through JSON first —
// jsonschema validates decoded JSON values (maps, slices, primitives), not
// arbitrary structs.
func (t *Tool) ValidateOutput(result interface{}) error {
	if t.OutputSchema == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return mcperr.New().Code(mcperr.CodeInternal).
			Messagef("tool %q produced unmarshalable output", t.Name).Cause(err).WithLocation().Build()
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return mcperr.New().Code(mcperr.CodeInternal).
			Messagef("tool %q produced unmarshalable output", t.Name).Cause(err).WithLocation().Build()
	}
	if errs := t.OutputSchema.Validate(decoded); len(errs) > 0 {
		return mcperr.New().Code(mcperr.CodeInternal).
			Messagef("tool %q produced output violating its schema", t.Name).
			Data("errors", errs).WithLocation().Build()
	}
	return nil
}
