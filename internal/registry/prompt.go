package registry

import (
	"context"
	"sort"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

// Variable declares one prompt template variable (spec §3).
type Variable struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// MessageContent is the {type, text} payload of a rendered message.
type MessageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RenderedMessage is the wire shape returned by prompts/get.
type RenderedMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// PromptStrategy renders a named prompt template given variables (spec §3).
type PromptStrategy struct {
	ID          string
	Title       string
	Description string
	Variables   []Variable
	Render      func(vars map[string]string) ([]RenderedMessage, error)
}

// PromptRegistry is the frozen id->strategy mapping for prompts/list and
// prompts/get.
type PromptRegistry struct {
	prompts map[string]*PromptStrategy
}

// NewPromptRegistry builds a frozen registry, rejecting id collisions.
func NewPromptRegistry(prompts ...*PromptStrategy) (*PromptRegistry, error) {
	m := make(map[string]*PromptStrategy, len(prompts))
	for _, p := range prompts {
		if _, exists := m[p.ID]; exists {
			return nil, mcperr.New().Code(mcperr.CodeInternal).
				Messagef("duplicate prompt id: %s", p.ID).WithLocation().Build()
		}
		m[p.ID] = p
	}
	return &PromptRegistry{prompts: m}, nil
}

// List returns every prompt's public metadata, sorted by id.
func (r *PromptRegistry) List() []*PromptStrategy {
	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*PromptStrategy, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.prompts[id])
	}
	return out
}

// Get resolves id, checks required variables, and renders messages.
func (r *PromptRegistry) Get(ctx context.Context, id string, args map[string]string) ([]RenderedMessage, error) {
	p, ok := r.prompts[id]
	if !ok {
		return nil, mcperr.NotFoundError("prompt", id)
	}
	var missing []string
	for _, v := range p.Variables {
		if !v.Required {
			continue
		}
		if _, supplied := args[v.Name]; !supplied {
			missing = append(missing, v.Name)
		}
	}
	if len(missing) > 0 {
		return nil, mcperr.MissingVariablesError(id, missing)
	}
	return p.Render(args)
}
