package dispatch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/flyctl-dev/flymcp/internal/jsonrpc"
	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/registry"
)

// InitializeResult is returned by the "initialize" method (spec §6).
type InitializeResult struct {
	ServerName   string       `json:"serverName"`
	Version      string       `json:"version"`
	Capabilities Capabilities `json:"capabilities"`
}

type Capabilities struct {
	Tools        bool `json:"tools"`
	Resources    bool `json:"resources"`
	Prompts      bool `json:"prompts"`
	Progress     bool `json:"progress"`
	Cancellation bool `json:"cancellation"`
}

func (d *Dispatcher) route(ctx context.Context, req *jsonrpc.Request, emit func(*jsonrpc.Notification)) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = mcperr.InternalError(errorFromRecover(r))
		}
	}()

	switch req.Method {
	case "initialize":
		return InitializeResult{
			ServerName:   d.cfg.ServerName,
			Version:      d.cfg.ServerVersion,
			Capabilities: Capabilities{Tools: true, Resources: true, Prompts: true, Progress: true, Cancellation: true},
		}, nil

	case "tools/list":
		return struct {
			Tools []registry.Metadata `json:"tools"`
		}{Tools: d.tools.List()}, nil

	case "tools/call":
		return d.callTool(ctx, req, emit)

	case "resources/list":
		return d.listResources(ctx, req)

	case "resources/read":
		return d.readResource(ctx, req)

	case "prompts/list":
		return struct {
			Prompts []promptMetadata `json:"prompts"`
		}{Prompts: promptMetadataList(d.prompts.List())}, nil

	case "prompts/get":
		return d.getPrompt(ctx, req)

	default:
		return nil, mcperr.MethodNotFoundError(req.Method)
	}
}

type promptMetadata struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Variables   []registry.Variable   `json:"variables"`
}

func promptMetadataList(prompts []*registry.PromptStrategy) []promptMetadata {
	out := make([]promptMetadata, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, promptMetadata{ID: p.ID, Title: p.Title, Description: p.Description, Variables: p.Variables})
	}
	return out
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) callTool(ctx context.Context, req *jsonrpc.Request, emit func(*jsonrpc.Notification)) (interface{}, error) {
	var p toolCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed tools/call params").WithLocation().Build()
	}
	tool, ok := d.tools.Get(p.Name)
	if !ok {
		return nil, mcperr.NotFoundError("tool", p.Name)
	}

	var decoded interface{}
	if len(p.Arguments) > 0 {
		if err := json.Unmarshal(p.Arguments, &decoded); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Messagef("malformed arguments for tool %q", p.Name).WithLocation().Build()
		}
	}
	if err := tool.ValidateInput(decoded); err != nil {
		return nil, err
	}

	// $/progress must only be emitted before the final response for this id
	// (spec §4.2); since the handler runs synchronously before route()
	// returns, every progress emit here predates the eventual response write.
	progress := func(message string, percent float64) {
		if emit == nil || req.ID.IsNotification() {
			return
		}
		emit(&jsonrpc.Notification{
			JSONRPC: jsonrpc.Version,
			Method:  "$/progress",
			Params: map[string]interface{}{
				"id":      req.ID.Value(),
				"message": message,
				"percent": percent,
			},
		})
	}

	result, err := tool.Handler(ctx, p.Arguments, progress)
	if err != nil {
		return nil, classifyHandlerError(req.Method, ctx, err)
	}
	if err := tool.ValidateOutput(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) listResources(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
	var p struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed resources/list params").WithLocation().Build()
	}
	page, err := d.resources.List(ctx, registry.ListParams{URI: p.URI})
	if err != nil {
		return nil, classifyHandlerError(req.Method, ctx, err)
	}
	return page, nil
}

func (d *Dispatcher) readResource(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
	var p struct {
		URI      string `json:"uri"`
		Start    *int64 `json:"start"`
		Length   *int64 `json:"length"`
		Page     int    `json:"page"`
		PageSize int    `json:"pageSize"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed resources/read params").WithLocation().Build()
	}
	rp := registry.ReadParams{URI: p.URI, Page: p.Page, PageSize: p.PageSize}
	if p.Start != nil {
		rp.Start = *p.Start
		rp.HasRange = true
	}
	if p.Length != nil {
		rp.Length = *p.Length
		rp.HasRange = true
	}
	content, err := d.resources.Read(ctx, rp)
	if err != nil {
		return nil, classifyHandlerError(req.Method, ctx, err)
	}
	return content, nil
}

func (d *Dispatcher) getPrompt(ctx context.Context, req *jsonrpc.Request) (interface{}, error) {
	var p struct {
		ID        string            `json:"id"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed prompts/get params").WithLocation().Build()
	}
	messages, err := d.prompts.Get(ctx, p.ID, p.Arguments)
	if err != nil {
		return nil, err
	}
	return struct {
		Messages []registry.RenderedMessage `json:"messages"`
	}{Messages: messages}, nil
}

// classifyHandlerError maps context cancellation/deadline to the
// canceled/timeout taxonomy (spec §4.2, §7); anything else passes through
// unchanged so *mcperr.Error values keep their original code.
func classifyHandlerError(method string, ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return mcperr.CanceledError(method)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return mcperr.TimeoutError(method)
	}
	if _, ok := mcperr.As(err); ok {
		return err
	}
	return mcperr.InternalError(err)
}

func errorFromRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.New("panic in handler")
}
