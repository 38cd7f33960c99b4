package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/flyctl-dev/flymcp/internal/jsonrpc"
	"github.com/flyctl-dev/flymcp/internal/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func newTestDispatcher(t *testing.T, tool *registry.Tool) *Dispatcher {
	t.Helper()
	b := registry.NewToolBuilder()
	b.Register(tool)
	tools, err := b.Build()
	if err != nil {
		t.Fatalf("ToolBuilder.Build: %v", err)
	}
	res, err := registry.NewResourceRegistry()
	if err != nil {
		t.Fatalf("NewResourceRegistry: %v", err)
	}
	prompts, err := registry.NewPromptRegistry()
	if err != nil {
		t.Fatalf("NewPromptRegistry: %v", err)
	}
	return New(Config{ServerName: "test", ServerVersion: "0.0.0"}, tools, res, prompts, discardLogger())
}

func TestHandleInitialize(t *testing.T) {
	d := newTestDispatcher(t, &registry.Tool{Name: "noop", Handler: func(ctx context.Context, args json.RawMessage, p registry.ProgressFunc) (interface{}, error) {
		return nil, nil
	}})
	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: jsonrpc.NewID(int64(1)), Method: "initialize"}
	resp := d.Handle(context.Background(), req, nil)
	if resp == nil || resp.Error != nil {
		t.Fatalf("Handle(initialize) = %+v", resp)
	}
	var result InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if result.ServerName != "test" || !result.Capabilities.Tools {
		t.Fatalf("result = %+v", result)
	}
}

func TestHandleToolsCallSuccess(t *testing.T) {
	d := newTestDispatcher(t, &registry.Tool{
		Name: "fly.echo",
		Handler: func(ctx context.Context, args json.RawMessage, p registry.ProgressFunc) (interface{}, error) {
			return map[string]string{"echoed": "ok"}, nil
		},
	})
	params, _ := json.Marshal(map[string]interface{}{"name": "fly.echo", "arguments": map[string]string{}})
	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: jsonrpc.NewID(int64(1)), Method: "tools/call", Params: params}

	resp := d.Handle(context.Background(), req, nil)
	if resp == nil || resp.Error != nil {
		t.Fatalf("Handle(tools/call) = %+v", resp)
	}
}

func TestHandleToolsCallUnknownTool(t *testing.T) {
	d := newTestDispatcher(t, &registry.Tool{Name: "fly.echo", Handler: func(ctx context.Context, args json.RawMessage, p registry.ProgressFunc) (interface{}, error) {
		return nil, nil
	}})
	params, _ := json.Marshal(map[string]interface{}{"name": "does.not.exist"})
	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: jsonrpc.NewID(int64(1)), Method: "tools/call", Params: params}

	resp := d.Handle(context.Background(), req, nil)
	if resp.Error == nil {
		t.Fatal("expected an error response for an unknown tool")
	}
}

func TestHandleMethodNotFound(t *testing.T) {
	d := newTestDispatcher(t, &registry.Tool{Name: "fly.echo", Handler: func(ctx context.Context, args json.RawMessage, p registry.ProgressFunc) (interface{}, error) {
		return nil, nil
	}})
	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: jsonrpc.NewID(int64(1)), Method: "no/such/method"}
	resp := d.Handle(context.Background(), req, nil)
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != jsonrpc.CodeMethodNotFound {
		t.Fatalf("Error.Code = %d, want %d", resp.Error.Code, jsonrpc.CodeMethodNotFound)
	}
}

func TestHandleNotificationReturnsNoResponse(t *testing.T) {
	d := newTestDispatcher(t, &registry.Tool{Name: "fly.echo", Handler: func(ctx context.Context, args json.RawMessage, p registry.ProgressFunc) (interface{}, error) {
		return nil, nil
	}})
	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, Method: "initialize"} // zero-value ID => notification
	resp := d.Handle(context.Background(), req, nil)
	if resp != nil {
		t.Fatalf("Handle(notification) = %+v, want nil", resp)
	}
}

func TestCancelRequestCancelsRunningHandler(t *testing.T) {
	started := make(chan struct{})
	canceled := make(chan struct{})
	d := newTestDispatcher(t, &registry.Tool{
		Name: "slow.tool",
		Handler: func(ctx context.Context, args json.RawMessage, p registry.ProgressFunc) (interface{}, error) {
			close(started)
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		},
	})

	params, _ := json.Marshal(map[string]interface{}{"name": "slow.tool"})
	req := &jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: jsonrpc.NewID(int64(5)), Method: "tools/call", Params: params}

	done := make(chan *jsonrpc.Response, 1)
	go func() { done <- d.Handle(context.Background(), req, nil) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never started")
	}

	cancelParams, _ := json.Marshal(map[string]interface{}{"id": 5})
	cancelReq := &jsonrpc.Request{JSONRPC: jsonrpc.Version, Method: "$/cancelRequest", Params: cancelParams}
	if resp := d.Handle(context.Background(), cancelReq, nil); resp != nil {
		t.Fatalf("$/cancelRequest response = %+v, want nil", resp)
	}

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never canceled")
	}
	<-done
}
