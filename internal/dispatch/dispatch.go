// Package dispatch implements spec §4.2: request admission, concurrency
// caps, timeouts, cooperative cancellation, and response serialization.
// It is the one place that touches both the wire (internal/jsonrpc) and
// the strategy tables (internal/registry).
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flyctl-dev/flymcp/internal/jsonrpc"
	"github.com/flyctl-dev/flymcp/internal/logging"
	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/registry"
)

// Config carries dispatcher-wide limits (spec §4.2, §5).
type Config struct {
	GlobalConcurrency int
	DefaultTimeout    time.Duration
	AdmissionTimeout  time.Duration
	ServerName        string
	ServerVersion     string
}

// run tracks one in-flight request for cancellation and bookkeeping
// (spec §3's "Run state").
type run struct {
	id        jsonrpc.ID
	method    string
	startedAt time.Time
	cancel    context.CancelFunc
}

// Dispatcher routes JSON-RPC requests to the tool/resource/prompt
// registries under a global + per-tool concurrency cap.
type Dispatcher struct {
	cfg Config

	tools     *registry.ToolRegistry
	resources *registry.ResourceRegistry
	prompts   *registry.PromptRegistry

	globalSem chan struct{}
	toolSems  map[string]chan struct{}
	toolSemMu sync.Mutex

	mu   sync.Mutex
	runs map[string]*run

	logger  *slog.Logger
	metrics *metrics
}

// New builds a Dispatcher. The registries must already be frozen (built).
func New(cfg Config, tools *registry.ToolRegistry, resources *registry.ResourceRegistry, prompts *registry.PromptRegistry, logger *slog.Logger) *Dispatcher {
	if cfg.GlobalConcurrency <= 0 {
		cfg.GlobalConcurrency = 10
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}
	if cfg.AdmissionTimeout <= 0 {
		cfg.AdmissionTimeout = 30 * time.Second
	}
	return &Dispatcher{
		cfg:       cfg,
		tools:     tools,
		resources: resources,
		prompts:   prompts,
		globalSem: make(chan struct{}, cfg.GlobalConcurrency),
		toolSems:  make(map[string]chan struct{}),
		runs:      make(map[string]*run),
		logger:    logger,
		metrics:   newMetrics(),
	}
}

// Metrics exposes the Prometheus registry for binaries that want to serve
// /metrics.
func (d *Dispatcher) Metrics() *metrics { return d.metrics }

func idKey(id jsonrpc.ID) string { return fmt.Sprintf("%v", id.Value()) }

// Handle implements transport.Handler. It is the single entry point for
// every framed request or notification.
func (d *Dispatcher) Handle(ctx context.Context, req *jsonrpc.Request, emit func(*jsonrpc.Notification)) *jsonrpc.Response {
	ctx = logging.Into(ctx, d.logger)

	if req.Method == "" {
		return errorResponse(req.ID, mcperr.New().Code(mcperr.CodeInvalidRequest).Message("missing method").Build())
	}

	if req.Method == "$/cancelRequest" {
		d.handleCancel(req)
		return nil // notification: no response (spec §4.2)
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		d.metrics.requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		d.metrics.requestsTotal.WithLabelValues(req.Method, outcome).Inc()
	}()

	runCtx, cancel, toolSem, admitErr := d.admit(ctx, req)
	if admitErr != nil {
		outcome = "rejected"
		if req.ID.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, admitErr)
	}
	defer cancel()
	if toolSem != nil {
		defer func() { <-toolSem }()
	}
	defer func() { <-d.globalSem }()
	defer d.forgetRun(req.ID)

	d.metrics.activeHandlers.Inc()
	defer d.metrics.activeHandlers.Dec()

	spanCtx, span := tracer.Start(runCtx, req.Method)
	defer span.End()

	result, err := d.route(spanCtx, req, emit)
	if err != nil {
		outcome = "error"
		if req.ID.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, err)
	}
	if req.ID.IsNotification() {
		return nil
	}
	resp, merr := jsonrpc.NewResultResponse(req.ID, result)
	if merr != nil {
		outcome = "error"
		return errorResponse(req.ID, mcperr.InternalError(merr))
	}
	return resp
}

// admit performs spec §4.2's five-step admission sequence. It returns a
// context carrying the per-request cancel flag and, for tools/call, the
// acquired per-tool semaphore (nil otherwise; caller releases both
// semaphores it acquired).
func (d *Dispatcher) admit(ctx context.Context, req *jsonrpc.Request) (context.Context, context.CancelFunc, chan struct{}, error) {
	timeout := d.cfg.DefaultTimeout
	var toolSem chan struct{}

	if req.Method == "tools/call" {
		name, _ := toolNameFromParams(req.Params)
		if tool, ok := d.tools.Get(name); ok {
			if tool.Timeout > 0 {
				timeout = tool.Timeout
			}
			if tool.MaxConcurrency > 0 {
				toolSem = d.toolSemaphore(name, tool.MaxConcurrency)
			}
		}
	}

	admissionCtx, admissionCancel := context.WithTimeout(ctx, d.cfg.AdmissionTimeout)
	defer admissionCancel()

	select {
	case d.globalSem <- struct{}{}:
	case <-admissionCtx.Done():
		return nil, nil, nil, mcperr.BusyError(d.cfg.AdmissionTimeout.String())
	}

	if toolSem != nil {
		select {
		case toolSem <- struct{}{}:
		case <-admissionCtx.Done():
			<-d.globalSem
			return nil, nil, nil, mcperr.BusyError(d.cfg.AdmissionTimeout.String())
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	d.registerRun(req, cancel)
	return runCtx, cancel, toolSem, nil
}

func (d *Dispatcher) toolSemaphore(name string, cap int) chan struct{} {
	d.toolSemMu.Lock()
	defer d.toolSemMu.Unlock()
	sem, ok := d.toolSems[name]
	if !ok {
		sem = make(chan struct{}, cap)
		d.toolSems[name] = sem
	}
	return sem
}

func (d *Dispatcher) registerRun(req *jsonrpc.Request, cancel context.CancelFunc) {
	if req.ID.IsNotification() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runs[idKey(req.ID)] = &run{id: req.ID, method: req.Method, startedAt: time.Now(), cancel: cancel}
}

func (d *Dispatcher) forgetRun(id jsonrpc.ID) {
	if id.IsNotification() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.runs, idKey(id))
}

// handleCancel implements $/cancelRequest (spec §4.2): sets the cancel
// flag for the named id, silently ignoring unknown ids.
func (d *Dispatcher) handleCancel(req *jsonrpc.Request) {
	var params struct {
		ID jsonrpc.ID `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return
	}
	d.mu.Lock()
	r, ok := d.runs[idKey(params.ID)]
	d.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
}

func toolNameFromParams(raw json.RawMessage) (string, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}
	return p.Name, nil
}

func errorResponse(id jsonrpc.ID, err error) *jsonrpc.Response {
	eo := jsonrpc.FromError(err)
	return jsonrpc.NewErrorResponse(id, eo.Code, eo.Message, eo.Data)
}
