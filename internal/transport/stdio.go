// Package transport implements spec §4.1: newline-delimited JSON-RPC 2.0
// framing over stdio, with a size cap and a single dedicated writer so no
// two outgoing messages ever interleave on the wire.
//
// Grounded on the teacher's StdioTransport (pkg/mcp/infra/transport/stdio.go)
// for the overall serve/shutdown shape, generalized from a gomcp-backed
// transport to a hand-rolled framer since spec §4.1 specifies the wire
// format directly rather than delegating to a third-party MCP SDK.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/flyctl-dev/flymcp/internal/jsonrpc"
	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

// linePool holds line-scanning buffers, grounded on the teacher's
// sync.Pool usage in pkg/common/pools.BufferPool. readLoop takes one for
// its lifetime but does not read into it: ReadBytes still allocates a new
// slice per line.
var linePool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 4096)
		return &b
	},
}

// Handler processes one decoded request and may emit zero or more
// notifications (progress) before its terminal Response.
type Handler interface {
	// Handle is called once per framed request/notification. For
	// notifications (req.ID.IsNotification()) the returned Response is nil.
	Handle(ctx context.Context, req *jsonrpc.Request, emit func(*jsonrpc.Notification)) *jsonrpc.Response
}

// Stdio is the stdio transport: reads newline-delimited frames from r,
// dispatches them to a Handler, and serializes all writes to w through a
// single writer goroutine.
type Stdio struct {
	r       *bufio.Reader
	w       io.Writer
	maxLine int
	logger  *slog.Logger

	writeCh chan []byte
	writeWG sync.WaitGroup

	handler Handler

	inFlight sync.WaitGroup
}

// New builds a Stdio transport. maxMessageBytes is the spec §4.1
// max_message_bytes cap (default 2 MiB enforced by the caller).
func New(r io.Reader, w io.Writer, maxMessageBytes int, logger *slog.Logger) *Stdio {
	return &Stdio{
		r:       bufio.NewReaderSize(r, 64*1024),
		w:       w,
		maxLine: maxMessageBytes,
		logger:  logger,
		writeCh: make(chan []byte, 64),
	}
}

// SetHandler installs the request handler. Must be called before Serve.
func (s *Stdio) SetHandler(h Handler) { s.handler = h }

// Emit sends a notification frame (e.g. $/progress) out of band from the
// request/response cycle. Safe for concurrent use.
func (s *Stdio) Emit(n *jsonrpc.Notification) {
	raw, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to marshal notification", "error", err)
		return
	}
	s.enqueueWrite(raw)
}

func (s *Stdio) enqueueWrite(raw []byte) {
	line := append(append([]byte(nil), raw...), '\n')
	s.writeCh <- line
}

// Serve reads frames until EOF or ctx cancellation, dispatching each to
// the handler on its own goroutine so requests are multiplexed over the
// single duplex stream (spec §1, §5). It blocks until shutdown completes.
func (s *Stdio) Serve(ctx context.Context) error {
	if s.handler == nil {
		return mcperr.New().Code(mcperr.CodeInternal).Message("transport: no handler set").WithLocation().Build()
	}

	s.writeWG.Add(1)
	go s.runWriter()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ctx)
	}()

	select {
	case <-ctx.Done():
	case <-readDone:
	}

	// Cooperative shutdown: let in-flight handlers finish, then stop the writer.
	s.inFlight.Wait()
	close(s.writeCh)
	s.writeWG.Wait()
	return nil
}

func (s *Stdio) readLoop(ctx context.Context) {
	bufPtr := linePool.Get().(*[]byte)
	defer linePool.Put(bufPtr)

	for {
		if ctx.Err() != nil {
			return
		}
		line, err := s.r.ReadBytes('\n')
		if len(line) > 0 {
			s.handleLine(ctx, bytes.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Error("stdio read error", "error", err)
			}
			return
		}
	}
}

func (s *Stdio) handleLine(ctx context.Context, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	if s.maxLine > 0 && len(line) > s.maxLine {
		resp := jsonrpc.NewErrorResponse(jsonrpc.ID{}, jsonrpc.CodeTooLarge,
			fmt.Sprintf("message exceeds %d bytes", s.maxLine), nil)
		s.writeResponse(resp)
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(line, &req); err != nil {
		resp := jsonrpc.NewErrorResponse(jsonrpc.ID{}, jsonrpc.CodeParseError, "parse error", nil)
		s.writeResponse(resp)
		return
	}

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		resp := s.handler.Handle(ctx, &req, s.Emit)
		if resp != nil {
			s.writeResponse(resp)
		}
	}()
}

func (s *Stdio) writeResponse(resp *jsonrpc.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}
	s.enqueueWrite(raw)
}

// runWriter is the single goroutine permitted to write to s.w, per spec
// §4.1's "writes are serialized by a single writer task".
func (s *Stdio) runWriter() {
	defer s.writeWG.Done()
	bw := bufio.NewWriter(s.w)
	for line := range s.writeCh {
		if _, err := bw.Write(line); err != nil {
			s.logger.Error("stdio write error", "error", err)
			continue
		}
		if err := bw.Flush(); err != nil {
			s.logger.Error("stdio flush error", "error", err)
		}
	}
}
