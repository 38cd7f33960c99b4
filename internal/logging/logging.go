// Package logging builds the process-wide structured logger from the
// FLY_LOG_* environment, adapted from the teacher's level-aware slog setup
// (pkg/logger/slog.go). Every level goes to stderr (see New), keeping
// stdout clean for JSON-RPC framing.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Level extends slog's levels with trace, matching spec §6's
// FLY_LOG_LEVEL enum.
const LevelTrace = slog.Level(-8)

// Config configures the logger.
type Config struct {
	Level     slog.Level
	Format    string // "human" or "json"
	AddSource bool
	File      io.Writer // optional FLY_LOG_FILE sink, in addition to stderr/stdout
}

// ParseLevel maps FLY_LOG_LEVEL strings to slog levels.
func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger. Because the stdio transport owns stdout for
// JSON-RPC framing, ALL log output goes to stderr (and optionally a
// tee'd FLY_LOG_FILE) regardless of level — this is the one deliberate
// departure from the teacher's stdout/stderr split, forced by the MCP
// wire protocol sharing stdout with logs in the original design.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.File != nil {
		w = io.MultiWriter(os.Stderr, cfg.File)
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// FromEnv builds a Config from the FLY_LOG_* environment variables
// described in spec §6.
func FromEnv(getenv func(string) string) Config {
	cfg := Config{Level: slog.LevelInfo, Format: "human"}
	if v := getenv("FLY_LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if v := getenv("FLY_LOG_FORMAT"); v == "json" {
		cfg.Format = "json"
	}
	if v := getenv("FLY_LOG_TRACE"); v == "1" || v == "true" {
		cfg.Level = LevelTrace
		cfg.AddSource = true
	}
	if path := getenv("FLY_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			cfg.File = f
		}
	}
	return cfg
}

type ctxKey struct{}

// Into stores a logger on a context for handlers to retrieve.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From retrieves the logger stored on a context, falling back to
// slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
