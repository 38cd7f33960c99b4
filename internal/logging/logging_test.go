package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"fatal":   slog.LevelError + 4,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(func(string) string { return "" })
	if cfg.Level != slog.LevelInfo || cfg.Format != "human" {
		t.Fatalf("cfg = %+v, want info/human defaults", cfg)
	}
}

func TestFromEnvTraceForcesAddSource(t *testing.T) {
	env := map[string]string{"FLY_LOG_TRACE": "true"}
	cfg := FromEnv(func(k string) string { return env[k] })
	if cfg.Level != LevelTrace || !cfg.AddSource {
		t.Fatalf("cfg = %+v, want trace level with AddSource", cfg)
	}
}

func TestFromEnvJSONFormat(t *testing.T) {
	env := map[string]string{"FLY_LOG_FORMAT": "json"}
	cfg := FromEnv(func(k string) string { return env[k] })
	if cfg.Format != "json" {
		t.Fatalf("Format = %q, want json", cfg.Format)
	}
}

func TestIntoAndFromRoundTrip(t *testing.T) {
	logger := New(Config{Level: slog.LevelInfo, Format: "human"})
	ctx := Into(context.Background(), logger)
	if From(ctx) != logger {
		t.Fatal("From did not return the logger stored by Into")
	}
}

func TestFromWithoutLoggerFallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatal("From(context without a logger) should fall back to slog.Default()")
	}
}
