package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutEnv(t *testing.T) {
	cfg, err := Load(FromEnv(false))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "human" {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if cfg.GlobalConcurrency != 10 {
		t.Fatalf("GlobalConcurrency = %d, want 10", cfg.GlobalConcurrency)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fly.toml")
	contents := `
log_level = "debug"
global_concurrency = 4
offline = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(FromFile(path), FromEnv(false))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.GlobalConcurrency != 4 {
		t.Fatalf("GlobalConcurrency = %d, want 4", cfg.GlobalConcurrency)
	}
	if !cfg.Offline {
		t.Fatal("Offline = false, want true")
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("FLY_LOG_LEVEL", "warn")
	t.Setenv("FLY_OFFLINE", "true")
	t.Setenv("FLY_TEMPLATES_ROOT", "")
	t.Setenv("FLY_CACHE_ROOT", "")
	t.Setenv("PWD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if !cfg.Offline {
		t.Fatal("Offline = false, want true")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "not-a-level"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a validation error for an unknown log level")
	}
}

func TestValidateRejectsEmptyWorkspaceRoot(t *testing.T) {
	cfg := Default()
	cfg.WorkspaceRoot = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a validation error for an empty workspace_root")
	}
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := Default()
	cfg.GlobalConcurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected a validation error for zero global_concurrency")
	}
}
