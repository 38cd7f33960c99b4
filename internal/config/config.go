// Package config centralizes fly-mcp server configuration, following the
// teacher's layered-load pattern (defaults -> optional TOML file ->
// environment -> Validate) from pkg/mcp/application/config/config.go.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the complete server configuration (spec §6).
type Config struct {
	// Workspace & output
	WorkspaceRoot string `toml:"workspace_root"`
	OutputDir     string `toml:"output_dir"`

	// Transport (spec §4.1)
	MaxMessageBytes int           `toml:"max_message_bytes"`
	ShutdownGrace   time.Duration `toml:"shutdown_grace"`

	// Dispatcher (spec §4.2, §5)
	GlobalConcurrency int           `toml:"global_concurrency"`
	DefaultTimeout    time.Duration `toml:"default_timeout"`
	AdmissionTimeout  time.Duration `toml:"admission_timeout"`

	// Resources (spec §4.4)
	MaxResourceBytes int64 `toml:"max_resource_bytes"`
	LogRingCapBytes  int   `toml:"log_ring_cap_bytes"`

	// Templates (spec §4.5)
	TemplatesRoot     string        `toml:"templates_root"`
	CacheRoot         string        `toml:"cache_root"`
	DefaultTTL        time.Duration `toml:"default_ttl"`
	MaxMemoryEntries  int           `toml:"max_memory_entries"`
	MaxCacheSizeBytes int64         `toml:"max_cache_size_bytes"`
	Offline           bool          `toml:"offline"`
	CLIVersion        string        `toml:"cli_version"`
	FlutterSDK        string        `toml:"flutter_sdk"`
	DartSDK           string        `toml:"dart_sdk"`

	// Dependency health (spec §4.6)
	PubDevBaseURL      string        `toml:"pub_dev_base_url"`
	HealthConcurrency  int           `toml:"health_concurrency"`
	HealthRequestTimeout time.Duration `toml:"health_request_timeout"`
	HealthCacheTTL     time.Duration `toml:"health_cache_ttl"`

	// Logging (spec §6)
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
	NoColor   bool   `toml:"no_color"`
	LogTrace  bool   `toml:"log_trace"`
}

// Default returns the baseline configuration before file/env overrides.
func Default() *Config {
	return &Config{
		WorkspaceRoot:        ".",
		OutputDir:            ".",
		MaxMessageBytes:      2 * 1024 * 1024,
		ShutdownGrace:        5 * time.Second,
		GlobalConcurrency:    10,
		DefaultTimeout:       5 * time.Minute,
		AdmissionTimeout:     30 * time.Second,
		MaxResourceBytes:     1024 * 1024,
		LogRingCapBytes:      1024 * 1024,
		TemplatesRoot:        "templates",
		CacheRoot:            ".fly/cache",
		DefaultTTL:           24 * time.Hour,
		MaxMemoryEntries:     256,
		MaxCacheSizeBytes:    512 * 1024 * 1024,
		Offline:              false,
		CLIVersion:           "0.0.0",
		PubDevBaseURL:        "https://pub.dev",
		HealthConcurrency:    10,
		HealthRequestTimeout: 10 * time.Second,
		HealthCacheTTL:       24 * time.Hour,
		LogLevel:             "info",
		LogFormat:            "human",
	}
}

// Option is a functional load option, matching the teacher's LoadOption.
type Option func(*loadOptions)

type loadOptions struct {
	configFile string
	useEnv     bool
}

// FromFile loads a TOML config file over the defaults.
func FromFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// FromEnv toggles environment variable overrides (on by default).
func FromEnv(enabled bool) Option {
	return func(o *loadOptions) { o.useEnv = enabled }
}

// Load builds a Config from defaults, an optional file, then environment.
func Load(opts ...Option) (*Config, error) {
	options := &loadOptions{useEnv: true}
	for _, opt := range opts {
		opt(options)
	}

	cfg := Default()

	if options.configFile != "" {
		if _, err := toml.DecodeFile(options.configFile, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", options.configFile, err)
		}
	}

	if options.useEnv {
		loadFromEnv(cfg, os.Getenv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("PWD"); v != "" {
		cfg.WorkspaceRoot = v
	}
	if v := getenv("FLY_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
		cfg.WorkspaceRoot = v
	}
	if v := getenv("FLY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("FLY_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("FLY_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := getenv("FLY_NO_COLOR"); v == "1" || v == "true" {
		cfg.NoColor = true
	}
	if v := getenv("FLY_LOG_TRACE"); v == "1" || v == "true" {
		cfg.LogTrace = true
	}
	if v := getenv("FLY_TEMPLATES_ROOT"); v != "" {
		cfg.TemplatesRoot = v
	}
	if v := getenv("FLY_CACHE_ROOT"); v != "" {
		cfg.CacheRoot = v
	}
	if v := getenv("FLY_OFFLINE"); v == "1" || v == "true" {
		cfg.Offline = true
	}
	if v := getenv("FLY_CLI_VERSION"); v != "" {
		cfg.CLIVersion = v
	}
	if v := getenv("FLY_FLUTTER_SDK"); v != "" {
		cfg.FlutterSDK = v
	}
	if v := getenv("FLY_DART_SDK"); v != "" {
		cfg.DartSDK = v
	}
	if v := getenv("FLY_MAX_MESSAGE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxMessageBytes = n
		}
	}
	if v := getenv("FLY_GLOBAL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GlobalConcurrency = n
		}
	}
}

// Validate rejects inconsistent configuration before the server starts.
func (c *Config) Validate() error {
	if c.WorkspaceRoot == "" {
		return fmt.Errorf("workspace_root is required")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive")
	}
	if c.GlobalConcurrency <= 0 {
		return fmt.Errorf("global_concurrency must be positive")
	}
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be positive")
	}
	if c.MaxResourceBytes <= 0 {
		return fmt.Errorf("max_resource_bytes must be positive")
	}
	if c.LogRingCapBytes <= 0 {
		return fmt.Errorf("log_ring_cap_bytes must be positive")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive")
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("log_level must be one of trace,debug,info,warn,error,fatal")
	}
	switch c.LogFormat {
	case "human", "json":
	default:
		return fmt.Errorf("log_format must be human or json")
	}
	if c.HealthConcurrency <= 0 {
		return fmt.Errorf("health_concurrency must be positive")
	}
	return nil
}
