// Command mcp-server runs the flymcp JSON-RPC server over stdio, and
// provides auxiliary cache-maintenance subcommands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/flyctl-dev/flymcp/internal/config"
	"github.com/flyctl-dev/flymcp/internal/depshealth"
	"github.com/flyctl-dev/flymcp/internal/dispatch"
	"github.com/flyctl-dev/flymcp/internal/logging"
	"github.com/flyctl-dev/flymcp/internal/resources"
	"github.com/flyctl-dev/flymcp/internal/server"
	"github.com/flyctl-dev/flymcp/internal/template"
	"github.com/flyctl-dev/flymcp/internal/template/cache"
	"github.com/flyctl-dev/flymcp/internal/transport"
)

// version, commit are set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "mcp-server",
		Short: "Model Context Protocol server for the Flutter CLI",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newCacheCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("mcp-server %s (%s)\n", version, commit)
			return nil
		},
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	opts := []config.Option{config.FromEnv(true)}
	if configPath != "" {
		opts = append([]config.Option{config.FromFile(configPath)}, opts...)
	}
	return config.Load(opts...)
}

// localRegistryFetch resolves the newest on-disk version of a template
// under cfg.TemplatesRoot, standing in for a live upstream registry. The
// CLI ships templates alongside its own release rather than pulling them
// over HTTP, so "upstream" here means "freshest copy the toolchain carries".
func localRegistryFetch(cfg *config.Config, logger *slog.Logger) cache.FetchFunc {
	return func(ctx context.Context, name string) (*template.Descriptor, error) {
		versions, err := template.Discover(cfg.TemplatesRoot, name, logger)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("no versions of template %q found under %s", name, cfg.TemplatesRoot)
		}
		return template.GetTemplateVersion(cfg.TemplatesRoot, name, versions[0].String())
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			logger := logging.New(logging.Config{
				Level:     logging.ParseLevel(cfg.LogLevel),
				Format:    cfg.LogFormat,
				AddSource: cfg.LogTrace,
			})

			workspace, err := resources.NewWorkspace(cfg.WorkspaceRoot, cfg.MaxResourceBytes)
			if err != nil {
				return err
			}
			logRings := resources.NewLogRings(cfg.LogRingCapBytes)

			healthChecker := depshealth.New(cfg.PubDevBaseURL)

			tplCache, err := cache.New(cache.Options{
				Root:             cfg.CacheRoot,
				DefaultTTL:       cfg.DefaultTTL,
				MaxMemoryEntries: cfg.MaxMemoryEntries,
				MaxSizeBytes:     cfg.MaxCacheSizeBytes,
				Offline:          cfg.Offline,
				Fetch:            localRegistryFetch(cfg, logger),
				Logger:           logger,
			})
			if err != nil {
				return err
			}

			tools, res, prompts, err := server.Build(server.Deps{
				Config:    cfg,
				Cache:     tplCache,
				Workspace: workspace,
				LogRings:  logRings,
				Health:    healthChecker,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			disp := dispatch.New(dispatch.Config{
				GlobalConcurrency: cfg.GlobalConcurrency,
				DefaultTimeout:    cfg.DefaultTimeout,
				AdmissionTimeout:  cfg.AdmissionTimeout,
				ServerName:        "flymcp",
				ServerVersion:     version,
			}, tools, res, prompts, logger)

			if metricsAddr := os.Getenv("FLY_METRICS_ADDR"); metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(disp.Metrics().Registry(), promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Error("metrics server exited", "error", err)
					}
				}()
			}

			stdio := transport.New(os.Stdin, os.Stdout, cfg.MaxMessageBytes, logger)
			stdio.SetHandler(disp)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger.Info("mcp-server starting", "version", version, "workspace", cfg.WorkspaceRoot)
			return stdio.Serve(ctx)
		},
	}
}

func newCacheCmd(configPath *string) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Template cache maintenance",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Evict expired entries and enforce the size cap",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			tplCache, err := cache.New(cache.Options{
				Root:             cfg.CacheRoot,
				DefaultTTL:       cfg.DefaultTTL,
				MaxMemoryEntries: cfg.MaxMemoryEntries,
				MaxSizeBytes:     cfg.MaxCacheSizeBytes,
				Offline:          cfg.Offline,
				Fetch:            localRegistryFetch(cfg, nil),
			})
			if err != nil {
				return err
			}
			return tplCache.Cleanup(cfg.MaxCacheSizeBytes)
		},
	})
	return cacheCmd
}
