// Package server wires the concrete tool/resource/prompt registries onto
// the dispatcher: the fly.* and flutter.* tool namespace (spec §6),
// workspace/log resource providers, and doctor-style prompts.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flyctl-dev/flymcp/internal/config"
	"github.com/flyctl-dev/flymcp/internal/depshealth"
	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/registry"
	"github.com/flyctl-dev/flymcp/internal/resources"
	"github.com/flyctl-dev/flymcp/internal/template"
	"github.com/flyctl-dev/flymcp/internal/template/cache"
)

// Deps bundles everything the wired tool set needs, built from config by
// the cmd/mcp-server entrypoint.
type Deps struct {
	Config    *config.Config
	Cache     *cache.Cache
	Workspace *resources.Workspace
	LogRings  *resources.LogRings
	Health    *depshealth.Checker
	Logger    *slog.Logger
}

// Build compiles the tool/resource/prompt registries (spec §4.3, §6).
func Build(deps Deps) (*registry.ToolRegistry, *registry.ResourceRegistry, *registry.PromptRegistry, error) {
	tools, err := buildTools(deps)
	if err != nil {
		return nil, nil, nil, err
	}
	res, err := registry.NewResourceRegistry(deps.Workspace, deps.LogRings)
	if err != nil {
		return nil, nil, nil, err
	}
	prompts, err := buildPrompts()
	if err != nil {
		return nil, nil, nil, err
	}
	return tools, res, prompts, nil
}

func mustSchema(name string) *registry.Schema {
	s, err := registry.CompileSchema(name, []byte(schemaJSON[name]))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in schema %q: %v", name, err))
	}
	return s
}

func buildTools(deps Deps) (*registry.ToolRegistry, error) {
	b := registry.NewToolBuilder()

	b.Register(&registry.Tool{
		Name:           "fly.echo",
		Description:    "Echo a message back, for wiring smoke tests.",
		InputSchema:    mustSchema("echo.in"),
		OutputSchema:   mustSchema("echo.out"),
		ReadOnly:       true,
		Idempotent:     true,
		MaxConcurrency: 0,
		Handler:        echoHandler,
	})

	b.Register(&registry.Tool{
		Name:         "fly.template.list",
		Description:  "List discovered versions of a template, optionally filtered by a semver constraint.",
		InputSchema:  mustSchema("template.list.in"),
		OutputSchema: mustSchema("template.list.out"),
		ReadOnly:     true,
		Idempotent:   true,
		Handler:      templateListHandler(deps),
	})

	b.Register(&registry.Tool{
		Name:                 "fly.template.apply",
		Description:          "Resolve, gate, and materialize a template into a target directory.",
		InputSchema:          mustSchema("template.apply.in"),
		OutputSchema:         mustSchema("template.apply.out"),
		WritesToDisk:         true,
		RequiresConfirmation: true,
		Handler:              templateApplyHandler(deps),
	})

	b.Register(&registry.Tool{
		Name:         "flutter.doctor",
		Description:  "Run `flutter doctor` and report the result.",
		InputSchema:  mustSchema("flutter.doctor.in"),
		OutputSchema: mustSchema("flutter.cmd.out"),
		ReadOnly:     true,
		Handler:      flutterCommandHandler(deps, "run", []string{"doctor"}),
	})

	b.Register(&registry.Tool{
		Name:         "flutter.create",
		Description:  "Scaffold a new Flutter project.",
		InputSchema:  mustSchema("flutter.create.in"),
		OutputSchema: mustSchema("flutter.cmd.out"),
		WritesToDisk: true,
		Handler:      flutterCreateHandler(deps),
	})

	b.Register(&registry.Tool{
		Name:           "flutter.run",
		Description:    "Run a Flutter project on an attached device or emulator.",
		InputSchema:    mustSchema("flutter.run.in"),
		OutputSchema:   mustSchema("flutter.cmd.out"),
		MaxConcurrency: 2,
		Handler:        flutterRunHandler(deps),
	})

	b.Register(&registry.Tool{
		Name:         "flutter.build",
		Description:  "Build a Flutter project for a target platform.",
		InputSchema:  mustSchema("flutter.build.in"),
		OutputSchema: mustSchema("flutter.cmd.out"),
		Handler:      flutterBuildHandler(deps),
	})

	b.Register(&registry.Tool{
		Name:         "fly.deps.health",
		Description:  "Report health, maintenance, and popularity signals for a list of pub.dev packages.",
		InputSchema:  mustSchema("deps.health.in"),
		OutputSchema: mustSchema("deps.health.out"),
		ReadOnly:     true,
		Handler:      depsHealthHandler(deps),
	})

	return b.Build()
}

type echoArgs struct {
	Message string `json:"message"`
}

func echoHandler(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
	var a echoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
	}
	return echoArgs{Message: a.Message}, nil
}

type templateListArgs struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint"`
}

func templateListHandler(deps Deps) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		var a templateListArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
		}
		versions, err := template.Discover(deps.Config.TemplatesRoot, a.Name, deps.Logger)
		if err != nil {
			return nil, err
		}
		if a.Constraint != "" {
			versions, err = template.VersionsInRange(versions, a.Constraint)
			if err != nil {
				return nil, err
			}
		}
		out := make([]string, 0, len(versions))
		for _, v := range versions {
			out = append(out, v.String())
		}
		return struct {
			Versions []string `json:"versions"`
		}{Versions: out}, nil
	}
}

type templateApplyArgs struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Target       string            `json:"target"`
	ForceRefresh bool              `json:"forceRefresh"`
	Variables    map[string]string `json:"variables"`
}

func templateApplyHandler(deps Deps) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		var a templateApplyArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
		}

		progress("resolving template", 0.1)
		result, err := deps.Cache.Acquire(ctx, a.Name, cache.AcquireOptions{Version: a.Version, ForceRefresh: a.ForceRefresh})
		if err != nil {
			return nil, err
		}

		progress("checking compatibility", 0.4)
		report := template.CheckCompatibility(result.Descriptor, template.Environment{
			CLIVersion: deps.Config.CLIVersion,
			FlutterSDK: deps.Config.FlutterSDK,
			DartSDK:    deps.Config.DartSDK,
		})
		if !report.OK {
			return nil, mcperr.TemplateIncompatibleError(fmt.Sprintf("%v", report.Errors))
		}

		sourceDir := filepath.Join(deps.Config.TemplatesRoot, a.Name)
		target := filepath.Join(deps.Config.WorkspaceRoot, a.Target)

		progress("materializing files", 0.7)
		files, err := template.Apply(result.Descriptor, sourceDir, target, a.Variables)
		if err != nil {
			return nil, mcperr.InternalError(err)
		}

		progress("done", 1.0)
		return struct {
			Version  string   `json:"version"`
			Files    []string `json:"files"`
			Stale    bool     `json:"stale"`
			Warnings []string `json:"warnings"`
		}{Version: result.Descriptor.Version, Files: files, Stale: result.Stale, Warnings: report.Warnings}, nil
	}
}

func depsHealthHandler(deps Deps) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		var a struct {
			Packages []string `json:"packages"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
		}
		if deps.Health == nil {
			return nil, mcperr.New().Code(mcperr.CodeInternal).Message("dependency health checker not configured").WithLocation().Build()
		}
		results, err := deps.Health.CheckAll(ctx, a.Packages)
		if err != nil {
			return nil, mcperr.NetworkRetryableError(err)
		}
		return struct {
			Results []depshealth.Result `json:"results"`
		}{Results: results}, nil
	}
}

func flutterCreateHandler(deps Deps) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		var a struct {
			ProjectName string `json:"projectName"`
			TargetDir   string `json:"targetDir"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
		}
		dir := deps.Config.WorkspaceRoot
		if a.TargetDir != "" {
			dir = filepath.Join(dir, a.TargetDir)
		}
		return runFlutter(ctx, deps, "build", dir, "create", a.ProjectName)
	}
}

func flutterRunHandler(deps Deps) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		var a struct {
			TargetDir string `json:"targetDir"`
			Device    string `json:"device"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
		}
		dir := resolveDir(deps, a.TargetDir)
		cmdArgs := []string{"run"}
		if a.Device != "" {
			cmdArgs = append(cmdArgs, "-d", a.Device)
		}
		return runFlutter(ctx, deps, "run", dir, cmdArgs...)
	}
}

func flutterBuildHandler(deps Deps) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		var a struct {
			TargetDir string `json:"targetDir"`
			Platform  string `json:"platform"`
		}
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, mcperr.New().Code(mcperr.CodeInvalidParams).Message("malformed arguments").WithLocation().Build()
		}
		dir := resolveDir(deps, a.TargetDir)
		return runFlutter(ctx, deps, "build", dir, "build", a.Platform)
	}
}

func flutterCommandHandler(deps Deps, kind string, fixedArgs []string) registry.ToolHandler {
	return func(ctx context.Context, args json.RawMessage, progress registry.ProgressFunc) (interface{}, error) {
		return runFlutter(ctx, deps, kind, deps.Config.WorkspaceRoot, fixedArgs...)
	}
}

func resolveDir(deps Deps, targetDir string) string {
	if targetDir == "" {
		return deps.Config.WorkspaceRoot
	}
	return filepath.Join(deps.Config.WorkspaceRoot, targetDir)
}

func runFlutter(ctx context.Context, deps Deps, kind, dir string, args ...string) (interface{}, error) {
	id, code, err := runWithLogRing(ctx, deps.LogRings, kind, dir, "flutter", args...)
	if err != nil && ctx.Err() != nil {
		return nil, mcperr.CanceledError(id)
	}
	return struct {
		ExitCode int    `json:"exitCode"`
		LogURI   string `json:"logUri"`
	}{ExitCode: code, LogURI: fmt.Sprintf("logs://%s/%s", kind, id)}, nil
}
