// Package resources implements spec §4.4's two resource providers: a
// sandboxed workspace filesystem and an in-memory run/build log ring.
package resources

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/registry"
)

// defaultIgnores mirrors the teacher's filetree.go default ignore set,
// used to keep directory listings free of build/vendor noise.
var defaultIgnores = []string{
	"node_modules/",
	".dart_tool/",
	"build/",
	".git/",
	".DS_Store",
}

// Workspace is the workspace:// resource strategy (spec §4.4). It
// canonicalizes every path against root and rejects escapes, adapting the
// teacher's gitignore-aware tree walk (filetree.go) into a sandboxed
// provider. List returns a whole directory as a single page; it does not
// split listings across pages.
type Workspace struct {
	root            string
	maxResourceBytes int64
}

const WorkspacePrefix = "workspace://"

// NewWorkspace builds a Workspace rooted at root (must be an existing
// directory). maxResourceBytes bounds unsliced reads (spec §4.4).
func NewWorkspace(root string, maxResourceBytes int64) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = abs
	}
	return &Workspace{root: resolved, maxResourceBytes: maxResourceBytes}, nil
}

func (w *Workspace) Prefix() string      { return WorkspacePrefix }
func (w *Workspace) Description() string { return "Sandboxed access to the project workspace" }
func (w *Workspace) ReadOnly() bool      { return false }

// resolve canonicalizes uri's relative path against root and verifies the
// result is a descendant of root (spec §4.4, §8's sandbox invariant).
// Symlinks are followed only when their target resolves inside root.
func (w *Workspace) resolve(uri string) (string, error) {
	rel := strings.TrimPrefix(uri, WorkspacePrefix)
	rel = strings.TrimPrefix(rel, "/")
	joined := filepath.Join(w.root, filepath.FromSlash(rel))

	canonical := joined
	if resolved, err := filepath.EvalSymlinks(joined); err == nil {
		canonical = resolved
	} else {
		// Path may not exist yet; fall back to the lexically cleaned path.
		// Symlinks among its existing parents are not resolved here.
		canonical = filepath.Clean(joined)
	}

	relToRoot, err := filepath.Rel(w.root, canonical)
	if err != nil || relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", mcperr.PermissionDeniedError("workspace path escapes sandbox root")
	}
	return joined, nil
}

func (w *Workspace) List(ctx context.Context, p registry.ListParams) (registry.Page, error) {
	dir, err := w.resolve(p.URI)
	if err != nil {
		return registry.Page{}, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return registry.Page{}, mcperr.NotFoundError("resource", p.URI)
		}
		return registry.Page{}, mcperr.New().Code(mcperr.CodeInternal).Cause(err).WithLocation().Build()
	}

	matcher := w.ignoreMatcher(dir)
	items := make([]registry.Item, 0, len(entries))
	for _, e := range entries {
		// Directory patterns such as "build/" only match a path that ends
		// in a slash.
		matchPath := e.Name()
		if e.IsDir() {
			matchPath += "/"
		}
		if matcher != nil && matcher.MatchesPath(matchPath) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		kind := "file"
		var size *int64
		if e.IsDir() {
			kind = "dir"
		} else {
			s := info.Size()
			size = &s
		}
		items = append(items, registry.Item{
			Name:     e.Name(),
			Kind:     kind,
			Size:     size,
			Modified: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return registry.Page{Items: items, Total: len(items), Page: 1, PageSize: len(items)}, nil
}

func (w *Workspace) ignoreMatcher(dir string) *ignore.GitIgnore {
	patterns := append([]string(nil), defaultIgnores...)
	if data, err := os.ReadFile(filepath.Join(dir, ".gitignore")); err == nil {
		patterns = append(patterns, strings.Split(string(data), "\n")...)
	}
	return ignore.CompileIgnoreLines(patterns...)
}

func (w *Workspace) Read(ctx context.Context, p registry.ReadParams) (registry.Content, error) {
	path, err := w.resolve(p.URI)
	if err != nil {
		return registry.Content{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return registry.Content{}, mcperr.NotFoundError("resource", p.URI)
		}
		return registry.Content{}, mcperr.New().Code(mcperr.CodeInternal).Cause(err).WithLocation().Build()
	}

	if !p.HasRange && int64(len(data)) > w.maxResourceBytes {
		return registry.Content{}, mcperr.TooLargeError("resource read", int(w.maxResourceBytes))
	}

	start := p.Start
	if start >= int64(len(data)) {
		return registry.Content{Content: "", Encoding: "utf-8", Start: start, Length: 0}, nil
	}
	end := int64(len(data))
	if p.Length > 0 && start+p.Length < end {
		end = start + p.Length
	}
	slice := data[start:end]
	return registry.Content{Content: string(slice), Encoding: "utf-8", Start: start, Length: int64(len(slice))}, nil
}
