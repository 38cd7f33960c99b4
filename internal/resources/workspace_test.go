package resources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/registry"
)

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.dart"), []byte("void main() {}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "build"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "build", "output.bin"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ws, err := NewWorkspace(root, 1024)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	return ws, root
}

func TestWorkspaceListSkipsDefaultIgnores(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	page, err := ws.List(context.Background(), registry.ListParams{URI: WorkspacePrefix})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, item := range page.Items {
		if item.Name == "build" {
			t.Fatal("List should skip the default-ignored build/ directory")
		}
	}
	if page.Total != 1 || page.Items[0].Name != "main.dart" {
		t.Fatalf("page.Items = %+v, want just main.dart", page.Items)
	}
}

func TestWorkspaceReadReturnsContent(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	content, err := ws.Read(context.Background(), registry.ReadParams{URI: WorkspacePrefix + "main.dart"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.Content != "void main() {}" {
		t.Fatalf("Content = %q", content.Content)
	}
}

func TestWorkspaceReadRespectsRange(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	content, err := ws.Read(context.Background(), registry.ReadParams{
		URI: WorkspacePrefix + "main.dart", HasRange: true, Start: 5, Length: 4,
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.Content != "main" {
		t.Fatalf("Content = %q, want %q", content.Content, "main")
	}
}

func TestWorkspaceReadTooLargeWithoutRange(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 2048)
	if err := os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ws, err := NewWorkspace(root, 1024)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	_, err = ws.Read(context.Background(), registry.ReadParams{URI: WorkspacePrefix + "big.bin"})
	if err == nil {
		t.Fatal("expected a too-large error")
	}
	rich, ok := mcperr.As(err)
	if !ok || rich.Code != mcperr.CodeTooLarge {
		t.Fatalf("err = %v, want TOO_LARGE", err)
	}
}

func TestWorkspaceResolveRejectsEscape(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	_, err := ws.Read(context.Background(), registry.ReadParams{URI: WorkspacePrefix + "../../etc/passwd"})
	if err == nil {
		t.Fatal("expected a permission-denied error")
	}
	rich, ok := mcperr.As(err)
	if !ok || rich.Code != mcperr.CodePermissionDenied {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
}

func TestWorkspaceReadMissingFile(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	_, err := ws.Read(context.Background(), registry.ReadParams{URI: WorkspacePrefix + "missing.dart"})
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	rich, ok := mcperr.As(err)
	if !ok || rich.Code != mcperr.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}
