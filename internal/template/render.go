package template

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Apply materializes every file declared in d.Files under targetDir,
// rendering each as a text/template document against vars. This is
// grounded on the teacher's manifest rendering pattern
// (pkg/mcp/infra/templates/manifest_loader.go) generalized from a fixed
// embedded manifest set to an arbitrary discovered template.
func Apply(d *Descriptor, sourceDir, targetDir string, vars map[string]string) ([]string, error) {
	data := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		data[k] = v
	}

	written := make([]string, 0, len(d.Files))
	for _, rel := range d.Files {
		src := filepath.Join(sourceDir, rel)
		raw, err := os.ReadFile(src)
		if err != nil {
			return written, err
		}

		tmpl, err := template.New(rel).Funcs(sprig.TxtFuncMap()).Parse(string(raw))
		if err != nil {
			return written, err
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return written, err
		}

		dst := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
			return written, err
		}
		written = append(written, rel)
	}
	return written, nil
}
