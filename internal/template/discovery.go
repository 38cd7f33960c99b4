package template

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
)

// versionsYAML is the shape of a versions.yaml listing (spec §4.5b).
type versionsYAML struct {
	Versions []string `yaml:"versions"`
}

// SanitizeName strips path-traversal and separators from a template name
// (spec §4.5). An empty result is an error.
func SanitizeName(name string) (string, error) {
	cleaned := strings.ReplaceAll(name, "..", "")
	cleaned = strings.ReplaceAll(cleaned, "/", "")
	cleaned = strings.ReplaceAll(cleaned, string(filepath.Separator), "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", mcperr.New().Code(mcperr.CodeInvalidParams).Message("template name is empty after sanitization").WithLocation().Build()
	}
	return cleaned, nil
}

// Discover finds every version of name under root, newest-first
// (spec §4.5's discovery algorithm, sources a-d).
func Discover(root, name string, logger *slog.Logger) ([]*semver.Version, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, name)
	seen := map[string]*semver.Version{}

	add := func(raw string) {
		if raw == "" {
			return
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping unparseable template version", "name", name, "raw", raw, "error", err)
			}
			return
		}
		seen[v.String()] = v
	}

	// (a) template.yaml in the name directory (single version).
	if data, err := os.ReadFile(filepath.Join(dir, "template.yaml")); err == nil {
		if d, err := ParseDescriptor(data); err == nil {
			add(d.Version)
		}
	}

	// (b) versions.yaml listing explicit semver strings.
	if data, err := os.ReadFile(filepath.Join(dir, "versions.yaml")); err == nil {
		var vy versionsYAML
		if yaml.Unmarshal(data, &vy) == nil {
			for _, raw := range vy.Versions {
				add(raw)
			}
		}
	}

	// (c) subdirectories whose names parse as semver, e.g. <name>/versions/<v>.
	for _, sub := range []string{dir, filepath.Join(dir, "versions")} {
		entries, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				add(e.Name())
			}
		}
	}

	// (d) sibling directories named <name>@<version>.
	siblings, err := os.ReadDir(root)
	if err == nil {
		prefix := name + "@"
		for _, e := range siblings {
			if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
				add(strings.TrimPrefix(e.Name(), prefix))
			}
		}
	}

	out := make([]*semver.Version, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(semverCollection(out)))
	return out, nil
}

type semverCollection []*semver.Version

func (c semverCollection) Len() int           { return len(c) }
func (c semverCollection) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c semverCollection) Less(i, j int) bool { return c[i].LessThan(c[j]) }

// GetTemplateVersion loads the descriptor for an exact (name, version) pair,
// searching the three candidate locations in spec §4.5's "Loading" order.
func GetTemplateVersion(root, name, version string) (*Descriptor, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}

	candidates := []string{
		filepath.Join(root, name, "versions", version, "template.yaml"),
		filepath.Join(root, name+"@"+version, "template.yaml"),
	}
	for _, path := range candidates {
		if data, err := os.ReadFile(path); err == nil {
			return ParseDescriptor(data)
		}
	}

	// <name>/template.yaml only counts if its declared version matches.
	fallback := filepath.Join(root, name, "template.yaml")
	if data, err := os.ReadFile(fallback); err == nil {
		d, err := ParseDescriptor(data)
		if err == nil && d.Version == version {
			return d, nil
		}
	}

	return nil, mcperr.NotFoundError("template", name+"@"+version)
}
