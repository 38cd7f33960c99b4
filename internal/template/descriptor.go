// Package template implements spec §4.5: template discovery, semver
// constraint resolution, and the compatibility gate. The cache tier lives
// in the sibling template/cache package.
package template

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Descriptor is a single template.yaml document (spec §4.5, §6's cache
// entry shape carries one of these verbatim).
type Descriptor struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	CLIMinVersion string `yaml:"cli_min_version" json:"cli_min_version"`
	CLIMaxVersion string `yaml:"cli_max_version" json:"cli_max_version"`
	FlutterMinSDK string `yaml:"flutter_min_sdk" json:"flutter_min_sdk"`
	DartMinSDK    string `yaml:"dart_min_sdk" json:"dart_min_sdk"`

	Deprecated      bool       `yaml:"deprecated" json:"deprecated"`
	DeprecationDate *time.Time `yaml:"deprecation_date" json:"deprecation_date"`
	EOLDate         *time.Time `yaml:"eol_date" json:"eol_date"`

	Description string            `yaml:"description" json:"description"`
	Files       []string          `yaml:"files" json:"files"`
	Variables   map[string]string `yaml:"variables" json:"variables"`
}

// ParseDescriptor decodes a template.yaml document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
