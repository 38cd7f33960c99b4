// Schema validation for tool input/output per spec §4.3: the server only
// ever authors schemas using the documented subset (type, properties,
// required, additionalProperties, items, no remote $ref), but validation
// itself is delegated to a real JSON-Schema engine rather than
// hand-rolled, grounded on the teacher's go.mod dependency on
// github.com/santhosh-tekuri/jsonschema/v5.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON schema ready for repeated validation.
type Schema struct {
	compiled *jsonschema.Schema
	raw      []byte
}

// CompileSchema compiles a JSON-Schema document identified by name (used
// only as an internal resource URL for $id-less schemas).
func CompileSchema(name string, schemaJSON []byte) (*Schema, error) {
	if len(schemaJSON) == 0 {
		schemaJSON = []byte(`{}`)
	}
	c := jsonschema.NewCompiler()
	url := "mem://" + name
	if err := c.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{compiled: compiled, raw: schemaJSON}, nil
}

// Raw returns the original schema document, for tools/list metadata.
func (s *Schema) Raw() []byte { return s.raw }

// Validate checks data (as decoded via encoding/json, i.e. map[string]any,
// []any, string, float64, bool, nil) against the schema and returns a
// sorted list of "dotted.path: message" errors; nil/empty means valid.
func (s *Schema) Validate(data interface{}) []string {
	if s == nil || s.compiled == nil {
		return nil
	}
	err := s.compiled.Validate(data)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := map[string]struct{}{}
	flattenValidationError(ve, out)
	msgs := make([]string, 0, len(out))
	for m := range out {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return msgs
}

func flattenValidationError(ve *jsonschema.ValidationError, out map[string]struct{}) {
	if ve == nil {
		return
	}
	path := strings.TrimPrefix(ve.InstanceLocation, "/")
	path = strings.ReplaceAll(path, "/", ".")
	if path == "" {
		path = "(root)"
	}
	if ve.Message != "" {
		out[fmt.Sprintf("%s: %s", path, ve.Message)] = struct{}{}
	}
	for _, cause := range ve.Causes {
		flattenValidationError(cause, out)
	}
}
