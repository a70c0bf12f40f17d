// Package schema documents the arguments each known tool expects and checks
// probe arguments against them before a session is built.
package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
)

// Registry maps tool names to compiled JSON Schemas. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*gojsonschema.Schema)}
}

// Register compiles schemaJSON and stores it under tool, replacing any
// previous schema.
func (r *Registry) Register(tool, schemaJSON string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return probeerrors.ValidationErrorf("schema for %s does not compile: %v", tool, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[tool] = compiled
	return nil
}

// Has reports whether tool has a registered schema
func (r *Registry) Has(tool string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[tool]
	return ok
}

// Tools returns the registered tool names, sorted
func (r *Registry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check validates args against the schema registered for tool. Tools without
// a schema always pass. Each violation becomes one ProbeError; missing
// required keys are reported as MissingArgument.
func (r *Registry) Check(tool string, args *protocol.Arguments) []probeerrors.ProbeError {
	r.mu.RLock()
	compiled, ok := r.schemas[tool]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(args.ToMap()))
	if err != nil {
		return []probeerrors.ProbeError{probeerrors.InvalidArgument(tool, "", err.Error())}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]probeerrors.ProbeError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		if desc.Type() == "required" {
			if property, ok := desc.Details()["property"].(string); ok {
				issues = append(issues, probeerrors.MissingArgument(tool, property))
				continue
			}
		}
		issues = append(issues, probeerrors.InvalidArgument(tool, fieldName(desc), desc.Description()))
	}
	return issues
}

// fieldName turns gojsonschema's "(root).target_dir" into "target_dir".
func fieldName(desc gojsonschema.ResultError) string {
	field := desc.Field()
	field = strings.TrimPrefix(field, "(root)")
	return strings.TrimPrefix(field, ".")
}
