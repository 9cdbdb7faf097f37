// Package tool implements the function / tool calling subsystem that lets
// agents invoke structured capabilities (calculations, parsing, search) with
// schema validated arguments and consistent error handling.
package tool

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/finsight/core"
)

// Parameter describes one declared tool argument.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, integer, boolean, array, object
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema declares a tool: its unique name, a model-facing description and an
// ordered parameter list. Immutable once registered.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

var validParamTypes = map[string]bool{
	"string": true, "number": true, "integer": true,
	"boolean": true, "array": true, "object": true,
}

// Validate checks the declaration for structural problems. Called at
// registration time so malformed tools are rejected before any model sees
// them.
func (s Schema) Validate() error {
	if s.Name == "" {
		return &core.InvalidRequestError{Reason: "tool schema has no name"}
	}
	if s.Description == "" {
		return &core.InvalidRequestError{Reason: fmt.Sprintf("tool %s has no description", s.Name)}
	}
	seen := map[string]bool{}
	for _, p := range s.Parameters {
		if p.Name == "" {
			return &core.InvalidRequestError{Reason: fmt.Sprintf("tool %s declares an unnamed parameter", s.Name)}
		}
		if seen[p.Name] {
			return &core.InvalidRequestError{Reason: fmt.Sprintf("tool %s declares parameter %s twice", s.Name, p.Name)}
		}
		seen[p.Name] = true
		if !validParamTypes[p.Type] {
			return &core.InvalidRequestError{Reason: fmt.Sprintf("tool %s parameter %s has invalid type %q", s.Name, p.Name, p.Type)}
		}
	}
	return nil
}

// JSONSchema renders the declaration as a JSON Schema object suitable for
// vendor tool declarations and argument validation. The translation is pure
// and stateless.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Parameters))
	var required []string
	for _, p := range s.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, v := range p.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	js := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		js["required"] = required
	}
	return js
}

// compile builds the gojsonschema validator for argument checking.
func (s Schema) compile() (*gojsonschema.Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	if err != nil {
		return nil, &core.InvalidRequestError{Reason: fmt.Sprintf("tool %s schema does not compile", s.Name), Err: err}
	}
	return compiled, nil
}
