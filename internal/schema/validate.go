// Package schema validates JSON documents against named JSON Schemas.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Definition is a named JSON Schema document.
type Definition struct {
	Name string
	Doc  map[string]any
}

// ValidationError reports a document that does not conform to its schema.
type ValidationError struct {
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: schema validation failed: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// compiled caches compiled schemas by name.
var compiled sync.Map // map[string]*jsonschema.Schema

// Validate checks raw JSON against def. Malformed JSON and schema violations
// are both reported as *ValidationError.
func Validate(def Definition, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ValidationError{Schema: def.Name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := compile(def)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", def.Name, err)
	}

	if err := sch.Validate(parsed); err != nil {
		return &ValidationError{Schema: def.Name, Err: err}
	}
	return nil
}

func compile(def Definition) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(def.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a generic JSON value, so normalize through encoding/json.
	b, err := json.Marshal(def.Doc)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", def.Name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	compiled.Store(def.Name, sch)
	return sch, nil
}
