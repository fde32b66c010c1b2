package schema

import (
	"errors"
	"testing"
)

var pointSchema = Definition{
	Name: "test-point",
	Doc: map[string]any{
		"type":     "object",
		"required": []string{"x", "y"},
		"properties": map[string]any{
			"x": map[string]any{"type": "number"},
			"y": map[string]any{"type": "number"},
		},
	},
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(pointSchema, []byte(`{"x": 1, "y": 2.5}`)); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidate_MissingField(t *testing.T) {
	err := Validate(pointSchema, []byte(`{"x": 1}`))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if ve.Schema != "test-point" {
		t.Errorf("schema = %q", ve.Schema)
	}
}

func TestValidate_WrongType(t *testing.T) {
	if err := Validate(pointSchema, []byte(`{"x": "one", "y": 2}`)); err == nil {
		t.Fatal("expected error for wrong type")
	}
}

func TestValidate_InvalidJSON(t *testing.T) {
	var ve *ValidationError
	if err := Validate(pointSchema, []byte(`{not json`)); !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestValidate_CachesCompiledSchema(t *testing.T) {
	_ = Validate(pointSchema, []byte(`{"x": 1, "y": 2}`))
	if _, ok := compiled.Load("test-point"); !ok {
		t.Fatal("expected compiled schema to be cached")
	}
}
