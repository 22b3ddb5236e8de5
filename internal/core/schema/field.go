// Package schema describes the ordered column layout a caller expects
// from an ingested sheet, and validates raw cell values into normalized
// ones. Field descriptors are immutable templates; per-row value state
// lives in Record slots.
package schema

import "fmt"

// Field is an immutable column descriptor. Name is the record key,
// VerboseName is the display label used for header matching.
type Field struct {
	Name        string
	VerboseName string
	Validator   Validator
}

// NewField builds a descriptor. A nil validator accepts any value as-is.
func NewField(name, verboseName string, validator Validator) Field {
	return Field{Name: name, VerboseName: verboseName, Validator: validator}
}

// Validate runs the field's validator over a raw value
func (f Field) Validate(value any) (any, error) {
	if f.Validator == nil {
		return value, nil
	}
	return f.Validator.Validate(value)
}

// Schema is an ordered sequence of fields. Order is correctness-critical:
// rows map to fields positionally.
type Schema []Field

// Names returns the record keys in schema order
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// VerboseNames returns the display labels in schema order. This is the
// ordered header sequence used for sheet matching and template files.
func (s Schema) VerboseNames() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.VerboseName
	}
	return out
}

// Validate reports duplicate field names
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if f.Name == "" {
			return fmt.Errorf("schema field with empty name")
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("duplicate schema field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
