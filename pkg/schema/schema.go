package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ajala-hq/ajala/pkg/formats"
)

// Type is a schema node type.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
	TypeNull    Type = "null"
	TypeAny     Type = "any"
)

func (t Type) known() bool {
	switch t {
	case "", TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject, TypeNull, TypeAny:
		return true
	}
	return false
}

// Schema declares the expected shape of a value. Schemas are trees; a node
// reachable from itself is reported as SCHEMA_ERROR once traversal passes
// the depth limit.
type Schema struct {
	// Type of the node. Empty is equivalent to "any".
	Type Type `yaml:"type,omitempty" json:"type,omitempty"`

	// Description is informational only.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Required lists the keys an object node must contain.
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`

	// Properties declares the object node's known keys.
	Properties map[string]*Schema `yaml:"properties,omitempty" json:"properties,omitempty"`

	// AdditionalProperties set to false makes undeclared keys an issue.
	AdditionalProperties *bool `yaml:"additional_properties,omitempty" json:"additional_properties,omitempty"`

	// Items is the schema applied to each element of an array node.
	Items *Schema `yaml:"items,omitempty" json:"items,omitempty"`

	// UniqueItems requests duplicate-element detection.
	UniqueItems bool `yaml:"unique_items,omitempty" json:"unique_items,omitempty"`

	// Format names a string format checked by package formats.
	Format formats.Format `yaml:"format,omitempty" json:"format,omitempty"`

	Enum    []any `yaml:"enum,omitempty" json:"enum,omitempty"`
	Default any   `yaml:"default,omitempty" json:"default,omitempty"`

	// MinLength and MaxLength bound string length (in characters) and
	// array length.
	MinLength *int `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength *int `yaml:"max_length,omitempty" json:"max_length,omitempty"`

	Minimum *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`

	// Custom runs last on the node's final value; a non-nil error becomes a
	// CUSTOM_VALIDATION_FAILED issue.
	Custom func(value any) error `yaml:"-" json:"-"`
}

// Load parses a schema document. YAML and JSON are both accepted.
// Nesting depth is left to CheckWithLimits, which the caller runs with its
// configured limits.
func Load(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &DeclarationError{Message: fmt.Sprintf("failed to parse schema: %v", err)}
	}
	if err := s.check(nil, 0, 0); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and parses a schema document from disk.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Load(data)
}

// Check validates the declaration itself, independent of any value, under
// the default limits.
func (s *Schema) Check() error {
	return s.CheckWithLimits(DefaultLimits())
}

// CheckWithLimits is Check with nesting bounded by l.MaxDepth. A zero
// MaxDepth means the default.
func (s *Schema) CheckWithLimits(l Limits) error {
	return s.check(nil, 0, l.withDefaults().MaxDepth)
}

// check walks the declaration. maxDepth 0 disables the depth bound, which is
// only safe for trees decoded from a document.
func (s *Schema) check(path []any, depth, maxDepth int) error {
	if s == nil {
		return nil
	}
	if maxDepth > 0 && depth > maxDepth {
		return &DeclarationError{Path: path, Message: fmt.Sprintf("schema nesting exceeds maximum depth %d", maxDepth)}
	}
	if !s.Type.known() {
		return &DeclarationError{Path: path, Message: fmt.Sprintf("unknown type %q", string(s.Type))}
	}
	if s.Format != "" {
		if !formats.Known(s.Format) {
			return &DeclarationError{Path: path, Message: fmt.Sprintf("unknown format %q", string(s.Format))}
		}
		switch s.Type {
		case "", TypeAny, TypeString:
		default:
			return &DeclarationError{Path: path, Message: fmt.Sprintf("format %q requires a string type, got %q", string(s.Format), string(s.Type))}
		}
	}
	if s.MinLength != nil && *s.MinLength < 0 {
		return &DeclarationError{Path: path, Message: "min_length must not be negative"}
	}
	if s.MinLength != nil && s.MaxLength != nil && *s.MinLength > *s.MaxLength {
		return &DeclarationError{Path: path, Message: "min_length must not exceed max_length"}
	}
	if s.Minimum != nil && s.Maximum != nil && *s.Minimum > *s.Maximum {
		return &DeclarationError{Path: path, Message: "minimum must not exceed maximum"}
	}
	if len(s.Properties) > 0 && s.Type != TypeObject && s.Type != "" && s.Type != TypeAny {
		return &DeclarationError{Path: path, Message: fmt.Sprintf("properties declared on %q node", string(s.Type))}
	}
	for _, name := range sortedKeys(s.Properties) {
		if err := s.Properties[name].check(appendPath(path, name), depth+1, maxDepth); err != nil {
			return err
		}
	}
	if s.Items != nil {
		if err := s.Items.check(appendPath(path, "items"), depth+1, maxDepth); err != nil {
			return err
		}
	}
	return nil
}

// PathString renders a path as "a.b[0].c".
func PathString(path []any) string {
	if len(path) == 0 {
		return "$"
	}
	var b strings.Builder
	for i, p := range path {
		switch v := p.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

func appendPath(path []any, elem any) []any {
	p := make([]any, len(path)+1)
	copy(p, path)
	p[len(path)] = elem
	return p
}
