package schema

import (
	"fmt"
	"strings"

	"ajala-hq/ajala/pkg/codes"
)

// Code identifies a kind of validation issue.
type Code string

const (
	MissingRequired        Code = "MISSING_REQUIRED"
	InvalidType            Code = "INVALID_TYPE"
	InvalidFormat          Code = "INVALID_FORMAT"
	OutOfRange             Code = "OUT_OF_RANGE"
	InvalidLength          Code = "INVALID_LENGTH"
	InvalidEnum            Code = "INVALID_ENUM"
	DuplicateItems         Code = "DUPLICATE_ITEMS"
	InvalidStructure       Code = "INVALID_STRUCTURE"
	CustomValidationFailed Code = "CUSTOM_VALIDATION_FAILED"
	SchemaError            Code = "SCHEMA_ERROR"
)

// Known reports whether c is one of the issue codes above.
func (c Code) Known() bool {
	switch c {
	case MissingRequired, InvalidType, InvalidFormat, OutOfRange, InvalidLength,
		InvalidEnum, DuplicateItems, InvalidStructure, CustomValidationFailed, SchemaError:
		return true
	}
	return false
}

// Severity of an issue. Only error-severity issues make a result invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found at a location in the value.
type Issue struct {
	// Path is a sequence of object keys (string) and array indices (int).
	Path     []any    `json:"path"`
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", PathString(i.Path), i.Message, i.Code)
}

// TransformKind names what a transformation did.
type TransformKind string

const (
	KindCoercion TransformKind = "coercion"
	KindDefault  TransformKind = "default"
	KindRemoval  TransformKind = "removal"
)

// Transformation records a change made to the value. It is informational
// and never affects validity.
type Transformation struct {
	Path []any         `json:"path"`
	Kind TransformKind `json:"kind"`
	From any           `json:"from,omitempty"`
	To   any           `json:"to,omitempty"`
}

// Result is the outcome of Validate.
type Result struct {
	// Valid is true when no error-severity issue was found.
	Valid bool `json:"valid"`

	// Value is the validated value after transformations. The input is
	// never modified.
	Value any `json:"value"`

	Issues          []Issue          `json:"issues"`
	Transformations []Transformation `json:"transformations"`
}

// Errors returns the error-severity issues.
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err returns a *ValidationError when the result is invalid, nil otherwise.
func (r *Result) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return &ValidationError{Issues: r.Errors()}
}

// ValidationError reports an invalid value.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return fmt.Sprintf("validation failed with %d issue(s): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Code implements codes.Coder.
func (e *ValidationError) Code() codes.Code {
	return codes.ValidationError
}

// DeclarationError reports a malformed schema.
type DeclarationError struct {
	Path    []any
	Message string
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("invalid schema at %s: %s", PathString(e.Path), e.Message)
}

// Code implements codes.Coder.
func (e *DeclarationError) Code() codes.Code {
	return codes.SchemaError
}
