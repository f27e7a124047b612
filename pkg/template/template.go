// Package template substitutes {{name}} placeholders in prompt templates.
//
// Substitution is single-pass: a value containing placeholder syntax is
// inserted literally and never expanded again.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"ajala-hq/ajala/pkg/codes"
)

// placeholder matches {{identifier}}; the identifier is any run of
// non-'}' characters and is trimmed before lookup.
var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// MissingVariableError is returned when a template references a variable
// that is not in the provided mapping.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing template variable %q", e.Name)
}

// Code implements codes.Coder.
func (e *MissingVariableError) Code() codes.Code {
	return codes.MissingVariable
}

type renderOptions struct {
	lenient bool
}

// Option configures Render.
type Option func(*renderOptions)

// WithLenient leaves placeholders for absent variables in place instead of
// failing.
func WithLenient() Option {
	return func(o *renderOptions) {
		o.lenient = true
	}
}

// Render replaces every placeholder in tpl with its value from vars. The
// first absent variable (in order of appearance) yields a
// *MissingVariableError unless WithLenient is given.
func Render(tpl string, vars map[string]string, opts ...Option) (string, error) {
	var ro renderOptions
	for _, opt := range opts {
		opt(&ro)
	}

	matches := placeholder.FindAllStringSubmatchIndex(tpl, -1)
	if len(matches) == 0 {
		return tpl, nil
	}

	var b strings.Builder
	b.Grow(len(tpl))
	last := 0
	for _, m := range matches {
		b.WriteString(tpl[last:m[0]])
		name := strings.TrimSpace(tpl[m[2]:m[3]])
		value, ok := vars[name]
		switch {
		case ok:
			b.WriteString(value)
		case ro.lenient:
			b.WriteString(tpl[m[0]:m[1]])
		default:
			return "", &MissingVariableError{Name: name}
		}
		last = m[1]
	}
	b.WriteString(tpl[last:])
	return b.String(), nil
}

// Variables returns the distinct placeholder names in tpl in order of first
// appearance.
func Variables(tpl string) []string {
	matches := placeholder.FindAllStringSubmatch(tpl, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Missing returns the placeholder names in tpl that vars does not define.
func Missing(tpl string, vars map[string]string) []string {
	var missing []string
	for _, name := range Variables(tpl) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
