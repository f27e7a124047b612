// Package schema validates decoded JSON values against a declared shape,
// coercing them toward it where a safe conversion exists.
package schema

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"ajala-hq/ajala/pkg/formats"
)

// Validate checks value against s. The input is not modified; Result.Value
// holds a transformed copy. Validate has no shared state and may be called
// concurrently.
func Validate(value any, s *Schema, opts Options) *Result {
	opts.Limits = opts.Limits.withDefaults()
	v := &validator{opts: opts}

	out := v.node(normalize(value), s, nil, 0)

	res := &Result{
		Valid:           true,
		Value:           out,
		Issues:          v.issues,
		Transformations: v.transforms,
	}
	for _, i := range v.issues {
		if i.Severity == SeverityError {
			res.Valid = false
			break
		}
	}
	return res
}

type validator struct {
	opts       Options
	issues     []Issue
	transforms []Transformation
	halted     bool
}

func (v *validator) report(path []any, code Code, format string, args ...any) {
	if v.halted {
		return
	}
	sev := v.opts.severity(code)
	v.issues = append(v.issues, Issue{
		Path:     path,
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
	if v.opts.FailFast && sev == SeverityError {
		v.halted = true
	}
}

func (v *validator) record(path []any, kind TransformKind, from, to any) {
	v.transforms = append(v.transforms, Transformation{Path: path, Kind: kind, From: from, To: to})
}

// node validates one value. Nodes past the depth limit report SCHEMA_ERROR
// and are returned unchanged.
func (v *validator) node(val any, s *Schema, path []any, depth int) any {
	if v.halted || s == nil {
		return val
	}
	if depth > v.opts.Limits.MaxDepth {
		v.report(path, SchemaError, "maximum depth %d exceeded", v.opts.Limits.MaxDepth)
		return val
	}
	if !s.Type.known() {
		v.report(path, SchemaError, "unknown schema type %q", string(s.Type))
		return val
	}

	val, ok := v.conform(val, s, path)
	if !ok {
		v.report(path, InvalidType, "expected %s, got %s", s.Type, typeName(val))
		return val
	}

	switch x := val.(type) {
	case string:
		v.checkString(x, s, path)
	case float64:
		v.checkNumber(x, s, path)
	}

	if len(s.Enum) > 0 && !slices.ContainsFunc(s.Enum, func(e any) bool { return equal(normalize(e), val) }) {
		v.report(path, InvalidEnum, "value must be one of %v", s.Enum)
	}

	switch x := val.(type) {
	case map[string]any:
		val = v.object(x, s, path, depth)
	case []any:
		val = v.array(x, s, path, depth)
	}

	if s.Custom != nil && !v.halted {
		if err := s.Custom(val); err != nil {
			v.report(path, CustomValidationFailed, "%s", err.Error())
		}
	}
	return val
}

// conform returns val if it already matches the schema type, or a coerced
// copy when coercion is enabled and safe.
func (v *validator) conform(val any, s *Schema, path []any) (any, bool) {
	if matches(val, s.Type) {
		return val, true
	}
	if !v.opts.CoerceTypes || v.opts.Strict {
		return val, false
	}
	coerced, ok := coerce(val, s.Type)
	if !ok {
		return val, false
	}
	v.record(path, KindCoercion, val, coerced)
	return coerced, true
}

func (v *validator) checkString(x string, s *Schema, path []any) {
	n := utf8.RuneCountInString(x)
	if n > v.opts.Limits.MaxStringLength {
		v.report(path, InvalidLength, "string length %d exceeds limit %d", n, v.opts.Limits.MaxStringLength)
	}
	v.checkLength(n, s, path)

	if s.Format == "" {
		return
	}
	ok, err := formats.Check(s.Format, x)
	switch {
	case err != nil:
		v.report(path, SchemaError, "%s", err.Error())
	case !ok:
		v.report(path, InvalidFormat, "%s", formats.Message(s.Format))
	}
}

func (v *validator) checkLength(n int, s *Schema, path []any) {
	if s.MinLength != nil && n < *s.MinLength {
		v.report(path, InvalidLength, "length %d is below minimum %d", n, *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		v.report(path, InvalidLength, "length %d exceeds maximum %d", n, *s.MaxLength)
	}
}

func (v *validator) checkNumber(x float64, s *Schema, path []any) {
	if x > MaxSafeInteger || x < MinSafeInteger {
		v.report(path, OutOfRange, "number %g is outside the safe range", x)
	}
	if s.Minimum != nil && x < *s.Minimum {
		v.report(path, OutOfRange, "%g is below minimum %g", x, *s.Minimum)
	}
	if s.Maximum != nil && x > *s.Maximum {
		v.report(path, OutOfRange, "%g exceeds maximum %g", x, *s.Maximum)
	}
}

func (v *validator) object(obj map[string]any, s *Schema, path []any, depth int) map[string]any {
	if len(obj) > v.opts.Limits.MaxProperties {
		v.report(path, InvalidStructure, "object has %d properties, limit is %d", len(obj), v.opts.Limits.MaxProperties)
		return obj
	}

	names := sortedKeys(s.Properties)

	if v.opts.UseDefaults && !v.opts.Strict {
		for _, name := range names {
			ps := s.Properties[name]
			if _, present := obj[name]; present || ps == nil || ps.Default == nil {
				continue
			}
			def := normalize(ps.Default)
			obj[name] = def
			v.record(appendPath(path, name), KindDefault, nil, def)
		}
	}

	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			v.report(appendPath(path, name), MissingRequired, "required property %q is missing", name)
		}
	}

	for _, name := range names {
		child, present := obj[name]
		if !present {
			continue
		}
		obj[name] = v.node(child, s.Properties[name], appendPath(path, name), depth+1)
	}

	for _, key := range sortedKeys(obj) {
		if _, declared := s.Properties[key]; declared {
			continue
		}
		switch {
		case v.opts.RemoveAdditional && !v.opts.Strict:
			v.record(appendPath(path, key), KindRemoval, obj[key], nil)
			delete(obj, key)
		case s.AdditionalProperties != nil && !*s.AdditionalProperties:
			v.report(appendPath(path, key), InvalidStructure, "additional property %q is not allowed", key)
		}
	}
	return obj
}

func (v *validator) array(arr []any, s *Schema, path []any, depth int) []any {
	if len(arr) > v.opts.Limits.MaxArrayLength {
		v.report(path, InvalidLength, "array length %d exceeds limit %d", len(arr), v.opts.Limits.MaxArrayLength)
		return arr
	}
	v.checkLength(len(arr), s, path)

	if s.Items != nil {
		for i := range arr {
			arr[i] = v.node(arr[i], s.Items, appendPath(path, i), depth+1)
		}
	}

	if s.UniqueItems {
		seen := make(map[string]int, len(arr))
		for i, item := range arr {
			key := identity(item)
			if first, dup := seen[key]; dup {
				v.report(appendPath(path, i), DuplicateItems, "item duplicates index %d", first)
				continue
			}
			seen[key] = i
		}
	}
	return arr
}
