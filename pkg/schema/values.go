package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// normalize deep-copies v into the decoded-JSON value space: nil, bool,
// float64, string, []any and map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string:
		return x
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	}

	// Anything else (structs, typed slices and maps) goes through its JSON
	// encoding.
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func matches(v any, t Type) bool {
	switch t {
	case "", TypeAny:
		return true
	case TypeNull:
		return v == nil
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeInteger:
		f, ok := v.(float64)
		return ok && isIntegral(f)
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// coerce attempts a safe conversion of v to t: string and number, the
// strings "true"/"false" and boolean, any value to a single-element array,
// and a single-element array to its element.
func coerce(v any, t Type) (any, bool) {
	switch t {
	case TypeArray:
		if v == nil {
			return nil, false
		}
		return []any{v}, true
	case TypeObject, TypeNull, TypeAny, "":
		return nil, false
	}

	if arr, ok := v.([]any); ok {
		if len(arr) != 1 {
			return nil, false
		}
		if matches(arr[0], t) {
			return arr[0], true
		}
		return coerceScalar(arr[0], t)
	}
	return coerceScalar(v, t)
}

// isDecimal rejects the hex and underscore forms ParseFloat accepts beyond
// plain decimal notation.
func isDecimal(s string) bool {
	if strings.Contains(s, "_") {
		return false
	}
	digits := strings.TrimLeft(s, "+-")
	return !strings.HasPrefix(digits, "0x") && !strings.HasPrefix(digits, "0X")
}

func coerceScalar(v any, t Type) (any, bool) {
	switch t {
	case TypeNumber, TypeInteger:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if !isDecimal(s) {
			return nil, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		if t == TypeInteger && !isIntegral(f) {
			return nil, false
		}
		return f, true
	case TypeString:
		switch x := v.(type) {
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(x), true
		}
	case TypeBoolean:
		if s, ok := v.(string); ok {
			switch strings.TrimSpace(s) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
	}
	return nil, false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && math.Trunc(f) == f
}

func typeName(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		if isIntegral(x) {
			return "integer"
		}
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return reflect.TypeOf(v).String()
}

func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// identity returns a canonical key for duplicate detection. encoding/json
// sorts map keys, so equal values produce equal keys.
func identity(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
