// Package jsonpath implements the dotted FieldPath accessor spec §4.3
// describes: reading descends object keys in order and returns "absent" on
// any non-object intermediate or missing key; writing recursively ensures
// intermediate objects exist and fails if an existing intermediate is not an
// object.
//
// Grounded on the teacher's stdlib-only DTO approach in its pipeline types
// package: no third-party JSON-path library is wired anywhere in the
// retrieval pack, so this is implemented directly over encoding/json's
// map[string]any representation (documented as a standard-library choice in
// DESIGN.md).
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// splitPath splits a dotted path into its component keys.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get reads path from doc, descending object keys in order. It returns
// (value, true) on success and (nil, false) if any intermediate is missing
// or not an object, or the final key is absent.
func Get(doc map[string]any, path string) (any, bool) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return nil, false
	}

	var cur any = doc
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, present := m[k]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Set writes value at path in doc, creating intermediate objects as needed.
// It returns an error if an existing intermediate is present but is not a
// map[string]any (spec §4.3: "writing through a non-object intermediate is
// a processing error").
func Set(doc map[string]any, path string, value any) error {
	keys := splitPath(path)
	if len(keys) == 0 {
		return fmt.Errorf("jsonpath: empty path")
	}

	cur := doc
	for i, k := range keys[:len(keys)-1] {
		next, present := cur[k]
		if !present {
			child := make(map[string]any)
			cur[k] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("jsonpath: cannot write through non-object intermediate at %q", strings.Join(keys[:i+1], "."))
		}
		cur = child
	}

	cur[keys[len(keys)-1]] = value
	return nil
}

// AsNumberOr reads v as a float64, returning def if v is nil or not
// numeric. encoding/json decodes all JSON numbers as float64 when
// unmarshaling into `any`.
func AsNumberOr(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
		return def
	default:
		return def
	}
}

// AsString reads v as a string. Returns ("", false) for nil or non-string
// values.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsBool reads v as a bool. Returns (false, false) for nil or non-bool
// values.
func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// GetString is a convenience wrapper combining Get and AsString: it reads
// path from doc and returns the string value, or ("", false) if absent or
// not a string.
func GetString(doc map[string]any, path string) (string, bool) {
	v, ok := Get(doc, path)
	if !ok {
		return "", false
	}
	return AsString(v)
}

// GetNumberOr is a convenience wrapper combining Get and AsNumberOr.
func GetNumberOr(doc map[string]any, path string, def float64) float64 {
	v, ok := Get(doc, path)
	if !ok {
		return def
	}
	return AsNumberOr(v, def)
}
