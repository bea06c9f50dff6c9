package models

import (
	"strings"
	"unicode"
)

// UnderToCamel converts a snake_case key to camelCase. Leading underscores
// are preserved so hypermedia keys like _links keep their shape.
func UnderToCamel(s string) string {
	prefix := ""
	for strings.HasPrefix(s, "_") {
		prefix += "_"
		s = s[1:]
	}
	parts := strings.Split(s, "_")
	if len(parts) == 0 {
		return prefix
	}
	out := parts[0]
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		out += strings.ToUpper(p[:1]) + p[1:]
	}
	return prefix + out
}

// CamelToUnder converts a camelCase key back to snake_case.
func CamelToUnder(s string) string {
	prefix := ""
	for strings.HasPrefix(s, "_") {
		prefix += "_"
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return prefix + b.String()
}

// DictToCamel recursively rewrites the keys of a result map to camelCase.
// Values are left untouched; nested maps and slices are descended into.
// Applied only at the envelope boundary, never to internal representations.
func DictToCamel(d map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, v := range d {
		out[UnderToCamel(k)] = valueToCamel(v)
	}
	return out
}

// DictToSnake is the inverse of DictToCamel for ASCII keys.
func DictToSnake(d map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(d))
	for k, v := range d {
		out[CamelToUnder(k)] = valueToSnake(v)
	}
	return out
}

func valueToCamel(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return DictToCamel(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = valueToCamel(e)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = DictToCamel(e)
		}
		return out
	default:
		return v
	}
}

func valueToSnake(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return DictToSnake(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = valueToSnake(e)
		}
		return out
	default:
		return v
	}
}
