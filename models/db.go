package models

import "time"

// Record is the string-keyed map shape every entity serializes to and from.
// It matches stores.Record structurally; models stays free of store imports.
type Record = map[string]interface{}

// dbTimeFormat is the timestamp encoding used inside store records.
const dbTimeFormat = time.RFC3339Nano

func recString(r Record, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func recBool(r Record, key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

func recInt(r Record, key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		// encoding/json decodes numbers to float64
		return int64(v)
	}
	return 0
}

func recTime(r Record, key string) time.Time {
	s := recString(r, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dbTimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func recStringMap(r Record, key string) map[string]string {
	switch v := r[key].(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, e := range v {
			out[k] = e
		}
		return out
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for k, e := range v {
			if s, ok := e.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

func encTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dbTimeFormat)
}
