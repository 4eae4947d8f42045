package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Slots accumulates named field values for a draft across turns.
type Slots map[string]any

// Merge copies every non-nil value from partial into s, replacing existing keys.
func (s Slots) Merge(partial map[string]any) {
	for k, v := range partial {
		if v == nil {
			continue
		}
		s[k] = v
	}
}

// Has reports whether key holds a non-empty value.
func (s Slots) Has(key string) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	return true
}

// String returns the value for key rendered as a trimmed string.
func (s Slots) String(key string) string {
	switch t := s[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Float returns the numeric value for key. Numeric strings are parsed.
func (s Slots) Float(key string) (float64, bool) {
	switch t := s[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns the value for key when it is a whole number.
func (s Slots) Int(key string) (int, bool) {
	f, ok := s.Float(key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Strings returns a list value. A single string becomes a one-element list.
func (s Slots) Strings(key string) []string {
	switch t := s[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	}
	return nil
}

// Clone returns a shallow copy.
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
