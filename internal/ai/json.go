package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNoJSONObject is returned when model output contains no parseable JSON.
var ErrNoJSONObject = errors.New("invalid LLM output: no JSON object found")

// DecodeJSON parses model output. The whole text is tried first, then the span
// from the first '{' to the last '}'. The decoded value is not guaranteed to be an object.
// Numbers outside the float64 range decode as nil.
func DecodeJSON(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if gjson.Valid(trimmed) {
		if value, err := unmarshal(trimmed); err == nil {
			return value, nil
		}
	}

	candidate, ok := ExtractObject(trimmed)
	if !ok || !gjson.Valid(candidate) {
		return nil, ErrNoJSONObject
	}
	return unmarshal(candidate)
}

// DecodeObject is DecodeJSON that maps any non-object value onto an empty object.
func DecodeObject(raw string) (map[string]any, error) {
	value, err := DecodeJSON(raw)
	if err != nil {
		return nil, err
	}
	if obj, ok := value.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{}, nil
}

// ExtractObject returns the greedy {...} span of s.
func ExtractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func unmarshal(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, errors.Join(ErrNoJSONObject, err)
	}
	return fromNumbers(value), nil
}

// fromNumbers replaces json.Number values with float64, or nil when out of range.
func fromNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return nil
		}
		return f
	case map[string]any:
		for key, item := range t {
			t[key] = fromNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = fromNumbers(item)
		}
		return t
	default:
		return v
	}
}
