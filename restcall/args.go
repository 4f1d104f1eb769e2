package restcall

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// Args are the decoded arguments of a tool call.
type Args map[string]any

// Lookup returns the value of an argument that was supplied and not null.
func (a Args) Lookup(name string) (any, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (a Args) String(name string) (string, bool) {
	v, ok := a.Lookup(name)
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

// StringOr returns the argument or fallback when it is absent or empty.
func (a Args) StringOr(name, fallback string) string {
	if s, ok := a.String(name); ok && s != "" {
		return s
	}
	return fallback
}

func (a Args) Int(name string) (int, bool, error) {
	v, ok := a.Lookup(name)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, true, fmt.Errorf("argument %q must be an integer", name)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, true, fmt.Errorf("argument %q must be an integer", name)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("argument %q must be an integer", name)
	}
}

func (a Args) Bool(name string) (bool, bool, error) {
	v, ok := a.Lookup(name)
	if !ok {
		return false, false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, true, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, true, fmt.Errorf("argument %q must be a boolean", name)
		}
		return parsed, true, nil
	default:
		return false, true, fmt.Errorf("argument %q must be a boolean", name)
	}
}

// Object returns an argument that holds a JSON object, either directly or as
// a JSON encoded string.
func (a Args) Object(name string) (map[string]any, bool, error) {
	v, ok := a.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	switch o := v.(type) {
	case map[string]any:
		return o, true, nil
	case string:
		if strings.TrimSpace(o) == "" {
			return nil, false, nil
		}
		out := map[string]any{}
		if err := json.Unmarshal(jsonc.ToJSON([]byte(o)), &out); err != nil {
			return nil, true, fmt.Errorf("argument %q must be a JSON object: %v", name, err)
		}
		return out, true, nil
	default:
		return nil, true, fmt.Errorf("argument %q must be a JSON object", name)
	}
}

// FormatValue renders a scalar argument the way it is sent in a URL.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// FormatValues expands list arguments into repeated query values.
func FormatValues(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if item != nil {
				out = append(out, FormatValue(item))
			}
		}
		return out
	case []string:
		return x
	default:
		return []string{FormatValue(v)}
	}
}

// asJSON encodes an argument as a JSON document. A string is taken as JSON
// text; comments and trailing commas are stripped first.
func asJSON(v any) (json.RawMessage, error) {
	if s, ok := v.(string); ok {
		b := jsonc.ToJSON([]byte(s))
		if !json.Valid(b) {
			return nil, fmt.Errorf("must be valid JSON")
		}
		return json.RawMessage(b), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
