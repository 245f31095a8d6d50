package common

import (
	"fmt"
	"strings"
)

// StringListArg reads a list argument given either as an array or as a
// comma-separated string. Blank entries are dropped.
func StringListArg(args map[string]any, key string) []string {
	var raw []string
	switch v := args[key].(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IntArg reads a numeric argument. JSON numbers arrive as float64.
func IntArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
	return int(f), nil
}
