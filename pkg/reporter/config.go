package reporter

import (
	"fmt"
	"math"
)

// Config is the reporter-specific section of a project configuration
// document. Values arrive as decoded YAML, so getters accept every numeric
// representation the decoder may produce.
type Config map[string]any

// Int returns key as an int, or def when absent or not integral.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		if v > math.MaxInt {
			return def
		}

		return int(v)
	case float64:
		if v != math.Trunc(v) {
			return def
		}

		return int(v)
	default:
		return def
	}
}

// Float returns key as a float64, or def when absent or not numeric.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return def
	}
}

// String returns key as a string, or def when absent.
func (c Config) String(key, def string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}

	if s, isString := v.(string); isString {
		return s
	}

	return fmt.Sprint(v)
}

// Strings returns key as a list of strings. A scalar becomes a one-element
// list; absent keys yield nil.
func (c Config) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}

		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
