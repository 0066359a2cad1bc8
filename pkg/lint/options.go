package lint

import "fmt"

func lookup(opts map[string]any, key string) (any, bool) {
	if opts == nil {
		return nil, false
	}
	v, ok := opts[key]
	return v, ok
}

// GetOption extracts a typed option with a default value.
func GetOption[T any](opts map[string]any, key string, defaultVal T) T {
	v, ok := lookup(opts, key)
	if !ok {
		return defaultVal
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	return defaultVal
}

// GetIntOption extracts an int option, handling float64 from JSON and
// uint64 from YAML.
func GetIntOption(opts map[string]any, key string, defaultVal int) int {
	v, ok := lookup(opts, key)
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return defaultVal
	}
}

// GetStringOption extracts a string option.
func GetStringOption(opts map[string]any, key string, defaultVal string) string {
	return GetOption(opts, key, defaultVal)
}

// GetBoolOption extracts a bool option.
func GetBoolOption(opts map[string]any, key string, defaultVal bool) bool {
	return GetOption(opts, key, defaultVal)
}

// GetEnumOption extracts a string option that must be one of allowed.
func GetEnumOption(opts map[string]any, key string, allowed []string, defaultVal string) (string, error) {
	v, ok := lookup(opts, key)
	if !ok {
		return defaultVal, nil
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal, fmt.Errorf("option %q must be a string, got %T", key, v)
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return defaultVal, fmt.Errorf("option %q must be one of %v, got %q", key, allowed, s)
}

// GetStringSliceOption extracts a string slice option.
func GetStringSliceOption(opts map[string]any, key string, defaultVal []string) []string {
	v, ok := lookup(opts, key)
	if !ok {
		return defaultVal
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return defaultVal
	}
}
