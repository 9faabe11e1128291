package templates

import (
	"reflect"
	"strings"
)

func defaultHelperFuncs() map[string]any {
	return map[string]any{
		"setting": setting,
	}
}

// setting reads key from a settings map, returning fallback when the value is
// missing, nil, false or blank. Dotted keys walk nested maps.
func setting(values any, key string, fallback ...any) any {
	var def any
	if len(fallback) > 0 {
		def = fallback[0]
	}
	current := values
	for _, part := range strings.Split(key, ".") {
		m, ok := asMap(current)
		if !ok {
			return def
		}
		current, ok = m[part]
		if !ok {
			return def
		}
	}
	switch v := current.(type) {
	case nil:
		return def
	case bool:
		if !v {
			return def
		}
	case string:
		if strings.TrimSpace(v) == "" {
			return def
		}
	}
	return current
}

// asMap accepts map[string]any and named map types such as block.Settings.
func asMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
