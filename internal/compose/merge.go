package compose

import (
	"fmt"
	"strings"
)

// unionKeys are keys where lists merge as a set union (no duplicates).
var unionKeys = map[string]bool{
	"networks":   true,
	"depends_on": true,
	"volumes":    true,
}

// DeepMerge recursively merges an override compose document into a base
// one and returns a new map. Maps merge recursively, union-keyed lists
// merge as sets, other lists are replaced. environment and labels are
// normalized from list form to map form before merging so an override
// can change a single variable.
func DeepMerge(base, override map[string]any) map[string]any {
	result := copyMap(base)

	for key, overrideValue := range override {
		baseValue, exists := result[key]
		if !exists {
			result[key] = deepCopy(overrideValue)
			continue
		}

		if key == "environment" || key == "labels" {
			result[key] = mergeKeyValue(baseValue, overrideValue)
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overrideMap, overrideIsMap := overrideValue.(map[string]any)
		if baseIsMap && overrideIsMap {
			result[key] = DeepMerge(baseMap, overrideMap)
			continue
		}

		baseList, baseIsList := toStringSlice(baseValue)
		overrideList, overrideIsList := toStringSlice(overrideValue)
		if baseIsList && overrideIsList && unionKeys[key] {
			result[key] = stringSliceUnion(baseList, overrideList)
			continue
		}

		result[key] = deepCopy(overrideValue)
	}

	return result
}

// mergeKeyValue merges environment/labels sections, accepting both the
// list form (["FOO=bar"]) and the map form ({FOO: bar}) on either side.
func mergeKeyValue(base, override any) map[string]any {
	result := normalizeToMap(base)
	for k, v := range normalizeToMap(override) {
		result[k] = v
	}
	return result
}

// normalizeToMap converts list-style environment/labels to map form.
func normalizeToMap(value any) map[string]any {
	result := make(map[string]any)

	switch v := value.(type) {
	case map[string]any:
		for k, val := range v {
			result[k] = fmt.Sprintf("%v", val)
		}
	case []any:
		for _, item := range v {
			s := fmt.Sprintf("%v", item)
			if idx := strings.Index(s, "="); idx > 0 {
				result[s[:idx]] = s[idx+1:]
			}
		}
	case []string:
		for _, item := range v {
			if idx := strings.Index(item, "="); idx > 0 {
				result[item[:idx]] = item[idx+1:]
			}
		}
	}

	return result
}

// toStringSlice attempts to convert a value to []string.
func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		result := make([]string, len(v))
		for i, item := range v {
			result[i] = fmt.Sprintf("%v", item)
		}
		return result, true
	default:
		return nil, false
	}
}

// stringSliceUnion returns the union of two string slices, preserving
// first-seen order.
func stringSliceUnion(a, b []string) []any {
	seen := make(map[string]bool, len(a)+len(b))
	result := make([]any, 0, len(a)+len(b))

	for _, s := range append(a, b...) {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	return result
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// deepCopy creates a deep copy of any value.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = deepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = deepCopy(val)
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		return value
	}
}
