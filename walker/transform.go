package walker

import "github.com/gofhir/loader/pool"

// TransformFunc maps a string scalar reached through key to its replacement.
// Returning the input unchanged leaves the field as is.
type TransformFunc func(key, path, value string) string

// Transform returns a structurally identical copy of the document with every
// string scalar mapped through fn. Non-string scalars, field order, and
// unknown fields pass through untouched; the input is never mutated.
func Transform(resource map[string]any, fn TransformFunc) map[string]any {
	if resource == nil || fn == nil {
		return resource
	}
	rootPath, _ := resource["resourceType"].(string)
	if rootPath == "" {
		rootPath = "$"
	}
	return transformObject(resource, "", rootPath, fn)
}

func transformObject(obj map[string]any, parentKey, path string, fn TransformFunc) map[string]any {
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		out[key] = transformValue(value, key, path+"."+key, fn)
	}
	return out
}

func transformValue(value any, key, path string, fn TransformFunc) any {
	switch v := value.(type) {
	case map[string]any:
		return transformObject(v, key, path, fn)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = transformValue(item, key, pool.AppendArrayIndex(path, i), fn)
		}
		return out
	case string:
		return fn(key, path, v)
	default:
		return value
	}
}
