package delta

import (
	"encoding/json"
	"fmt"
)

// Document represents a relation record or a (partial) join-result tuple as
// map[string]any. Can contain embedded maps, slices, and primitives (int64,
// float64, string, bool). Join tuples are documents keyed by relation name,
// e.g. {"order": {...}, "user": {...}}.
type Document = map[string]any

// DocumentKey creates a deterministic JSON representation for document
// identity. This is the key function that defines document equality.
func DocumentKey(doc Document) (string, error) {
	canonical, err := toCanonicalForm(doc)
	if err != nil {
		return "", newBuildError("failed to convert document to canonical form", err)
	}

	bytes, err := json.Marshal(canonical)
	if err != nil {
		return "", newBuildError("failed to marshal document to JSON", err)
	}

	return string(bytes), nil
}

// ValueKey creates a deterministic JSON representation for an arbitrary value,
// typically an extracted join key.
func ValueKey(val any) (string, error) {
	canonical, err := toCanonicalForm(val)
	if err != nil {
		return "", newBuildError("failed to convert value to canonical form", err)
	}

	bytes, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value to JSON: %w", err)
	}

	return string(bytes), nil
}

// toCanonicalForm ensures deterministic JSON representation, recursively
// processing nested structures while preserving semantics.
func toCanonicalForm(val any) (any, error) {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any)
		for k, subVal := range v {
			canonical, err := toCanonicalForm(subVal)
			if err != nil {
				return nil, newBuildError(fmt.Sprintf("failed to canonicalize map field %q", k), err)
			}
			result[k] = canonical
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, subVal := range v {
			canonical, err := toCanonicalForm(subVal)
			if err != nil {
				return nil, newBuildError(fmt.Sprintf("failed to canonicalize array element at index %d", i), err)
			}
			result[i] = canonical
		}
		return result, nil

	case int64, float64, string, bool, nil:
		// Primitives are already canonical
		return v, nil

	default:
		// Handle any other types that might sneak in
		return v, nil
	}
}

// DeepEqual checks if two documents are equal using JSON comparison.
func DeepEqual(a, b Document) (bool, error) {
	keyA, err := DocumentKey(a)
	if err != nil {
		return false, newBuildError("failed to compute key for first document", err)
	}

	keyB, err := DocumentKey(b)
	if err != nil {
		return false, newBuildError("failed to compute key for second document", err)
	}

	return keyA == keyB, nil
}

// deepCopy creates a deep copy of a document or any nested structure.
func deepCopy(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, subVal := range v {
			result[k] = deepCopy(subVal)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, subVal := range v {
			result[i] = deepCopy(subVal)
		}
		return result

	default:
		// Primitives (and anything else) are copied directly
		return v
	}
}

// DeepCopyDocument creates a deep copy of a document.
func DeepCopyDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	return deepCopy(doc).(Document)
}
