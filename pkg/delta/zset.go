package delta

import (
	"fmt"
	"sort"
)

// ZSet is a multiset of documents with signed integer multiplicities.
// Documents are treated as opaque units; identity is canonical-JSON equality.
type ZSet struct {
	docs   map[string]Document // JSON key -> original document
	counts map[string]int      // JSON key -> multiplicity
}

// NewZSet creates an empty ZSet.
func NewZSet() *ZSet {
	return &ZSet{
		docs:   make(map[string]Document),
		counts: make(map[string]int),
	}
}

// AddDocumentMutate adds a document with the given multiplicity by modifying
// the ZSet in place. Entries whose multiplicity reaches zero are dropped.
func (z *ZSet) AddDocumentMutate(doc Document, count int) error {
	if count == 0 {
		return nil
	}

	key, err := DocumentKey(doc)
	if err != nil {
		return err
	}

	if _, exists := z.counts[key]; exists {
		z.counts[key] += count
	} else {
		z.docs[key] = doc
		z.counts[key] = count
	}

	if z.counts[key] == 0 {
		delete(z.counts, key)
		delete(z.docs, key)
	}

	return nil
}

// AddDocument adds a document with the given multiplicity and returns a new
// ZSet, leaving the receiver untouched.
func (z *ZSet) AddDocument(doc Document, count int) (*ZSet, error) {
	result := z.ShallowCopy()
	err := result.AddDocumentMutate(doc, count)
	return result, err
}

// Add performs Z-set addition (union with multiplicities summed).
func (z *ZSet) Add(other *ZSet) (*ZSet, error) {
	if other == nil {
		return z.DeepCopy(), nil
	}

	result := z.DeepCopy()
	for key, count := range other.counts {
		if err := result.AddDocumentMutate(other.docs[key], count); err != nil {
			return nil, newBuildError("failed to add document during Z-set addition", err)
		}
	}

	return result, nil
}

// Subtract performs Z-set subtraction.
func (z *ZSet) Subtract(other *ZSet) (*ZSet, error) {
	if other == nil {
		return z.DeepCopy(), nil
	}

	result := z.DeepCopy()
	for key, count := range other.counts {
		if err := result.AddDocumentMutate(other.docs[key], -count); err != nil {
			return nil, newBuildError("failed to subtract document during Z-set subtraction", err)
		}
	}

	return result, nil
}

// ShallowCopy creates a copy that shares the document references.
func (z *ZSet) ShallowCopy() *ZSet {
	result := &ZSet{
		docs:   make(map[string]Document, len(z.docs)),
		counts: make(map[string]int, len(z.counts)),
	}
	for key, doc := range z.docs {
		result.docs[key] = doc
	}
	for key, count := range z.counts {
		result.counts[key] = count
	}
	return result
}

// DeepCopy creates a deep copy of the ZSet.
func (z *ZSet) DeepCopy() *ZSet {
	result := &ZSet{
		docs:   make(map[string]Document, len(z.docs)),
		counts: make(map[string]int, len(z.counts)),
	}
	for key, doc := range z.docs {
		result.docs[key] = DeepCopyDocument(doc)
		result.counts[key] = z.counts[key]
	}
	return result
}

// ZSetEntry represents a document with its multiplicity in a ZSet.
type ZSetEntry struct {
	Document     Document
	Multiplicity int
}

// Entries returns all documents with their multiplicities (including negative
// ones), ordered by canonical key for deterministic output.
func (z *ZSet) Entries() []ZSetEntry {
	keys := make([]string, 0, len(z.counts))
	for key := range z.counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]ZSetEntry, 0, len(keys))
	for _, key := range keys {
		result = append(result, ZSetEntry{
			Document:     DeepCopyDocument(z.docs[key]),
			Multiplicity: z.counts[key],
		})
	}
	return result
}

// Counts returns the multiplicity of every document keyed by its canonical
// JSON representation. Useful for multiset comparisons in tests.
func (z *ZSet) Counts() map[string]int {
	result := make(map[string]int, len(z.counts))
	for key, count := range z.counts {
		result[key] = count
	}
	return result
}

// Multiplicity returns the multiplicity of a specific document.
func (z *ZSet) Multiplicity(doc Document) (int, error) {
	key, err := DocumentKey(doc)
	if err != nil {
		return 0, newBuildError("failed to compute document key", err)
	}
	return z.counts[key], nil
}

// IsZero checks if the Z-set is empty.
func (z *ZSet) IsZero() bool {
	return len(z.counts) == 0
}

// UniqueCount returns the number of distinct documents with nonzero
// multiplicity.
func (z *ZSet) UniqueCount() int {
	return len(z.counts)
}

// String returns a string representation of the Z-set for debugging.
func (z *ZSet) String() string {
	if z.IsZero() {
		return "∅"
	}

	result := "{"
	first := true
	for _, e := range z.Entries() {
		if !first {
			result += ", "
		}
		result += fmt.Sprintf("%v×%d", e.Document, e.Multiplicity)
		first = false
	}
	result += "}"
	return result
}
