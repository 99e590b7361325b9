package delta

import "fmt"

// Extractor extracts a join key from a document.
type Extractor interface {
	Extract(Document) (any, error)
	fmt.Stringer
}

// FieldExtractor extracts a single top-level field from a record.
type FieldExtractor struct {
	field string
}

// Field returns an extractor for the named top-level record field.
func Field(name string) *FieldExtractor {
	return &FieldExtractor{field: name}
}

// Name returns the extracted field's name.
func (e *FieldExtractor) Name() string { return e.field }

// Extract implements Extractor.
func (e *FieldExtractor) Extract(doc Document) (any, error) {
	val, ok := doc[e.field]
	if !ok {
		return nil, newBuildError(fmt.Sprintf("document has no field %q", e.field), nil)
	}
	return val, nil
}

func (e *FieldExtractor) String() string { return e.field }

// tupleExtractor applies an inner extractor to one relation's component of a
// partial join tuple.
type tupleExtractor struct {
	relation string
	inner    Extractor
}

// TupleKey returns an extractor that applies key to the named relation's
// component of a join tuple.
func TupleKey(relation string, key Extractor) Extractor {
	return &tupleExtractor{relation: relation, inner: key}
}

func (e *tupleExtractor) Extract(doc Document) (any, error) {
	component, ok := doc[e.relation].(Document)
	if !ok {
		return nil, newBuildError(fmt.Sprintf("join tuple has no %q component", e.relation), nil)
	}
	return e.inner.Extract(component)
}

func (e *tupleExtractor) String() string {
	return fmt.Sprintf("%s.%s", e.relation, e.inner)
}
