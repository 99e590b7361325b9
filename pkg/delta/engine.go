package delta

// Stream is an opaque handle to an engine-owned change stream. The
// construction never inspects a stream; it only passes handles back to the
// engine that created them.
type Stream interface{}

// Arrangement is an engine-owned index from a key to the versioned, weighted
// values of one change stream, queryable as of a time frontier. The engine
// owns and maintains arrangement state; the construction only records which
// key the arrangement was built with.
type Arrangement interface {
	// Key returns the extractor the arrangement is keyed by.
	Key() Extractor
}

// Mapper transforms one document into another, dropping it when returning a
// nil document.
type Mapper func(Document) (Document, error)

// Combiner merges a matched pair into a result document during a join step.
// The key is the join key both sides matched on.
type Combiner func(key any, left, right Document) (Document, error)

// Engine is the external dataflow engine contract the construction consumes.
// An engine owns all runtime state and guarantees incremental multiset
// semantics for the primitives below; the construction contributes only the
// graph shape, the key extractors, and the visibility predicates.
type Engine interface {
	// Map applies fn to every change's document, preserving time and
	// multiplicity.
	Map(s Stream, fn Mapper) (Stream, error)

	// Arrange builds and incrementally maintains a key -> value index over
	// the stream, with multiset accumulation.
	Arrange(s Stream, key Extractor) (Arrangement, error)

	// HalfJoin probes arr with every incoming change: for a change at time t,
	// the arrangement is read as of frontier(t), matched entries whose own
	// time te satisfies visible(te, t) are kept, and combine is emitted as a
	// new change at time t with the product of the two multiplicities.
	HalfJoin(s Stream, arr Arrangement, probe Extractor, frontier FrontierFunc, visible VisibleFunc, combine Combiner) (Stream, error)

	// Join is the ordinary incremental pairwise equi-join, materializing both
	// sides (and hence, when chained, every intermediate pairwise result) as
	// engine-owned state. The delta-join construction never calls it; it
	// exists for the baseline oracle.
	Join(left, right Stream, leftKey, rightKey Extractor, combine Combiner) (Stream, error)

	// Concat merges streams with multiplicities summed downstream by
	// consumers.
	Concat(streams ...Stream) (Stream, error)
}
