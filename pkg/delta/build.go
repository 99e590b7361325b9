package delta

import "fmt"

// Mode selects the memory-vs-compute trade-off of the construction.
type Mode int

const (
	// ModeBaseline wires ordinary incremental pairwise joins, materializing
	// every intermediate pairwise result. Correctness oracle only.
	ModeBaseline Mode = iota
	// ModeDelta wires one delta path per relation over full-record
	// arrangements.
	ModeDelta
	// ModeDeltaLateMaterialized is ModeDelta with key-only secondary
	// arrangements and an extra resolve half-join per traversal, trading one
	// more join step for an index footprint independent of non-key column
	// width.
	ModeDeltaLateMaterialized
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBaseline:
		return "baseline"
	case ModeDelta:
		return "delta"
	case ModeDeltaLateMaterialized:
		return "delta-late-materialized"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Build constructs the incremental join dataflow for the chain on the given
// engine and returns the output stream of join-result tuples. Each output
// change carries a tuple document with one component per relation, stamped
// with the originating change's time and the product of the matched
// multiplicities. inputs must supply exactly one stream per chain relation.
//
// Build is a pure construction: it fails with a *BuildError or succeeds once,
// and holds no state afterwards.
func Build(eng Engine, chain *Chain, inputs map[string]Stream, mode Mode) (Stream, error) {
	if eng == nil {
		return nil, newBuildError("no engine", nil)
	}
	if chain == nil {
		return nil, newBuildError("no join chain", nil)
	}
	if err := checkInputs(chain, inputs); err != nil {
		return nil, err
	}

	switch mode {
	case ModeBaseline:
		return buildBaseline(eng, chain, inputs)
	case ModeDelta:
		return buildDelta(eng, chain, inputs, false)
	case ModeDeltaLateMaterialized:
		return buildDelta(eng, chain, inputs, true)
	default:
		return nil, newBuildError(fmt.Sprintf("unknown mode %d", int(mode)), nil)
	}
}

func checkInputs(chain *Chain, inputs map[string]Stream) error {
	for _, rel := range chain.Relations() {
		if inputs[rel.Name] == nil {
			return newBuildError(fmt.Sprintf("no input stream for relation %q", rel.Name), nil)
		}
	}
	for name := range inputs {
		if chain.Position(name) < 0 {
			return newBuildError(fmt.Sprintf("input stream %q matches no chain relation", name), nil)
		}
	}
	return nil
}

// buildDelta assembles one delta path per relation and concatenates them.
// The concatenation is a plain stream merge: the paths contribute disjoint
// (time, cause) pairs by construction, so no deduplication is needed or
// permitted.
func buildDelta(eng Engine, chain *Chain, inputs map[string]Stream, lateMat bool) (Stream, error) {
	plan, err := planArrangements(eng, chain, inputs, lateMat)
	if err != nil {
		return nil, err
	}
	prio := newPriorityTable(chain)

	paths := make([]Stream, chain.Len())
	for i := 0; i < chain.Len(); i++ {
		paths[i], err = buildDeltaPath(eng, chain, plan, prio, inputs, i)
		if err != nil {
			return nil, err
		}
	}

	out, err := eng.Concat(paths...)
	if err != nil {
		return nil, newBuildError("failed to concatenate delta paths", err)
	}
	return out, nil
}

// buildBaseline folds the chain with ordinary incremental pairwise joins,
// letting the engine materialize each intermediate pairwise result.
func buildBaseline(eng Engine, chain *Chain, inputs map[string]Stream) (Stream, error) {
	first := chain.Relation(0)
	cur, err := eng.Map(inputs[first.Name], wrapRecord(first.Name))
	if err != nil {
		return nil, newBuildError(fmt.Sprintf("failed to wrap %q changes", first.Name), err)
	}

	for i := 1; i < chain.Len(); i++ {
		edge := chain.Edge(i - 1)
		rel := chain.Relation(i)

		right, err := eng.Map(inputs[rel.Name], wrapRecord(rel.Name))
		if err != nil {
			return nil, newBuildError(fmt.Sprintf("failed to wrap %q changes", rel.Name), err)
		}

		cur, err = eng.Join(cur, right,
			TupleKey(edge.Left, edge.LeftKey), TupleKey(edge.Right, edge.RightKey), mergeTuples)
		if err != nil {
			return nil, newBuildError(fmt.Sprintf("failed to build baseline join against %q", rel.Name), err)
		}
	}

	return cur, nil
}
