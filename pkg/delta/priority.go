package delta

// priorityTable derives, for every ordered relation pair, the visibility
// predicate of the pair's half-join from the one total priority order. A
// single mechanical derivation avoids inconsistent predicate choices at
// different join edges.
type priorityTable struct {
	chain *Chain
}

func newPriorityTable(chain *Chain) *priorityTable {
	return &priorityTable{chain: chain}
}

// tieVisible reports whether the path of the relation at position probe may
// see a simultaneous update of the relation at position target. Exactly one
// of tieVisible(a, b) and tieVisible(b, a) holds for any pair, which is what
// guarantees exactly one contribution per simultaneous change.
func (p *priorityTable) tieVisible(probe, target int) bool {
	return probe > target
}

// visible returns the visibility predicate for the half-join of the delta
// path of the relation at position probe against the arrangement of the
// relation at position target.
func (p *priorityTable) visible(probe, target int) VisibleFunc {
	if p.tieVisible(probe, target) {
		return TiesVisible
	}
	return TiesInvisible
}
