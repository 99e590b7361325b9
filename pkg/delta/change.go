package delta

import "fmt"

// Change is a single change event: a record (or join tuple) entering or
// leaving a collection at a logical time with a signed multiplicity. The
// current state of a collection at time t is the multiset obtained by summing
// the multiplicities of all changes with time <= t.
type Change struct {
	Doc  Document
	Time Time
	Mult int
}

// Insert returns a +1 change for doc at time t.
func Insert(doc Document, t Time) Change {
	return Change{Doc: doc, Time: t, Mult: 1}
}

// Delete returns a -1 change for doc at time t. The caller is responsible for
// only deleting previously inserted records; the construction does not
// validate upstream multiplicities.
func Delete(doc Document, t Time) Change {
	return Change{Doc: doc, Time: t, Mult: -1}
}

// String returns a compact representation for debugging.
func (c Change) String() string {
	return fmt.Sprintf("(%v @%d ×%+d)", c.Doc, c.Time, c.Mult)
}
