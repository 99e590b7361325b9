// Package delta constructs incrementally maintained multi-way equi-joins over
// weighted change streams, without materializing pairwise intermediate join
// results. The construction follows the delta-join technique: each input
// relation gets its own "delta path", a chain of half-joins against the other
// relations' arrangements, and the per-relation paths are concatenated into
// the final output stream.
//
// The package is a pure graph construction. All state (arrangements, i.e.
// key-indexed snapshots of a relation's change history) is owned by an
// external execution engine supplied through the Engine interface; package
// memengine ships a single-process in-memory reference engine.
//
// Key components:
//   - Document / ZSet: records and weighted multisets with canonical-JSON identity.
//   - Chain: the declared relation chain with its join edges; declaration
//     order doubles as the priority order used to break timestamp ties.
//   - Engine / Arrangement / Stream: the contract the execution engine provides.
//   - Build: assembles the baseline, delta, or late-materialized delta variant.
//
// Tie-breaking: when two joined relations change at the same logical time,
// exactly one of the two delta paths may count the combination. The path of
// the higher-priority relation sees the other side's simultaneous update
// (visibility predicate "entry <= probe"); the lower-priority path does not
// ("entry < probe"). This yields exactly one contribution per true change.
//
// Example usage:
//
//	chain, err := delta.NewChain(relations, edges)
//	out, err := delta.Build(engine, chain, inputs, delta.ModeDelta)
package delta
