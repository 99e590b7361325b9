// Package memengine is a single-process, in-memory reference implementation
// of the delta.Engine contract. It exists so the delta-join construction can
// be exercised and tested without a production dataflow system.
//
// The engine evaluates whole logical timestamps in ascending order, one tick
// at a time, visiting nodes in construction order (a producer is always
// constructed before its consumers, so construction order is a topological
// order). An arrangement ingests a tick's changes before any half-join probes
// it, which makes the strict and non-strict visibility predicates exact.
//
// Arrangement state lives in immutable maps, so a reader always sees a
// consistent point-in-time snapshot and ingestion never invalidates one.
package memengine
