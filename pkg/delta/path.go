package delta

import "fmt"

// plannedArrangement is one arrangement a delta path may probe. Secondary
// arrangements carry key-only values and need a resolve step against the
// relation's primary arrangement to recover the full record.
type plannedArrangement struct {
	arr       Arrangement
	secondary bool
}

// arrangementPlan holds the arrangements of every relation, indexed by chain
// position and join-key identity.
type arrangementPlan struct {
	byKey   []map[string]plannedArrangement
	primary []Arrangement
}

// planArrangements builds one arrangement per (relation, join key) pair. With
// late materialization enabled, a relation probed by more than one key gets a
// full-record arrangement only for its primary key; every other arrangement
// stores just the key pair (join key, primary key), so its per-entry footprint
// is independent of the relation's non-key column width.
func planArrangements(eng Engine, chain *Chain, inputs map[string]Stream, lateMat bool) (*arrangementPlan, error) {
	plan := &arrangementPlan{
		byKey:   make([]map[string]plannedArrangement, chain.Len()),
		primary: make([]Arrangement, chain.Len()),
	}

	for i := 0; i < chain.Len(); i++ {
		rel := chain.Relation(i)
		input := inputs[rel.Name]
		plan.byKey[i] = make(map[string]plannedArrangement)

		keys := dedupExtractors(chain.joinKeys(i))

		if !lateMat || len(keys) < 2 {
			for _, key := range keys {
				arr, err := eng.Arrange(input, key)
				if err != nil {
					return nil, newBuildError(fmt.Sprintf("failed to arrange %q by %q", rel.Name, key), err)
				}
				plan.byKey[i][key.String()] = plannedArrangement{arr: arr}
			}
			continue
		}

		// Late materialization: split this relation into one full-record
		// primary arrangement and key-only secondaries.
		pk, ok := rel.Key.(*FieldExtractor)
		if !ok {
			return nil, newBuildError(fmt.Sprintf(
				"late materialization requires a named primary-key field for relation %q, got key %q",
				rel.Name, rel.Key), nil)
		}

		primary, err := eng.Arrange(input, pk)
		if err != nil {
			return nil, newBuildError(fmt.Sprintf("failed to arrange %q by primary key %q", rel.Name, pk), err)
		}
		plan.primary[i] = primary
		plan.byKey[i][pk.String()] = plannedArrangement{arr: primary}

		for _, key := range keys {
			if key.String() == pk.String() {
				continue
			}
			kf, ok := key.(*FieldExtractor)
			if !ok {
				return nil, newBuildError(fmt.Sprintf(
					"late materialization requires a named join-key field for relation %q, got key %q",
					rel.Name, key), nil)
			}

			refs, err := eng.Map(input, keyRefProjection(kf, pk))
			if err != nil {
				return nil, newBuildError(fmt.Sprintf("failed to project %q key references", rel.Name), err)
			}
			arr, err := eng.Arrange(refs, kf)
			if err != nil {
				return nil, newBuildError(fmt.Sprintf("failed to arrange %q by secondary key %q", rel.Name, kf), err)
			}
			plan.byKey[i][kf.String()] = plannedArrangement{arr: arr, secondary: true}
		}
	}

	return plan, nil
}

// lookup returns the planned arrangement of the relation at position target
// for the given join key, validating that the arrangement was in fact built
// with that key.
func (p *arrangementPlan) lookup(chain *Chain, target int, key Extractor) (plannedArrangement, error) {
	pa, ok := p.byKey[target][key.String()]
	if !ok {
		return plannedArrangement{}, newBuildError(fmt.Sprintf(
			"relation %q has no arrangement keyed by %q", chain.Relation(target).Name, key), nil)
	}
	if pa.arr.Key().String() != key.String() {
		return plannedArrangement{}, newBuildError(fmt.Sprintf(
			"arrangement key mismatch for relation %q: arranged by %q, probed by %q",
			chain.Relation(target).Name, pa.arr.Key(), key), nil)
	}
	return pa, nil
}

// buildDeltaPath composes the chain of half-joins reproducing the share of
// join-result changes attributable to changes of the relation at position
// origin. The path walks toward the chain head first, then toward the tail,
// so every step joins a relation adjacent to the span covered so far; the
// visibility predicate of each step depends only on the priority order, never
// on the walk direction.
func buildDeltaPath(eng Engine, chain *Chain, plan *arrangementPlan, prio *priorityTable,
	inputs map[string]Stream, origin int,
) (Stream, error) {
	rel := chain.Relation(origin)

	cur, err := eng.Map(inputs[rel.Name], wrapRecord(rel.Name))
	if err != nil {
		return nil, newBuildError(fmt.Sprintf("failed to wrap %q changes", rel.Name), err)
	}

	for target := origin - 1; target >= 0; target-- {
		cur, err = halfJoinStep(eng, chain, plan, prio, cur, origin, target, target+1)
		if err != nil {
			return nil, err
		}
	}
	for target := origin + 1; target < chain.Len(); target++ {
		cur, err = halfJoinStep(eng, chain, plan, prio, cur, origin, target, target-1)
		if err != nil {
			return nil, err
		}
	}

	return cur, nil
}

// halfJoinStep extends the partial tuple stream cur with the relation at
// position target, probing through its edge with the already covered neighbor
// position.
func halfJoinStep(eng Engine, chain *Chain, plan *arrangementPlan, prio *priorityTable,
	cur Stream, origin, target, neighbor int,
) (Stream, error) {
	var edge Edge
	var targetKey, neighborKey Extractor
	if target > neighbor {
		edge = chain.Edge(neighbor)
		targetKey, neighborKey = edge.RightKey, edge.LeftKey
	} else {
		edge = chain.Edge(target)
		targetKey, neighborKey = edge.LeftKey, edge.RightKey
	}

	targetRel := chain.Relation(target)
	pa, err := plan.lookup(chain, target, targetKey)
	if err != nil {
		return nil, err
	}

	probe := TupleKey(chain.Relation(neighbor).Name, neighborKey)
	out, err := eng.HalfJoin(cur, pa.arr, probe, StepBackFrontier,
		prio.visible(origin, target), setComponent(targetRel.Name))
	if err != nil {
		return nil, newBuildError(fmt.Sprintf("failed to build half-join of %q path against %q",
			chain.Relation(origin).Name, targetRel.Name), err)
	}

	if !pa.secondary {
		return out, nil
	}

	// The step above matched a key-only reference; one extra half-join
	// against the primary arrangement resolves it into the full record. The
	// resolve reuses the pair's visibility predicate: secondary and primary
	// entries of one input change carry the same timestamp, so both steps
	// must select the same slice of the relation's history, or a same-time
	// re-point resolves a strictly-earlier reference against its own-time
	// primary entries.
	resolveProbe := TupleKey(targetRel.Name, targetRel.Key)
	out, err = eng.HalfJoin(out, plan.primary[target], resolveProbe, StepBackFrontier,
		prio.visible(origin, target), setComponent(targetRel.Name))
	if err != nil {
		return nil, newBuildError(fmt.Sprintf("failed to build resolve half-join of %q path against %q",
			chain.Relation(origin).Name, targetRel.Name), err)
	}
	return out, nil
}

// wrapRecord lifts a raw record change into a single-component join tuple.
func wrapRecord(name string) Mapper {
	return func(doc Document) (Document, error) {
		return Document{name: DeepCopyDocument(doc)}, nil
	}
}

// setComponent merges a matched record (or key reference) into the partial
// tuple under the given relation name.
func setComponent(name string) Combiner {
	return func(_ any, tuple, matched Document) (Document, error) {
		out := DeepCopyDocument(tuple)
		out[name] = DeepCopyDocument(matched)
		return out, nil
	}
}

// mergeTuples merges two partial tuples with disjoint components. Used by the
// baseline pairwise join.
func mergeTuples(_ any, left, right Document) (Document, error) {
	out := DeepCopyDocument(left)
	for name, component := range right {
		if _, exists := out[name]; exists {
			return nil, newBuildError(fmt.Sprintf("join tuples share component %q", name), nil)
		}
		out[name] = deepCopy(component)
	}
	return out, nil
}

// keyRefProjection projects a record onto its (join key, primary key) pair,
// the entire content of a late-materialized secondary arrangement entry.
func keyRefProjection(key, pk *FieldExtractor) Mapper {
	return func(doc Document) (Document, error) {
		kv, err := key.Extract(doc)
		if err != nil {
			return nil, err
		}
		pkv, err := pk.Extract(doc)
		if err != nil {
			return nil, err
		}
		return Document{key.Name(): kv, pk.Name(): pkv}, nil
	}
}

// dedupExtractors drops extractors with duplicate identities, keeping order.
func dedupExtractors(keys []Extractor) []Extractor {
	seen := make(map[string]bool, len(keys))
	var result []Extractor
	for _, key := range keys {
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		result = append(result, key)
	}
	return result
}
