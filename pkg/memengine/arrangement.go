package memengine

import (
	"fmt"

	"github.com/benbjohnson/immutable"

	"github.com/l7mp/deltajoin/pkg/delta"
)

// indexedEntry is one versioned, weighted value of an arrangement.
type indexedEntry struct {
	doc  delta.Document
	time delta.Time
	mult int
}

// Arrangement is an engine-owned index from a join key to the versioned,
// weighted values of one change stream. State lives in immutable maps and
// lists: ingestion produces a new version, so a snapshot taken before a tick
// stays valid while the tick runs.
type Arrangement struct {
	nodeBase
	in      streamNode
	key     delta.Extractor
	entries *immutable.Map[string, *immutable.List[indexedEntry]]
	size    int
}

// Arrange implements delta.Engine.
func (e *Engine) Arrange(s delta.Stream, key delta.Extractor) (delta.Arrangement, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	in, err := e.resolve(s)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("arrangement without a key extractor")
	}

	arr := &Arrangement{
		nodeBase: e.base(),
		in:       in,
		key:      key,
		entries:  immutable.NewMap[string, *immutable.List[indexedEntry]](nil),
	}
	e.addNode(arr)
	e.arrangements = append(e.arrangements, arr)
	return arr, nil
}

// Key implements delta.Arrangement.
func (a *Arrangement) Key() delta.Extractor { return a.key }

// tick ingests the tick's input changes. Ingestion precedes every probe of
// the same tick because half-join nodes are constructed after the
// arrangements they probe.
func (a *Arrangement) tick(t delta.Time) error {
	for _, c := range a.in.output() {
		kv, err := a.key.Extract(c.Doc)
		if err != nil {
			return fmt.Errorf("arrangement by %q: %w", a.key, err)
		}
		ks, err := delta.ValueKey(kv)
		if err != nil {
			return fmt.Errorf("arrangement by %q: %w", a.key, err)
		}

		list, ok := a.entries.Get(ks)
		if !ok {
			list = immutable.NewList[indexedEntry]()
		}
		list = list.Append(indexedEntry{doc: c.Doc, time: c.Time, mult: c.Mult})
		a.entries = a.entries.Set(ks, list)
		a.size++
	}
	return nil
}

// lookup returns the entries indexed under the canonical key.
func (a *Arrangement) lookup(ks string) *immutable.List[indexedEntry] {
	list, ok := a.entries.Get(ks)
	if !ok {
		return nil
	}
	return list
}

// IndexEntry is an introspection view of one arrangement entry.
type IndexEntry struct {
	Key  string
	Doc  delta.Document
	Time delta.Time
	Mult int
}

// Entries returns a copy of every entry in the arrangement. Introspection
// only; not part of the engine contract.
func (a *Arrangement) Entries() []IndexEntry {
	result := make([]IndexEntry, 0, a.size)
	itr := a.entries.Iterator()
	for !itr.Done() {
		ks, list, _ := itr.Next()
		litr := list.Iterator()
		for !litr.Done() {
			_, entry := litr.Next()
			result = append(result, IndexEntry{
				Key:  ks,
				Doc:  delta.DeepCopyDocument(entry.doc),
				Time: entry.time,
				Mult: entry.mult,
			})
		}
	}
	return result
}

// EntryCount returns the total number of entries in the arrangement.
func (a *Arrangement) EntryCount() int { return a.size }
