package memengine

import (
	"fmt"

	"github.com/l7mp/deltajoin/pkg/delta"
)

// Collector is a sink that accumulates a stream's change events. Each tick's
// output is consolidated (multiplicities of identical documents summed, zero
// entries dropped) and appended in canonical document order, so the collected
// stream is deterministic regardless of map iteration order inside the
// engine.
type Collector struct {
	nodeBase
	in      streamNode
	changes []delta.Change
}

// Collect attaches a collector to a stream.
func (e *Engine) Collect(s delta.Stream) (*Collector, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	in, err := e.resolve(s)
	if err != nil {
		return nil, err
	}

	c := &Collector{nodeBase: e.base(), in: in}
	e.addNode(c)
	return c, nil
}

func (c *Collector) tick(t delta.Time) error {
	buf := c.in.output()
	if len(buf) == 0 {
		return nil
	}

	consolidated := delta.NewZSet()
	for _, change := range buf {
		if change.Time != t {
			return fmt.Errorf("collector saw change at time %d during tick %d", change.Time, t)
		}
		if err := consolidated.AddDocumentMutate(change.Doc, change.Mult); err != nil {
			return fmt.Errorf("collector consolidation: %w", err)
		}
	}

	for _, entry := range consolidated.Entries() {
		c.changes = append(c.changes, delta.Change{
			Doc:  entry.Document,
			Time: t,
			Mult: entry.Multiplicity,
		})
	}
	return nil
}

// Changes returns the collected change stream.
func (c *Collector) Changes() []delta.Change {
	result := make([]delta.Change, len(c.changes))
	copy(result, c.changes)
	return result
}

// Accumulate sums the collected changes with time at or below asOf into a
// Z-set: the multiset state of the stream as of that time.
func (c *Collector) Accumulate(asOf delta.Time) (*delta.ZSet, error) {
	result := delta.NewZSet()
	for _, change := range c.changes {
		if change.Time > asOf {
			continue
		}
		if err := result.AddDocumentMutate(change.Doc, change.Mult); err != nil {
			return nil, fmt.Errorf("failed to accumulate change %s: %w", change, err)
		}
	}
	return result, nil
}
