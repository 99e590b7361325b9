package memengine

import (
	"fmt"

	"github.com/l7mp/deltajoin/pkg/delta"
)

// mapNode applies a document transformation to every change.
type mapNode struct {
	nodeBase
	in     streamNode
	fn     delta.Mapper
	outBuf []delta.Change
}

// Map implements delta.Engine.
func (e *Engine) Map(s delta.Stream, fn delta.Mapper) (delta.Stream, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	in, err := e.resolve(s)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("map without a mapper")
	}

	n := &mapNode{nodeBase: e.base(), in: in, fn: fn}
	e.addNode(n)
	return n, nil
}

func (n *mapNode) tick(t delta.Time) error {
	n.outBuf = nil
	for _, c := range n.in.output() {
		doc, err := n.fn(c.Doc)
		if err != nil {
			return fmt.Errorf("map failed: %w", err)
		}
		if doc == nil {
			continue
		}
		n.outBuf = append(n.outBuf, delta.Change{Doc: doc, Time: c.Time, Mult: c.Mult})
	}
	return nil
}

func (n *mapNode) output() []delta.Change { return n.outBuf }

// halfJoinNode probes an arrangement with every incoming change, keeping
// matches admitted by the visibility predicate and stamping results with the
// probing change's time.
type halfJoinNode struct {
	nodeBase
	in       streamNode
	arr      *Arrangement
	probe    delta.Extractor
	frontier delta.FrontierFunc
	visible  delta.VisibleFunc
	combine  delta.Combiner
	outBuf   []delta.Change
}

// HalfJoin implements delta.Engine.
func (e *Engine) HalfJoin(s delta.Stream, arr delta.Arrangement, probe delta.Extractor,
	frontier delta.FrontierFunc, visible delta.VisibleFunc, combine delta.Combiner,
) (delta.Stream, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	in, err := e.resolve(s)
	if err != nil {
		return nil, err
	}
	marr, ok := arr.(*Arrangement)
	if !ok || marr.eng != e {
		return nil, fmt.Errorf("arrangement handle does not belong to this engine")
	}
	if probe == nil || frontier == nil || visible == nil || combine == nil {
		return nil, fmt.Errorf("half-join with a missing component")
	}

	n := &halfJoinNode{
		nodeBase: e.base(),
		in:       in,
		arr:      marr,
		probe:    probe,
		frontier: frontier,
		visible:  visible,
		combine:  combine,
	}
	e.addNode(n)
	return n, nil
}

func (n *halfJoinNode) tick(t delta.Time) error {
	n.outBuf = nil
	for _, c := range n.in.output() {
		if f := n.frontier(c.Time); f > t {
			return fmt.Errorf("half-join probe at time %d wants frontier %d beyond engine progress %d",
				c.Time, f, t)
		}

		kv, err := n.probe.Extract(c.Doc)
		if err != nil {
			return fmt.Errorf("half-join probe key: %w", err)
		}
		ks, err := delta.ValueKey(kv)
		if err != nil {
			return fmt.Errorf("half-join probe key: %w", err)
		}

		list := n.arr.lookup(ks)
		if list == nil {
			continue
		}
		itr := list.Iterator()
		for !itr.Done() {
			_, entry := itr.Next()
			if !n.visible(entry.time, c.Time) {
				continue
			}
			doc, err := n.combine(kv, c.Doc, entry.doc)
			if err != nil {
				return fmt.Errorf("half-join combine: %w", err)
			}
			n.outBuf = append(n.outBuf, delta.Change{Doc: doc, Time: c.Time, Mult: c.Mult * entry.mult})
		}
	}
	return nil
}

func (n *halfJoinNode) output() []delta.Change { return n.outBuf }

// joinNode is the ordinary incremental pairwise equi-join. Both sides are
// integrated into keyed Z-sets and the tick output is the bilinear expansion
// ΔL⋈R + L⋈ΔR + ΔL⋈ΔR over the pre-tick states.
type joinNode struct {
	nodeBase
	left, right       streamNode
	leftKey, rightKey delta.Extractor
	combine           delta.Combiner
	leftState         map[string]*delta.ZSet
	rightState        map[string]*delta.ZSet
	outBuf            []delta.Change
}

// Join implements delta.Engine.
func (e *Engine) Join(left, right delta.Stream, leftKey, rightKey delta.Extractor,
	combine delta.Combiner,
) (delta.Stream, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	ln, err := e.resolve(left)
	if err != nil {
		return nil, err
	}
	rn, err := e.resolve(right)
	if err != nil {
		return nil, err
	}
	if leftKey == nil || rightKey == nil || combine == nil {
		return nil, fmt.Errorf("join with a missing component")
	}

	n := &joinNode{
		nodeBase:   e.base(),
		left:       ln,
		right:      rn,
		leftKey:    leftKey,
		rightKey:   rightKey,
		combine:    combine,
		leftState:  make(map[string]*delta.ZSet),
		rightState: make(map[string]*delta.ZSet),
	}
	e.addNode(n)
	return n, nil
}

func (n *joinNode) tick(t delta.Time) error {
	n.outBuf = nil

	dl := n.left.output()
	dr := n.right.output()

	// ΔL ⋈ R (pre-tick state)
	for _, c := range dl {
		if err := n.joinAgainstState(c, n.leftKey, n.rightState, false, t); err != nil {
			return err
		}
	}
	// L (pre-tick state) ⋈ ΔR
	for _, c := range dr {
		if err := n.joinAgainstState(c, n.rightKey, n.leftState, true, t); err != nil {
			return err
		}
	}
	// ΔL ⋈ ΔR
	for _, lc := range dl {
		lk, lks, err := extractKey(n.leftKey, lc.Doc)
		if err != nil {
			return err
		}
		for _, rc := range dr {
			_, rks, err := extractKey(n.rightKey, rc.Doc)
			if err != nil {
				return err
			}
			if lks != rks {
				continue
			}
			doc, err := n.combine(lk, lc.Doc, rc.Doc)
			if err != nil {
				return fmt.Errorf("join combine: %w", err)
			}
			n.outBuf = append(n.outBuf, delta.Change{Doc: doc, Time: t, Mult: lc.Mult * rc.Mult})
		}
	}

	// Integrate this tick's deltas for the next one.
	if err := integrate(n.leftState, n.leftKey, dl); err != nil {
		return err
	}
	return integrate(n.rightState, n.rightKey, dr)
}

// joinAgainstState joins one delta change against the other side's integrated
// state. swapped is true when the change comes from the right input.
func (n *joinNode) joinAgainstState(c delta.Change, key delta.Extractor,
	state map[string]*delta.ZSet, swapped bool, t delta.Time,
) error {
	kv, ks, err := extractKey(key, c.Doc)
	if err != nil {
		return err
	}
	zs := state[ks]
	if zs == nil {
		return nil
	}
	for _, entry := range zs.Entries() {
		left, right := c.Doc, entry.Document
		if swapped {
			left, right = entry.Document, c.Doc
		}
		doc, err := n.combine(kv, left, right)
		if err != nil {
			return fmt.Errorf("join combine: %w", err)
		}
		n.outBuf = append(n.outBuf, delta.Change{Doc: doc, Time: t, Mult: c.Mult * entry.Multiplicity})
	}
	return nil
}

func (n *joinNode) output() []delta.Change { return n.outBuf }

func extractKey(key delta.Extractor, doc delta.Document) (any, string, error) {
	kv, err := key.Extract(doc)
	if err != nil {
		return nil, "", fmt.Errorf("join key: %w", err)
	}
	ks, err := delta.ValueKey(kv)
	if err != nil {
		return nil, "", fmt.Errorf("join key: %w", err)
	}
	return kv, ks, nil
}

func integrate(state map[string]*delta.ZSet, key delta.Extractor, changes []delta.Change) error {
	for _, c := range changes {
		_, ks, err := extractKey(key, c.Doc)
		if err != nil {
			return err
		}
		if state[ks] == nil {
			state[ks] = delta.NewZSet()
		}
		if err := state[ks].AddDocumentMutate(c.Doc, c.Mult); err != nil {
			return fmt.Errorf("join state: %w", err)
		}
	}
	return nil
}

// concatNode merges streams; multiplicities are summed downstream by
// consumers.
type concatNode struct {
	nodeBase
	ins    []streamNode
	outBuf []delta.Change
}

// Concat implements delta.Engine.
func (e *Engine) Concat(streams ...delta.Stream) (delta.Stream, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("concat without inputs")
	}

	ins := make([]streamNode, len(streams))
	for i, s := range streams {
		in, err := e.resolve(s)
		if err != nil {
			return nil, err
		}
		ins[i] = in
	}

	n := &concatNode{nodeBase: e.base(), ins: ins}
	e.addNode(n)
	return n, nil
}

func (n *concatNode) tick(t delta.Time) error {
	n.outBuf = nil
	for _, in := range n.ins {
		n.outBuf = append(n.outBuf, in.output()...)
	}
	return nil
}

func (n *concatNode) output() []delta.Change { return n.outBuf }
