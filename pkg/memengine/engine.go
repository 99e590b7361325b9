package memengine

import (
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/l7mp/deltajoin/pkg/delta"
)

// node is one evaluation step of the dataflow graph. Nodes are ticked once
// per logical time, in construction order.
type node interface {
	tick(t delta.Time) error
}

// streamNode is a node producing a change stream: its per-tick output delta.
type streamNode interface {
	node
	engine() *Engine
	output() []delta.Change
}

// nodeBase ties a node to its owning engine.
type nodeBase struct {
	eng *Engine
	id  int
}

func (b *nodeBase) engine() *Engine { return b.eng }

// Engine is the in-memory reference engine. It owns every node, arrangement
// and change buffer; the delta package only ever holds opaque handles into
// it.
type Engine struct {
	log          logr.Logger
	nodes        []node
	sources      []*Source
	arrangements []*Arrangement
	frontier     delta.Time // all times strictly below are fully processed
	started      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an empty reference engine.
func New(opts ...Option) *Engine {
	e := &Engine{log: logr.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Arrangements returns every arrangement the engine maintains, in creation
// order. Useful for inspecting index footprints.
func (e *Engine) Arrangements() []*Arrangement {
	result := make([]*Arrangement, len(e.arrangements))
	copy(result, e.arrangements)
	return result
}

// Frontier returns the engine's input frontier: every change strictly below
// it has been fully processed.
func (e *Engine) Frontier() delta.Time { return e.frontier }

func (e *Engine) addNode(n node) {
	e.nodes = append(e.nodes, n)
}

func (e *Engine) base() nodeBase {
	return nodeBase{eng: e, id: len(e.nodes)}
}

// checkExtendable rejects graph construction once the engine has processed a
// tick: a node added later would have missed history.
func (e *Engine) checkExtendable() error {
	if e.started {
		return fmt.Errorf("cannot extend a dataflow the engine already ran")
	}
	return nil
}

// resolve checks that a stream handle is one of ours.
func (e *Engine) resolve(s delta.Stream) (streamNode, error) {
	n, ok := s.(streamNode)
	if !ok {
		return nil, fmt.Errorf("stream handle of type %T is not a memengine stream", s)
	}
	if n.engine() != e {
		return nil, fmt.Errorf("stream handle belongs to a different engine")
	}
	return n, nil
}

// Run processes every pushed change, one whole timestamp per tick in
// ascending time order, and advances the frontier past the largest processed
// time. Run may be called repeatedly, interleaved with further pushes at or
// above the frontier.
func (e *Engine) Run() error {
	e.started = true

	timeSet := make(map[delta.Time]bool)
	for _, src := range e.sources {
		for t := range src.takePending() {
			timeSet[t] = true
		}
	}

	times := make([]delta.Time, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	for _, t := range times {
		e.log.V(1).Info("processing tick", "time", t)
		for _, n := range e.nodes {
			if err := n.tick(t); err != nil {
				return fmt.Errorf("tick %d failed: %w", t, err)
			}
		}
		e.frontier = t + 1
	}

	e.log.V(1).Info("run complete", "frontier", e.frontier, "ticks", len(times))
	return nil
}
