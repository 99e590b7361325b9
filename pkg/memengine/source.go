package memengine

import (
	"fmt"

	"github.com/l7mp/deltajoin/pkg/delta"
)

// Source is a feedable input stream. The handle doubles as the delta.Stream
// passed to the construction.
type Source struct {
	nodeBase
	name    string
	pending []delta.Change
	staged  map[delta.Time][]delta.Change
	outBuf  []delta.Change
}

// Source creates a named input stream. All sources must be created before the
// engine first runs.
func (e *Engine) Source(name string) (*Source, error) {
	if err := e.checkExtendable(); err != nil {
		return nil, err
	}
	src := &Source{
		nodeBase: e.base(),
		name:     name,
		staged:   make(map[delta.Time][]delta.Change),
	}
	e.addNode(src)
	e.sources = append(e.sources, src)
	return src, nil
}

// Name returns the source name.
func (s *Source) Name() string { return s.name }

// Push buffers change events for the next run. Changes below the engine's
// frontier are rejected: that part of the timeline has already been processed.
func (s *Source) Push(changes ...delta.Change) error {
	for _, c := range changes {
		if c.Doc == nil {
			return fmt.Errorf("source %q: change without a document", s.name)
		}
		if c.Time < s.eng.frontier {
			return fmt.Errorf("source %q: change at time %d is below the frontier %d",
				s.name, c.Time, s.eng.frontier)
		}
	}
	for _, c := range changes {
		c.Doc = delta.DeepCopyDocument(c.Doc)
		s.pending = append(s.pending, c)
	}
	return nil
}

// takePending stages buffered changes for tick processing and returns the
// staged timeline.
func (s *Source) takePending() map[delta.Time][]delta.Change {
	for _, c := range s.pending {
		s.staged[c.Time] = append(s.staged[c.Time], c)
	}
	s.pending = nil
	return s.staged
}

func (s *Source) tick(t delta.Time) error {
	s.outBuf = s.staged[t]
	delete(s.staged, t)
	return nil
}

func (s *Source) output() []delta.Change { return s.outBuf }
