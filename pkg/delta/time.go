package delta

// Time is a totally ordered logical timestamp. The integer instantiation is
// all the delta-join construction needs; richer time types (vector clocks,
// multi-dimensional versions) only have to supply an equivalent immediate
// predecessor along the relevant dimension.
type Time uint64

// StepBack returns the immediate predecessor of t, saturating at the domain
// minimum.
func (t Time) StepBack() Time {
	if t == 0 {
		return 0
	}
	return t - 1
}

// FrontierFunc converts an event's own time into the frontier at which the
// other side's arrangement is read for that event: "the other relation's
// state as of just-before-this-event's-time".
type FrontierFunc func(Time) Time

// StepBackFrontier is the frontier function used by every half-join step of
// the delta-join construction. Whether a simultaneous update on the probed
// side is visible is decided by the visibility predicate, not the frontier.
func StepBackFrontier(t Time) Time { return t.StepBack() }

// VisibleFunc decides whether a matched arrangement entry (at time entry)
// is visible to a probing change event (at time probe).
type VisibleFunc func(entry, probe Time) bool

// TiesVisible admits entries up to and including the probing event's own
// time. Used when the probing relation has the higher priority of the pair.
func TiesVisible(entry, probe Time) bool { return entry <= probe }

// TiesInvisible admits only entries strictly before the probing event's time.
// Used when the probing relation has the lower priority of the pair, so that
// a simultaneous update is counted by the other relation's path instead.
func TiesInvisible(entry, probe Time) bool { return entry < probe }
