package metrics

import "go.uber.org/atomic"

// Process-wide counters for the volume each preprocessing stage produces.
// Safe to increment concurrently (component C fans out with errgroup, and
// component K's callback increments LazyCutsAdded from the solver's own
// thread of control).
var (
	SequencesGenerated = atomic.NewInt64(0)
	PairsGenerated = atomic.NewInt64(0)
	UntimedArcsBuilt = atomic.NewInt64(0)
	NodesGenerated = atomic.NewInt64(0)
	TimedArcsBuilt = atomic.NewInt64(0)
	ValidInequalitiesAdded = atomic.NewInt64(0)
	LazyCutsAdded = atomic.NewInt64(0)
)

// Snapshot is a point-in-time read of every counter, for logging at the end
// of a solve.
type Snapshot struct {
	SequencesGenerated int64
	PairsGenerated int64
	UntimedArcsBuilt int64
	NodesGenerated int64
	TimedArcsBuilt int64
	ValidInequalitiesAdded int64
	LazyCutsAdded int64
}

func Snap() Snapshot {
	return Snapshot{
		SequencesGenerated: SequencesGenerated.Load(),
		PairsGenerated: PairsGenerated.Load(),
		UntimedArcsBuilt: UntimedArcsBuilt.Load(),
		NodesGenerated: NodesGenerated.Load(),
		TimedArcsBuilt: TimedArcsBuilt.Load(),
		ValidInequalitiesAdded: ValidInequalitiesAdded.Load(),
		LazyCutsAdded: LazyCutsAdded.Load(),
	}
}

// Reset zeroes every counter. Used between independent solves in the same
// process (e.g. test suites, or the HTTP service handling many requests).
func Reset() {
	SequencesGenerated.Store(0)
	PairsGenerated.Store(0)
	UntimedArcsBuilt.Store(0)
	NodesGenerated.Store(0)
	TimedArcsBuilt.Store(0)
	ValidInequalitiesAdded.Store(0)
	LazyCutsAdded.Store(0)
}
