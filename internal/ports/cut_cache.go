package ports

import "context"

// A LazyCut is a linear inequality the illegal-path callback wants to add to the outer model.
type LazyCut struct {
	Name string
	Arcs []int // untimed arc IDs whose activation appears with coefficient +1
	NegArcs []int // untimed arc IDs whose activation appears with coefficient -1
	Sense Sense
	RHS float64
}

// CutCache accelerates the illegal-path callback: before re-deriving an IIS
// and its lazy cuts for a given set of active untimed arcs, the callback checks
// whether an equivalent signature was already solved by this or another
// worker. A miss always falls through to full IIS computation; the cache
// is never a correctness dependency.
type CutCache interface {
	GetCuts(ctx context.Context, signature string) ([]LazyCut, bool, error)
	PutCuts(ctx context.Context, signature string, cuts []LazyCut) error
}
