package services

import (
	"context"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/obs"
)

type restKey struct {
	group string
	restaurant string
}

// ArcIndex is the predecessor/successor index, plus the arc slice it was
// built from; Pred and Succ hold positions in Arcs (reused by the
// illegal-path callback, restricted to an active subset).
type ArcIndex struct {
	Arcs []domain.UntimedArc
	Pred map[int][]int
	Succ map[int][]int
}

// BuildArcIndex indexes arcs, which must already carry unique, dense IDs
// (see AssignArcIDs). Entry arcs never get predecessors; exit arcs never
// get successors.
func BuildArcIndex(ctx context.Context, arcs []domain.UntimedArc) (_ *ArcIndex, err error) {
	defer obs.Time(ctx, "predsucc.BuildArcIndex")(&err)

	byArrival := make(map[restKey][]int) // arcs whose NextRestaurant == key.restaurant
	byDeparture := make(map[restKey][]int) // arcs whose DepartureRestaurant == key.restaurant

	for i, a := range arcs {
		byArrival[restKey{a.GroupKey, a.NextRestaurant}] = append(byArrival[restKey{a.GroupKey, a.NextRestaurant}], i)
		byDeparture[restKey{a.GroupKey, a.DepartureRestaurant}] = append(byDeparture[restKey{a.GroupKey, a.DepartureRestaurant}], i)
	}

	pred := make(map[int][]int)
	succ := make(map[int][]int)

	for i, a := range arcs {
		if a.Kind() != domain.ArcEntry {
			for _, j := range byArrival[restKey{a.GroupKey, a.DepartureRestaurant}] {
				if j == i {
					continue
				}
				candidate := arcs[j]
				if candidate.EarliestLeave+candidate.Travel <= a.LatestLeave && candidate.DisjointFrom(a) {
					pred[i] = append(pred[i], j)
				}
			}
		}

		if a.Kind() != domain.ArcExit {
			for _, j := range byDeparture[restKey{a.GroupKey, a.NextRestaurant}] {
				if j == i {
					continue
				}
				candidate := arcs[j]
				if a.EarliestLeave+a.Travel <= candidate.LatestLeave && a.DisjointFrom(candidate) {
					succ[i] = append(succ[i], j)
				}
			}
		}
	}

	return &ArcIndex{Arcs: arcs, Pred: pred, Succ: succ}, nil
}

// AssignArcIDs stamps dense, unique IDs across a merged slice of untimed
// arcs (entry + main + exit), which the predecessor/successor index and the
// MIP formulation both key off of.
func AssignArcIDs(arcs []domain.UntimedArc) []domain.UntimedArc {
	for i := range arcs {
		arcs[i].ID = i
	}
	return arcs
}
