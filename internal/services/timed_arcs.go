package services

import (
	"context"
	"math"
	"sort"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
)

// exitPlaceholderTime marks an exit timed arc's T2 before PatchExitHomeTimes
// fills in the actual globalOffTime; distinguishing it from a legitimate
// T1==0 departure avoids misclassifying arcs during the patch pass.
const exitPlaceholderTime = math.MaxFloat64

// largestAtMost returns the largest value in a sorted slice that is <=
// target, or the slice's smallest value if none qualifies.
func largestAtMost(sorted []float64, target float64) float64 {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] > target })
	if idx == 0 {
		return sorted[0]
	}
	return sorted[idx-1]
}

// BuildTimedArcs maps every untimed arc onto the node grid built by
// BuildNodes, applies dominance among main arcs that share an untimed arc
// and an arrival node (keeping only the latest departure), and adds waiting
// arcs between consecutive nodes at every (group, restaurant). Entry and
// exit arcs produce one timed arc each and bypass dominance entirely:
// entry arcs are courier-specific and must survive per courier, never
// collapsed across groupmates landing on the same node.
func BuildTimedArcs(ctx context.Context, arcs []domain.UntimedArc, nodes map[domain.NodeKey][]float64) (_ []domain.TimedArc, err error) {
	defer obs.Time(ctx, "timedarcs.Build")(&err)

	sortedNodes := make(map[domain.NodeKey][]float64, len(nodes))
	for k, v := range nodes {
		cp := make([]float64, len(v))
		copy(cp, v)
		sort.Float64s(cp)
		sortedNodes[k] = cp
	}

	var out []domain.TimedArc

	// Dominance bucket for main arcs only: same untimed arc, same arrival
	// node. Keying by the untimed arc's ID keeps distinct couriers and
	// distinct delivery orderings from ever sharing a bucket.
	type bucketKey struct {
		untimedID int
		t2 float64
	}
	buckets := make(map[bucketKey]domain.TimedArc)
	var bucketOrder []bucketKey

	keep := func(ta domain.TimedArc) {
		bk := bucketKey{ta.UntimedArcID, ta.T2}
		prev, exists := buckets[bk]
		if !exists {
			buckets[bk] = ta
			bucketOrder = append(bucketOrder, bk)
			return
		}
		if ta.T1 > prev.T1 { // less waiting is never worse
			buckets[bk] = ta
		}
	}

	for _, a := range arcs {
		switch a.Kind() {
			case domain.ArcEntry:
			r2Nodes := sortedNodes[domain.NodeKey{Group: a.GroupKey, Restaurant: a.NextRestaurant}]
			if len(r2Nodes) == 0 {
				continue
			}
			tArr := largestAtMost(r2Nodes, a.EarliestLeave+a.Travel)
			out = append(out, domain.TimedArc{
					GroupKey: a.GroupKey, CourierID: a.CourierID,
					R1: domain.Home, T1: 0,
					R2: a.NextRestaurant, T2: tArr,
					Orders: nil, UntimedArcID: a.ID,
				})

			case domain.ArcExit:
			r1Nodes := sortedNodes[domain.NodeKey{Group: a.GroupKey, Restaurant: a.DepartureRestaurant}]
			if len(r1Nodes) == 0 {
				continue
			}
			tDep := largestAtMost(r1Nodes, a.LatestLeave)
			out = append(out, domain.TimedArc{
					GroupKey: a.GroupKey, CourierID: "",
					R1: a.DepartureRestaurant, T1: tDep,
					R2: domain.Home, T2: exitPlaceholderTime, // filled in by PatchExitHomeTimes
					Orders: a.Orders, UntimedArcID: a.ID,
				})

			default: // ArcMain
			r1Nodes := sortedNodes[domain.NodeKey{Group: a.GroupKey, Restaurant: a.DepartureRestaurant}]
			r2Nodes := sortedNodes[domain.NodeKey{Group: a.GroupKey, Restaurant: a.NextRestaurant}]
			if len(r1Nodes) == 0 || len(r2Nodes) == 0 {
				continue
			}

			start := largestAtMost(r1Nodes, a.EarliestLeave)
			for _, t1 := range r1Nodes {
				if t1 < start || t1 > a.LatestLeave {
					continue
				}

				depart := t1
				if a.EarliestLeave > depart {
					depart = a.EarliestLeave
				}
				arrival := depart + a.Travel
				t2 := largestAtMost(r2Nodes, arrival)
				if t2 < t1 {
					continue // no node at r2 reachable without arriving before departure
				}

				keep(domain.TimedArc{
						GroupKey: a.GroupKey, CourierID: "",
						R1: a.DepartureRestaurant, T1: t1,
						R2: a.NextRestaurant, T2: t2,
						Orders: a.Orders, UntimedArcID: a.ID,
					})
			}
		}
	}

	for _, bk := range bucketOrder {
		out = append(out, buckets[bk])
	}

	waiting := buildWaitingArcs(sortedNodes)
	out = append(out, waiting...)

	for i := range out {
		out[i].ID = i
	}

	metrics.TimedArcsBuilt.Add(int64(len(out)))
	return out, nil
}

// PatchExitHomeTimes fixes up exit-arc arrival times, which BuildTimedArcs
// leaves at exitPlaceholderTime since it doesn't know globalOffTime; every
// exit arc actually lands at the shared home return node (g, 0, globalOffTime).
func PatchExitHomeTimes(arcs []domain.TimedArc, globalOffTime float64) {
	for i := range arcs {
		if arcs[i].T2 == exitPlaceholderTime {
			arcs[i].T2 = globalOffTime
		}
	}
}

// buildWaitingArcs emits a zero-order arc between every pair of
// consecutive node times at each (group, restaurant), including the two
// home nodes of every group, so (g,0,off) stays reachable even where no
// other waiting arc would have existed.
func buildWaitingArcs(sortedNodes map[domain.NodeKey][]float64) []domain.TimedArc {
	keys := make([]domain.NodeKey, 0, len(sortedNodes))
	for k := range sortedNodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
			if keys[i].Group != keys[j].Group {
				return keys[i].Group < keys[j].Group
			}
			return keys[i].Restaurant < keys[j].Restaurant
		})

	var out []domain.TimedArc
	for _, k := range keys {
		times := sortedNodes[k]
		for i := 0; i+1 < len(times); i++ {
			out = append(out, domain.TimedArc{
					GroupKey: k.Group,
					R1: k.Restaurant,
					T1: times[i],
					R2: k.Restaurant,
					T2: times[i+1],
					UntimedArcID: -1,
				})
		}
	}
	return out
}
