package services

import (
	"context"
	"sort"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
)

// EnumerateSequences builds every feasible delivery sequence for a single
// restaurant: seed singletons, then repeatedly extend the previous
// generation by one more order at the restaurant, rejecting infeasible
// extensions and applying pairwise dominance within each (orderSet,
// lastOrder) bucket. The loop terminates when an extension generation adds
// nothing.
func EnumerateSequences(ctx context.Context, p domain.Params, restaurant domain.Restaurant, orders []*domain.Order, limitToSizeOne bool) (_ []domain.Sequence, err error) {
	defer obs.Time(ctx, "sequences.Enumerate")(&err)

	if len(orders) == 0 {
		return nil, nil
	}

	byID := make(map[string]*domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	buckets := make(map[string][]domain.Sequence)
	var frontier []domain.Sequence

	for _, o := range orders {
		s := domain.Sequence{
			Orders: []string{o.ID},
			Restaurant: restaurant.ID,
			EarliestLeave: o.ReadyTime,
			LatestLeave: o.LatestLeave,
			Travel: o.SingleTravelTime,
		}
		if s.LatestLeave < s.EarliestLeave {
			continue
		}
		addCandidate(buckets, s)
		frontier = append(frontier, s)
	}
	metrics.SequencesGenerated.Add(int64(len(frontier)))

	if limitToSizeOne {
		return flattenSequences(buckets), nil
	}

	for len(frontier) > 0 {
		var next []domain.Sequence

		for _, s := range frontier {
			already := make(map[string]struct{}, len(s.Orders))
			for _, o := range s.Orders {
				already[o] = struct{}{}
			}

			for _, o := range orders {
				if _, used := already[o.ID]; used {
					continue
				}

				ext, ok := extendSequence(p, s, byID[s.LastOrder()], o)
				if !ok {
					continue
				}

				if addCandidate(buckets, ext) {
					next = append(next, ext)
				}
			}
		}

		metrics.SequencesGenerated.Add(int64(len(next)))
		frontier = next
	}

	return flattenSequences(buckets), nil
}

// extendSequence computes the attributes of appending order o after the
// sequence s (whose last order is "last"), per the drop->next-drop leg
// travel-time convention and the earliestLeave/latestLeave recurrence
// that Sequence's invariant requires.
func extendSequence(p domain.Params, s domain.Sequence, last *domain.Order, o *domain.Order) (domain.Sequence, bool) {
	leg := p.DropToNextDrop(last.Drop, o.Drop)
	travel := s.Travel + leg

	earliest := s.EarliestLeave
	if o.ReadyTime > earliest {
		earliest = o.ReadyTime
	}

	// latestLeave is the minimum, over every prefix, of maxArrival(prefix's
	// last order) - cumulativeTravel-to-that-order; appending one more
	// order only ever introduces one new prefix to check.
	latest := s.LatestLeave
	if candidate := o.MaxArrival - travel; candidate < latest {
		latest = candidate
	}

	if latest < earliest {
		return domain.Sequence{}, false
	}

	orders := make([]string, len(s.Orders)+1)
	copy(orders, s.Orders)
	orders[len(s.Orders)] = o.ID

	return domain.Sequence{
		Orders: orders,
		Restaurant: s.Restaurant,
		EarliestLeave: earliest,
		LatestLeave: latest,
		Travel: travel,
	}, true
}

// addCandidate applies the pairwise-dominance rule within s's (orderSet,
// lastOrder) bucket. Reports whether s survives (i.e. belongs in the next
// generation's frontier).
func addCandidate(buckets map[string][]domain.Sequence, s domain.Sequence) bool {
	key := s.DominanceKey()
	existing := buckets[key]

	kept := make([]domain.Sequence, 0, len(existing))
	dominated := false

	for _, e := range existing {
		if e.Dominates(s) {
			dominated = true
		}
		if !s.Dominates(e) {
			kept = append(kept, e)
		}
	}

	if dominated {
		buckets[key] = kept
		return false
	}

	kept = append(kept, s)
	buckets[key] = kept
	return true
}

func flattenSequences(buckets map[string][]domain.Sequence) []domain.Sequence {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.Sequence
	for _, k := range keys {
		out = append(out, buckets[k]...)
	}
	return out
}

// VerifySequence re-derives a sequence's attributes from scratch and checks
// them against the stored ones on five criteria: origin restaurant,
// earliestLeave, latestLeave, travel sum, and leave-window consistency.
// Returns a nil slice when the sequence is fully consistent.
func VerifySequence(p domain.Params, restaurant domain.Restaurant, s domain.Sequence, byID map[string]*domain.Order) []string {
	var problems []string

	if len(s.Orders) == 0 {
		return []string{"sequence has no orders"}
	}

	last := byID[s.LastOrder()]
	if last == nil || last.RestaurantID != restaurant.ID {
		problems = append(problems, "last order does not sit at origin restaurant")
	}

	earliest := 0.0
	for i, id := range s.Orders {
		o := byID[id]
		if o == nil {
			return []string{"unknown order in sequence: " + id}
		}
		if i == 0 || o.ReadyTime > earliest {
			earliest = o.ReadyTime
		}
	}
	if earliest != s.EarliestLeave {
		problems = append(problems, "earliestLeave does not equal max ready time")
	}

	travel := 0.0
	latest := 0.0
	for i, id := range s.Orders {
		o := byID[id]
		if i == 0 {
			travel = o.SingleTravelTime
		} else {
			prev := byID[s.Orders[i-1]]
			travel += p.DropToNextDrop(prev.Drop, o.Drop)
		}
		bound := o.MaxArrival - travel
		if i == 0 || bound < latest {
			latest = bound
		}
	}
	if latest != s.LatestLeave {
		problems = append(problems, "latestLeave does not equal prefix minimum")
	}
	if travel != s.Travel {
		problems = append(problems, "travel sum does not match recomputation")
	}
	if s.LatestLeave < s.EarliestLeave {
		problems = append(problems, "latestLeave is below earliestLeave")
	}

	return problems
}
