package services

import (
	"context"
	"sort"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
)

// ExtendToRestaurants emits, for each sequence and each restaurant other
// than its own, a (sequence, next-restaurant) pair when at least one order
// at the next restaurant could still be served (an eligibility gate, not a
// full enumeration). Dominance is applied the same way EnumerateSequences
// does, keyed by (orderSet, r').
func ExtendToRestaurants(ctx context.Context, p domain.Params, seqs []domain.Sequence, restaurants []*domain.Restaurant, ordersAt func(restaurantID string) []*domain.Order, byID map[string]*domain.Order) (_ []domain.SequencePair, err error) {
	defer obs.Time(ctx, "pairing.ExtendToRestaurants")(&err)

	buckets := make(map[string][]domain.SequencePair)

	for _, s := range seqs {
		lastOrder := byID[s.LastOrder()]

		for _, r := range restaurants {
			if r.ID == s.Restaurant {
				continue
			}

			leg := p.DropToRestaurant(lastOrder.Drop, r.Location)
			travel := s.Travel + leg
			arrival := s.EarliestLeave + travel

			eligible := false
			for _, o := range ordersAt(r.ID) {
				if o.LatestLeave >= arrival {
					eligible = true
					break // eligibility gate: the first feasible order is enough
				}
			}
			if !eligible {
				continue
			}

			pair := domain.SequencePair{
				Sequence: s.Orders,
				Restaurant: s.Restaurant,
				NextRestaurant: r.ID,
				EarliestLeave: s.EarliestLeave,
				LatestLeave: s.LatestLeave,
				Travel: travel,
			}
			addPairCandidate(buckets, pair)
		}
	}

	pairs := flattenPairs(buckets)
	metrics.PairsGenerated.Add(int64(len(pairs)))
	return pairs, nil
}

func addPairCandidate(buckets map[string][]domain.SequencePair, p domain.SequencePair) {
	key := p.DominanceKey()
	existing := buckets[key]

	kept := make([]domain.SequencePair, 0, len(existing))
	dominated := false

	for _, e := range existing {
		if e.Dominates(p) {
			dominated = true
		}
		if !p.Dominates(e) {
			kept = append(kept, e)
		}
	}

	if dominated {
		buckets[key] = kept
		return
	}

	kept = append(kept, p)
	buckets[key] = kept
}

func flattenPairs(buckets map[string][]domain.SequencePair) []domain.SequencePair {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.SequencePair
	for _, k := range keys {
		out = append(out, buckets[k]...)
	}
	return out
}
