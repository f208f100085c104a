package services

import (
	"context"
	"math"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
)

// bestCourierArrival finds the earliest arrival at restLoc, among a group's
// couriers commuting straight from home, that clears both deadline1 and
// deadline2.
func bestCourierArrival(p domain.Params, g *domain.CourierGroup, restLoc domain.Coordinates, deadline1, deadline2 float64) (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, c := range g.Members {
		arrival := c.EarliestArrival(p, restLoc)
		if arrival <= deadline1 && arrival <= deadline2 {
			found = true
			if arrival < best {
				best = arrival
			}
		}
	}
	return best, found
}

// bestEligibleOrderDeadline scans the orders at a restaurant and returns
// the maximum LatestLeave among those still servable (ready by off, and
// whose own deadline is no earlier than arrival), widening the arc's
// feasible window as much as possible.
func bestEligibleOrderDeadline(orders []*domain.Order, exclude map[string]struct{}, off, arrival float64) (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, o := range orders {
		if exclude != nil {
			if _, skip := exclude[o.ID]; skip {
				continue
			}
		}
		if o.ReadyTime > off || o.LatestLeave < arrival {
			continue
		}
		found = true
		if o.LatestLeave > best {
			best = o.LatestLeave
		}
	}
	return best, found
}

// BuildMainArcs builds one candidate main arc per (group, sequence,
// next-restaurant) pair, filtered by four feasibility conditions.
func BuildMainArcs(ctx context.Context, p domain.Params, groups []*domain.CourierGroup, pairs []domain.SequencePair, restaurants map[string]*domain.Restaurant, ordersAt func(string) []*domain.Order) (_ []domain.UntimedArc, err error) {
	defer obs.Time(ctx, "untimedarcs.BuildMain")(&err)

	var out []domain.UntimedArc

	for _, g := range groups {
		for _, pair := range pairs {
			origin, ok := restaurants[pair.Restaurant]
			if !ok {
				continue
			}

			// Condition 1.
			if g.Off < pair.EarliestLeave+pair.Travel {
				continue
			}

			// Condition 2.
			bestArrival, ok := bestCourierArrival(p, g, origin.Location, pair.LatestLeave, g.Off)
			if !ok {
				continue
			}

			depart := math.Max(bestArrival, pair.EarliestLeave)
			arrival := depart + pair.Travel

			// Condition 3.
			if arrival > g.Off {
				continue
			}

			exclude := make(map[string]struct{}, len(pair.Sequence))
			for _, o := range pair.Sequence {
				exclude[o] = struct{}{}
			}

			// Condition 4.
			bestOrderDeadline, ok := bestEligibleOrderDeadline(ordersAt(pair.NextRestaurant), exclude, g.Off, arrival)
			if !ok {
				continue
			}

			upper := math.Min(pair.LatestLeave, bestOrderDeadline-pair.Travel)
			upper = math.Min(upper, g.Off-pair.Travel)
			lower := depart

			if upper < lower {
				continue
			}

			out = append(out, domain.UntimedArc{
					GroupKey: g.Key,
					Orders: pair.Sequence,
					DepartureRestaurant: pair.Restaurant,
					NextRestaurant: pair.NextRestaurant,
					EarliestLeave: lower,
					LatestLeave: upper,
					Travel: pair.Travel,
				})
		}
	}

	metrics.UntimedArcsBuilt.Add(int64(len(out)))
	return out, nil
}

// BuildExitArcs builds exit arcs: a courier in group g returns home
// straight from the sequence's restaurant.
func BuildExitArcs(ctx context.Context, p domain.Params, groups []*domain.CourierGroup, seqs []domain.Sequence, restaurants map[string]*domain.Restaurant) (_ []domain.UntimedArc, err error) {
	defer obs.Time(ctx, "untimedarcs.BuildExit")(&err)

	var out []domain.UntimedArc

	for _, g := range groups {
		for _, s := range seqs {
			origin, ok := restaurants[s.Restaurant]
			if !ok {
				continue
			}

			bestArrival, ok := bestCourierArrival(p, g, origin.Location, s.LatestLeave, g.Off)
			if !ok {
				continue
			}

			lower := math.Max(s.EarliestLeave, bestArrival)
			upper := math.Min(s.LatestLeave, g.Off)
			if upper < lower {
				continue
			}

			out = append(out, domain.UntimedArc{
					GroupKey: g.Key,
					Orders: s.Orders,
					DepartureRestaurant: s.Restaurant,
					NextRestaurant: domain.Home,
					EarliestLeave: lower,
					LatestLeave: upper,
					Travel: s.Travel,
				})
		}
	}

	metrics.UntimedArcsBuilt.Add(int64(len(out)))
	return out, nil
}

// BuildEntryArcs builds one entry arc per (courier, restaurant) pair.
// EarliestLeave/LatestLeave describe the window of admissible departure
// times from home, per the travel-time convention used throughout
// (departure-point-relative, not arrival-relative).
func BuildEntryArcs(ctx context.Context, p domain.Params, groupOf map[string]*domain.CourierGroup, couriers []*domain.Courier, restaurants []*domain.Restaurant, ordersAt func(string) []*domain.Order) (_ []domain.UntimedArc, err error) {
	defer obs.Time(ctx, "untimedarcs.BuildEntry")(&err)

	var out []domain.UntimedArc

	for _, c := range couriers {
		g, ok := groupOf[c.ID]
		if !ok {
			continue
		}

		for _, r := range restaurants {
			commute := p.HomeToRestaurant(c.Home, r.Location)
			arrival := c.On + commute
			if arrival > g.Off {
				continue
			}

			bestOrderDeadline, ok := bestEligibleOrderDeadline(ordersAt(r.ID), nil, g.Off, arrival)
			if !ok {
				continue
			}

			latest := math.Min(g.Off, bestOrderDeadline) - commute
			if latest < c.On {
				continue
			}

			out = append(out, domain.UntimedArc{
					GroupKey: g.Key,
					CourierID: c.ID,
					DepartureRestaurant: domain.Home,
					NextRestaurant: r.ID,
					EarliestLeave: c.On,
					LatestLeave: latest,
					Travel: commute,
				})
		}
	}

	metrics.UntimedArcsBuilt.Add(int64(len(out)))
	return out, nil
}
