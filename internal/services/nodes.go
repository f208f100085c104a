package services

import (
	"context"
	"math"
	"sort"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
)

func minEligibleOrderReady(orders []*domain.Order, off, arrival float64) (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, o := range orders {
		if o.ReadyTime > off || o.LatestLeave < arrival {
			continue
		}
		found = true
		if o.ReadyTime < best {
			best = o.ReadyTime
		}
	}
	return best, found
}

// BuildNodes places, for every (group, restaurant) pair that is the arrival
// endpoint of at least one untimed arc, a discretised time grid spanning
// the window of orders that could still be served there, plus the two
// home nodes every group always has.
func BuildNodes(ctx context.Context, globalOffTime float64, interval float64, alignGlobalGrid bool, groups []*domain.CourierGroup, arcs []domain.UntimedArc, ordersAt func(string) []*domain.Order) (_ map[domain.NodeKey][]float64, err error) {
	defer obs.Time(ctx, "nodes.Build")(&err)

	if interval <= 0 {
		interval = 1
	}

	incomingByKey := make(map[domain.NodeKey][]domain.UntimedArc)
	for _, a := range arcs {
		if a.NextRestaurant == domain.Home {
			continue
		}
		k := domain.NodeKey{Group: a.GroupKey, Restaurant: a.NextRestaurant}
		incomingByKey[k] = append(incomingByKey[k], a)
	}

	offByGroup := make(map[string]float64, len(groups))
	for _, g := range groups {
		offByGroup[g.Key] = g.Off
	}

	out := make(map[domain.NodeKey][]float64)

	keys := make([]domain.NodeKey, 0, len(incomingByKey))
	for k := range incomingByKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
			if keys[i].Group != keys[j].Group {
				return keys[i].Group < keys[j].Group
			}
			return keys[i].Restaurant < keys[j].Restaurant
		})

	for _, k := range keys {
		off := offByGroup[k.Group]

		minArrival := math.Inf(1)
		for _, a := range incomingByKey[k] {
			if arrival := a.EarliestLeave + a.Travel; arrival < minArrival {
				minArrival = arrival
			}
		}

		orders := ordersAt(k.Restaurant)
		minReady, okReady := minEligibleOrderReady(orders, off, minArrival)
		bestDeadline, okDeadline := bestEligibleOrderDeadline(orders, nil, off, minArrival)
		if !okReady || !okDeadline {
			continue
		}

		first := math.Max(minArrival, minReady)
		last := math.Min(off, bestDeadline)
		if last < first {
			continue
		}

		firstNode := first
		if alignGlobalGrid {
			firstNode = math.Floor(first/interval) * interval
		}

		var times []float64
		for t := firstNode; t <= last+1e-9; t += interval {
			times = append(times, t)
		}
		if len(times) == 0 {
			times = []float64{first}
		}
		out[k] = times
	}

	for _, g := range groups {
		out[domain.NodeKey{Group: g.Key, Restaurant: domain.Home}] = []float64{0, globalOffTime}
	}

	total := 0
	for _, times := range out {
		total += len(times)
	}
	metrics.NodesGenerated.Add(int64(total))

	return out, nil
}
