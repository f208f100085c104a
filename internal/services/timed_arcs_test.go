package services

import (
	"context"
	"testing"

	"mdrp-solver/internal/domain"
)

func TestBuildTimedArcsEntryExitAndMain(t *testing.T) {
	entry := domain.UntimedArc{
		ID: 0, GroupKey: "g1", CourierID: "c1",
		DepartureRestaurant: domain.Home, NextRestaurant: "r1",
		EarliestLeave: 0, LatestLeave: 100, Travel: 10,
	}
	main := domain.UntimedArc{
		ID: 1, GroupKey: "g1", Orders: []string{"o1"},
		DepartureRestaurant: "r1", NextRestaurant: "r2",
		EarliestLeave: 10, LatestLeave: 40, Travel: 5,
	}
	exit := domain.UntimedArc{
		ID: 2, GroupKey: "g1", Orders: []string{"o2"},
		DepartureRestaurant: "r2", NextRestaurant: domain.Home,
		EarliestLeave: 20, LatestLeave: 60, Travel: 5,
	}

	nodes := map[domain.NodeKey][]float64{
		{Group: "g1", Restaurant: domain.Home}: {0, 100},
		{Group: "g1", Restaurant: "r1"}: {10, 20, 30},
		{Group: "g1", Restaurant: "r2"}: {15, 25, 35},
	}

	arcs, err := BuildTimedArcs(context.Background(), []domain.UntimedArc{entry, main, exit}, nodes)
	if err != nil {
		t.Fatalf("BuildTimedArcs: %v", err)
	}
	PatchExitHomeTimes(arcs, 100)

	for _, a := range arcs {
		if a.T1 > a.T2 {
			t.Fatalf("timed arc goes backwards in time: %+v", a)
		}
	}

	var sawEntry, sawMain, sawExit, sawWaiting bool
	for _, a := range arcs {
		switch {
			case a.UntimedArcID == 0:
			sawEntry = true
			if a.R1 != domain.Home || a.T1 != 0 {
				t.Fatalf("entry timed arc must start at the home node: %+v", a)
			}
			case a.UntimedArcID == 1:
			sawMain = true
			case a.UntimedArcID == 2:
			sawExit = true
			if a.R2 != domain.Home || a.T2 != 100 {
				t.Fatalf("exit timed arc must land on the patched home return node: %+v", a)
			}
			case a.IsWaiting():
			sawWaiting = true
		}
	}
	if !sawEntry || !sawMain || !sawExit {
		t.Fatalf("expected at least one timed arc per untimed arc: entry=%v main=%v exit=%v", sawEntry, sawMain, sawExit)
	}
	if !sawWaiting {
		t.Fatalf("expected waiting arcs between consecutive nodes")
	}
}

// Two couriers in the same group whose entry arcs snap to the same node at
// the same restaurant must both keep their timed entry arc: without one, a
// courier has no way to start and its entry linkage pins y_c to zero.
func TestBuildTimedArcsKeepsEntryArcPerCourier(t *testing.T) {
	entries := []domain.UntimedArc{
		{
			ID: 0, GroupKey: "g1", CourierID: "c1",
			DepartureRestaurant: domain.Home, NextRestaurant: "r1",
			EarliestLeave: 0, LatestLeave: 100, Travel: 11,
		},
		{
			ID: 1, GroupKey: "g1", CourierID: "c2",
			DepartureRestaurant: domain.Home, NextRestaurant: "r1",
			EarliestLeave: 0, LatestLeave: 100, Travel: 12, // lands on the same grid node as c1
		},
	}
	nodes := map[domain.NodeKey][]float64{
		{Group: "g1", Restaurant: domain.Home}: {0, 100},
		{Group: "g1", Restaurant: "r1"}: {10, 15, 20},
	}

	arcs, err := BuildTimedArcs(context.Background(), entries, nodes)
	if err != nil {
		t.Fatalf("BuildTimedArcs: %v", err)
	}

	byCourier := make(map[string]int)
	for _, a := range arcs {
		if a.CourierID != "" {
			byCourier[a.CourierID]++
			if a.T2 != 10 {
				t.Fatalf("entry arc for %s landed at %v, want node 10", a.CourierID, a.T2)
			}
		}
	}
	for _, id := range []string{"c1", "c2"} {
		if byCourier[id] != 1 {
			t.Fatalf("courier %s has %d entry timed arcs, want exactly 1", id, byCourier[id])
		}
	}
}

func TestBuildTimedArcsHomeAlwaysHasWaitingArc(t *testing.T) {
	nodes := map[domain.NodeKey][]float64{
		{Group: "g1", Restaurant: domain.Home}: {0, 50},
	}
	arcs, err := BuildTimedArcs(context.Background(), nil, nodes)
	if err != nil {
		t.Fatalf("BuildTimedArcs: %v", err)
	}
	found := false
	for _, a := range arcs {
		if a.IsWaiting() && a.R1 == domain.Home && a.T1 == 0 && a.T2 == 50 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a direct (g,0,0) -> (g,0,off) waiting arc")
	}
}
