package services

import (
	"context"
	"testing"

	"mdrp-solver/internal/domain"
)

// smallFixture builds a one-restaurant, one-order, one-courier-group
// instance small enough to reason about arc windows by hand.
func smallFixture(t *testing.T) (domain.Params, *domain.Restaurant, []*domain.Order, *domain.CourierGroup) {
	t.Helper()
	p := testParams()
	r := &domain.Restaurant{ID: "r1", Location: domain.Coordinates{}}

	o1 := &domain.Order{ID: "o1", Drop: domain.Coordinates{X: 60, Y: 0}, PlacementTime: 0, RestaurantID: "r1"}
	o1.Derive(p, *r, 10000)

	courier := &domain.Courier{ID: "c1", Home: domain.Coordinates{X: 0, Y: 0}, On: 0, Off: 500}
	groups := domain.GroupCouriers([]*domain.Courier{courier}, domain.GroupByOffTime)

	return p, r, []*domain.Order{o1}, groups[0]
}

func TestBuildMainArcsWindowNonEmptyAndFeasible(t *testing.T) {
	p, r, orders, group := smallFixture(t)
	r2 := &domain.Restaurant{ID: "r2", Location: domain.Coordinates{X: 120, Y: 0}}

	o2 := &domain.Order{ID: "o2", Drop: domain.Coordinates{X: 180, Y: 0}, PlacementTime: 0, RestaurantID: "r2"}
	o2.Derive(p, *r2, 10000)

	seqs, err := EnumerateSequences(context.Background(), p, *r, orders, false)
	if err != nil {
		t.Fatalf("EnumerateSequences: %v", err)
	}
	byID := map[string]*domain.Order{"o1": orders[0], "o2": o2}
	restaurants := []*domain.Restaurant{r, r2}
	ordersAt := func(id string) []*domain.Order {
		if id == "r2" {
			return []*domain.Order{o2}
		}
		return nil
	}

	pairs, err := ExtendToRestaurants(context.Background(), p, seqs, restaurants, ordersAt, byID)
	if err != nil {
		t.Fatalf("ExtendToRestaurants: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatalf("expected at least one sequence/restaurant pair")
	}

	restaurantsByID := map[string]*domain.Restaurant{"r1": r, "r2": r2}
	groups := []*domain.CourierGroup{group}

	arcs, err := BuildMainArcs(context.Background(), p, groups, pairs, restaurantsByID, ordersAt)
	if err != nil {
		t.Fatalf("BuildMainArcs: %v", err)
	}
	if len(arcs) == 0 {
		t.Fatalf("expected at least one main arc")
	}

	for _, a := range arcs {
		// Property 3: window non-emptiness.
		if a.EarliestLeave > a.LatestLeave {
			t.Fatalf("main arc has empty window: %+v", a)
		}
		// Property 4: the group must actually be able to reach the
		// departure restaurant within shift and before latestLeave.
		origin := restaurantsByID[a.DepartureRestaurant]
		reachable := false
		for _, c := range group.Members {
			if c.CanReach(p, origin.Location, a.LatestLeave) {
				reachable = true
			}
		}
		if !reachable {
			t.Fatalf("no courier in group can reach departure restaurant for arc %+v", a)
		}
	}
}

func TestBuildExitArcsWindowNonEmpty(t *testing.T) {
	p, r, orders, group := smallFixture(t)
	seqs, err := EnumerateSequences(context.Background(), p, *r, orders, false)
	if err != nil {
		t.Fatalf("EnumerateSequences: %v", err)
	}
	restaurantsByID := map[string]*domain.Restaurant{"r1": r}

	arcs, err := BuildExitArcs(context.Background(), p, []*domain.CourierGroup{group}, seqs, restaurantsByID)
	if err != nil {
		t.Fatalf("BuildExitArcs: %v", err)
	}
	if len(arcs) == 0 {
		t.Fatalf("expected at least one exit arc")
	}
	for _, a := range arcs {
		if a.NextRestaurant != domain.Home {
			t.Fatalf("exit arc must target home, got %q", a.NextRestaurant)
		}
		if a.EarliestLeave > a.LatestLeave {
			t.Fatalf("exit arc has empty window: %+v", a)
		}
	}
}

func TestBuildEntryArcsOnePerCourierRestaurant(t *testing.T) {
	p, r, orders, group := smallFixture(t)
	restaurants := []*domain.Restaurant{r}
	ordersAt := func(id string) []*domain.Order {
		if id == "r1" {
			return orders
		}
		return nil
	}
	groupOf := map[string]*domain.CourierGroup{group.Members[0].ID: group}

	arcs, err := BuildEntryArcs(context.Background(), p, groupOf, group.Members, restaurants, ordersAt)
	if err != nil {
		t.Fatalf("BuildEntryArcs: %v", err)
	}
	if len(arcs) != 1 {
		t.Fatalf("expected exactly one entry arc (1 courier x 1 restaurant), got %d", len(arcs))
	}
	a := arcs[0]
	if a.Kind() != domain.ArcEntry {
		t.Fatalf("expected an entry arc, got kind %v", a.Kind())
	}
	if a.CourierID != group.Members[0].ID {
		t.Fatalf("entry arc courier = %q, want %q", a.CourierID, group.Members[0].ID)
	}
	if a.EarliestLeave > a.LatestLeave {
		t.Fatalf("entry arc has empty window: %+v", a)
	}
}
