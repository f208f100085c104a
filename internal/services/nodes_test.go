package services

import (
	"context"
	"testing"

	"mdrp-solver/internal/domain"
)

func TestBuildNodesIncludesHomeNodes(t *testing.T) {
	groups := []*domain.CourierGroup{{Key: "g1", Off: 200}}
	arcs := []domain.UntimedArc{
		{GroupKey: "g1", DepartureRestaurant: domain.Home, NextRestaurant: "r1", EarliestLeave: 0, LatestLeave: 100, Travel: 10},
	}
	order := &domain.Order{ID: "o1", ReadyTime: 5, LatestLeave: 150}
	ordersAt := func(id string) []*domain.Order {
		if id == "r1" {
			return []*domain.Order{order}
		}
		return nil
	}

	nodes, err := BuildNodes(context.Background(), 200, 5, true, groups, arcs, ordersAt)
	if err != nil {
		t.Fatalf("BuildNodes: %v", err)
	}

	home := nodes[domain.NodeKey{Group: "g1", Restaurant: domain.Home}]
	if len(home) != 2 || home[0] != 0 || home[1] != 200 {
		t.Fatalf("expected home nodes [0, 200], got %v", home)
	}

	r1Nodes := nodes[domain.NodeKey{Group: "g1", Restaurant: "r1"}]
	if len(r1Nodes) == 0 {
		t.Fatalf("expected at least one node at (g1, r1)")
	}
	for _, tm := range r1Nodes {
		if tm < 10 { // earliest possible arrival for the only incoming arc
			t.Fatalf("node time %v precedes the earliest possible arrival 10", tm)
		}
	}
}

func TestBuildNodesSkipsRestaurantWithNoEligibleOrders(t *testing.T) {
	groups := []*domain.CourierGroup{{Key: "g1", Off: 200}}
	arcs := []domain.UntimedArc{
		{GroupKey: "g1", DepartureRestaurant: domain.Home, NextRestaurant: "r1", EarliestLeave: 0, LatestLeave: 100, Travel: 10},
	}
	ordersAt := func(string) []*domain.Order { return nil } // no orders anywhere

	nodes, err := BuildNodes(context.Background(), 200, 5, true, groups, arcs, ordersAt)
	if err != nil {
		t.Fatalf("BuildNodes: %v", err)
	}
	if _, ok := nodes[domain.NodeKey{Group: "g1", Restaurant: "r1"}]; ok {
		t.Fatalf("expected no node grid at r1 with no eligible orders there")
	}
}
