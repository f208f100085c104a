package domain

import (
	"math"
	"testing"
)

func fourRestaurantInstance() *Instance {
	restaurants := []*Restaurant{
		{ID: "r1"}, {ID: "r2"}, {ID: "r3"}, {ID: "r4"},
	}
	orders := []*Order{
		{ID: "o1", RestaurantID: "r1"},
		{ID: "o2", RestaurantID: "r2"},
		{ID: "o3", RestaurantID: "r3"},
		{ID: "o4", RestaurantID: "r4"},
	}
	return &Instance{Restaurants: restaurants, Orders: orders}
}

func TestApplyOrderProportionDeterministic(t *testing.T) {
	inst1 := fourRestaurantInstance()
	inst1.ApplyOrderProportion(0.5, 1)

	inst2 := fourRestaurantInstance()
	inst2.ApplyOrderProportion(0.5, 1)

	if len(inst1.Restaurants) != len(inst2.Restaurants) {
		t.Fatalf("non-deterministic restaurant count: %d vs %d", len(inst1.Restaurants), len(inst2.Restaurants))
	}
	for i := range inst1.Restaurants {
		if inst1.Restaurants[i].ID != inst2.Restaurants[i].ID {
			t.Fatalf("non-deterministic restaurant set: %s vs %s", inst1.Restaurants[i].ID, inst2.Restaurants[i].ID)
		}
	}

	want := int(math.Ceil(0.5 * 4))
	if len(inst1.Restaurants) != want {
		t.Fatalf("expected %d restaurants kept, got %d", want, len(inst1.Restaurants))
	}
	if len(inst1.Orders) > want {
		t.Fatalf("expected remaining order count <= %d, got %d", want, len(inst1.Orders))
	}
	for _, o := range inst1.Orders {
		if _, kept := findRestaurant(inst1.Restaurants, o.RestaurantID); !kept {
			t.Fatalf("order %s survived referencing dropped restaurant %s", o.ID, o.RestaurantID)
		}
	}
}

func TestApplyOrderProportionNoOpAtOne(t *testing.T) {
	inst := fourRestaurantInstance()
	inst.ApplyOrderProportion(1, 1)
	if len(inst.Restaurants) != 4 || len(inst.Orders) != 4 {
		t.Fatalf("proportion=1 must be a no-op, got %d restaurants / %d orders", len(inst.Restaurants), len(inst.Orders))
	}
}

func findRestaurant(restaurants []*Restaurant, id string) (*Restaurant, bool) {
	for _, r := range restaurants {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}
