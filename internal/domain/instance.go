package domain

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// The complete, immutable input to a solve: couriers, orders, restaurants
// and scalar parameters.
type Instance struct {
	Couriers []*Courier
	Orders []*Order
	Restaurants []*Restaurant
	Params Params

	restaurantByID map[string]*Restaurant
	ordersByRest map[string][]*Order
}

// Index builds lookup tables and must be called once after the raw slices
// are populated and before Derive. Safe to call again if Restaurants or
// Orders are mutated wholesale (e.g. by orderProportion sampling).
func (inst *Instance) Index() error {
	inst.restaurantByID = make(map[string]*Restaurant, len(inst.Restaurants))
	for _, r := range inst.Restaurants {
		inst.restaurantByID[r.ID] = r
	}

	inst.ordersByRest = make(map[string][]*Order, len(inst.restaurantByID))
	for _, o := range inst.Orders {
		if _, ok := inst.restaurantByID[o.RestaurantID]; !ok {
			return fmt.Errorf("instance: order %s references unknown restaurant %s", o.ID, o.RestaurantID)
		}
		inst.ordersByRest[o.RestaurantID] = append(inst.ordersByRest[o.RestaurantID], o)
	}
	return nil
}

// ApplyOrderProportion drops entire restaurants (and every order placed at
// one) at random until at most ⌈proportion·len(Restaurants)⌉ remain.
// Restaurants are sorted by ID before shuffling with a seed-derived RNG, so
// the dropped set is deterministic for a given (proportion, seed) pair
// regardless of the slice order the instance reader produced. A proportion
// outside (0,1) is a no-op: nothing is guaranteed to be dropped.
func (inst *Instance) ApplyOrderProportion(proportion float64, seed int64) {
	if proportion <= 0 || proportion >= 1 || len(inst.Restaurants) == 0 {
		return
	}

	kept := int(math.Ceil(proportion * float64(len(inst.Restaurants))))
	if kept >= len(inst.Restaurants) {
		return
	}

	shuffled := make([]*Restaurant, len(inst.Restaurants))
	copy(shuffled, inst.Restaurants)
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].ID < shuffled[j].ID })

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	keep := make(map[string]struct{}, kept)
	for _, r := range shuffled[:kept] {
		keep[r.ID] = struct{}{}
	}

	filteredRestaurants := make([]*Restaurant, 0, kept)
	for _, r := range inst.Restaurants {
		if _, ok := keep[r.ID]; ok {
			filteredRestaurants = append(filteredRestaurants, r)
		}
	}
	inst.Restaurants = filteredRestaurants

	filteredOrders := make([]*Order, 0, len(inst.Orders))
	for _, o := range inst.Orders {
		if _, ok := keep[o.RestaurantID]; ok {
			filteredOrders = append(filteredOrders, o)
		}
	}
	inst.Orders = filteredOrders
}

func (inst *Instance) Restaurant(id string) (*Restaurant, bool) {
	r, ok := inst.restaurantByID[id]
	return r, ok
}

func (inst *Instance) OrdersAt(restaurantID string) []*Order {
	return inst.ordersByRest[restaurantID]
}

// DeriveOrders fills in every order's derived fields. Must be called after
// Index and after courier grouping has produced a GlobalOffTime, since
// LatestLeave is capped at it.
//
// Returns, alongside any hard error, the IDs of orders whose LatestLeave
// fell below their ReadyTime: these can never be delivered on time by any
// courier group and are an "unreachable coverage" condition,
// not an invariant violation. The caller logs them and lets the MIP prove
// infeasibility rather than failing preprocessing outright.
func (inst *Instance) DeriveOrders(globalOffTime float64) ([]string, error) {
	var unreachable []string
	for _, o := range inst.Orders {
		r, ok := inst.Restaurant(o.RestaurantID)
		if !ok {
			return nil, fmt.Errorf("instance: order %s references unknown restaurant %s", o.ID, o.RestaurantID)
		}
		o.Derive(inst.Params, *r, globalOffTime)
		if o.LatestLeave < o.ReadyTime {
			unreachable = append(unreachable, o.ID)
		}
	}
	return unreachable, nil
}
