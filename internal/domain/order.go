package domain

// A single meal order placed at a restaurant, delivered to Drop.
//
// Raw fields come straight off the instance files. Derived fields are
// materialised once, during preprocessing, and never recomputed: ReadyTime,
// MaxArrival, SingleTravelTime and LatestLeave. See Derive.
type Order struct {
	ID string
	Drop Coordinates
	PlacementTime float64
	RestaurantID string

	ReadyTime float64
	MaxArrival float64
	SingleTravelTime float64
	LatestLeave float64
}

// Fill in the derived fields of an order given the instance parameters, its
// origin restaurant and the instance-wide global off-time (the latest any
// courier group can possibly still be on shift).
//
// ReadyTime is back-computed from the target click-to-door time so that a
// courier departing the restaurant exactly at ReadyTime and travelling
// straight to the drop-off arrives at PlacementTime+TargetClickToDoor.
func (o *Order) Derive(p Params, restaurant Restaurant, globalOffTime float64) {
	o.SingleTravelTime = p.RestaurantToFirstDrop(restaurant.Location, o.Drop)
	o.MaxArrival = o.PlacementTime + p.MaxClickToDoor
	o.ReadyTime = o.PlacementTime + p.TargetClickToDoor - o.SingleTravelTime

	latest := o.MaxArrival - o.SingleTravelTime
	if globalOffTime < latest {
		latest = globalOffTime
	}
	o.LatestLeave = latest
}
