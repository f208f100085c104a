package domain

import "math"

// Scalar parameters shared by every courier, order and restaurant in an
// instance. All time fields are minutes, all money fields are dollars.
type Params struct {
	TravelSpeed float64 // metres per minute
	PickupServiceTime float64 // minutes
	DropoffServiceTime float64 // minutes
	TargetClickToDoor float64 // minutes
	MaxClickToDoor float64 // minutes
	PayPerDelivery float64 // dollars
	MinPayPerHour float64 // dollars/hour
}

// Travel time between two points in minutes, rounded up to the next whole
// minute, per the travel-time convention. Service time is added by the
// caller since it differs between home/restaurant/order legs.
func (p Params) travelMinutes(a, b Coordinates) float64 {
	if p.TravelSpeed <= 0 {
		return math.Inf(1)
	}
	return math.Ceil(a.DistanceTo(b) / p.TravelSpeed)
}

// Home -> first restaurant leg.
func (p Params) HomeToRestaurant(home, restaurant Coordinates) float64 {
	return p.travelMinutes(home, restaurant) + p.PickupServiceTime/2
}

// Restaurant -> first order's drop-off within a sequence.
func (p Params) RestaurantToFirstDrop(restaurant, drop Coordinates) float64 {
	return p.travelMinutes(restaurant, drop) + (p.PickupServiceTime+p.DropoffServiceTime)/2
}

// Order -> next order drop-off.
func (p Params) DropToNextDrop(a, b Coordinates) float64 {
	return p.travelMinutes(a, b) + p.DropoffServiceTime
}

// Last order's drop-off -> next restaurant.
func (p Params) DropToRestaurant(drop, restaurant Coordinates) float64 {
	return p.travelMinutes(drop, restaurant) + (p.DropoffServiceTime+p.PickupServiceTime)/2
}
