package domain

// A courier available to deliver orders during a single shift.
type Courier struct {
	ID string
	Home Coordinates
	On float64 // shift start, minutes from the instance epoch
	Off float64 // shift end, minutes from the instance epoch
}

// Can this courier reach dest by deadline, given it departs home no earlier
// than its own shift start?
func (c Courier) CanReach(p Params, dest Coordinates, deadline float64) bool {
	arrival := c.On + p.HomeToRestaurant(c.Home, dest)
	return arrival <= deadline && arrival <= c.Off
}

// Earliest time this courier can arrive at dest (bounded by its shift start).
func (c Courier) EarliestArrival(p Params, dest Coordinates) float64 {
	return c.On + p.HomeToRestaurant(c.Home, dest)
}
