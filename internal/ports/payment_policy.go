package ports

// PaymentPolicy computes the two per-group payment floors applied to a
// solved formulation. deliveries is the number of order-deliveries assigned
// to the group's in-use arcs; shiftMinutesNotStarted is shiftLen(c)*(1-y_c)
// summed over the group's couriers; shiftMinutesTotal is shiftLen(c) summed
// over every courier in the group.
type PaymentPolicy interface {
	PerDeliveryFloor(payPerDelivery float64, minPayPerHour float64, deliveries float64, shiftMinutesNotStarted float64) float64
	PerTimeFloor(minPayPerHour float64, shiftMinutesTotal float64) float64
}
