// Package scripting implements ports.PaymentPolicy: a literal formula, and
// an optional Lua-scripted override.
package scripting

import "mdrp-solver/internal/ports"

// DefaultPolicy is the literal pay-floor formula:
// pay-per-delivery times deliveries, plus pay-per-minute times the shift
// minutes not worked (or, for the time floor, the full shift).
type DefaultPolicy struct{}

func (DefaultPolicy) PerDeliveryFloor(payPerDelivery, minPayPerHour, deliveries, shiftMinutesNotStarted float64) float64 {
	return payPerDelivery*deliveries + (minPayPerHour/60)*shiftMinutesNotStarted
}

func (DefaultPolicy) PerTimeFloor(minPayPerHour, shiftMinutesTotal float64) float64 {
	return (minPayPerHour / 60) * shiftMinutesTotal
}

var _ ports.PaymentPolicy = DefaultPolicy{}
