package ports

import (
	"context"
	"mdrp-solver/internal/domain"
)

// Solution is the used subset of timed arcs grouped by the courier that
// drives them, plus the optimal objective value.
type Solution struct {
	Objective float64
	Couriers map[string][]domain.TimedArc
}

// JourneyReporter renders a Solution as a human-readable journey summary.
// Formatting is an external collaborator: the core algorithm only ever
// produces a Solution.
type JourneyReporter interface {
	Report(ctx context.Context, sol Solution) (string, error)
}
