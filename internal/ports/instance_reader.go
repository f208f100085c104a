package ports

import (
	"context"
	"mdrp-solver/internal/domain"
)

// InstanceReader is the boundary for loading a problem instance from
// wherever it lives (text files, a seeded fixture, object storage). The
// core preprocessing pipeline never imports this package's adapters
// directly; only the composition root wires a concrete implementation in.
type InstanceReader interface {
	ReadInstance(ctx context.Context) (*domain.Instance, error)
}
