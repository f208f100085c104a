package api

import (
	"net/http"

	"mdrp-solver/internal/api/handlers"
	"mdrp-solver/internal/config"
	"mdrp-solver/internal/ports"
)

// Caches bundles the optional sequence/untimed-arc/cut-cache accelerators.
// Any field left nil falls straight through to recomputation.
type Caches struct {
	SequenceCache ports.SequenceCache
	UntimedArcCache ports.UntimedArcCache
	CutCache ports.CutCache
}

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(solver ports.Solver, reporter ports.JourneyReporter, policy ports.PaymentPolicy, opts config.Options, caches Caches) http.Handler {
	mux := http.NewServeMux()
	solveHandler := &handlers.SolveHandler{
		Solver: solver,
		Reporter: reporter,
		Policy: policy,
		Options: opts,
		SequenceCache: caches.SequenceCache,
		UntimedArcCache: caches.UntimedArcCache,
		CutCache: caches.CutCache,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/solve", solveHandler.Solve)

	return loggingMiddleware(mux)
}
