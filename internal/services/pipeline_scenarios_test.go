package services

import (
	"context"
	"testing"

	"mdrp-solver/internal/adapters/scripting"
	"mdrp-solver/internal/config"
	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/ports"
	"mdrp-solver/internal/refsolver"
)

// twoCourierInstance is tinyInstance with a second identical courier, so
// the instance stays feasible even when bundling is switched off (each
// courier then carries one singleton delivery).
func twoCourierInstance() *domain.Instance {
	inst := tinyInstance()
	inst.Couriers = append(inst.Couriers, &domain.Courier{
		ID: "c2", Home: domain.Coordinates{X: 0, Y: 0}, On: 0, Off: 120,
	})
	return inst
}

func solveWith(t *testing.T, inst *domain.Instance, opts config.Options) *Result {
	t.Helper()
	deps := Dependencies{
		Solver: refsolver.New(),
		Policy: scripting.DefaultPolicy{},
	}
	res, err := Solve(context.Background(), inst, opts, deps)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != ports.StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}
	return res
}

func TestSolveLimitBundlesToSizeOneIsNoBetter(t *testing.T) {
	opts := config.Default()
	opts.AddValidInequalityConstraints = false

	unrestricted := solveWith(t, twoCourierInstance(), opts)

	opts.LimitBundlesToSizeOne = true
	restricted := solveWith(t, twoCourierInstance(), opts)

	if restricted.Solution.Objective < unrestricted.Solution.Objective-1e-6 {
		t.Fatalf("restricting bundles to singletons improved the objective: %v < %v",
			restricted.Solution.Objective, unrestricted.Solution.Objective)
	}

	// With bundles off, no used arc may carry more than one order.
	for id, path := range restricted.Solution.Couriers {
		for _, a := range path {
			if len(a.Orders) > 1 {
				t.Fatalf("courier %s drives a bundled arc %v under limitBundlesToSizeOne", id, a.Orders)
			}
		}
	}
}

func TestSolveWithoutObjectiveFindsAnyFeasibleAssignment(t *testing.T) {
	opts := config.Default()
	opts.AddValidInequalityConstraints = false
	opts.ConsiderObjective = false

	inst := tinyInstance()
	res := solveWith(t, inst, opts)

	if res.Solution.Objective != 0 {
		t.Fatalf("objective = %v, want 0 with no payment variables", res.Solution.Objective)
	}

	// Order cover and path-shape properties still hold.
	seen := make(map[string]int)
	for id, path := range res.Solution.Couriers {
		if len(path) == 0 {
			t.Fatalf("courier %s has an empty path", id)
		}
		if path[0].R1 != domain.Home {
			t.Fatalf("courier %s does not start at home: %+v", id, path[0])
		}
		if path[len(path)-1].R2 != domain.Home {
			t.Fatalf("courier %s does not end at home: %+v", id, path[len(path)-1])
		}
		for i := 1; i < len(path); i++ {
			if path[i].R1 != path[i-1].R2 || path[i].T1 != path[i-1].T2 {
				t.Fatalf("courier %s path breaks at step %d: %+v -> %+v", id, i, path[i-1], path[i])
			}
		}
		for _, a := range path {
			for _, o := range a.Orders {
				seen[o]++
			}
		}
	}
	for _, o := range inst.Orders {
		if seen[o.ID] != 1 {
			t.Fatalf("order %s covered %d times, want exactly 1", o.ID, seen[o.ID])
		}
	}
}
