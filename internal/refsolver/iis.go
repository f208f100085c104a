package refsolver

import "mdrp-solver/internal/ports"

// deletionFilterIIS finds a minimal infeasible subset of constrs by
// repeatedly dropping one constraint and checking whether the rest is still
// infeasible (if so, that constraint wasn't needed for the conflict and
// stays dropped; if removing it made the system feasible, it's part of the
// IIS and is kept). It works on the LP relaxation only, ignoring
// integrality: every conflict this package's callers feed it is a continuous one, so dropping
// integrality here doesn't change which constraints are load-bearing.
func deletionFilterIIS(vars []varDef, constrs []constrDef) []string {
	lb := make([]float64, len(vars))
	ub := make([]float64, len(vars))
	for j, v := range vars {
		lb[j] = v.lb
		ub[j] = v.ub
	}

	working := append([]constrDef(nil), constrs...)
	for i := 0; i < len(working); {
		trial := make([]constrDef, 0, len(working)-1)
		trial = append(trial, working[:i]...)
		trial = append(trial, working[i+1:]...)

		if relaxationInfeasible(vars, lb, ub, trial) {
			// Still infeasible without it: it wasn't load-bearing.
			working = trial
			continue
		}
		// Removing it restored feasibility: it belongs to the IIS, keep it
		// and move on to the next candidate.
		i++
	}

	names := make([]string, len(working))
	for i, c := range working {
		names[i] = c.name
	}
	return names
}

func relaxationInfeasible(vars []varDef, lb, ub []float64, constrs []constrDef) bool {
	if len(constrs) == 0 {
		return false
	}
	res := solveRelaxation(vars, lb, ub, constrs, nil, true)
	return res.status == ports.StatusInfeasible
}
