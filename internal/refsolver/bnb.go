package refsolver

import (
	"context"
	"math"

	"mdrp-solver/internal/ports"
)

// bbNode is one branch-and-bound frontier node: the variable bounds in
// effect at this point in the tree, layered on top of each variable's
// declared bounds.
type bbNode struct {
	lb, ub []float64
}

// branchAndBound runs depth-first branch-and-bound with most-fractional
// variable selection over m's current variables and constraints. On every
// integer-feasible relaxation it invokes m.callback, which may call
// m.AddLazyConstr to reject the candidate; in that case the same node is
// re-solved under the new cuts rather than accepted.
func branchAndBound(ctx context.Context, m *model) (ports.Status, []float64, error) {
	n := len(m.vars)
	rootLB := make([]float64, n)
	rootUB := make([]float64, n)
	for j, v := range m.vars {
		rootLB[j] = v.lb
		rootUB[j] = v.ub
	}

	stack := []bbNode{{lb: rootLB, ub: rootUB}}

	haveIncumbent := false
	var bestScore float64 // objective in minimize-normalized form
	var bestValues []float64

	// Bounding compares in minimize form regardless of the model's sense.
	score := func(objective float64) float64 {
		if m.minimize {
			return objective
		}
		return -objective
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return ports.StatusInfeasible, nil, err
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		res := solveRelaxation(m.vars, node.lb, node.ub, m.constrs, m.objective, m.minimize)
		if res.status == ports.StatusInfeasible {
			continue
		}
		if res.status == ports.StatusUnbounded {
			return ports.StatusUnbounded, nil, nil
		}
		if haveIncumbent && score(res.objective) >= bestScore-1e-9 {
			continue // this subtree cannot improve on the incumbent
		}

		branchVar := mostFractional(m.vars, res.values)
		if branchVar == -1 {
			if m.callback != nil {
				m.values = res.values // expose the incumbent to VarValue inside the callback
				before := len(m.constrs)
				if err := m.callback(m); err != nil {
					return ports.StatusInfeasible, nil, err
				}
				if len(m.constrs) > before {
					stack = append(stack, node) // re-examine under the new cuts
					continue
				}
			}
			if !haveIncumbent || score(res.objective) < bestScore {
				haveIncumbent = true
				bestScore = score(res.objective)
				bestValues = res.values
			}
			continue
		}

		mid := math.Floor(res.values[branchVar])
		left := bbNode{lb: cloneBounds(node.lb), ub: cloneBounds(node.ub)}
		left.ub[branchVar] = mid
		right := bbNode{lb: cloneBounds(node.lb), ub: cloneBounds(node.ub)}
		right.lb[branchVar] = mid + 1
		stack = append(stack, left, right)
	}

	if !haveIncumbent {
		return ports.StatusInfeasible, nil, nil
	}
	return ports.StatusOptimal, bestValues, nil
}

func cloneBounds(b []float64) []float64 {
	out := make([]float64, len(b))
	copy(out, b)
	return out
}

// mostFractional returns the index of the Integer/Binary variable furthest
// from an integer value, or -1 if every such variable is already integral
// within tolerance.
func mostFractional(vars []varDef, values []float64) int {
	const tol = 1e-6
	best := -1
	bestDist := 0.0
	for j, v := range vars {
		if v.kind == ports.Continuous {
			continue
		}
		frac := values[j] - math.Floor(values[j])
		if frac < tol || frac > 1-tol {
			continue
		}
		dist := 0.5 - math.Abs(frac-0.5)
		if best == -1 || dist > bestDist {
			best = j
			bestDist = dist
		}
	}
	return best
}
