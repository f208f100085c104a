package services

import (
	"context"
	"fmt"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

const (
	viUsedThreshold = 0.001
	viViolationTolerance = 0.01
)

// SeparateValidInequalities repeatedly solves the current model, inspects
// every used (non-waiting) untimed arc, and adds a predecessor and/or
// successor valid inequality whenever its current LP value violates one by
// more than viViolationTolerance. Returns once a full sweep adds nothing,
// which requires AddConstr to be idempotent on a stabilised solution.
func SeparateValidInequalities(ctx context.Context, m ports.Model, idx *ArcIndex, f *Formulation) (_ int, err error) {
	defer obs.Time(ctx, "separation.Run")(&err)

	byUntimed := make(map[int][]ports.VarRef)
	for _, a := range f.Arcs {
		if a.UntimedArcID < 0 {
			continue // waiting arc, not part of any untimed arc's value
		}
		if xv, ok := f.ArcVar[a.ID]; ok {
			byUntimed[a.UntimedArcID] = append(byUntimed[a.UntimedArcID], xv)
		}
	}

	arcValue := func(arcID int) (float64, error) {
		var total float64
		for _, xv := range byUntimed[arcID] {
			v, err := m.VarValue(xv)
			if err != nil {
				return 0, err
			}
			total += v
		}
		return total, nil
	}

	total := 0
	iteration := 0
	for {
		status, err := m.Solve(ctx)
		if err != nil {
			return total, fmt.Errorf("separation: solve: %w", err)
		}
		if status != ports.StatusOptimal {
			return total, nil
		}

		sweepAdded := 0
		for _, a := range idx.Arcs {
			lhs, err := arcValue(a.ID)
			if err != nil {
				return total, fmt.Errorf("separation: arc %d value: %w", a.ID, err)
			}
			if lhs <= viUsedThreshold {
				continue
			}

			if a.Kind() != domain.ArcEntry {
				rhs, expr, err := predecessorSum(idx, byUntimed, m, a.ID)
				if err != nil {
					return total, err
				}
				if lhs-rhs > viViolationTolerance {
					lhsExpr := termsFor(byUntimed[a.ID], 1)
					name := fmt.Sprintf("vi_pred_%d_%d", a.ID, iteration)
					m.AddConstr(name, append(lhsExpr, expr...), ports.LessEq, 0)
					sweepAdded++
				}
			}

			if a.Kind() != domain.ArcExit {
				rhs, expr, err := successorSum(idx, byUntimed, m, a.ID)
				if err != nil {
					return total, err
				}
				if lhs-rhs > viViolationTolerance {
					lhsExpr := termsFor(byUntimed[a.ID], 1)
					name := fmt.Sprintf("vi_succ_%d_%d", a.ID, iteration)
					m.AddConstr(name, append(lhsExpr, expr...), ports.LessEq, 0)
					sweepAdded++
				}
			}
		}

		total += sweepAdded
		metrics.ValidInequalitiesAdded.Add(int64(sweepAdded))
		iteration++
		if sweepAdded == 0 {
			return total, nil
		}
	}
}

func termsFor(vars []ports.VarRef, coef float64) ports.LinExpr {
	expr := make(ports.LinExpr, 0, len(vars))
	for _, v := range vars {
		expr = append(expr, ports.Term{Var: v, Coef: coef})
	}
	return expr
}

// predecessorSum returns the current total value across every feasible
// predecessor of arc id, plus the negated terms to append to the
// inequality's left-hand side (so the caller can express
// LHS(a) - sum(predecessors) <= 0 as a single AddConstr call).
func predecessorSum(idx *ArcIndex, byUntimed map[int][]ports.VarRef, m ports.Model, id int) (float64, ports.LinExpr, error) {
	var total float64
	var expr ports.LinExpr
	for _, predID := range idx.Pred[id] {
		for _, xv := range byUntimed[predID] {
			v, err := m.VarValue(xv)
			if err != nil {
				return 0, nil, err
			}
			total += v
			expr = append(expr, ports.Term{Var: xv, Coef: -1})
		}
	}
	return total, expr, nil
}

// successorSum is predecessorSum's mirror image over idx.Succ.
func successorSum(idx *ArcIndex, byUntimed map[int][]ports.VarRef, m ports.Model, id int) (float64, ports.LinExpr, error) {
	var total float64
	var expr ports.LinExpr
	for _, succID := range idx.Succ[id] {
		for _, xv := range byUntimed[succID] {
			v, err := m.VarValue(xv)
			if err != nil {
				return 0, nil, err
			}
			total += v
			expr = append(expr, ports.Term{Var: xv, Coef: -1})
		}
	}
	return total, expr, nil
}
