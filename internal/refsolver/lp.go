package refsolver

import (
	"mdrp-solver/internal/ports"
)

// varColumn describes how one original model variable maps onto the
// non-negative columns the simplex tableau operates on. A variable with a
// finite lower bound is shifted (x = lb + z, z >= 0); a variable with no
// finite lower bound (lb <= -ports.Unbounded) is split into the difference
// of two non-negative parts (x = pos - neg).
type varColumn struct {
	free bool
	col int // shifted column, valid when !free
	pos, neg int // split columns, valid when free
	lb float64
}

// logicalRow is one constraint after variable substitution and RHS-sign
// normalization (rhs is always >= 0 here), ready for slack/surplus/
// artificial columns to be attached.
type logicalRow struct {
	coefs map[int]float64 // column -> coefficient, over varColumn columns only
	sense ports.Sense
	rhs float64
}

// relaxationResult is one LP relaxation's outcome, translated back into the
// model's own variable indexing.
type relaxationResult struct {
	status ports.Status
	values []float64 // per original variable
	objective float64
}

// solveRelaxation builds and solves the LP relaxation of vars/constrs under
// the given per-variable bounds (passed separately from vars[i].lb/ub so
// branch-and-bound can tighten them per node without mutating the model),
// then solves it via two-phase dense-tableau simplex.
func solveRelaxation(vars []varDef, lb, ub []float64, constrs []constrDef, objective ports.LinExpr, minimize bool) relaxationResult {
	n := len(vars)
	columns := make([]varColumn, n)
	numCols := 0
	for j := 0; j < n; j++ {
		if lb[j] <= -ports.Unbounded {
			columns[j] = varColumn{free: true, pos: numCols, neg: numCols + 1}
			numCols += 2
		} else {
			columns[j] = varColumn{col: numCols, lb: lb[j]}
			numCols++
		}
	}

	rows := make([]logicalRow, 0, len(constrs)+n)
	for _, c := range constrs {
		rows = append(rows, substitute(c.expr, c.sense, c.rhs, columns))
	}
	for j := 0; j < n; j++ {
		if columns[j].free || ub[j] >= ports.Unbounded {
			continue
		}
		rows = append(rows, logicalRow{
				coefs: map[int]float64{columns[j].col: 1},
				sense: ports.LessEq,
				rhs: ub[j] - lb[j],
			})
	}

	// Allocate slack (<=), surplus+artificial (>=) or artificial (=) columns,
	// one set per row. Every row's rhs is already normalized >= 0 by
	// substitute, so these three cases are exhaustive and need no fallback.
	slackOf := make([]int, len(rows))
	surplusOf := make([]int, len(rows))
	artificialOf := make([]int, len(rows))
	for i, r := range rows {
		slackOf[i], surplusOf[i], artificialOf[i] = -1, -1, -1
		switch r.sense {
			case ports.LessEq:
			slackOf[i] = numCols
			numCols++
			case ports.GreaterEq:
			surplusOf[i] = numCols
			numCols++
			artificialOf[i] = numCols
			numCols++
			case ports.Equal:
			artificialOf[i] = numCols
			numCols++
		}
	}

	t := newTableau(len(rows), numCols)
	artificialCols := make([]bool, numCols)
	for i, r := range rows {
		for col, coef := range r.coefs {
			t.rows[i][col] = coef
		}
		t.rows[i][numCols] = r.rhs

		switch r.sense {
			case ports.LessEq:
			t.rows[i][slackOf[i]] = 1
			t.basis[i] = slackOf[i]
			case ports.GreaterEq:
			t.rows[i][surplusOf[i]] = -1
			t.rows[i][artificialOf[i]] = 1
			t.basis[i] = artificialOf[i]
			artificialCols[artificialOf[i]] = true
			case ports.Equal:
			t.rows[i][artificialOf[i]] = 1
			t.basis[i] = artificialOf[i]
			artificialCols[artificialOf[i]] = true
		}
	}

	needsPhase1 := false
	for _, isArt := range artificialCols {
		if isArt {
			needsPhase1 = true
			break
		}
	}

	if needsPhase1 {
		phase1Cost := make([]float64, numCols)
		for col, isArt := range artificialCols {
			if isArt {
				phase1Cost[col] = 1
			}
		}
		t.canonicalize(phase1Cost)
		t.iterate(nil)
		if t.objective() > 1e-6 {
			return relaxationResult{status: ports.StatusInfeasible}
		}
	}

	realCost := make([]float64, numCols)
	for _, term := range objective {
		coef := term.Coef
		if !minimize {
			coef = -coef
		}
		col := columns[int(term.Var)]
		if col.free {
			realCost[col.pos] += coef
			realCost[col.neg] -= coef
		} else {
			realCost[col.col] += coef
		}
	}

	allowed := make([]bool, numCols)
	for j := range allowed {
		allowed[j] = !artificialCols[j]
	}
	t.canonicalize(realCost)
	bounded := t.iterate(allowed)
	if !bounded {
		return relaxationResult{status: ports.StatusUnbounded}
	}

	raw := t.values()
	values := make([]float64, n)
	for j := 0; j < n; j++ {
		col := columns[j]
		if col.free {
			values[j] = raw[col.pos] - raw[col.neg]
		} else {
			values[j] = col.lb + raw[col.col]
		}
	}

	obj := t.objective()
	if !minimize {
		obj = -obj
	}
	// Fold back the constant contribution of the lower-bound shifts
	// (x = lb + z means coef*lb never entered the tableau's cost row).
	for _, term := range objective {
		if col := columns[int(term.Var)]; !col.free {
			obj += term.Coef * col.lb
		}
	}
	return relaxationResult{status: ports.StatusOptimal, values: values, objective: obj}
}

// substitute rewrites one constraint's expression in terms of simplex
// columns, folds each variable's lower-bound shift into the row's RHS, and
// normalizes the row to a non-negative RHS (flipping sign and sense, with
// Equal staying Equal, when the folded RHS comes out negative).
func substitute(expr ports.LinExpr, sense ports.Sense, rhs float64, columns []varColumn) logicalRow {
	coefs := make(map[int]float64, len(expr))
	for _, term := range expr {
		col := columns[int(term.Var)]
		if col.free {
			coefs[col.pos] += term.Coef
			coefs[col.neg] -= term.Coef
		} else {
			coefs[col.col] += term.Coef
			rhs -= term.Coef * col.lb
		}
	}

	if rhs < 0 {
		for col := range coefs {
			coefs[col] = -coefs[col]
		}
		rhs = -rhs
		switch sense {
			case ports.LessEq:
			sense = ports.GreaterEq
			case ports.GreaterEq:
			sense = ports.LessEq
		}
	}

	return logicalRow{coefs: coefs, sense: sense, rhs: rhs}
}
