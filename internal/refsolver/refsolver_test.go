package refsolver

import (
	"context"
	"math"
	"testing"

	"mdrp-solver/internal/ports"
)

func TestSolveSimpleLP(t *testing.T) {
	// min x + y  s.t.  x + y >= 2, x <= 5, y <= 5  ->  objective 2.
	m := New().NewModel("lp")
	defer m.Close()

	x := m.AddVar("x", ports.Continuous, 0, 5)
	y := m.AddVar("y", ports.Continuous, 0, 5)
	m.AddConstr("floor", ports.LinExpr{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, ports.GreaterEq, 2)
	m.SetObjective(ports.LinExpr{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, true)

	status, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if status != ports.StatusOptimal {
		t.Fatalf("status = %v, want optimal", status)
	}

	xv, _ := m.VarValue(x)
	yv, _ := m.VarValue(y)
	if got := xv + yv; math.Abs(got-2) > 1e-6 {
		t.Fatalf("x+y = %v, want 2", got)
	}
}

func TestSolveRespectsShiftedLowerBoundInObjective(t *testing.T) {
	// min x  s.t.  x >= 3 (as a variable bound, not a constraint): the
	// lower-bound shift must not drop the constant out of the objective.
	m := New().NewModel("lb")
	defer m.Close()

	x := m.AddVar("x", ports.Continuous, 3, 10)
	m.AddConstr("cap", ports.LinExpr{{Var: x, Coef: 1}}, ports.LessEq, 8)
	m.SetObjective(ports.LinExpr{{Var: x, Coef: 1}}, true)

	status, err := m.Solve(context.Background())
	if err != nil || status != ports.StatusOptimal {
		t.Fatalf("Solve: status=%v err=%v", status, err)
	}
	xv, _ := m.VarValue(x)
	if math.Abs(xv-3) > 1e-6 {
		t.Fatalf("x = %v, want 3 (its lower bound)", xv)
	}
}

func TestSolveBinaryKnapsack(t *testing.T) {
	// max 3a + 2b + 2c  s.t.  2a + b + c <= 2, binaries. The weight cap
	// admits a alone (value 3) or b+c (value 4); the optimum is 4.
	m := New().NewModel("knapsack")
	defer m.Close()

	a := m.AddVar("a", ports.Binary, 0, 1)
	b := m.AddVar("b", ports.Binary, 0, 1)
	c := m.AddVar("c", ports.Binary, 0, 1)
	m.AddConstr("weight", ports.LinExpr{{Var: a, Coef: 2}, {Var: b, Coef: 1}, {Var: c, Coef: 1}}, ports.LessEq, 2)
	m.SetObjective(ports.LinExpr{{Var: a, Coef: 3}, {Var: b, Coef: 2}, {Var: c, Coef: 2}}, false)

	status, err := m.Solve(context.Background())
	if err != nil || status != ports.StatusOptimal {
		t.Fatalf("Solve: status=%v err=%v", status, err)
	}

	av, _ := m.VarValue(a)
	bv, _ := m.VarValue(b)
	cv, _ := m.VarValue(c)
	if got := 3*av + 2*bv + 2*cv; math.Abs(got-4) > 1e-6 {
		t.Fatalf("objective = %v, want 4 (a=%v b=%v c=%v)", got, av, bv, cv)
	}
	for _, v := range []float64{av, bv, cv} {
		frac := v - math.Floor(v)
		if frac > 1e-6 && frac < 1-1e-6 {
			t.Fatalf("binary variable came back fractional: %v", v)
		}
	}
}

func TestSolveInfeasibleAndIIS(t *testing.T) {
	// x >= 5 and x <= 3 conflict; "slack" is irrelevant and must not
	// survive the deletion filter.
	m := New().NewModel("conflict")
	defer m.Close()

	x := m.AddVar("x", ports.Continuous, 0, ports.Unbounded)
	y := m.AddVar("y", ports.Continuous, 0, ports.Unbounded)
	m.AddConstr("ge5", ports.LinExpr{{Var: x, Coef: 1}}, ports.GreaterEq, 5)
	m.AddConstr("le3", ports.LinExpr{{Var: x, Coef: 1}}, ports.LessEq, 3)
	m.AddConstr("slack", ports.LinExpr{{Var: y, Coef: 1}}, ports.LessEq, 100)

	status, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if status != ports.StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", status)
	}

	iis, err := m.ComputeIIS(context.Background())
	if err != nil {
		t.Fatalf("ComputeIIS: %v", err)
	}

	got := make(map[string]bool, len(iis))
	for _, name := range iis {
		got[name] = true
	}
	if !got["ge5"] || !got["le3"] {
		t.Fatalf("IIS %v must contain both ge5 and le3", iis)
	}
	if got["slack"] {
		t.Fatalf("IIS %v kept the irrelevant slack constraint", iis)
	}
}

func TestIncumbentCallbackCanRejectWithLazyCut(t *testing.T) {
	// max a + b, binaries, no coupling. The first incumbent is a=b=1; the
	// callback rejects it once with a lazy a + b <= 1, forcing the solver
	// to settle on a single variable.
	m := New().NewModel("lazy")
	defer m.Close()

	a := m.AddVar("a", ports.Binary, 0, 1)
	b := m.AddVar("b", ports.Binary, 0, 1)
	m.SetObjective(ports.LinExpr{{Var: a, Coef: 1}, {Var: b, Coef: 1}}, false)

	cutAdded := false
	m.SetIncumbentCallback(func(cm ports.Model) error {
		av, err := cm.VarValue(a)
		if err != nil {
			return err
		}
		bv, err := cm.VarValue(b)
		if err != nil {
			return err
		}
		if !cutAdded && av+bv > 1.5 {
			cutAdded = true
			cm.AddLazyConstr("one_of", ports.LinExpr{{Var: a, Coef: 1}, {Var: b, Coef: 1}}, ports.LessEq, 1)
		}
		return nil
	})

	status, err := m.Solve(context.Background())
	if err != nil || status != ports.StatusOptimal {
		t.Fatalf("Solve: status=%v err=%v", status, err)
	}
	if !cutAdded {
		t.Fatalf("callback never saw the a=b=1 incumbent")
	}

	av, _ := m.VarValue(a)
	bv, _ := m.VarValue(b)
	if got := av + bv; math.Abs(got-1) > 1e-6 {
		t.Fatalf("a+b = %v after the lazy cut, want 1", got)
	}
}

func TestEqualityConstraintDrivesPhase1(t *testing.T) {
	// x + y = 4 with x <= 1 forces y = 3.
	m := New().NewModel("eq")
	defer m.Close()

	x := m.AddVar("x", ports.Continuous, 0, 1)
	y := m.AddVar("y", ports.Continuous, 0, ports.Unbounded)
	m.AddConstr("sum", ports.LinExpr{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, ports.Equal, 4)
	m.SetObjective(ports.LinExpr{{Var: y, Coef: 1}}, true)

	status, err := m.Solve(context.Background())
	if err != nil || status != ports.StatusOptimal {
		t.Fatalf("Solve: status=%v err=%v", status, err)
	}
	yv, _ := m.VarValue(y)
	if math.Abs(yv-3) > 1e-6 {
		t.Fatalf("y = %v, want 3", yv)
	}
}

func TestEmptyLHSEqualityIsInfeasible(t *testing.T) {
	// The formulation uses 0 = 1 to express unreachable order coverage;
	// the solver must prove that infeasible rather than erroring out.
	m := New().NewModel("empty")
	defer m.Close()

	m.AddVar("x", ports.Continuous, 0, 1)
	m.AddConstr("cover_missing", ports.LinExpr{}, ports.Equal, 1)

	status, err := m.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if status != ports.StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", status)
	}
}
