package refsolver

import (
	"context"
	"fmt"

	"mdrp-solver/internal/ports"
)

// varDef and constrDef are this package's internal record of what AddVar/
// AddConstr were called with; bounds are read back out, layered with
// branch-and-bound's tightenings, by solveRelaxation.
type varDef struct {
	name string
	kind ports.VarKind
	lb, ub float64
}

type constrDef struct {
	name string
	expr ports.LinExpr
	sense ports.Sense
	rhs float64
}

// Solver is the in-process ports.Solver backed by this package's simplex
// and branch-and-bound implementation. The pipeline treats the MIP solver
// as an external collaborator; this is the one concrete implementation
// this repo ships so the pipeline is runnable without one.
type Solver struct{}

// New returns a Solver ready to build Models.
func New() *Solver { return &Solver{} }

func (s *Solver) NewModel(name string) ports.Model {
	return &model{name: name, minimize: true}
}

type model struct {
	name string
	vars []varDef
	constrs []constrDef
	objective ports.LinExpr
	minimize bool
	method ports.Method
	callback ports.IncumbentCallback

	status ports.Status
	values []float64 // last solved incumbent, indexed by VarRef
	closed bool
}

func (m *model) AddVar(name string, kind ports.VarKind, lb, ub float64) ports.VarRef {
	m.vars = append(m.vars, varDef{name: name, kind: kind, lb: lb, ub: ub})
	return ports.VarRef(len(m.vars) - 1)
}

func (m *model) AddConstr(name string, expr ports.LinExpr, sense ports.Sense, rhs float64) ports.ConstrRef {
	m.constrs = append(m.constrs, constrDef{name: name, expr: expr, sense: sense, rhs: rhs})
	return ports.ConstrRef(len(m.constrs) - 1)
}

// AddLazyConstr is only meaningful from inside an IncumbentCallback; this
// implementation has no separate lazy pool, since branchAndBound already
// re-solves the current node from scratch whenever the callback grows
// m.constrs.
func (m *model) AddLazyConstr(name string, expr ports.LinExpr, sense ports.Sense, rhs float64) {
	m.AddConstr(name, expr, sense, rhs)
}

func (m *model) SetObjective(expr ports.LinExpr, minimize bool) {
	m.objective = expr
	m.minimize = minimize
}

func (m *model) SetMethod(method ports.Method) { m.method = method }

func (m *model) SetIncumbentCallback(cb ports.IncumbentCallback) { m.callback = cb }

func (m *model) Solve(ctx context.Context) (ports.Status, error) {
	if m.closed {
		return ports.StatusInfeasible, fmt.Errorf("refsolver: Solve called on a closed model")
	}
	status, values, err := branchAndBound(ctx, m)
	if err != nil {
		return ports.StatusInfeasible, fmt.Errorf("refsolver: %s: %w", m.name, err)
	}
	m.status = status
	m.values = values
	return status, nil
}

func (m *model) VarValue(ref ports.VarRef) (float64, error) {
	if int(ref) < 0 || int(ref) >= len(m.values) {
		return 0, fmt.Errorf("refsolver: %s: no solved value for variable %d", m.name, ref)
	}
	return m.values[ref], nil
}

func (m *model) ComputeIIS(ctx context.Context) ([]string, error) {
	if m.status != ports.StatusInfeasible {
		return nil, fmt.Errorf("refsolver: %s: ComputeIIS requires a prior infeasible Solve", m.name)
	}
	return deletionFilterIIS(m.vars, m.constrs), nil
}

func (m *model) Close() error {
	m.closed = true
	return nil
}
