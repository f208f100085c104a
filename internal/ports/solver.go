package ports

import (
	"context"
	"math"
)

// Unbounded is the conventional upper bound passed to AddVar for a
// variable with no finite cap (e.g. a flow variable or a payment total).
const Unbounded = math.MaxFloat64

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// Sense is a linear constraint's relational operator.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// Method selects the LP algorithm used to solve relaxations.
type Method int

const (
	MethodDual Method = iota
	MethodPrimal
	MethodBarrier
)

// Status is the terminal state of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
)

// VarRef and ConstrRef are opaque handles into a Model, returned by AddVar
// and AddConstr respectively. They are only valid for the Model that
// created them.
type VarRef int
type ConstrRef int

// Term is one coefficient*variable product in a linear expression.
type Term struct {
	Var VarRef
	Coef float64
}

type LinExpr []Term

// IncumbentCallback is invoked synchronously by Solve whenever the solver
// finds a new integer-feasible incumbent. It may call Model.AddLazyConstr
// to reject the incumbent (forcing the search to continue) or return
// without adding anything to accept it. The callback runs on the solver's
// own thread of control and may block, since it builds and solves a nested
// auxiliary MIP inside it.
type IncumbentCallback func(m Model) error

// Model is the capability surface this package asks of an external MIP
// solver: variables, linear constraints, an objective, a lazy-constraint
// callback on integer incumbents, IIS computation on infeasibility, and a
// Method setter. internal/refsolver provides one concrete, in-process
// implementation; a production deployment would swap in a commercial
// solver behind this same port.
type Model interface {
	AddVar(name string, kind VarKind, lb, ub float64) VarRef
	AddConstr(name string, expr LinExpr, sense Sense, rhs float64) ConstrRef
	// AddLazyConstr is only valid to call from inside an IncumbentCallback.
	AddLazyConstr(name string, expr LinExpr, sense Sense, rhs float64)
	SetObjective(expr LinExpr, minimize bool)
	SetMethod(Method)
	SetIncumbentCallback(IncumbentCallback)

	Solve(ctx context.Context) (Status, error)
	VarValue(VarRef) (float64, error)

	// ComputeIIS returns the IDs (names passed to AddConstr) of a minimal
	// infeasible subsystem. Only valid after Solve returned StatusInfeasible.
	ComputeIIS(ctx context.Context) ([]string, error)

	Close() error
}

// Solver constructs fresh Models. The outer MIP and every nested IPD model
// built inside a lazy-constraint callback each get their own
// Model instance, released via Close on every exit path.
type Solver interface {
	NewModel(name string) Model
}
