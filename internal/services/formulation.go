package services

import (
	"context"
	"fmt"
	"log"

	"mdrp-solver/internal/config"
	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

// Formulation is the built MIP: the model itself plus the variable handles
// the VI separation loop and the illegal-path callback both need to read
// back.
type Formulation struct {
	Model ports.Model

	ArcVar map[int]ports.VarRef // timed arc ID -> x_a
	CourierVar map[string]ports.VarRef // courier ID -> y_c
	GroupPayVar map[string]ports.VarRef // group key -> p_g

	Arcs []domain.TimedArc
	Params domain.Params // kept for the illegal-path callback's IPD pay floors
}

type nodeTimeKey struct {
	Group string
	Restaurant string
	Time float64
}

// BuildFormulation builds one flow variable per timed arc, one start
// indicator per courier, and one payment variable per group, wired into
// the pay-floor, flow-conservation, entry-linkage and order-coverage
// constraints. When opts.ConsiderObjective is false the payment variables
// and constraints are omitted entirely and the model just looks for any
// feasible assignment.
func BuildFormulation(ctx context.Context, solver ports.Solver, opts config.Options, policy ports.PaymentPolicy, params domain.Params, groups []*domain.CourierGroup, timedArcs []domain.TimedArc, orders []*domain.Order) (_ *Formulation, err error) {
	defer obs.Time(ctx, "formulation.Build")(&err)

	m := solver.NewModel("mdrp")

	f := &Formulation{
		Model: m,
		ArcVar: make(map[int]ports.VarRef, len(timedArcs)),
		CourierVar: make(map[string]ports.VarRef),
		GroupPayVar: make(map[string]ports.VarRef, len(groups)),
		Arcs: timedArcs,
		Params: params,
	}

	for _, a := range timedArcs {
		kind := ports.Integer
		if a.IsWaiting() {
			kind = ports.Continuous
		}
		f.ArcVar[a.ID] = m.AddVar(fmt.Sprintf("x_%d", a.ID), kind, 0, ports.Unbounded)
	}

	for _, g := range groups {
		for _, c := range g.Members {
			f.CourierVar[c.ID] = m.AddVar("y_"+c.ID, ports.Binary, 0, 1)
		}
	}

	if opts.ConsiderObjective {
		var obj ports.LinExpr
		for _, g := range groups {
			pv := m.AddVar("p_"+g.Key, ports.Continuous, 0, ports.Unbounded)
			f.GroupPayVar[g.Key] = pv
			obj = append(obj, ports.Term{Var: pv, Coef: 1})
		}
		m.SetObjective(obj, true)

		if err := addPaymentConstraints(m, policy, params, groups, f); err != nil {
			return nil, err
		}
	} else {
		m.SetObjective(nil, true)
	}

	addFlowConservation(m, timedArcs, f)

	if err := addEntryLinkage(m, groups, timedArcs, f); err != nil {
		return nil, err
	}

	if err := addOrderCoverage(m, orders, timedArcs, f); err != nil {
		return nil, err
	}

	return f, nil
}

// addPaymentConstraints wires two pay floors, per group:
// pay-per-delivery (driven by arc flow and the per-courier "didn't start"
// penalty) and pay-per-time (a flat floor on the group's summed shift
// length, since every member is wage-guaranteed over their whole shift).
//
// The two rates below are the policy's response to one delivery with no
// not-started minutes (policy.PerDeliveryFloor at deliveries=1, minutes=0)
// and to one minute of shift (policy.PerTimeFloor at one minute). The
// per-minute rate prices both the not-started minutes in the per-delivery
// floor and the shift minutes in the per-time floor. Both floors stay linear in the MIP's flow and start
// variables; only their per-unit rates come from the plugged-in policy,
// which is what lets a Lua override change the solved objective without
// the model itself needing non-linear pay terms.
func addPaymentConstraints(m ports.Model, policy ports.PaymentPolicy, params domain.Params, groups []*domain.CourierGroup, f *Formulation) error {
	perDeliveryRate := policy.PerDeliveryFloor(params.PayPerDelivery, params.MinPayPerHour, 1, 0)
	perMinuteRate := policy.PerTimeFloor(params.MinPayPerHour, 1)

	for _, g := range groups {
		pv, ok := f.GroupPayVar[g.Key]
		if !ok {
			return fmt.Errorf("formulation: group %s missing payment variable", g.Key)
		}

		expr := ports.LinExpr{{Var: pv, Coef: 1}}
		for _, a := range f.Arcs {
			if a.GroupKey != g.Key || a.IsWaiting() {
				continue
			}
			xv, ok := f.ArcVar[a.ID]
			if !ok {
				continue
			}
			expr = append(expr, ports.Term{Var: xv, Coef: -perDeliveryRate * float64(len(a.Orders))})
		}

		var rhs float64
		for _, c := range g.Members {
			shiftLen := c.Off - c.On
			yv, ok := f.CourierVar[c.ID]
			if !ok {
				return fmt.Errorf("formulation: courier %s missing start variable", c.ID)
			}
			coef := perMinuteRate * shiftLen
			expr = append(expr, ports.Term{Var: yv, Coef: coef})
			rhs += coef
		}

		m.AddConstr("pay_per_delivery_"+g.Key, expr, ports.GreaterEq, rhs)

		var timeRhs float64
		for _, c := range g.Members {
			timeRhs += perMinuteRate * (c.Off - c.On)
		}
		m.AddConstr("pay_per_time_"+g.Key, ports.LinExpr{{Var: pv, Coef: 1}}, ports.GreaterEq, timeRhs)
	}
	return nil
}

// addFlowConservation wires flow conservation: at every non-home node,
// outgoing flow equals incoming flow.
func addFlowConservation(m ports.Model, timedArcs []domain.TimedArc, f *Formulation) {
	outgoing := make(map[nodeTimeKey][]domain.TimedArc)
	incoming := make(map[nodeTimeKey][]domain.TimedArc)

	for _, a := range timedArcs {
		if a.R1 != domain.Home {
			outgoing[nodeTimeKey{a.GroupKey, a.R1, a.T1}] = append(outgoing[nodeTimeKey{a.GroupKey, a.R1, a.T1}], a)
		}
		if a.R2 != domain.Home {
			incoming[nodeTimeKey{a.GroupKey, a.R2, a.T2}] = append(incoming[nodeTimeKey{a.GroupKey, a.R2, a.T2}], a)
		}
	}

	keys := make(map[nodeTimeKey]struct{}, len(outgoing)+len(incoming))
	for k := range outgoing {
		keys[k] = struct{}{}
	}
	for k := range incoming {
		keys[k] = struct{}{}
	}

	for k := range keys {
		var expr ports.LinExpr
		for _, a := range outgoing[k] {
			expr = append(expr, ports.Term{Var: f.ArcVar[a.ID], Coef: 1})
		}
		for _, a := range incoming[k] {
			expr = append(expr, ports.Term{Var: f.ArcVar[a.ID], Coef: -1})
		}
		name := fmt.Sprintf("flow_%s_%s_%v", k.Group, k.Restaurant, k.Time)
		m.AddConstr(name, expr, ports.Equal, 0)
	}
}

// addEntryLinkage wires a courier's start indicator to equal the flow on
// its (single) chosen entry arc.
func addEntryLinkage(m ports.Model, groups []*domain.CourierGroup, timedArcs []domain.TimedArc, f *Formulation) error {
	byCourier := make(map[string]ports.LinExpr)
	for _, a := range timedArcs {
		if a.CourierID == "" {
			continue
		}
		xv, ok := f.ArcVar[a.ID]
		if !ok {
			continue
		}
		byCourier[a.CourierID] = append(byCourier[a.CourierID], ports.Term{Var: xv, Coef: 1})
	}

	for _, g := range groups {
		for _, c := range g.Members {
			yv, ok := f.CourierVar[c.ID]
			if !ok {
				return fmt.Errorf("formulation: courier %s missing start variable", c.ID)
			}
			expr := append(byCourier[c.ID], ports.Term{Var: yv, Coef: -1})
			m.AddConstr("entry_"+c.ID, expr, ports.Equal, 0)
		}
	}
	return nil
}

// addOrderCoverage wires order coverage: every order is delivered by
// exactly one timed arc.
func addOrderCoverage(m ports.Model, orders []*domain.Order, timedArcs []domain.TimedArc, f *Formulation) error {
	byOrder := make(map[string]ports.LinExpr, len(orders))
	for _, a := range timedArcs {
		if len(a.Orders) == 0 {
			continue
		}
		xv, ok := f.ArcVar[a.ID]
		if !ok {
			continue
		}
		for _, oid := range a.Orders {
			byOrder[oid] = append(byOrder[oid], ports.Term{Var: xv, Coef: 1})
		}
	}

	for _, o := range orders {
		expr, ok := byOrder[o.ID]
		if !ok {
			// Unreachable coverage: no timed arc can deliver this order. Add the
			// constraint anyway with an empty LHS, forcing 0 = 1, so the MIP
			// itself proves infeasible rather than aborting preprocessing here.
			log.Printf("formulation: order %s has no covering arc (unreachable coverage)", o.ID)
			m.AddConstr("cover_"+o.ID, ports.LinExpr{}, ports.Equal, 1)
			continue
		}
		m.AddConstr("cover_"+o.ID, expr, ports.Equal, 1)
	}
	return nil
}
