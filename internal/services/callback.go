package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

// NewIllegalPathCallback builds the lazy-constraint callback:
// on every integer-feasible incumbent, reduce the active timed arcs per
// group to their underlying untimed arcs, check the restricted
// predecessor/successor graph is self-consistent, and, if an illegal
// chaining survives, solve an auxiliary IPD MIP to extract an IIS and lift
// lazy cuts ruling it out. globalIdx must be the full predecessor/successor
// index of every untimed arc the outer model was built from; its Arcs
// slice must be indexed by UntimedArc.ID (see AssignArcIDs). cutCache
// may be nil; when set, a group's cuts are looked up and stored by the
// signature of its active untimed arc set, skipping the IPD re-solve on a
// hit.
func NewIllegalPathCallback(ctx context.Context, solver ports.Solver, groups []*domain.CourierGroup, f *Formulation, globalIdx *ArcIndex, cutCache ports.CutCache) ports.IncumbentCallback {
	untimedByID := make(map[int]domain.UntimedArc, len(globalIdx.Arcs))
	for _, a := range globalIdx.Arcs {
		untimedByID[a.ID] = a
	}

	arcVarsByUntimed := make(map[int][]ports.VarRef)
	for _, a := range f.Arcs {
		if a.UntimedArcID < 0 {
			continue
		}
		if xv, ok := f.ArcVar[a.ID]; ok {
			arcVarsByUntimed[a.UntimedArcID] = append(arcVarsByUntimed[a.UntimedArcID], xv)
		}
	}

	return func(m ports.Model) error {
		return runIllegalPathCheck(ctx, m, solver, groups, f, globalIdx, untimedByID, arcVarsByUntimed, cutCache)
	}
}

func activationExpr(vars []ports.VarRef, coef float64) ports.LinExpr {
	expr := make(ports.LinExpr, 0, len(vars))
	for _, v := range vars {
		expr = append(expr, ports.Term{Var: v, Coef: coef})
	}
	return expr
}

func runIllegalPathCheck(ctx context.Context, m ports.Model, solver ports.Solver, groups []*domain.CourierGroup, f *Formulation, globalIdx *ArcIndex, untimedByID map[int]domain.UntimedArc, arcVarsByUntimed map[int][]ports.VarRef, cutCache ports.CutCache) error {
	activeByGroup := make(map[string][]domain.UntimedArc)
	seen := make(map[string]map[int]bool)

	for _, a := range f.Arcs {
		if a.IsWaiting() {
			continue
		}
		xv, ok := f.ArcVar[a.ID]
		if !ok {
			continue
		}
		val, err := m.VarValue(xv)
		if err != nil {
			return fmt.Errorf("callback: read x_%d: %w", a.ID, err)
		}
		if val <= 0.5 {
			continue
		}

		ua, ok := untimedByID[a.UntimedArcID]
		if !ok {
			log.Printf("callback: timed arc %d references unknown untimed arc %d, skipping", a.ID, a.UntimedArcID)
			continue
		}

		if seen[a.GroupKey] == nil {
			seen[a.GroupKey] = make(map[int]bool)
		}
		if seen[a.GroupKey][ua.ID] {
			log.Printf("callback: untimed arc %d active twice in group %s, ignoring duplicate", ua.ID, a.GroupKey)
			continue
		}
		seen[a.GroupKey][ua.ID] = true
		activeByGroup[a.GroupKey] = append(activeByGroup[a.GroupKey], ua)
	}

	for _, g := range groups {
		active := activeByGroup[g.Key]
		if len(active) == 0 {
			continue
		}

		signature := arcSetSignature(active)
		if cutCache != nil {
			if cuts, ok, err := cutCache.GetCuts(ctx, signature); err == nil && ok {
				for _, c := range cuts {
					applyLazyCut(m, c, arcVarsByUntimed)
				}
				metrics.LazyCutsAdded.Add(int64(len(cuts)))
				continue
			}
		}

		restricted, err := BuildArcIndex(ctx, active)
		if err != nil {
			return fmt.Errorf("callback: restricted index for group %s: %w", g.Key, err)
		}

		var illegal bool
		var produced []ports.LazyCut
		for i, a := range restricted.Arcs {
			if a.Kind() != domain.ArcExit && len(restricted.Succ[i]) == 0 {
				illegal = true
				produced = append(produced, emitGlobalConsistencyCut(m, a, globalIdx.Succ[a.ID], arcVarsByUntimed))
			}
			if a.Kind() != domain.ArcEntry && len(restricted.Pred[i]) == 0 {
				illegal = true
				produced = append(produced, emitGlobalConsistencyCut(m, a, globalIdx.Pred[a.ID], arcVarsByUntimed))
			}
		}
		if !illegal {
			continue
		}

		cuts, err := solveIPD(ctx, solver, m, f.Params, g, restricted, globalIdx, arcVarsByUntimed)
		if err != nil {
			return fmt.Errorf("callback: IPD for group %s: %w", g.Key, err)
		}
		produced = append(produced, cuts...)

		if cutCache != nil && len(produced) > 0 {
			if err := cutCache.PutCuts(ctx, signature, produced); err != nil {
				log.Printf("callback: put cuts for group %s: %v", g.Key, err)
			}
		}
	}

	return nil
}

// arcSetSignature is the CutCache key for a group's active untimed arc set:
// the sorted arc IDs, since the same set always implies the same legality
// analysis regardless of which incumbent produced it.
func arcSetSignature(arcs []domain.UntimedArc) string {
	ids := make([]int, len(arcs))
	for i, a := range arcs {
		ids[i] = a.ID
	}
	sort.Ints(ids)

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	return b.String()
}

// applyLazyCut replays a LazyCut (freshly derived or cache-hit) against the
// outer model.
func applyLazyCut(m ports.Model, cut ports.LazyCut, arcVarsByUntimed map[int][]ports.VarRef) {
	var expr ports.LinExpr
	for _, id := range cut.Arcs {
		expr = append(expr, activationExpr(arcVarsByUntimed[id], 1)...)
	}
	for _, id := range cut.NegArcs {
		expr = append(expr, activationExpr(arcVarsByUntimed[id], -1)...)
	}
	m.AddLazyConstr(cut.Name, expr, cut.Sense, cut.RHS)
}

// emitGlobalConsistencyCut emits the first of two lazy cuts: an active arc
// missing a successor/predecessor within its own group's active set must,
// in any legal solution, have its activation match the sum over all its
// globally feasible predecessors/successors.
func emitGlobalConsistencyCut(m ports.Model, a domain.UntimedArc, globalNeighbors []int, arcVarsByUntimed map[int][]ports.VarRef) ports.LazyCut {
	cut := ports.LazyCut{
		Name: fmt.Sprintf("global_consistency_%d", a.ID),
		Arcs: []int{a.ID},
		NegArcs: append([]int(nil), globalNeighbors...),
		Sense: ports.Equal,
		RHS: 0,
	}
	applyLazyCut(m, cut, arcVarsByUntimed)
	metrics.LazyCutsAdded.Add(1)
	return cut
}

// ipdEdge is one candidate chaining X_{i,j} in the auxiliary MIP, indexed by
// position in restricted.Arcs.
type ipdEdge struct {
	i, j int
}

// solveIPD builds and solves the auxiliary Illegal Path Determination MIP
// over a group's active arcs, and, if it proves infeasible, extracts an IIS
// and lifts the two alternates cuts.
func solveIPD(ctx context.Context, solver ports.Solver, outer ports.Model, params domain.Params, g *domain.CourierGroup, restricted *ArcIndex, globalIdx *ArcIndex, arcVarsByUntimed map[int][]ports.VarRef) (_ []ports.LazyCut, err error) {
	defer obs.Time(ctx, "callback.solveIPD")(&err)

	ipd := solver.NewModel("ipd_" + g.Key)
	defer ipd.Close()

	arcs := restricted.Arcs
	courierByID := make(map[string]*domain.Courier, len(g.Members))
	for _, c := range g.Members {
		courierByID[c.ID] = c
	}

	usedCouriers := make(map[string]bool)
	entryArcsOf := make(map[string][]int)
	for i, a := range arcs {
		if a.Kind() == domain.ArcEntry && a.CourierID != "" {
			usedCouriers[a.CourierID] = true
			entryArcsOf[a.CourierID] = append(entryArcsOf[a.CourierID], i)
		}
	}

	var edges []ipdEdge
	xVar := make(map[ipdEdge]ports.VarRef)
	for i := range arcs {
		for _, j := range restricted.Succ[i] {
			e := ipdEdge{i, j}
			edges = append(edges, e)
			xVar[e] = ipd.AddVar(fmt.Sprintf("X_%d_%d", i, j), ports.Binary, 0, 1)
		}
	}

	tVar := make([]ports.VarRef, len(arcs))
	for i, a := range arcs {
		tVar[i] = ipd.AddVar(fmt.Sprintf("T_%d", i), ports.Continuous, -ports.Unbounded, ports.Unbounded)
		ipd.AddConstr(fmt.Sprintf("leaveAfterEarlyTime_%d", a.ID), ports.LinExpr{{Var: tVar[i], Coef: 1}}, ports.GreaterEq, a.EarliestLeave)
		ipd.AddConstr(fmt.Sprintf("leaveBeforeLateTime_%d", a.ID), ports.LinExpr{{Var: tVar[i], Coef: 1}}, ports.LessEq, a.LatestLeave)
	}

	for _, e := range edges {
		i, j := e.i, e.j
		ai, aj := arcs[i], arcs[j]
		bigM := ai.LatestLeave + ai.Travel - aj.EarliestLeave
		expr := ports.LinExpr{
			{Var: tVar[i], Coef: 1},
			{Var: tVar[j], Coef: -1},
			{Var: xVar[e], Coef: bigM},
		}
		ipd.AddConstr(fmt.Sprintf("enoughTimeForBothArcs_%d_%d", ai.ID, aj.ID), expr, ports.LessEq, bigM-ai.Travel)
	}

	for j, a := range arcs {
		if a.Kind() == domain.ArcEntry {
			continue
		}
		var expr ports.LinExpr
		for _, i := range restricted.Pred[j] {
			expr = append(expr, ports.Term{Var: xVar[ipdEdge{i, j}], Coef: 1})
		}
		ipd.AddConstr(fmt.Sprintf("predecessorArcsUsedOnce_%d", a.ID), expr, ports.Equal, 1)
	}
	for i, a := range arcs {
		if a.Kind() == domain.ArcExit {
			continue
		}
		var expr ports.LinExpr
		for _, j := range restricted.Succ[i] {
			expr = append(expr, ports.Term{Var: xVar[ipdEdge{i, j}], Coef: 1})
		}
		ipd.AddConstr(fmt.Sprintf("successorArcsUsedOnce_%d", a.ID), expr, ports.Equal, 1)
	}

	courierList := make([]string, 0, len(usedCouriers))
	for c := range usedCouriers {
		courierList = append(courierList, c)
	}

	yVar := make(map[string]map[int]ports.VarRef, len(courierList))
	for _, c := range courierList {
		yVar[c] = make(map[int]ports.VarRef, len(arcs))
		for i, a := range arcs {
			if a.Kind() == domain.ArcMain || (a.Kind() == domain.ArcEntry && a.CourierID == c) {
				yVar[c][i] = ipd.AddVar(fmt.Sprintf("Y_%s_%d", c, i), ports.Binary, 0, 1)
			}
		}
	}

	for _, e := range edges {
		for _, c := range courierList {
			yi, iok := yVar[c][e.i]
			yj, jok := yVar[c][e.j]
			if !iok || !jok {
				continue
			}
			expr := ports.LinExpr{
				{Var: yi, Coef: 1},
				{Var: yj, Coef: -1},
				{Var: xVar[e], Coef: 1},
			}
			ipd.AddConstr(fmt.Sprintf("courierPropagation_%s_%d_%d", c, e.i, e.j), expr, ports.LessEq, 1)
		}
	}

	for i, a := range arcs {
		if a.Kind() != domain.ArcMain {
			continue
		}
		var expr ports.LinExpr
		for _, c := range courierList {
			if yv, ok := yVar[c][i]; ok {
				expr = append(expr, ports.Term{Var: yv, Coef: 1})
			}
		}
		ipd.AddConstr(fmt.Sprintf("mainArcOneCourier_%d", a.ID), expr, ports.Equal, 1)
	}

	for _, c := range courierList {
		var expr ports.LinExpr
		for _, i := range entryArcsOf[c] {
			if yv, ok := yVar[c][i]; ok {
				expr = append(expr, ports.Term{Var: yv, Coef: 1})
			}
		}
		ipd.AddConstr("courierEntryOnce_"+c, expr, ports.Equal, 1)
	}

	minPayPerMinute := params.MinPayPerHour / 60

	zVar := make(map[string]ports.VarRef, len(courierList))
	var obj ports.LinExpr
	for _, c := range courierList {
		zv := ipd.AddVar("Z_"+c, ports.Continuous, 0, ports.Unbounded)
		zVar[c] = zv
		obj = append(obj, ports.Term{Var: zv, Coef: 1})

		deliveryExpr := ports.LinExpr{{Var: zv, Coef: 1}}
		for i, a := range arcs {
			if a.Kind() != domain.ArcMain {
				continue
			}
			if yv, ok := yVar[c][i]; ok {
				deliveryExpr = append(deliveryExpr, ports.Term{Var: yv, Coef: -params.PayPerDelivery * float64(len(a.Orders))})
			}
		}
		ipd.AddConstr("payPerDeliveryFloor_"+c, deliveryExpr, ports.GreaterEq, 0)

		shiftLen := courierByID[c].Off - courierByID[c].On
		ipd.AddConstr("payPerTimeFloor_"+c, ports.LinExpr{{Var: zv, Coef: 1}}, ports.GreaterEq, minPayPerMinute*shiftLen)
	}
	ipd.SetObjective(obj, true)

	status, err := ipd.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	if status != ports.StatusInfeasible {
		// Unexpectedly feasible: skip the cut and rely on a later incumbent.
		return nil, nil
	}

	iis, err := ipd.ComputeIIS(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute IIS: %w", err)
	}

	invalid := extractInvalidArcs(iis, arcs)
	if len(invalid) == 0 {
		return nil, nil
	}

	active := make(map[int]bool, len(arcs))
	for _, a := range arcs {
		active[a.ID] = true
	}

	predAlt, succAlt := alternates(invalid, g.Key, active, globalIdx.Arcs)
	cuts := emitAlternatesCuts(outer, invalid, predAlt, succAlt, arcVarsByUntimed)

	return cuts, nil
}

// extractInvalidArcs parses an IIS's constraint names back into the
// untimed arcs they constrain: the five tagged
// families are leaveAfterEarlyTime, leaveBeforeLateTime,
// enoughTimeForBothArcs, predecessorArcsUsedOnce and successorArcsUsedOnce.
func extractInvalidArcs(iis []string, arcs []domain.UntimedArc) []domain.UntimedArc {
	byID := make(map[int]domain.UntimedArc, len(arcs))
	for _, a := range arcs {
		byID[a.ID] = a
	}

	seen := make(map[int]bool)
	var out []domain.UntimedArc
	add := func(id int) {
		if seen[id] {
			return
		}
		if a, ok := byID[id]; ok {
			seen[id] = true
			out = append(out, a)
		}
	}

	for _, name := range iis {
		var a, b int
		switch {
			case scanSuffix(name, "leaveAfterEarlyTime_%d", &a):
			add(a)
			case scanSuffix(name, "leaveBeforeLateTime_%d", &a):
			add(a)
			case scanSuffix(name, "predecessorArcsUsedOnce_%d", &a):
			add(a)
			case scanSuffix(name, "successorArcsUsedOnce_%d", &a):
			add(a)
			case scanSuffix(name, "enoughTimeForBothArcs_%d_%d", &a, &b):
			add(a)
			add(b)
		}
	}
	return out
}

// scanSuffix tries to parse name against pattern with fmt.Sscanf, reporting
// whether every destination was filled.
func scanSuffix(name, pattern string, dest...*int) bool {
	args := make([]interface{}, len(dest))
	for i, d := range dest {
		args[i] = d
	}
	consumed, err := fmt.Sscanf(name, pattern, args...)
	return err == nil && consumed == len(dest)
}

// alternates finds, for every arc in the invalid set, untimed arcs not
// currently active in this group that could serve as a replacement
// predecessor or successor, respecting the usual time-window and
// disjoint-orders criteria (the same ones BuildArcIndex applies).
func alternates(invalid []domain.UntimedArc, groupKey string, active map[int]bool, universe []domain.UntimedArc) (predAlt, succAlt []domain.UntimedArc) {
	predSeen := make(map[int]bool)
	succSeen := make(map[int]bool)

	for _, cand := range universe {
		if cand.GroupKey != groupKey || active[cand.ID] {
			continue
		}
		for _, inv := range invalid {
			if cand.NextRestaurant == inv.DepartureRestaurant &&
			cand.EarliestLeave+cand.Travel <= inv.LatestLeave &&
			cand.DisjointFrom(inv) && !predSeen[cand.ID] {
				predSeen[cand.ID] = true
				predAlt = append(predAlt, cand)
			}
			if cand.DepartureRestaurant == inv.NextRestaurant &&
			inv.EarliestLeave+inv.Travel <= cand.LatestLeave &&
			cand.DisjointFrom(inv) && !succSeen[cand.ID] {
				succSeen[cand.ID] = true
				succAlt = append(succAlt, cand)
			}
		}
	}
	return predAlt, succAlt
}

// emitAlternatesCuts lifts the two lazy cuts:
// sum(invalid) <= |invalid| - 1 + sum(alternates), once for predecessor
// alternates and once for successor alternates.
func emitAlternatesCuts(m ports.Model, invalid, predAlt, succAlt []domain.UntimedArc, arcVarsByUntimed map[int][]ports.VarRef) []ports.LazyCut {
	invalidIDs := idsOf(invalid)
	rhsConst := float64(len(invalid) - 1)
	key := invalidKey(invalid)

	predCut := ports.LazyCut{
		Name: "illegal_path_pred_alt_" + key,
		Arcs: invalidIDs,
		NegArcs: idsOf(predAlt),
		Sense: ports.LessEq,
		RHS: rhsConst,
	}
	applyLazyCut(m, predCut, arcVarsByUntimed)

	succCut := ports.LazyCut{
		Name: "illegal_path_succ_alt_" + key,
		Arcs: invalidIDs,
		NegArcs: idsOf(succAlt),
		Sense: ports.LessEq,
		RHS: rhsConst,
	}
	applyLazyCut(m, succCut, arcVarsByUntimed)

	metrics.LazyCutsAdded.Add(2)
	return []ports.LazyCut{predCut, succCut}
}

func idsOf(arcs []domain.UntimedArc) []int {
	ids := make([]int, len(arcs))
	for i, a := range arcs {
		ids[i] = a.ID
	}
	return ids
}

func invalidKey(invalid []domain.UntimedArc) string {
	s := ""
	for _, a := range invalid {
		s += fmt.Sprintf("%d_", a.ID)
	}
	return s
}
