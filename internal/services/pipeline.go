package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"mdrp-solver/internal/config"
	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/platform/metrics"
	"mdrp-solver/internal/platform/obs"
	"mdrp-solver/internal/ports"
)

// Result is everything a caller needs after a solve: the reconstructed
// per-courier journeys, the solver's terminal status, and a snapshot of the
// preprocessing counters (for logging/telemetry).
type Result struct {
	Solution ports.Solution
	Status ports.Status
	Metrics metrics.Snapshot
}

// Dependencies bundles Solve's pluggable ports. Solver and Policy are
// required; the three caches are optional accelerators
// and may be left nil; every cache miss falls straight through to
// recomputation.
type Dependencies struct {
	Solver ports.Solver
	Policy ports.PaymentPolicy
	SequenceCache ports.SequenceCache
	UntimedArcCache ports.UntimedArcCache
	CutCache ports.CutCache
}

// Solve runs the full preprocessing-through-solve pipeline, end to end,
// against one instance and one set of Dependencies. It is the single entry
// point every composition root (CLI or HTTP) calls.
func Solve(ctx context.Context, inst *domain.Instance, opts config.Options, deps Dependencies) (_ *Result, err error) {
	defer obs.Time(ctx, "pipeline.Solve")(&err)
	metrics.Reset()

	inst.ApplyOrderProportion(opts.OrderProportion, opts.Seed)

	if err := inst.Index(); err != nil {
		return nil, fmt.Errorf("pipeline: index instance: %w", err)
	}

	groups := domain.GroupCouriers(inst.Couriers, opts.GroupMode())
	globalOff := domain.GlobalOffTime(groups)

	unreachable, err := inst.DeriveOrders(globalOff)
	if err != nil {
		return nil, fmt.Errorf("pipeline: derive orders: %w", err)
	}
	if len(unreachable) > 0 {
		log.Printf("pipeline: %d orders unreachable by any courier group: %v", len(unreachable), unreachable)
	}

	byID := make(map[string]*domain.Order, len(inst.Orders))
	for _, o := range inst.Orders {
		byID[o.ID] = o
	}

	restaurantsByID := make(map[string]*domain.Restaurant, len(inst.Restaurants))
	for _, r := range inst.Restaurants {
		restaurantsByID[r.ID] = r
	}

	allSeqs, err := enumerateAllSequences(ctx, deps.SequenceCache, inst, opts.LimitBundlesToSizeOne)
	if err != nil {
		return nil, err
	}

	pairs, err := ExtendToRestaurants(ctx, inst.Params, allSeqs, inst.Restaurants, inst.OrdersAt, byID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: extend to restaurants: %w", err)
	}

	mainArcs, err := buildMainArcsCached(ctx, deps.UntimedArcCache, inst.Params, groups, pairs, restaurantsByID, inst.OrdersAt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build main arcs: %w", err)
	}
	exitArcs, err := BuildExitArcs(ctx, inst.Params, groups, allSeqs, restaurantsByID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build exit arcs: %w", err)
	}

	groupOf := make(map[string]*domain.CourierGroup, len(inst.Couriers))
	for _, g := range groups {
		for _, c := range g.Members {
			groupOf[c.ID] = g
		}
	}
	entryArcs, err := BuildEntryArcs(ctx, inst.Params, groupOf, inst.Couriers, inst.Restaurants, inst.OrdersAt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build entry arcs: %w", err)
	}

	untimed := make([]domain.UntimedArc, 0, len(mainArcs)+len(exitArcs)+len(entryArcs))
	untimed = append(untimed, entryArcs...)
	untimed = append(untimed, mainArcs...)
	untimed = append(untimed, exitArcs...)
	untimed = AssignArcIDs(untimed)

	idx, err := BuildArcIndex(ctx, untimed)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build predecessor/successor index: %w", err)
	}

	nodes, err := BuildNodes(ctx, globalOff, opts.NodeTimeInterval, opts.GlobalNodeIntervals, groups, untimed, inst.OrdersAt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build nodes: %w", err)
	}

	timedArcs, err := BuildTimedArcs(ctx, untimed, nodes)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build timed arcs: %w", err)
	}
	PatchExitHomeTimes(timedArcs, globalOff)

	f, err := BuildFormulation(ctx, deps.Solver, opts, deps.Policy, inst.Params, groups, timedArcs, inst.Orders)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build formulation: %w", err)
	}
	defer f.Model.Close()

	f.Model.SetMethod(parseMethod(opts.SolverMethod))
	f.Model.SetIncumbentCallback(NewIllegalPathCallback(ctx, deps.Solver, groups, f, idx, deps.CutCache))

	if opts.AddValidInequalityConstraints && !opts.AddVIRecursively {
		addAllValidInequalities(f.Model, idx, f)
	}

	if opts.AddValidInequalityConstraints && opts.AddVIRecursively {
		if _, err := SeparateValidInequalities(ctx, f.Model, idx, f); err != nil {
			return nil, fmt.Errorf("pipeline: separate valid inequalities: %w", err)
		}
	}

	status, err := f.Model.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: solve: %w", err)
	}
	if status == ports.StatusInfeasible {
		return &Result{Status: status, Metrics: metrics.Snap()}, fmt.Errorf("pipeline: infeasible instance")
	}

	sol, err := buildSolution(f, groups)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reconstruct solution: %w", err)
	}

	return &Result{Solution: sol, Status: status, Metrics: metrics.Snap()}, nil
}

// enumerateAllSequences fans out EnumerateSequences across every restaurant
// via errgroup, since each restaurant's sequence enumeration is independent
// of every other's. The first error cancels the group's context and is
// returned to the caller; results are collected into per-restaurant slots
// so ordering stays deterministic regardless of goroutine completion order.
func enumerateAllSequences(ctx context.Context, cache ports.SequenceCache, inst *domain.Instance, limitToSizeOne bool) ([]domain.Sequence, error) {
	perRestaurant := make([][]domain.Sequence, len(inst.Restaurants))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range inst.Restaurants {
		g.Go(func() error {
			seqs, err := enumerateSequencesCached(gctx, cache, inst.Params, *r, inst.OrdersAt(r.ID), limitToSizeOne)
			if err != nil {
				return fmt.Errorf("pipeline: enumerate sequences at %s: %w", r.ID, err)
			}
			perRestaurant[i] = seqs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var allSeqs []domain.Sequence
	for _, seqs := range perRestaurant {
		allSeqs = append(allSeqs, seqs...)
	}
	return allSeqs, nil
}

// enumerateSequencesCached wraps EnumerateSequences with an optional
// SequenceCache, keyed by the restaurant and the exact set
// of orders it was offered.
func enumerateSequencesCached(ctx context.Context, cache ports.SequenceCache, p domain.Params, restaurant domain.Restaurant, orders []*domain.Order, limitToSizeOne bool) ([]domain.Sequence, error) {
	if cache == nil {
		return EnumerateSequences(ctx, p, restaurant, orders, limitToSizeOne)
	}

	fp := sequenceFingerprint(restaurant.ID, orders, limitToSizeOne)
	if seqs, ok, err := cache.GetSequences(ctx, fp); err == nil && ok {
		return seqs, nil
	}

	seqs, err := EnumerateSequences(ctx, p, restaurant, orders, limitToSizeOne)
	if err != nil {
		return nil, err
	}
	if err := cache.PutSequences(ctx, fp, seqs); err != nil {
		log.Printf("pipeline: put sequence cache for %s: %v", restaurant.ID, err)
	}
	return seqs, nil
}

func sequenceFingerprint(restaurantID string, orders []*domain.Order, limitToSizeOne bool) string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s|%t|%s", restaurantID, limitToSizeOne, strings.Join(ids, ","))
}

// buildMainArcsCached wraps BuildMainArcs with an optional UntimedArcCache
// lookup, keyed by the exact set of sequence pairs it was built from, the
// only input BuildMainArcs draws besides instance-wide state.
func buildMainArcsCached(ctx context.Context, cache ports.UntimedArcCache, p domain.Params, groups []*domain.CourierGroup, pairs []domain.SequencePair, restaurants map[string]*domain.Restaurant, ordersAt func(string) []*domain.Order) ([]domain.UntimedArc, error) {
	if cache == nil {
		return BuildMainArcs(ctx, p, groups, pairs, restaurants, ordersAt)
	}

	fp := untimedArcFingerprint(groups, pairs)
	if arcs, ok, err := cache.GetArcs(ctx, fp); err == nil && ok {
		return arcs, nil
	}

	arcs, err := BuildMainArcs(ctx, p, groups, pairs, restaurants, ordersAt)
	if err != nil {
		return nil, err
	}
	if err := cache.PutArcs(ctx, fp, arcs); err != nil {
		log.Printf("pipeline: put untimed arc cache: %v", err)
	}
	return arcs, nil
}

func untimedArcFingerprint(groups []*domain.CourierGroup, pairs []domain.SequencePair) string {
	groupKeys := make([]string, len(groups))
	for i, g := range groups {
		groupKeys[i] = g.Key
	}
	sort.Strings(groupKeys)

	pairKeys := make([]string, len(pairs))
	for i, p := range pairs {
		pairKeys[i] = fmt.Sprintf("%s>%s:%s", p.Restaurant, p.NextRestaurant, strings.Join(p.Sequence, "-"))
	}
	sort.Strings(pairKeys)

	return strings.Join(groupKeys, ",") + "|" + strings.Join(pairKeys, ",")
}

func parseMethod(s string) ports.Method {
	switch s {
		case "primal":
		return ports.MethodPrimal
		case "barrier":
		return ports.MethodBarrier
		default:
		return ports.MethodDual
	}
}

// addAllValidInequalities adds every predecessor/successor valid
// inequality unconditionally,
// skipping the LP-value check the lazy mode uses to decide which to add.
func addAllValidInequalities(m ports.Model, idx *ArcIndex, f *Formulation) {
	byUntimed := make(map[int][]ports.VarRef)
	for _, a := range f.Arcs {
		if a.UntimedArcID < 0 {
			continue
		}
		if xv, ok := f.ArcVar[a.ID]; ok {
			byUntimed[a.UntimedArcID] = append(byUntimed[a.UntimedArcID], xv)
		}
	}

	for _, a := range idx.Arcs {
		if a.Kind() != domain.ArcEntry {
			expr := activationExpr(byUntimed[a.ID], 1)
			for _, predID := range idx.Pred[a.ID] {
				expr = append(expr, activationExpr(byUntimed[predID], -1)...)
			}
			m.AddConstr(fmt.Sprintf("vi_pred_upfront_%d", a.ID), expr, ports.LessEq, 0)
			metrics.ValidInequalitiesAdded.Add(1)
		}
		if a.Kind() != domain.ArcExit {
			expr := activationExpr(byUntimed[a.ID], 1)
			for _, succID := range idx.Succ[a.ID] {
				expr = append(expr, activationExpr(byUntimed[succID], -1)...)
			}
			m.AddConstr(fmt.Sprintf("vi_succ_upfront_%d", a.ID), expr, ports.LessEq, 0)
			metrics.ValidInequalitiesAdded.Add(1)
		}
	}
}

// buildSolution walks the chosen flow forward from every courier's active
// entry arc, greedily consuming one unit of remaining flow per step, until
// it reaches home. Within a group sharing concurrent flow across couriers
// the greedy choice is arbitrary among tied candidates, but order coverage
// and total flow are unaffected: every unit of flow is consumed exactly
// once across all traced paths.
func buildSolution(f *Formulation, groups []*domain.CourierGroup) (ports.Solution, error) {
	remaining := make(map[int]float64, len(f.Arcs))
	outgoing := make(map[nodeTimeKey][]domain.TimedArc)

	var objective float64
	for _, g := range groups {
		if pv, ok := f.GroupPayVar[g.Key]; ok {
			v, err := f.Model.VarValue(pv)
			if err != nil {
				return ports.Solution{}, fmt.Errorf("read p_%s: %w", g.Key, err)
			}
			objective += v
		}
	}

	for _, a := range f.Arcs {
		v, err := f.Model.VarValue(f.ArcVar[a.ID])
		if err != nil {
			return ports.Solution{}, fmt.Errorf("read x_%d: %w", a.ID, err)
		}
		if v <= 0.001 {
			continue
		}
		remaining[a.ID] = v
		outgoing[nodeTimeKey{a.GroupKey, a.R1, a.T1}] = append(outgoing[nodeTimeKey{a.GroupKey, a.R1, a.T1}], a)
	}

	couriers := make(map[string][]domain.TimedArc)

	for _, g := range groups {
		for _, c := range g.Members {
			yv, ok := f.CourierVar[c.ID]
			if !ok {
				continue
			}
			started, err := f.Model.VarValue(yv)
			if err != nil {
				return ports.Solution{}, fmt.Errorf("read y_%s: %w", c.ID, err)
			}
			if started <= 0.5 {
				continue
			}

			var entry *domain.TimedArc
			for i, a := range f.Arcs {
				if a.CourierID == c.ID && remaining[a.ID] > 0.001 {
					entry = &f.Arcs[i]
					break
				}
			}
			if entry == nil {
				log.Printf("pipeline: courier %s marked started but has no active entry arc", c.ID)
				continue
			}

			path, err := tracePath(*entry, outgoing, remaining, g.Key)
			if err != nil {
				return ports.Solution{}, err
			}
			couriers[c.ID] = path
		}
	}

	return ports.Solution{Objective: objective, Couriers: couriers}, nil
}

func tracePath(entry domain.TimedArc, outgoing map[nodeTimeKey][]domain.TimedArc, remaining map[int]float64, groupKey string) ([]domain.TimedArc, error) {
	const maxSteps = 100000

	remaining[entry.ID] -= 1
	path := []domain.TimedArc{entry}
	cur := entry

	for steps := 0; cur.R2 != domain.Home; steps++ {
		if steps > maxSteps {
			return nil, fmt.Errorf("tracePath: exceeded %d steps from node (%s,%s,%v), likely a cycle", maxSteps, groupKey, cur.R2, cur.T2)
		}

		candidates := outgoing[nodeTimeKey{groupKey, cur.R2, cur.T2}]
		var next *domain.TimedArc
		for i, cand := range candidates {
			if remaining[cand.ID] > 0.001 {
				next = &candidates[i]
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("tracePath: no outgoing flow at (%s,%s,%v); flow conservation should have guaranteed one", groupKey, cur.R2, cur.T2)
		}

		remaining[next.ID] -= 1
		path = append(path, *next)
		cur = *next
	}

	return path, nil
}
