package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"mdrp-solver/internal/api/dto"
	"mdrp-solver/internal/config"
	"mdrp-solver/internal/domain"
	"mdrp-solver/internal/ports"
	"mdrp-solver/internal/services"
)

// SolveHandler exposes the preprocessing+MIP pipeline as a single /solve
// endpoint: post an instance, get back a journey report.
type SolveHandler struct {
	Solver ports.Solver
	Reporter ports.JourneyReporter
	Policy ports.PaymentPolicy
	Options config.Options

	// The three caches are optional accelerators; a
	// nil value falls straight through to recomputation.
	SequenceCache ports.SequenceCache
	UntimedArcCache ports.UntimedArcCache
	CutCache ports.CutCache
}

func (h *SolveHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.SolveRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if len(req.Couriers) == 0 {
		writeError(w, r, http.StatusBadRequest, "couriers must not be empty")
		return
	}
	if len(req.Restaurants) == 0 {
		writeError(w, r, http.StatusBadRequest, "restaurants must not be empty")
		return
	}

	inst := toInstance(req)

	if h.Solver == nil {
		log.Printf("SolveHandler Solver must not be nil")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	deps := services.Dependencies{
		Solver: h.Solver,
		Policy: h.Policy,
		SequenceCache: h.SequenceCache,
		UntimedArcCache: h.UntimedArcCache,
		CutCache: h.CutCache,
	}
	result, err := services.Solve(r.Context(), inst, h.Options, deps)
	if err != nil && result == nil {
		log.Printf("solve failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if err != nil {
		// Infeasible instance: still a well-formed response, not a server error.
		writeJSON(w, r, http.StatusOK, dto.SolveResponse{Status: "infeasible"})
		return
	}

	report, err := h.Reporter.Report(r.Context(), result.Solution)
	if err != nil {
		log.Printf("render report failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SolveResponse{
			Status: "optimal",
			Objective: result.Solution.Objective,
			Report: report,
		})
}

func toInstance(req dto.SolveRequest) *domain.Instance {
	couriers := make([]*domain.Courier, 0, len(req.Couriers))
	for _, c := range req.Couriers {
		couriers = append(couriers, &domain.Courier{
				ID: c.ID,
				Home: domain.Coordinates{X: c.X, Y: c.Y},
				On: c.On,
				Off: c.Off,
			})
	}

	orders := make([]*domain.Order, 0, len(req.Orders))
	for _, o := range req.Orders {
		orders = append(orders, &domain.Order{
				ID: o.ID,
				Drop: domain.Coordinates{X: o.X, Y: o.Y},
				PlacementTime: o.PlacementTime,
				RestaurantID: o.RestaurantID,
			})
	}

	restaurants := make([]*domain.Restaurant, 0, len(req.Restaurants))
	for _, rst := range req.Restaurants {
		restaurants = append(restaurants, &domain.Restaurant{
				ID: rst.ID,
				Location: domain.Coordinates{X: rst.X, Y: rst.Y},
			})
	}

	return &domain.Instance{
		Couriers: couriers,
		Orders: orders,
		Restaurants: restaurants,
		Params: domain.Params{
			TravelSpeed: req.Params.TravelSpeed,
			PickupServiceTime: req.Params.PickupServiceTime,
			DropoffServiceTime: req.Params.DropoffServiceTime,
			TargetClickToDoor: req.Params.TargetClickToDoor,
			MaxClickToDoor: req.Params.MaxClickToDoor,
			PayPerDelivery: req.Params.PayPerDelivery,
			MinPayPerHour: req.Params.MinPayPerHour,
		},
	}
}
