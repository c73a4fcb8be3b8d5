package insertion

import (
	"errors"

	"darpsim/internal/model"
	"darpsim/internal/network"
)

// ErrNoFeasibleInsertion is returned when no (i, j) pair admits the
// customer at all (the caller should treat this as an ordinary
// infeasibility, not an error condition, per spec.md §7).
var ErrNoFeasibleInsertion = errors.New("insertion: no feasible position")

// Result is the outcome of a successful SopInsert/SopReplace call.
type Result struct {
	Schedule model.Schedule
	Route    model.Route
	Cost     int
}

// SopInsert finds the minimum-detour pair of positions (i, j), i <= j, at
// which to insert custOrig at position i and custDest at position j+1 of
// the base schedule, and returns the resulting schedule, its materialized
// route, and the route's total cost.
//
// The first and last entries of base (vehicle pseudo-origin, vehicle
// destination) are fixed and never displaced: trial insertion positions
// range over the interior only. Ties break lexicographically on (i, j).
//
// Complexity: O(|schedule|^2) trial pairs, each a RouteThrough call costing
// O(|schedule|) oracle queries — matching spec.md §4.4's target.
func SopInsert(owner int, base []model.Stop, custOrig, custDest model.Stop, oracle network.Oracle) (Result, error) {
	n := len(base)
	if n < 2 {
		return Result{}, errors.New("insertion: schedule must contain at least vehicle origin and destination")
	}

	bestCost := -1
	var bestSchedule []model.Stop
	var bestRoute model.Route
	found := false

	// i, j index the gap *after* base[i]/base[j]; the final fixed stop
	// (vehicle destination, at n-1) must never be displaced, so the last
	// usable gap is after n-2.
	for i := 0; i <= n-2; i++ {
		for j := i; j <= n-2; j++ {
			trial := buildTrial(base, custOrig, custDest, i, j)
			route, cost, err := RouteThrough(owner, trial, oracle)
			if err != nil {
				return Result{}, err
			}
			if !found || cost < bestCost {
				found = true
				bestCost = cost
				bestSchedule = trial
				bestRoute = route
			}
		}
	}

	if !found {
		return Result{}, ErrNoFeasibleInsertion
	}

	return Result{
		Schedule: model.Schedule{Owner: owner, Data: bestSchedule},
		Route:    bestRoute,
		Cost:     bestCost,
	}, nil
}

// buildTrial returns a copy of base with custOrig inserted after index i
// and custDest inserted after index j (in the original indexing, before
// custOrig was inserted), preserving the i <= j, i ≤ j+1 contract of
// spec.md §4.4.
func buildTrial(base []model.Stop, custOrig, custDest model.Stop, i, j int) []model.Stop {
	trial := make([]model.Stop, 0, len(base)+2)
	trial = append(trial, base[:i+1]...)
	trial = append(trial, custOrig)
	trial = append(trial, base[i+1:j+1]...)
	trial = append(trial, custDest)
	trial = append(trial, base[j+1:]...)
	return trial
}

// SopReplace removes custId's pair of stops from base, then inserts
// replacement via SopInsert on the reduced schedule. Used by bilateral-
// style heuristics that swap one customer for another (spec.md §4.4).
func SopReplace(owner int, base []model.Stop, custId int, replacementOrig, replacementDest model.Stop, oracle network.Oracle) (Result, error) {
	reduced := make([]model.Stop, 0, len(base))
	for _, stop := range base {
		if (stop.Type == model.CustOrig || stop.Type == model.CustDest) && stop.Owner == custId {
			continue
		}
		reduced = append(reduced, stop)
	}
	return SopInsert(owner, reduced, replacementOrig, replacementDest, oracle)
}
