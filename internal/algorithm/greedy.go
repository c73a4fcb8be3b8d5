// Package algorithm holds matching strategies implementing harness.
// Algorithm. Greedy is grounded on cargo's example/greedy/greedy.cc: insert
// each waiting customer into the cheapest-detour candidate vehicle within
// pickup range, skipping busy schedules past a size heuristic.
package algorithm

import (
	"log"

	"darpsim/internal/feasibility"
	"darpsim/internal/grid"
	"darpsim/internal/harness"
	"darpsim/internal/insertion"
	"darpsim/internal/model"
	"darpsim/internal/network"
)

// maxScheduleStops mirrors greedy.cc's "< 10" schedule-size speed heuristic:
// vehicles with a long queue of committed stops are skipped rather than
// re-evaluated on every batch.
const maxScheduleStops = 10

// pickupRangeMeters bounds the candidate grid search radius around a
// customer's pickup node.
const pickupRangeMeters = 2000.0

// Greedy matches each waiting customer to its single cheapest-detour
// candidate vehicle, committing immediately once found.
type Greedy struct {
	oracle  network.Oracle
	grid    grid.Index
	pending []model.Customer
}

func NewGreedy(oracle network.Oracle, index grid.Index) *Greedy {
	return &Greedy{oracle: oracle, grid: index}
}

func (g *Greedy) HandleVehicle(v model.Vehicle) {
	g.grid.Insert(v)
}

// HandleCustomer queues cust for matching in Match, where a *harness.Runner
// is available to call Assign — greedy.cc commits inline from
// handle_customer, but harness.Algorithm separates candidate gathering from
// the commit pass.
func (g *Greedy) HandleCustomer(c model.Customer) {
	g.pending = append(g.pending, c)
}

func (g *Greedy) Match(r *harness.Runner) {
	for _, c := range g.pending {
		g.matchOne(r, c)
	}
	g.pending = nil
	// The grid is rebuilt from scratch by the next batch's HandleVehicle
	// calls (spec.md §4.6); clearing here, not at batch start, means a
	// vehicle that never reports in stays out of the next batch's candidates.
	g.grid.Clear()
}

func (g *Greedy) matchOne(r *harness.Runner, cust model.Customer) {
	candidates := g.grid.Within(pickupRangeMeters, cust.Origin)

	bestCost := -1
	var bestVehl model.Vehicle
	var bestResult insertion.Result
	found := false

	for _, cand := range candidates {
		if cand.Schedule.Len() >= maxScheduleStops {
			continue
		}
		custOrig := model.Stop{Owner: cust.Id, Loc: cust.Origin, Type: model.CustOrig, Early: cust.Early, Late: cust.Late}
		custDest := model.Stop{Owner: cust.Id, Loc: cust.Destination, Type: model.CustDest, Early: cust.Early, Late: cust.Late}

		result, err := insertion.SopInsert(cand.Id, cand.Schedule.Data, custOrig, custDest, g.oracle)
		if err != nil {
			continue
		}
		detour := result.Cost - cand.Route.Cost()
		if found && detour >= bestCost {
			continue
		}
		if !feasibility.Chkcap(cand.Capacity(), cand.Queued, result.Schedule) {
			continue
		}
		if !feasibility.Chktw(result.Schedule, result.Route, r.Speed(), r.Clock().Now()) {
			continue
		}
		bestCost = detour
		bestVehl = cand
		bestResult = result
		found = true
	}

	if !found {
		return
	}

	log.Printf("algorithm/greedy: matched customer %d with vehicle %d", cust.Id, bestVehl.Id)
	r.Assign(bestVehl.Id, []int{cust.Id}, nil, bestResult.Route, bestResult.Schedule)
}

func (g *Greedy) End() {
	g.pending = nil
}
