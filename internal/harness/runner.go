package harness

import (
	"fmt"
	"log"
	"time"

	"darpsim/internal/feasibility"
	"darpsim/internal/fleet"
	"darpsim/internal/model"
	"darpsim/internal/sim"
)

// strictModeCostFactor bounds how much a committed route may cost relative
// to the vehicle's current route when strict_mode is enabled (spec.md §6's
// "reject commits that increase route cost beyond a bound"); the source
// left the bound unspecified, so 2x is chosen here as a conservative
// default.
const strictModeCostFactor = 2.0

// Runner is the algorithm harness's event loop: batch handler dispatch,
// pacing, and the commit/synchronize protocol (spec.md §4.7).
type Runner struct {
	store         *fleet.Store
	clock         *sim.Clock
	log           *sim.EventLog
	broadcaster   *sim.Broadcaster
	speed         int
	strictMode    bool
	batchDuration time.Duration
	idem          *idemCache
}

func NewRunner(store *fleet.Store, clock *sim.Clock, eventLog *sim.EventLog, broadcaster *sim.Broadcaster, speed int, strictMode bool, batchDuration time.Duration) *Runner {
	return &Runner{
		store:         store,
		clock:         clock,
		log:           eventLog,
		broadcaster:   broadcaster,
		speed:         speed,
		strictMode:    strictMode,
		batchDuration: batchDuration,
		idem:          newIdemCache(),
	}
}

// Speed returns the process-wide vehicle speed in meters/tick, for
// algorithms that need it to pre-filter candidates before calling Assign.
func (r *Runner) Speed() int { return r.speed }

// Clock exposes the simulation clock so algorithms can read the current
// tick without the harness threading "now" through every call.
func (r *Runner) Clock() *sim.Clock { return r.clock }

// Run dispatches batches to algo until the clock signals termination.
func (r *Runner) Run(algo Algorithm) {
	for {
		select {
		case <-r.clock.Done():
			algo.End()
			return
		default:
		}

		start := time.Now()
		now := r.clock.Now()

		for _, v := range r.store.SelectMatchableVehicles(now) {
			algo.HandleVehicle(v)
		}
		for _, c := range r.store.SelectWaitingCustomers(now) {
			algo.HandleCustomer(c)
		}
		algo.Match(r)

		elapsed := time.Since(start)
		if elapsed > r.batchDuration {
			log.Printf("harness: batch at tick %d overran budget by %v", now, elapsed-r.batchDuration)
			continue
		}
		time.Sleep(r.batchDuration - elapsed)
	}
}

// Assign is the commit primitive algorithms call to propose a new route and
// schedule for a vehicle, adding and/or removing the given customers.
// Implements the synchronize protocol: integrity check against the
// vehicle's current route prefix, no-backtrack check on newly added pickup
// nodes, and a capacity/time-window re-check, all against freshly reloaded
// state. Returns false without mutating the store if any check fails.
func (r *Runner) Assign(vehlID int, add, remove []int, route model.Route, sched model.Schedule) bool {
	key := assignKey(vehlID, route, sched, add, remove)
	if accepted, ok := r.idem.lookup(key); ok {
		return accepted
	}

	accepted := r.synchronize(vehlID, add, remove, route, sched)
	r.idem.remember(key, accepted)
	return accepted
}

func (r *Runner) synchronize(vehlID int, add, remove []int, route model.Route, sched model.Schedule) bool {
	// spec.md §4.7 steps 1-2: acquire the commit-path lock before reloading
	// state, and hold it through the commit write, so a stepper tick can
	// never run between the reload and the write (spec.md §5's
	// no-interleaving guarantee). Shared with sim.Clock.Run, which holds
	// the same lock across each tick.
	r.clock.LockCommitPath()
	defer r.clock.UnlockCommitPath()

	cur, ok := r.store.Vehicle(vehlID)
	if !ok {
		return false
	}
	lvnNow := cur.IdxLastVisitedNode
	routeNow := cur.Route

	if route.Len() <= lvnNow || routeNow.Len() <= lvnNow {
		return false
	}
	for i := 0; i <= lvnNow; i++ {
		if route.Data[i].Node != routeNow.Data[i].Node || route.Data[i].Dist != routeNow.Data[i].Dist {
			return false
		}
	}

	for _, custID := range add {
		c, ok := r.store.Customer(custID)
		if !ok {
			return false
		}
		for i := 0; i <= lvnNow; i++ {
			if route.Data[i].Node == c.Origin {
				return false
			}
		}
	}

	if !feasibility.Chkcap(cur.Capacity(), cur.Queued, sched) {
		return false
	}
	now := r.clock.Now()
	if !feasibility.Chktw(sched, route, r.speed, now) {
		return false
	}
	if r.strictMode && routeNow.Cost() > 0 && float64(route.Cost()) > float64(routeNow.Cost())*strictModeCostFactor {
		return false
	}

	if err := r.store.CommitAssignment(vehlID, route, sched, add, remove); err != nil {
		return false
	}

	nodes := make([]int, route.Len())
	for i := 0; i < route.Len(); i++ {
		nodes[i] = route.NodeAt(i)
	}
	r.log.Route(now, vehlID, nodes)
	r.log.Match(now, vehlID, add, remove)
	if r.broadcaster != nil {
		r.broadcaster.Publish(map[string]any{
			"type":    "assignment",
			"vehicle": vehlID,
			"added":   add,
			"removed": remove,
		})
	}
	return true
}

func assignKey(vehlID int, route model.Route, sched model.Schedule, add, remove []int) string {
	return fmt.Sprintf("%d:%d:%d:%v:%v", vehlID, route.Cost(), sched.Len(), add, remove)
}
