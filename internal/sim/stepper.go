package sim

import (
	"log"

	"darpsim/internal/fleet"
	"darpsim/internal/model"
)

// farLate is the fresh current-location stop's Late bound: a VehlOrig stop
// only ever clamps the clock upward in Chktw, so its own Late is never
// compared against, but the field has to hold something.
const farLate = 1 << 30

// Stepper advances every active, due vehicle each tick and processes the
// stops of those that cross a node, per spec.md §4.3's step procedure.
type Stepper struct {
	store *fleet.Store
	log   *EventLog
	speed int
}

func NewStepper(store *fleet.Store, log *EventLog, speed int) *Stepper {
	return &Stepper{store: store, log: log, speed: speed}
}

// Step runs one tick: timeout sweep, then per-vehicle advancement for every
// vehicle SelectStepVehicles returns (all active vehicles with early <= now).
func (s *Stepper) Step(now, matchingPeriod int) {
	if n := s.store.TimeoutCustomers(now, matchingPeriod); n > 0 {
		canceled := make([]int, 0, n)
		for _, c := range s.store.AllCustomers() {
			if c.Status == model.Canceled {
				canceled = append(canceled, c.Id)
			}
		}
		if len(canceled) > 0 {
			s.log.Timeout(now, canceled...)
		}
	}

	for _, v := range s.store.SelectStepVehicles(now) {
		s.advance(v, now)
	}
}

func (s *Stepper) advance(v model.Vehicle, now int) {
	nnd := v.NextNodeDistance - s.speed
	lvn := v.IdxLastVisitedNode
	route := v.Route
	sched := v.Schedule
	arrived := false
	crossed := false

	var pickups, dropoffs, arrivals []int

	for nnd <= 0 && !arrived {
		lvn++
		if lvn >= route.Len() {
			log.Printf("sim: vehicle %d route exhausted before schedule drained, skipping", v.Id)
			return
		}
		crossed = true

		if sched.Len() > 1 && route.Data[lvn].Node == sched.Data[1].Loc {
			stop := sched.Data[1]
			switch stop.Type {
			case model.VehlDest:
				_ = s.store.DeactivateVehicle(v.Id)
				arrived = true
				arrivals = append(arrivals, v.Id)
			case model.CustOrig:
				_ = s.store.PickupCustomer(stop.Owner, v.Id, now)
				pickups = append(pickups, stop.Owner)
			case model.CustDest:
				_ = s.store.DropoffCustomer(stop.Owner, v.Id, now)
				dropoffs = append(dropoffs, stop.Owner)
			}
			_ = s.store.UpdateStopVisitedAt(v.Id, stop.Owner, stop.Type, now)
			// Build a fresh backing array rather than reslicing sched.Data
			// in place: sched is a shallow copy of the store's snapshot, so
			// its Data slice still aliases the stored vehicle's backing
			// array until UpdateSchedule below replaces the map entry
			// under the store's lock. Reslicing plus the in-place
			// overwrite further down would mutate that shared array ahead
			// of the lock, letting a concurrent store read observe a torn
			// schedule (spec.md §3, §4.2).
			sched.Data = append([]model.Stop(nil), sched.Data[1:]...)
		} else if sched.Len() > 1 {
			log.Printf("sim: vehicle %d node mismatch at lvn=%d, schedule inconsistent", v.Id, lvn)
		}

		if !arrived && lvn+1 < route.Len() {
			nnd += route.Data[lvn+1].Dist - route.Data[lvn].Dist
		}
	}

	if crossed && sched.Len() > 0 {
		// Same reason as above: when no stop was consumed, sched.Data still
		// aliases the store's array.
		sched.Data = append([]model.Stop(nil), sched.Data...)
		sched.Data[0] = model.Stop{
			Owner:     v.Id,
			Loc:       route.Data[lvn].Node,
			Type:      model.VehlOrig,
			Early:     now,
			Late:      farLate,
			VisitedAt: model.Unvisited,
		}
		_ = s.store.UpdateSchedule(v.Id, sched)
	}

	_ = s.store.UpdateIdxLastVisitedNode(v.Id, lvn)
	_ = s.store.UpdateNextNodeDistance(v.Id, nnd)

	if len(pickups) > 0 {
		s.log.Pickup(now, pickups...)
	}
	if len(dropoffs) > 0 {
		s.log.Dropoff(now, dropoffs...)
	}
	if len(arrivals) > 0 {
		s.log.Arrival(now, arrivals...)
	}
}
