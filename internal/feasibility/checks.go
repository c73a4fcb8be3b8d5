// Package feasibility implements the pure, side-effect-free checks every
// insertion and commit attempt must pass: time windows, capacity, and
// pickup/dropoff precedence (spec.md §4.5), grounded on cargo's chktw,
// chkcap, and chkpc (include/libcargo/functions.h).
package feasibility

import "darpsim/internal/model"

// Chkpc checks that every customer's CustOrig precedes its CustDest in the
// schedule. A single pass, recording each pickup's index in a map. A
// CustDest whose CustOrig is absent from the schedule also fails.
func Chkpc(schedule model.Schedule) bool {
	origIdx := make(map[int]int)
	for i, stop := range schedule.Data {
		switch stop.Type {
		case model.CustOrig:
			origIdx[stop.Owner] = i
		case model.CustDest:
			oi, ok := origIdx[stop.Owner]
			if !ok || oi >= i {
				return false
			}
		}
	}
	return true
}

// Chkcap walks the schedule, maintaining a running load starting from
// onboard, and fails if it ever exceeds capacity.
func Chkcap(capacity int, onboard int, schedule model.Schedule) bool {
	load := onboard
	for _, stop := range schedule.Data {
		switch stop.Type {
		case model.CustOrig:
			load++
		case model.CustDest:
			load--
		}
		if load > capacity {
			return false
		}
	}
	return true
}

// Chktw walks the schedule against the route's waypoints, accumulating
// travel time segment by segment from the vehicle's reference time. Waiting
// at an origin (arrival clamped up to early) delays every downstream
// arrival, not just that stop's — this is why the walk tracks a running
// clock instead of recomputing each arrival independently from cumulative
// route distance.
//
// The route is not one waypoint per schedule stop: insertion.RouteThrough
// materializes the full shortest-path node sequence between consecutive
// stops, so a detour through intermediate road-network nodes inserts extra
// waypoints between two stops' entries. Chktw accounts for this by scanning
// the route forward for each stop's actual node instead of assuming
// route.Data[i] lines up with schedule.Data[i]; the scan only moves forward,
// since a route never revisits an earlier point of progress.
//
// refTime is the vehicle's reference time: the current tick minus the
// progress already made toward the next waypoint, so that route index 0
// (the vehicle's current position) maps back to "now".
func Chktw(schedule model.Schedule, route model.Route, speed int, refTime int) bool {
	if schedule.Len() == 0 {
		return true
	}
	if route.Len() == 0 {
		return false
	}

	clock := refTime
	prevDist := route.Data[0].Dist
	routeIdx := 0
	for _, stop := range schedule.Data {
		for routeIdx < route.Len()-1 && route.Data[routeIdx].Node != stop.Loc {
			routeIdx++
		}
		if route.Data[routeIdx].Node != stop.Loc {
			// Route never reaches this stop's node; the two are out of
			// sync and cannot be checked meaningfully.
			return false
		}

		segment := route.Data[routeIdx].Dist - prevDist
		prevDist = route.Data[routeIdx].Dist
		clock += segment / speed

		switch stop.Type {
		case model.VehlOrig, model.CustOrig:
			if clock < stop.Early {
				clock = stop.Early
			}
		case model.VehlDest, model.CustDest:
			if clock > stop.Late {
				return false
			}
		}
	}
	return true
}
