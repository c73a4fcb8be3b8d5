// Package insertion implements the shared-ride insertion kernel: sop_insert
// and sop_replace, plus the RouteThrough helper both build on. Grounded on
// cargo's include/libcargo/functions.h declarations and src/dbutils.cc's
// route-materialization approach.
package insertion

import (
	"darpsim/internal/model"
	"darpsim/internal/network"
)

// RouteThrough materializes the shortest-path route visiting every stop of
// schedule in order, and returns its total cost. The returned route is a
// concatenation of each consecutive pair's shortest-path node sequence with
// cumulative distances. A detour's intermediate road-network nodes get
// their own waypoints, so route.Data is not one-to-one with schedule: a
// multi-hop segment between two stops inserts extra waypoints between
// their two entries. Callers that need to know which waypoint a given
// schedule stop lands on (e.g. feasibility.Chktw) must scan route.Data for
// the matching node rather than index by schedule position.
func RouteThrough(owner int, schedule []model.Stop, oracle network.Oracle) (model.Route, int, error) {
	route := model.Route{Owner: owner}
	if len(schedule) == 0 {
		return route, 0, nil
	}

	cum := 0
	route.Data = append(route.Data, model.Wayp{Dist: 0, Node: schedule[0].Loc})

	for i := 1; i < len(schedule); i++ {
		from := schedule[i-1].Loc
		to := schedule[i].Loc
		if from == to {
			route.Data = append(route.Data, model.Wayp{Dist: cum, Node: to})
			continue
		}
		path, err := oracle.FindPath(from, to)
		if err != nil {
			return model.Route{}, 0, err
		}
		base := cum
		// path[0] == from, already represented by the previous waypoint.
		// Each intermediate node's cumulative distance is its shortest-path
		// distance from "from", added to the base; the final node's is the
		// segment's full cost, which also advances cum for the next
		// segment.
		for j := 1; j < len(path); j++ {
			var hopDist int
			if j == len(path)-1 {
				hopDist, err = oracle.Distance(from, to)
			} else {
				hopDist, err = oracle.Distance(from, path[j])
			}
			if err != nil {
				return model.Route{}, 0, err
			}
			cum = base + hopDist
			route.Data = append(route.Data, model.Wayp{Dist: cum, Node: path[j]})
		}
	}

	return route, cum, nil
}
