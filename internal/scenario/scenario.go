// Package scenario builds the in-memory road networks and problem instances
// spec.md §8 names (Scenarios A-F) programmatically, for tests and for
// cmd/simulate's built-in demo runs. Parsing the .rnet/.edges/.instance file
// formats spec.md §6 describes is explicitly out of scope (spec.md §6, §10
// Non-goals); these builders are this module's only instance source.
package scenario

import (
	"darpsim/internal/model"
	"darpsim/internal/network"
)

// Scenario bundles a road network with the vehicle/customer trips to seed a
// fleet store with, and the run parameters the scenario was designed under.
type Scenario struct {
	Graph          *network.Graph
	Vehicles       []model.Vehicle
	Customers      []model.Customer
	Speed          int
	MatchingPeriod int
	Tmax           int
}

// lineNetwork builds n nodes N0..N(n-1) in a straight line, spacingMeters
// apart, at roughly 1 meter per 0.00001 degree of longitude (an arbitrary
// but consistent flat-earth placement; these scenarios never exercise
// Haversine distance, only oracle.Distance/FindPath over graph edges).
func lineNetwork(n, spacingMeters int) *network.Graph {
	g := network.NewGraph()
	for i := 0; i < n; i++ {
		g.AddNode(i, model.Point{Lng: float64(i*spacingMeters) * 0.00001, Lat: 0})
	}
	for i := 0; i < n-1; i++ {
		g.AddEdge(i, i+1, spacingMeters, false)
	}
	return g
}

func vehlOrig(vehlID, loc, early, late int) model.Stop {
	return model.Stop{Owner: vehlID, Loc: loc, Type: model.VehlOrig, Early: early, Late: late, VisitedAt: model.Unvisited}
}

func vehlDest(vehlID, loc, early, late int) model.Stop {
	return model.Stop{Owner: vehlID, Loc: loc, Type: model.VehlDest, Early: early, Late: late, VisitedAt: model.Unvisited}
}

// straightVehicle builds a vehicle whose schedule is just its own origin and
// destination and whose route is materialized directly over the line
// network's edges (spacingMeters apart, numHops hops).
func straightVehicle(id, origin, destination, early, late, capacity, spacingMeters, numHops int) model.Vehicle {
	route := model.Route{Owner: id}
	for i := 0; i <= numHops; i++ {
		route.Data = append(route.Data, model.Wayp{Dist: i * spacingMeters, Node: origin + i})
	}
	sched := model.Schedule{Owner: id, Data: []model.Stop{
		vehlOrig(id, origin, early, late),
		vehlDest(id, destination, early, late),
	}}
	return model.Vehicle{
		Trip:               model.Trip{Id: id, Origin: origin, Destination: destination, Early: early, Late: late, Load: -capacity},
		Route:              route,
		Schedule:           sched,
		IdxLastVisitedNode: 0,
		NextNodeDistance:   spacingMeters,
		Status:             model.Enroute,
	}
}

// A builds Scenario A: five nodes N0..N4, 100m apart, V1 traveling the full
// line at 10 m/tick.
func A() Scenario {
	return Scenario{
		Graph:          lineNetwork(5, 100),
		Vehicles:       []model.Vehicle{straightVehicle(1, 0, 4, 0, 1000, 2, 100, 4)},
		Customers:      nil,
		Speed:          10,
		MatchingPeriod: 60,
		Tmax:           50,
	}
}

// B builds Scenario B: A's network and vehicle, plus customer C1 (N1 -> N3)
// for a greedy algorithm to match.
func B() Scenario {
	s := A()
	s.Customers = []model.Customer{{
		Trip:       model.Trip{Id: 1, Origin: 1, Destination: 3, Early: 0, Late: 100, Load: 1},
		Status:     model.Waiting,
		AssignedTo: model.NoVehicle,
	}}
	return s
}

// C builds Scenario C: a capacity-1 vehicle and two customers with
// overlapping windows, used to confirm chkcap rejects double-booking.
func C() Scenario {
	s := A()
	s.Vehicles = []model.Vehicle{straightVehicle(1, 0, 4, 0, 1000, 1, 100, 4)}
	s.Customers = []model.Customer{
		{Trip: model.Trip{Id: 1, Origin: 1, Destination: 3, Early: 0, Late: 200, Load: 1}, Status: model.Waiting, AssignedTo: model.NoVehicle},
		{Trip: model.Trip{Id: 2, Origin: 1, Destination: 2, Early: 0, Late: 200, Load: 1}, Status: model.Waiting, AssignedTo: model.NoVehicle},
	}
	return s
}

// D builds Scenario D: the same setup as B, used by tests to simulate a
// commit submitted against a route prefix the stepper has already advanced
// past.
func D() Scenario {
	return B()
}

// E builds Scenario E: one customer (N4 -> N0) with a short matching_period.
// The vehicle's line passes the customer's pickup, so nothing here keeps a
// matching algorithm from serving it; it times out when no algorithm matches
// it, as in the stepper-only test.
func E() Scenario {
	s := A()
	s.MatchingPeriod = 30
	s.Customers = []model.Customer{{
		Trip:       model.Trip{Id: 1, Origin: 4, Destination: 0, Early: 0, Late: 100, Load: 1},
		Status:     model.Waiting,
		AssignedTo: model.NoVehicle,
	}}
	return s
}

// F builds Scenario F: a taxi-mode vehicle (no fixed destination) that
// should remain Enroute after serving its assigned customers, waiting at
// its last dropoff rather than self-deactivating. Its schedule holds only
// the rolling VehlOrig pseudo-stop the stepper refreshes every time it
// crosses a node (stepper.go's advance): no VehlDest stop, since that stop
// type is what drives DeactivateVehicle and a taxi never reaches one on its
// own schedule.
func F() Scenario {
	g := lineNetwork(5, 100)
	v := model.Vehicle{
		Trip: model.Trip{Id: 1, Origin: 0, Destination: model.NoDestination, Early: 0, Late: model.NoDestination, Load: -2},
		Route: model.Route{Owner: 1, Data: []model.Wayp{
			{Dist: 0, Node: 0}, {Dist: 100, Node: 1}, {Dist: 200, Node: 2}, {Dist: 300, Node: 3}, {Dist: 400, Node: 4},
		}},
		Schedule: model.Schedule{Owner: 1, Data: []model.Stop{
			vehlOrig(1, 0, 0, 1000),
		}},
		IdxLastVisitedNode: 0,
		NextNodeDistance:   100,
		Status:             model.Enroute,
	}
	return Scenario{
		Graph:          g,
		Vehicles:       []model.Vehicle{v},
		Speed:          10,
		MatchingPeriod: 60,
		Tmax:           60,
	}
}
