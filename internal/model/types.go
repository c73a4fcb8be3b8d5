// Package model holds the plain data types shared across the simulation
// engine: identifiers, the road-network waypoint/route types, and the
// trip/customer/vehicle records the fleet store manages.
package model

// Distinct integer-identifier domains for customer and vehicle ids. The
// records and function signatures in this module use plain ints for every
// id (node, trip, customer, vehicle), the way cargo's Route/Schedule key off
// int ids; these named types are declared but not used by them.
type (
	CustId int
	VehlId int
)

// Point is a WGS84 coordinate.
type Point struct {
	Lng float64
	Lat float64
}

// Wayp is one waypoint in a materialized route: the cumulative distance in
// meters from the route's start, and the node reached at that distance.
type Wayp struct {
	Dist int
	Node int
}

// StopType distinguishes the four kinds of stop a schedule can contain.
type StopType int

const (
	VehlOrig StopType = iota
	VehlDest
	CustOrig
	CustDest
)

func (t StopType) String() string {
	switch t {
	case VehlOrig:
		return "VehlOrig"
	case VehlDest:
		return "VehlDest"
	case CustOrig:
		return "CustOrig"
	case CustDest:
		return "CustDest"
	default:
		return "Unknown"
	}
}

// Unvisited marks a Stop that has not yet been reached.
const Unvisited = -1

// Stop is a customer or vehicle origin/destination appearing in a schedule.
type Stop struct {
	Owner     int
	Loc       int
	Type      StopType
	Early     int
	Late      int
	VisitedAt int
}

// Route is the vehicle's materialized shortest path through its schedule,
// an ordered sequence of waypoints with non-decreasing distance (two stops
// at the same node yield two waypoints at the same distance).
type Route struct {
	Owner int
	Data  []Wayp
}

func (r Route) NodeAt(i int) int  { return r.Data[i].Node }
func (r Route) DistAt(i int) int  { return r.Data[i].Dist }
func (r Route) Len() int          { return len(r.Data) }
func (r Route) Cost() int {
	if len(r.Data) == 0 {
		return 0
	}
	return r.Data[len(r.Data)-1].Dist
}

// Schedule is the vehicle's ordered sequence of stops still to be visited,
// including the fixed pseudo-origin (index 0) and final destination
// (last index) entries.
type Schedule struct {
	Owner int
	Data  []Stop
}

func (s Schedule) Len() int { return len(s.Data) }

// CustomerStatus is the lifecycle state of a customer trip.
type CustomerStatus int

const (
	Waiting CustomerStatus = iota
	Onboard
	Arrived
	Canceled
)

func (s CustomerStatus) String() string {
	switch s {
	case Waiting:
		return "Waiting"
	case Onboard:
		return "Onboard"
	case Arrived:
		return "Arrived"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// VehicleStatus is the lifecycle state of a vehicle.
type VehicleStatus int

const (
	Enroute VehicleStatus = iota
	VehlArrived
)

func (s VehicleStatus) String() string {
	switch s {
	case Enroute:
		return "Enroute"
	case VehlArrived:
		return "Arrived"
	default:
		return "Unknown"
	}
}

// NoVehicle is the sentinel VehlId meaning "not assigned to any vehicle".
const NoVehicle = -1

// NoDestination marks a taxi-mode vehicle with no fixed destination.
const NoDestination = -1

// Trip is the base record shared by customers and vehicles: an origin,
// destination, time window, and load. A negative Load marks a vehicle
// (|Load| is its capacity); a positive Load marks a customer's seat demand.
type Trip struct {
	Id          int
	Origin      int
	Destination int
	Early       int
	Late        int
	Load        int
}

// Customer is a Trip plus matching status.
type Customer struct {
	Trip
	Status     CustomerStatus
	AssignedTo int // model.NoVehicle if unassigned
}

func (c Customer) Assigned() bool { return c.AssignedTo != NoVehicle }

// Vehicle is a Trip plus its route/schedule and current progress along it.
type Vehicle struct {
	Trip
	Route              Route
	Schedule           Schedule
	IdxLastVisitedNode int
	NextNodeDistance   int
	Queued             int
	Status             VehicleStatus
}

func (v Vehicle) Capacity() int { return -v.Load }

func (v Vehicle) LastVisitedNode() int {
	return v.Route.Data[v.IdxLastVisitedNode].Node
}

func (v Vehicle) TaxiMode() bool { return v.Destination == NoDestination }
