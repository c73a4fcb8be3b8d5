package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopType_String(t *testing.T) {
	assert.Equal(t, "VehlOrig", VehlOrig.String())
	assert.Equal(t, "VehlDest", VehlDest.String())
	assert.Equal(t, "CustOrig", CustOrig.String())
	assert.Equal(t, "CustDest", CustDest.String())
	assert.Equal(t, "Unknown", StopType(99).String())
}

func TestCustomerStatus_String(t *testing.T) {
	assert.Equal(t, "Waiting", Waiting.String())
	assert.Equal(t, "Onboard", Onboard.String())
	assert.Equal(t, "Arrived", Arrived.String())
	assert.Equal(t, "Canceled", Canceled.String())
}

func TestCustomer_Assigned(t *testing.T) {
	unassigned := Customer{AssignedTo: NoVehicle}
	assigned := Customer{AssignedTo: 7}
	assert.False(t, unassigned.Assigned())
	assert.True(t, assigned.Assigned())
}

func TestVehicle_Capacity(t *testing.T) {
	v := Vehicle{Trip: Trip{Load: -4}}
	assert.Equal(t, 4, v.Capacity())
}

func TestVehicle_TaxiMode(t *testing.T) {
	taxi := Vehicle{Trip: Trip{Destination: NoDestination}}
	fixed := Vehicle{Trip: Trip{Destination: 5}}
	assert.True(t, taxi.TaxiMode())
	assert.False(t, fixed.TaxiMode())
}

func TestVehicle_LastVisitedNode(t *testing.T) {
	v := Vehicle{
		Route:              Route{Data: []Wayp{{Dist: 0, Node: 10}, {Dist: 100, Node: 11}}},
		IdxLastVisitedNode: 1,
	}
	assert.Equal(t, 11, v.LastVisitedNode())
}

func TestRoute_CostAndLen(t *testing.T) {
	empty := Route{}
	assert.Equal(t, 0, empty.Cost())
	assert.Equal(t, 0, empty.Len())

	r := Route{Data: []Wayp{{Dist: 0, Node: 0}, {Dist: 250, Node: 1}}}
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 250, r.Cost())
	assert.Equal(t, 1, r.NodeAt(1))
	assert.Equal(t, 250, r.DistAt(1))
}

func TestSchedule_Len(t *testing.T) {
	s := Schedule{Data: []Stop{{}, {}, {}}}
	assert.Equal(t, 3, s.Len())
}
