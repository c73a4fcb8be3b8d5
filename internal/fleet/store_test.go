package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darpsim/internal/model"
)

func newTestStore() *Store {
	s := NewStore()
	s.InsertVehicle(model.Vehicle{
		Trip:   model.Trip{Id: 1, Origin: 0, Destination: 5, Early: 0, Late: 1000, Load: -2},
		Status: model.Enroute,
		Schedule: model.Schedule{Owner: 1, Data: []model.Stop{
			{Owner: 1, Loc: 0, Type: model.VehlOrig, VisitedAt: model.Unvisited},
			{Owner: 1, Loc: 5, Type: model.VehlDest, VisitedAt: model.Unvisited},
		}},
	})
	s.InsertCustomer(model.Customer{
		Trip:       model.Trip{Id: 1, Origin: 1, Destination: 3, Early: 0, Late: 100, Load: 1},
		Status:     model.Waiting,
		AssignedTo: model.NoVehicle,
	})
	return s
}

func TestStore_CommitAssignmentUpdatesVehicleAndCustomers(t *testing.T) {
	s := newTestStore()
	route := model.Route{Owner: 1, Data: []model.Wayp{{Dist: 0, Node: 0}, {Dist: 500, Node: 5}}}
	sched := model.Schedule{Owner: 1, Data: []model.Stop{
		{Owner: 1, Loc: 0, Type: model.VehlOrig},
		{Owner: 1, Loc: 5, Type: model.VehlDest},
	}}

	err := s.CommitAssignment(1, route, sched, []int{1}, nil)
	require.NoError(t, err)

	v, ok := s.Vehicle(1)
	require.True(t, ok)
	assert.Equal(t, route, v.Route)
	assert.Equal(t, 1, v.Queued)

	c, ok := s.Customer(1)
	require.True(t, ok)
	assert.Equal(t, 1, c.AssignedTo)

	commits, rejects, _ := s.Stats()
	assert.Equal(t, int64(1), commits)
	assert.Equal(t, int64(0), rejects)
}

func TestStore_CommitAssignmentRejectsUnknownVehicle(t *testing.T) {
	s := newTestStore()
	err := s.CommitAssignment(99, model.Route{}, model.Schedule{}, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, rejects, _ := s.Stats()
	assert.Equal(t, int64(1), rejects)
}

func TestStore_CommitAssignmentRejectsUnknownCustomer(t *testing.T) {
	s := newTestStore()
	err := s.CommitAssignment(1, model.Route{}, model.Schedule{}, []int{42}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CommitAssignmentIsAtomicOnFailure(t *testing.T) {
	// A commit referencing one valid and one unknown customer must not
	// partially apply: the vehicle's route/schedule must stay untouched.
	s := newTestStore()
	before, _ := s.Vehicle(1)

	route := model.Route{Owner: 1, Data: []model.Wayp{{Dist: 0, Node: 0}}}
	err := s.CommitAssignment(1, route, model.Schedule{Owner: 1}, []int{1, 999}, nil)
	require.Error(t, err)

	after, _ := s.Vehicle(1)
	assert.Equal(t, before.Route, after.Route)

	c, _ := s.Customer(1)
	assert.Equal(t, model.NoVehicle, c.AssignedTo)
}

func TestStore_TimeoutCustomersCancelsExpiredWaiting(t *testing.T) {
	s := newTestStore() // customer 1: early=0, period passed in below
	n := s.TimeoutCustomers(1000, 10)
	assert.Equal(t, 1, n)
	c, _ := s.Customer(1)
	assert.Equal(t, model.Canceled, c.Status)
	_, _, timeouts := s.Stats()
	assert.Equal(t, int64(1), timeouts)
}

func TestStore_TimeoutCustomersIgnoresAssignedCustomers(t *testing.T) {
	s := newTestStore()
	route := model.Route{Owner: 1, Data: []model.Wayp{{Dist: 0, Node: 0}}}
	require.NoError(t, s.CommitAssignment(1, route, model.Schedule{Owner: 1}, []int{1}, nil))

	n := s.TimeoutCustomers(1000, 10)
	assert.Equal(t, 0, n)
	c, _ := s.Customer(1)
	assert.Equal(t, model.Waiting, c.Status)
}

func TestStore_PickupAndDropoffLifecycle(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.PickupCustomer(1, 1, 5))
	c, _ := s.Customer(1)
	assert.Equal(t, model.Onboard, c.Status)
	v, _ := s.Vehicle(1)
	assert.Equal(t, 1, v.Queued)

	require.NoError(t, s.DropoffCustomer(1, 1, 20))
	c, _ = s.Customer(1)
	assert.Equal(t, model.Arrived, c.Status)
	v, _ = s.Vehicle(1)
	assert.Equal(t, 0, v.Queued)
}

func TestStore_DeactivateVehicleExcludesFromActive(t *testing.T) {
	s := newTestStore()
	assert.True(t, s.Active())
	require.NoError(t, s.DeactivateVehicle(1))
	assert.False(t, s.Active())
}

func TestStore_SelectStepVehiclesReturnsActiveDueVehicle(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.UpdateNextNodeDistance(1, 0))
	out := s.SelectStepVehicles(0)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Id)
}

func TestStore_MutatorsReturnErrNotFoundForUnknownVehicle(t *testing.T) {
	s := newTestStore()
	assert.ErrorIs(t, s.UpdateRoute(42, model.Route{}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateSchedule(42, model.Schedule{}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateIdxLastVisitedNode(42, 0), ErrNotFound)
	assert.ErrorIs(t, s.UpdateNextNodeDistance(42, 0), ErrNotFound)
	assert.ErrorIs(t, s.PickupCustomer(1, 42, 0), ErrNotFound)
	assert.ErrorIs(t, s.DeactivateVehicle(42), ErrNotFound)
}
