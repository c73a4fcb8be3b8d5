package algorithm_test

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darpsim/internal/algorithm"
	"darpsim/internal/fleet"
	"darpsim/internal/grid"
	"darpsim/internal/harness"
	"darpsim/internal/model"
	"darpsim/internal/network"
	"darpsim/internal/scenario"
	"darpsim/internal/sim"
)

func newRunnerAndGreedy(t *testing.T, scn scenario.Scenario) (*harness.Runner, *fleet.Store, *algorithm.Greedy) {
	t.Helper()
	store := fleet.NewStore()
	for _, v := range scn.Vehicles {
		store.InsertVehicle(v)
	}
	for _, c := range scn.Customers {
		store.InsertCustomer(c)
	}
	oracle := network.NewDijkstraOracle(scn.Graph)
	stepper := sim.NewStepper(store, sim.NewEventLog(io.Discard), scn.Speed)
	clock := sim.NewClock(stepper, store, 0, scn.MatchingPeriod, scn.Tmax)
	runner := harness.NewRunner(store, clock, sim.NewEventLog(io.Discard), nil, scn.Speed, false, time.Millisecond)
	index := grid.NewGrid(32, scn.Graph)
	g := algorithm.NewGreedy(oracle, index)
	return runner, store, g
}

// TestGreedy_MatchesSingleCustomerToVehicle drives Greedy through one full
// batch the way harness.Runner.Run does: HandleVehicle/HandleCustomer for
// everything active this batch, then one Match call.
func TestGreedy_MatchesSingleCustomerToVehicle(t *testing.T) {
	scn := scenario.B()
	runner, store, g := newRunnerAndGreedy(t, scn)

	g.HandleVehicle(scn.Vehicles[0])
	g.HandleCustomer(scn.Customers[0])
	g.Match(runner)

	vehl, ok := store.Vehicle(scn.Vehicles[0].Id)
	require.True(t, ok)
	require.Equal(t, 4, vehl.Schedule.Len(), "greedy must have inserted the customer's pickup and dropoff")
	assert.Equal(t, model.CustOrig, vehl.Schedule.Data[1].Type)
	assert.Equal(t, model.CustDest, vehl.Schedule.Data[2].Type)

	cust, ok := store.Customer(scn.Customers[0].Id)
	require.True(t, ok)
	assert.Equal(t, vehl.Id, cust.AssignedTo)
}

// TestGreedy_SkipsInsertionThatWouldExceedCapacity drives Scenario C: a
// capacity-1 vehicle and two customers whose pickup/dropoff windows
// overlap, so only one can ever be onboard at once. Greedy must match the
// first and leave the second unmatched rather than double-booking it.
func TestGreedy_SkipsInsertionThatWouldExceedCapacity(t *testing.T) {
	scn := scenario.C()
	runner, store, g := newRunnerAndGreedy(t, scn)

	g.HandleVehicle(scn.Vehicles[0])
	for _, c := range scn.Customers {
		g.HandleCustomer(c)
	}
	g.Match(runner)

	matched := 0
	for _, c := range scn.Customers {
		cust, ok := store.Customer(c.Id)
		require.True(t, ok)
		if cust.AssignedTo != model.NoVehicle {
			matched++
		}
	}
	assert.Equal(t, 1, matched, "a capacity-1 vehicle must not be double-booked across overlapping customers")

	vehl, ok := store.Vehicle(scn.Vehicles[0].Id)
	require.True(t, ok)
	assert.LessOrEqual(t, vehl.Queued, vehl.Capacity())
}

// TestGreedy_GridClearedAfterMatch confirms the grid is emptied at the end
// of Match (spec.md §4.6): a vehicle that doesn't re-report via HandleVehicle
// in a batch must not still be a matching candidate in it, even though it
// was a candidate in the previous batch.
func TestGreedy_GridClearedAfterMatch(t *testing.T) {
	scn := scenario.B()
	runner, store, g := newRunnerAndGreedy(t, scn)

	// First batch: no pending customers, but the vehicle reports in and the
	// grid is populated and then cleared at the end of Match.
	g.HandleVehicle(scn.Vehicles[0])
	g.Match(runner)

	// Second batch: the customer arrives, but the vehicle does not report
	// in again. If Match's grid.Clear() hadn't run, the first batch's
	// candidate would stick around and wrongly match here.
	g.HandleCustomer(scn.Customers[0])
	g.Match(runner)

	cust, ok := store.Customer(scn.Customers[0].Id)
	require.True(t, ok)
	assert.Equal(t, model.NoVehicle, cust.AssignedTo, "a vehicle absent from this batch's HandleVehicle calls must not remain a candidate")
}
