package harness_test

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darpsim/internal/fleet"
	"darpsim/internal/harness"
	"darpsim/internal/insertion"
	"darpsim/internal/model"
	"darpsim/internal/network"
	"darpsim/internal/scenario"
	"darpsim/internal/sim"
)

// newRunner wires a Runner against a fresh store seeded from scn, the way
// cmd/server and cmd/simulate do, minus the HTTP/broadcast plumbing none
// of these tests needs.
func newRunner(t *testing.T, scn scenario.Scenario) (*harness.Runner, *fleet.Store, *network.DijkstraOracle) {
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
	return runner, store, oracle
}

// insertCustomer runs the same SopInsert an algorithm would, against vehl's
// current schedule, and returns the proposed route/schedule Assign expects.
func insertCustomer(t *testing.T, oracle *network.DijkstraOracle, vehl model.Vehicle, cust model.Customer) insertion.Result {
	t.Helper()
	custOrig := model.Stop{Owner: cust.Id, Loc: cust.Origin, Type: model.CustOrig, Early: cust.Early, Late: cust.Late}
	custDest := model.Stop{Owner: cust.Id, Loc: cust.Destination, Type: model.CustDest, Early: cust.Early, Late: cust.Late}
	result, err := insertion.SopInsert(vehl.Id, vehl.Schedule.Data, custOrig, custDest, oracle)
	require.NoError(t, err)
	return result
}

// TestRunner_Assign_ScenarioB_HappyPathCommitsMatch drives spec.md §8
// Scenario B's one-match trajectory: a single vehicle, a single reachable
// customer, and an immediate accept.
func TestRunner_Assign_ScenarioB_HappyPathCommitsMatch(t *testing.T) {
	scn := scenario.B()
	runner, store, oracle := newRunner(t, scn)
	vehl := scn.Vehicles[0]
	cust := scn.Customers[0]

	result := insertCustomer(t, oracle, vehl, cust)
	accepted := runner.Assign(vehl.Id, []int{cust.Id}, nil, result.Route, result.Schedule)
	require.True(t, accepted, "a feasible, non-backtracking insertion must be accepted")

	got, ok := store.Vehicle(vehl.Id)
	require.True(t, ok)
	require.Equal(t, 4, got.Schedule.Len())
	assert.Equal(t, model.CustOrig, got.Schedule.Data[1].Type)
	assert.Equal(t, cust.Id, got.Schedule.Data[1].Owner)
	assert.Equal(t, model.CustDest, got.Schedule.Data[2].Type)
	assert.Equal(t, cust.Id, got.Schedule.Data[2].Owner)

	gotCust, ok := store.Customer(cust.Id)
	require.True(t, ok)
	assert.Equal(t, vehl.Id, gotCust.AssignedTo)

	commits, rejects, _ := store.Stats()
	assert.Equal(t, int64(1), commits)
	assert.Equal(t, int64(0), rejects)
}

// TestRunner_Assign_ScenarioB_RejectsDeadlineTheDetourInclusiveArrivalMisses
// pins down the exact failure the Chktw indexing bug produced. Scenario B's
// route is N0-N1-N2-N3-N4 (a 5-waypoint detour through N2 for a 4-stop
// schedule); the dropoff's true arrival at N3 is tick 30 (10 wait-free
// ticks for the 100 units to N1 plus 20 more for the 200 units to N3, at
// 10 dist/tick). Indexing route.Data by
// schedule position instead reads waypoint 2 (N2, dist 200) as the N3
// dropoff, computing tick 20 — ten ticks early. A Late of 25 sits exactly
// between those two answers: the old indexing bug would wrongly accept it
// (20 <= 25), while the correct detour-inclusive arrival (30) must reject
// it. A Late of 30 must still pass, since the true arrival lands exactly on
// the deadline.
func TestRunner_Assign_ScenarioB_RejectsDeadlineTheDetourInclusiveArrivalMisses(t *testing.T) {
	scn := scenario.B()
	vehl := scn.Vehicles[0]
	cust := scn.Customers[0]

	tooTight := cust
	tooTight.Late = 25
	runner, _, oracle := newRunner(t, scn)
	result := insertCustomer(t, oracle, vehl, tooTight)
	accepted := runner.Assign(vehl.Id, []int{cust.Id}, nil, result.Route, result.Schedule)
	assert.False(t, accepted, "a commit whose true dropoff arrival tick (30) exceeds Late (25) must be rejected")

	onTime := cust
	onTime.Late = 30
	runner2, _, oracle2 := newRunner(t, scn)
	result2 := insertCustomer(t, oracle2, vehl, onTime)
	accepted2 := runner2.Assign(vehl.Id, []int{cust.Id}, nil, result2.Route, result2.Schedule)
	assert.True(t, accepted2, "the same route must be accepted once Late covers its true arrival tick")
}

// TestRunner_Assign_RejectsStaleRouteAfterStepperAdvancesPastPickup mirrors
// spec.md §8 Scenario D: an algorithm batch computes an insertion against a
// vehicle's route before the stepper advances that vehicle past the
// customer's pickup node; the commit submitted afterward must be rejected
// rather than silently accepted, since it would pick up a customer at a
// node the vehicle has already passed.
func TestRunner_Assign_RejectsStaleRouteAfterStepperAdvancesPastPickup(t *testing.T) {
	scn := scenario.D()
	runner, store, oracle := newRunner(t, scn)
	vehl := scn.Vehicles[0]
	cust := scn.Customers[0]

	// The algorithm computed this insertion against the vehicle's route as
	// it stood before any stepper tick ran.
	result := insertCustomer(t, oracle, vehl, cust)

	// The stepper has since advanced the vehicle past node N1 (the
	// customer's pickup node) on its own, unrelated progress through the
	// route — simulating the tick that ran between the algorithm's batch
	// and its commit.
	require.NoError(t, store.UpdateIdxLastVisitedNode(vehl.Id, 1))

	accepted := runner.Assign(vehl.Id, []int{cust.Id}, nil, result.Route, result.Schedule)
	assert.False(t, accepted, "a commit proposing a pickup at an already-passed node must be rejected")

	// synchronize's no-backtrack check rejects before ever calling
	// CommitAssignment, so the store's commit counter (which only the
	// committed path increments) stays at zero.
	commits, _, _ := store.Stats()
	assert.Equal(t, int64(0), commits)

	gotCust, ok := store.Customer(cust.Id)
	require.True(t, ok)
	assert.Equal(t, model.NoVehicle, gotCust.AssignedTo, "a rejected commit must not touch customer assignment")
}

// TestRunner_Assign_WaitsForInFlightStepperTick exercises spec.md §4.7 steps
// 1-2: synchronize must block on the same commit-path lock sim.Clock.Run
// holds across a stepper tick, instead of reloading and committing state
// while a tick is in flight.
func TestRunner_Assign_WaitsForInFlightStepperTick(t *testing.T) {
	scn := scenario.B()
	runner, _, oracle := newRunner(t, scn)
	vehl := scn.Vehicles[0]
	cust := scn.Customers[0]
	result := insertCustomer(t, oracle, vehl, cust)

	clock := runner.Clock()
	clock.LockCommitPath()

	done := make(chan bool, 1)
	go func() {
		done <- runner.Assign(vehl.Id, []int{cust.Id}, nil, result.Route, result.Schedule)
	}()

	select {
	case <-done:
		t.Fatal("Assign returned while the commit-path lock was held by an in-flight tick")
	case <-time.After(50 * time.Millisecond):
	}

	clock.UnlockCommitPath()

	select {
	case accepted := <-done:
		assert.True(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Assign never returned after the commit-path lock was released")
	}
}
