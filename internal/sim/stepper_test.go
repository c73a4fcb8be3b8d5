package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darpsim/internal/fleet"
	"darpsim/internal/model"
	"darpsim/internal/scenario"
)

func newTestFleet(scn scenario.Scenario) *fleet.Store {
	store := fleet.NewStore()
	for _, v := range scn.Vehicles {
		store.InsertVehicle(v)
	}
	for _, c := range scn.Customers {
		store.InsertCustomer(c)
	}
	return store
}

// TestStepper_ScenarioA_VehicleTraversesLineToArrival runs spec.md §8's
// Scenario A to completion: a single vehicle with no customers must reach
// its destination and deactivate.
func TestStepper_ScenarioA_VehicleTraversesLineToArrival(t *testing.T) {
	scn := scenario.A()
	store := newTestFleet(scn)
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	stepper := NewStepper(store, log, scn.Speed)

	for now := 0; now < scn.Tmax && store.Active(); now++ {
		stepper.Step(now, scn.MatchingPeriod)
	}

	v, ok := store.Vehicle(1)
	require.True(t, ok)
	assert.Equal(t, model.VehlArrived, v.Status)
	assert.False(t, store.Active())
}

// TestStepper_ScenarioE_UnmatchedCustomerTimesOut exercises spec.md §8's
// timeout property: a customer with no candidate vehicle in range cancels
// once early+matching_period has elapsed.
func TestStepper_ScenarioE_UnmatchedCustomerTimesOut(t *testing.T) {
	scn := scenario.E()
	store := newTestFleet(scn)
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	stepper := NewStepper(store, log, scn.Speed)

	for now := 0; now <= scn.MatchingPeriod+1; now++ {
		stepper.Step(now, scn.MatchingPeriod)
	}

	c, ok := store.Customer(1)
	require.True(t, ok)
	assert.Equal(t, model.Canceled, c.Status)
}

// TestStepper_TaxiModeVehicleNeverSelfDeactivates exercises Scenario F: a
// vehicle with no fixed destination must keep advancing (its pseudo-origin
// rolling forward) rather than deactivate when it reaches the end of its
// current route.
func TestStepper_TaxiModeVehicleNeverSelfDeactivates(t *testing.T) {
	scn := scenario.F()
	store := newTestFleet(scn)
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	stepper := NewStepper(store, log, scn.Speed)

	for now := 0; now < 50; now++ {
		stepper.Step(now, scn.MatchingPeriod)
	}

	v, ok := store.Vehicle(1)
	require.True(t, ok)
	assert.Equal(t, model.Enroute, v.Status)
}
