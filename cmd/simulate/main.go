// Command simulate runs one of the built-in scenarios (spec.md §8,
// Scenarios A-F) to completion, headless, and prints the resulting solution
// summary. It is the batch-mode counterpart to cmd/server: no HTTP API, no
// websocket stream, just the engine running to termination against stdout
// as its event log. Ported from the teacher's cmd/simulate, which was an
// HTTP client driving a single ride request/accept pair against a running
// server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"darpsim/internal/algorithm"
	"darpsim/internal/fleet"
	"darpsim/internal/grid"
	"darpsim/internal/harness"
	"darpsim/internal/model"
	"darpsim/internal/network"
	"darpsim/internal/scenario"
	"darpsim/internal/sim"
	"darpsim/internal/storage"
)

func main() {
	name := flag.String("scenario", "B", "scenario to run: A, B, C, D, E, or F")
	speedOverride := flag.Int("speed", 0, "override vehicle speed (meters/tick); 0 keeps the scenario default")
	flag.Parse()

	scn := selectScenario(*name)
	speed := scn.Speed
	if *speedOverride > 0 {
		speed = *speedOverride
	}

	store := fleet.NewStore()
	for _, v := range scn.Vehicles {
		store.InsertVehicle(v)
	}
	for _, c := range scn.Customers {
		store.InsertCustomer(c)
	}
	baseCost := int64(0)
	for _, v := range scn.Vehicles {
		baseCost += int64(v.Route.Cost())
	}

	oracle := network.NewDijkstraOracle(scn.Graph)
	eventLog := sim.NewEventLog(os.Stdout)
	stepper := sim.NewStepper(store, eventLog, speed)
	clock := sim.NewClock(stepper, store, 1000, scn.MatchingPeriod, scn.Tmax)
	runner := harness.NewRunner(store, clock, eventLog, nil, speed, false, time.Millisecond)

	index := grid.NewGrid(16, scn.Graph)
	matcher := algorithm.NewGreedy(oracle, index)

	go runner.Run(matcher)
	clock.Run()

	summarize(store)
	saveSolutionSummary(*name, store, baseCost)
}

// saveSolutionSummary writes the run's .sol-style aggregate (spec.md §6) to
// Postgres when DATABASE_URL is set; headless runs with no database
// configured just keep the stdout summary from summarize.
func saveSolutionSummary(scenarioName string, store *fleet.Store, baseCost int64) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := storage.DefaultPool(ctx, dbURL)
	if err != nil {
		log.Printf("database connection failed, solution summary not saved: %v", err)
		return
	}
	defer pool.Close()
	if err := storage.EnsureSchema(ctx, pool); err != nil {
		log.Printf("schema init failed, solution summary not saved: %v", err)
		return
	}
	runID := fmt.Sprintf("simulate-%s-%s", scenarioName, time.Now().UTC().Format("20060102T150405"))
	pg := storage.NewPostgres(pool, runID)

	customers := store.AllCustomers()
	vehicles := store.AllVehicles()
	var matched, canceled int
	for _, c := range customers {
		switch c.Status {
		case model.Canceled:
			canceled++
		case model.Arrived, model.Onboard:
			matched++
		}
	}
	var solutionCost int64
	for _, v := range vehicles {
		solutionCost += int64(v.Route.Cost())
	}

	// Per-customer pickup/trip delay needs each customer's actual pickup and
	// dropoff timestamps, which the fleet store does not retain once a stop
	// leaves the schedule; both averages are saved as zero.
	err = pg.SaveSolutionSummary(ctx, storage.SolutionSummary{
		ProblemName:     "scenario-" + scenarioName,
		RoadNetworkName: "scenario-" + scenarioName,
		VehicleCount:    len(vehicles),
		CustomerCount:   len(customers),
		BaseCost:        baseCost,
		SolutionCost:    solutionCost,
		MatchedCount:    matched,
		CanceledCount:   canceled,
		AvgPickupDelay:  0,
		AvgTripDelay:    0,
	})
	if err != nil {
		log.Printf("failed to save solution summary: %v", err)
		return
	}
	log.Printf("saved solution summary for run %q", runID)
}

func selectScenario(name string) scenario.Scenario {
	switch name {
	case "A":
		return scenario.A()
	case "B":
		return scenario.B()
	case "C":
		return scenario.C()
	case "D":
		return scenario.D()
	case "E":
		return scenario.E()
	case "F":
		return scenario.F()
	default:
		log.Fatalf("unknown scenario %q", name)
		return scenario.Scenario{}
	}
}

func summarize(store *fleet.Store) {
	commits, rejects, timeouts := store.Stats()
	var arrived, canceled, onboard, waiting int
	for _, c := range store.AllCustomers() {
		switch c.Status {
		case model.Arrived:
			arrived++
		case model.Canceled:
			canceled++
		case model.Onboard:
			onboard++
		case model.Waiting:
			waiting++
		}
	}
	var vehArrived, vehEnroute int
	for _, v := range store.AllVehicles() {
		if v.Status == model.VehlArrived {
			vehArrived++
		} else {
			vehEnroute++
		}
	}
	fmt.Printf("commits=%d rejects=%d timeouts=%d\n", commits, rejects, timeouts)
	fmt.Printf("customers: arrived=%d canceled=%d onboard=%d waiting=%d\n", arrived, canceled, onboard, waiting)
	fmt.Printf("vehicles: arrived=%d enroute=%d\n", vehArrived, vehEnroute)
}
