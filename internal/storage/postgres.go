package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"darpsim/internal/model"
)

// Postgres persists committed assignments and terminal customer outcomes for
// a run, implementing fleet.Persistence. Grounded on the teacher's
// Postgres type (internal/storage/postgres.go) and its upsert/tx-with-event
// style (internal/storage/events.go's CreateRideWithEvent/UpdateRideWithEvent),
// adapted from per-ride rows to per-run vehicle-commit/customer-outcome rows.
type Postgres struct {
	pool  *pgxpool.Pool
	runID string
}

func NewPostgres(pool *pgxpool.Pool, runID string) *Postgres {
	return &Postgres{pool: pool, runID: runID}
}

// EnsureSchema creates the tables this run needs if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return ApplySchema(ctx, pool)
}

// SaveCommit records a committed route/schedule for a vehicle, satisfying
// fleet.Persistence.
func (p *Postgres) SaveCommit(vehl model.Vehicle) error {
	status := "enroute"
	if vehl.Status == model.VehlArrived {
		status = "arrived"
	}
	_, err := p.pool.Exec(context.Background(), `
INSERT INTO vehicle_commits (run_id, vehicle_id, route_cost, schedule_len, queued, status, committed_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
`, p.runID, vehl.Id, vehl.Route.Cost(), vehl.Schedule.Len(), vehl.Queued, status)
	return err
}

// SaveCustomerOutcome records a customer's terminal status (arrived or
// canceled), satisfying fleet.Persistence.
func (p *Postgres) SaveCustomerOutcome(cust model.Customer) error {
	status := "waiting"
	switch cust.Status {
	case model.Onboard:
		status = "onboard"
	case model.Arrived:
		status = "arrived"
	case model.Canceled:
		status = "canceled"
	}
	var assignedTo *int
	if cust.AssignedTo != model.NoVehicle {
		assignedTo = &cust.AssignedTo
	}
	_, err := p.pool.Exec(context.Background(), `
INSERT INTO customer_outcomes (run_id, customer_id, status, assigned_to, recorded_at)
VALUES ($1,$2,$3,$4,NOW())
`, p.runID, cust.Id, status, assignedTo)
	return err
}

// SolutionSummary is the aggregate outcome of a completed run, the row form
// of the .sol summary spec.md §6 describes.
type SolutionSummary struct {
	ProblemName     string
	RoadNetworkName string
	VehicleCount    int
	CustomerCount   int
	BaseCost        int64
	SolutionCost    int64
	MatchedCount    int
	CanceledCount   int
	AvgPickupDelay  float64
	AvgTripDelay    float64
}

// SaveSolutionSummary upserts this run's final summary, using the same
// ON CONFLICT-on-unique-key upsert style as the teacher's SaveDriver.
func (p *Postgres) SaveSolutionSummary(ctx context.Context, s SolutionSummary) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO solution_summaries (
	run_id, problem_name, road_network_name, vehicle_count, customer_count,
	base_cost, solution_cost, matched_count, canceled_count, avg_pickup_delay, avg_trip_delay
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (run_id) DO UPDATE SET
	vehicle_count = EXCLUDED.vehicle_count,
	customer_count = EXCLUDED.customer_count,
	base_cost = EXCLUDED.base_cost,
	solution_cost = EXCLUDED.solution_cost,
	matched_count = EXCLUDED.matched_count,
	canceled_count = EXCLUDED.canceled_count,
	avg_pickup_delay = EXCLUDED.avg_pickup_delay,
	avg_trip_delay = EXCLUDED.avg_trip_delay
`, p.runID, s.ProblemName, s.RoadNetworkName, s.VehicleCount, s.CustomerCount,
		s.BaseCost, s.SolutionCost, s.MatchedCount, s.CanceledCount, s.AvgPickupDelay, s.AvgTripDelay)
	return err
}

func DefaultPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = time.Hour
	return pgxpool.NewWithConfig(ctx, cfg)
}
