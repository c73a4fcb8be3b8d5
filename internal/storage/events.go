package storage

import (
	"context"

	"darpsim/internal/model"
)

// SaveAssignment records a vehicle's new commit together with every customer
// outcome it touches (newly queued or newly dropped) in a single
// transaction, so a crash mid-write never leaves a commit row with no
// matching customer rows or vice versa. Grounded on the teacher's
// CreateRideWithEvent/UpdateRideWithEvent multi-table transaction pattern
// (internal/storage/events.go), adapted from ride+driver+event rows to
// vehicle-commit+customer-outcome rows.
func (p *Postgres) SaveAssignment(vehl model.Vehicle, touched []model.Customer) error {
	ctx := context.Background()
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	status := "enroute"
	if vehl.Status == model.VehlArrived {
		status = "arrived"
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO vehicle_commits (run_id, vehicle_id, route_cost, schedule_len, queued, status, committed_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
`, p.runID, vehl.Id, vehl.Route.Cost(), vehl.Schedule.Len(), vehl.Queued, status); err != nil {
		return err
	}

	for _, cust := range touched {
		custStatus := "waiting"
		switch cust.Status {
		case model.Onboard:
			custStatus = "onboard"
		case model.Arrived:
			custStatus = "arrived"
		case model.Canceled:
			custStatus = "canceled"
		}
		var assignedTo *int
		if cust.AssignedTo != model.NoVehicle {
			assignedTo = &cust.AssignedTo
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO customer_outcomes (run_id, customer_id, status, assigned_to, recorded_at)
VALUES ($1,$2,$3,$4,NOW())
`, p.runID, cust.Id, custStatus, assignedTo); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
