// Package harness implements the event loop a matching algorithm plugs
// into: handler callbacks per batch, the commit/synchronize protocol, and
// cooperative shutdown (spec.md §4.7, §4.8), grounded on cargo's RSAlgorithm
// (include/libcargo/rsalgorithm.h) and on dispatch's idempotency-cache
// pattern (internal/dispatch/idempotency.go) for suppressing duplicate
// commit retries.
package harness

import "darpsim/internal/model"

// Algorithm is the interface a matching strategy implements. A Runner calls
// HandleVehicle/HandleCustomer once per active vehicle/waiting customer per
// batch, then Match once with access to the Runner for committing
// assignments, then End once when the simulation terminates.
type Algorithm interface {
	HandleVehicle(v model.Vehicle)
	HandleCustomer(c model.Customer)
	Match(r *Runner)
	End()
}
