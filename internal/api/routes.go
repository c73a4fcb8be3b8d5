package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"darpsim/internal/auth"
	"darpsim/internal/fleet"
	"darpsim/internal/sim"
)

// AttachRoutes wires the control-plane HTTP API spec.md §6 implies a
// benchmarking harness needs around the core: run status, fleet/customer
// snapshots, the event tail, a live websocket stream, token issuance, and
// /metrics. Ported from the teacher's AttachRoutes (internal/api/routes.go),
// trimmed from ride-hailing CRUD (request/accept/cancel/complete a ride,
// driver location heartbeats) down to read-mostly simulation introspection —
// the core does not expose a way to mutate the fleet over HTTP, since every
// mutation must flow through the harness's Assign commit path (spec.md §4.7),
// not an external client.
func AttachRoutes(r chi.Router, store *fleet.Store, clock *sim.Clock, log *sim.EventLog, broadcaster *sim.Broadcaster, authStore *auth.InMemoryStore, identityDB IdentityDB, identities IdentitySaver, idem IdemStore, defaultTTL time.Duration, signupSecret string) {
	authCfg := newAuthConfig(authStore, identityDB, defaultTTL)
	handler := &Handler{
		store:        store,
		clock:        clock,
		log:          log,
		broadcaster:  broadcaster,
		auth:         authCfg,
		identities:   identities,
		idem:         idem,
		startTime:    time.Now(),
		reqLatency:   newBucketCounter(defaultLatencyBuckets()),
		signupSecret: signupSecret,
	}

	r.Use(handler.metricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authCfg.middleware)
		pr.Get("/api/status", handler.Status)
		pr.Get("/api/vehicles", handler.Vehicles)
		pr.Get("/api/customers", handler.Customers)
		pr.Get("/api/events/tail", handler.EventTail)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authCfg.middleware)
		pr.Post("/api/auth/register", handler.RegisterIdentity)
	})

	r.Get("/metrics", handler.Metrics)
	r.Get("/ws/events", handler.Stream)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
