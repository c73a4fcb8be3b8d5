package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"darpsim/internal/auth"
	"darpsim/internal/fleet"
	"darpsim/internal/sim"
)

func requireRole(w http.ResponseWriter, r *http.Request, enforce bool, allowed ...auth.Role) bool {
	if !enforce {
		return true
	}
	id, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	for _, role := range allowed {
		if id.Role == role {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "forbidden")
	return false
}

// IdentitySaver durably records a newly issued token, e.g. to Postgres.
type IdentitySaver interface {
	Save(ctx context.Context, ident auth.Identity, ttl time.Duration) (auth.Identity, error)
}

// IdemStore lets RegisterIdentity dedupe retried registration requests
// against a durable key, mirroring the teacher's dispatch.Store.LookupIdempotent
// pattern (internal/dispatch/store.go) applied to token issuance instead of
// ride creation.
type IdemStore interface {
	Remember(ctx context.Context, key, token string) error
	Lookup(ctx context.Context, key string) (string, bool, error)
}

// Handler serves the control-plane API spec.md §7 describes: run status,
// fleet/customer snapshots, the event tail, token issuance, and the
// websocket stream. Grounded on the teacher's Handler (internal/api/handlers.go),
// trimmed from ride-hailing CRUD down to read-mostly simulation introspection.
type Handler struct {
	store       *fleet.Store
	clock       *sim.Clock
	log         *sim.EventLog
	broadcaster *sim.Broadcaster
	auth        authConfig
	identities  IdentitySaver
	idem        IdemStore

	startTime    time.Time
	reqCount     int64
	reqErrors    int64
	reqLatencyNS int64
	reqLatency   bucketCounter
	signupSecret string
}

// defaultLatencyBuckets mirrors the teacher's Prometheus-style cumulative
// histogram boundaries (seconds).
func defaultLatencyBuckets() map[float64]int64 {
	return map[float64]int64{
		0.005: 0, 0.01: 0, 0.025: 0, 0.05: 0, 0.1: 0,
		0.25: 0, 0.5: 0, 1: 0, 2.5: 0, 5: 0,
	}
}

// Status reports the run's clock tick and fleet/customer/outcome counters.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	commits, rejects, timeouts := h.store.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"tick":     h.clock.Now(),
		"active":   h.store.Active(),
		"commits":  commits,
		"rejects":  rejects,
		"timeouts": timeouts,
	})
}

// Vehicles returns a snapshot of every vehicle's current route/schedule/status.
func (h *Handler) Vehicles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.AllVehicles())
}

// Customers returns a snapshot of every customer's current status.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.AllCustomers())
}

// EventTail returns the most recent event-log lines, defaulting to 100.
func (h *Handler) EventTail(w http.ResponseWriter, r *http.Request) {
	n := parseLimit(r.URL.Query().Get("n"), 100)
	respondJSON(w, http.StatusOK, map[string]any{"lines": h.log.Tail(n)})
}

// Stream upgrades to a websocket that receives an "assignment" event
// (vehicle id, added and removed customer ids) for every committed match as
// it happens; the routes themselves are not sent.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.auth.authorized(r); !ok && h.auth.store != nil {
		_ = id
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.broadcaster.Serve(w, r)
}

// RegisterIdentity issues an operator or viewer token. Operator-gated once
// auth is configured, unless a matching X-Signup-Secret header is presented
// instead. The route sits behind the token middleware, so the request still
// needs a valid token of either role.
func (h *Handler) RegisterIdentity(w http.ResponseWriter, r *http.Request) {
	if h.auth.store == nil {
		respondError(w, http.StatusServiceUnavailable, "auth not configured")
		return
	}
	var payload struct {
		Role        string `json:"role"`
		TTL         string `json:"ttl,omitempty"`
		Idempotency string `json:"idempotencyKey,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Idempotency: reuse the existing identity when the key matches a prior
	// registration, instead of minting a second token for the same request.
	if payload.Idempotency != "" && h.idem != nil {
		if token, ok, err := h.idem.Lookup(r.Context(), payload.Idempotency); err == nil && ok {
			if identity, ok := h.auth.store.Lookup(token); ok {
				respondJSON(w, http.StatusOK, identity)
				return
			}
		}
	}

	secret := r.Header.Get("X-Signup-Secret")
	signupOK := h.signupSecret != "" && secret != "" &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.signupSecret)) == 1
	if !signupOK && !requireRole(w, r, true, auth.RoleOperator) {
		return
	}
	ttl := h.auth.ttl
	if payload.TTL != "" {
		if parsed, err := time.ParseDuration(payload.TTL); err == nil {
			ttl = parsed
		}
	}
	identity, err := h.auth.store.Register(auth.Role(payload.Role), ttl)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.identities != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		_, _ = h.identities.Save(ctx, identity, ttl)
	}
	if payload.Idempotency != "" && h.idem != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		_ = h.idem.Remember(ctx, payload.Idempotency, identity.Token)
	}
	respondJSON(w, http.StatusOK, identity)
}

func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 10000 {
		return v
	}
	return def
}

// Metrics exposes a minimal Prometheus text endpoint, ported from the
// teacher's Handler.Metrics.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	commits, rejects, timeouts := h.store.Stats()
	fmt.Fprintf(w, "darpsim_commits_total %d\n", commits)
	fmt.Fprintf(w, "darpsim_rejects_total %d\n", rejects)
	fmt.Fprintf(w, "darpsim_timeouts_total %d\n", timeouts)
	fmt.Fprintf(w, "darpsim_tick %d\n", h.clock.Now())
	fmt.Fprintf(w, "darpsim_vehicles %d\n", len(h.store.AllVehicles()))
	fmt.Fprintf(w, "darpsim_customers %d\n", len(h.store.AllCustomers()))
	uptime := time.Since(h.startTime).Seconds()
	fmt.Fprintf(w, "darpsim_uptime_seconds %.0f\n", uptime)
	fmt.Fprintf(w, "darpsim_goroutines %d\n", runtime.NumGoroutine())
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(w, "darpsim_mem_alloc_bytes %d\n", m.Alloc)
	fmt.Fprintf(w, "darpsim_heap_objects %d\n", m.HeapObjects)
	fmt.Fprintf(w, "darpsim_requests_total %d\n", atomic.LoadInt64(&h.reqCount))
	fmt.Fprintf(w, "darpsim_request_errors_total %d\n", atomic.LoadInt64(&h.reqErrors))
	latencySec := float64(atomic.LoadInt64(&h.reqLatencyNS)) / 1e9
	fmt.Fprintf(w, "darpsim_request_latency_seconds_total %.6f\n", latencySec)
	for le, count := range h.reqLatency.snapshot() {
		fmt.Fprintf(w, "darpsim_request_latency_seconds_bucket{le=\"%g\"} %d\n", le, count)
	}
}

// metricsMiddleware captures basic request metrics.
func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)
		atomic.AddInt64(&h.reqCount, 1)
		if rec.status >= 400 {
			atomic.AddInt64(&h.reqErrors, 1)
		}
		elapsed := time.Since(start)
		atomic.AddInt64(&h.reqLatencyNS, elapsed.Nanoseconds())
		h.reqLatency.observe(elapsed)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
