// Command server runs the simulation engine (clock, stepper, harness, and
// the one reference Greedy algorithm) in the background and exposes the
// control-plane HTTP API described in spec.md §6: run status, fleet and
// customer snapshots, the event-log tail, a live websocket stream, token
// issuance, and /metrics. Ported from the teacher's cmd/server/main.go,
// which wired a ride-dispatch Store/Hub instead of a simulation engine.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"darpsim/internal/algorithm"
	"darpsim/internal/api"
	"darpsim/internal/auth"
	"darpsim/internal/config"
	"darpsim/internal/fleet"
	"darpsim/internal/grid"
	"darpsim/internal/harness"
	"darpsim/internal/network"
	"darpsim/internal/scenario"
	"darpsim/internal/sim"
	"darpsim/internal/storage"
)

func main() {
	addr := envOrDefault("HTTP_ADDR", ":8080")
	env := envOrDefault("ENV", "dev")
	opts := config.FromEnv()

	scn := selectScenario(envOrDefault("SCENARIO", "B"))

	store := fleet.NewStoreWithPersistence(runPersistence())
	oracle := network.NewDijkstraOracle(scn.Graph)
	eventLog := sim.NewEventLog(os.Stdout)
	broadcaster := sim.NewBroadcaster()
	go broadcaster.Run()

	speed := opts.VehicleSpeed
	if speed <= 0 {
		speed = scn.Speed
	}
	matchingPeriod := opts.MatchingPeriod
	if matchingPeriod <= 0 {
		matchingPeriod = scn.MatchingPeriod
	}

	for _, v := range scn.Vehicles {
		store.InsertVehicle(v)
	}
	for _, c := range scn.Customers {
		store.InsertCustomer(c)
	}

	authStore, identityDB, idSaver, idemStore, authTTL := initAuth(env)

	stepper := sim.NewStepper(store, eventLog, speed)
	clock := sim.NewClock(stepper, store, opts.TimeMultiplier, matchingPeriod, scn.Tmax)
	batchDuration := time.Duration(opts.BatchTime) * tickDuration(opts.TimeMultiplier)
	runner := harness.NewRunner(store, clock, eventLog, broadcaster, speed, opts.StrictMode, batchDuration)

	index := selectGridIndex(scn)
	matcher := algorithm.NewGreedy(oracle, index)

	go clock.Run()
	go runner.Run(matcher)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	signupSecret := os.Getenv("SIGNUP_SECRET")
	if env == "prod" && os.Getenv("ALLOW_SIGNUP") == "true" && signupSecret == "" {
		log.Fatal("SIGNUP_SECRET required when ALLOW_SIGNUP=true in prod")
	}

	// AttachRoutes adds middleware, which chi only accepts before any route
	// is registered, so /ready is added after it.
	api.AttachRoutes(r, store, clock, eventLog, broadcaster, authStore, identityDB, idSaver, idemStore, authTTL, signupSecret)

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("darpsim control plane listening on %s (scenario=%s)", addr, envOrDefault("SCENARIO", "B"))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// selectGridIndex picks the candidate-vehicle spatial index Greedy searches
// against: an in-memory Grid by default, or a Redis-backed grid.RedisGrid
// when REDIS_URL is set, for deployments where several algorithm processes
// need to share one candidate index instead of each rebuilding its own
// in-memory grid from its own batch snapshot.
func selectGridIndex(scn scenario.Scenario) grid.Index {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return grid.NewGrid(32, scn.Graph)
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, falling back to in-memory grid: %v", err)
		return grid.NewGrid(32, scn.Graph)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis ping failed, falling back to in-memory grid: %v", err)
		return grid.NewGrid(32, scn.Graph)
	}
	log.Printf("using redis-backed grid index at %s", redisURL)
	return grid.NewRedisGrid(client, "darpsim:vehicles", scn.Graph)
}

func tickDuration(timeMultiplier int) time.Duration {
	if timeMultiplier <= 0 {
		return time.Second
	}
	return time.Duration(1000/timeMultiplier) * time.Millisecond
}

func selectScenario(name string) scenario.Scenario {
	switch name {
	case "A":
		return scenario.A()
	case "C":
		return scenario.C()
	case "D":
		return scenario.D()
	case "E":
		return scenario.E()
	case "F":
		return scenario.F()
	default:
		return scenario.B()
	}
}

// runPersistence connects a storage.Postgres backend for vehicle-commit and
// customer-outcome rows when DATABASE_URL is set, falling back to the
// in-memory-only store (nil Persistence) otherwise, the same
// fall-back-on-missing-DB shape initAuth uses for identities.
func runPersistence() fleet.Persistence {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := storage.DefaultPool(ctx, dbURL)
	if err != nil {
		log.Printf("database connection failed, run data stays in-memory only: %v", err)
		return nil
	}
	if err := storage.EnsureSchema(ctx, pool); err != nil {
		log.Printf("schema init failed, run data stays in-memory only: %v", err)
		return nil
	}
	runID := envOrDefault("RUN_ID", time.Now().UTC().Format("20060102T150405"))
	log.Printf("persisting run %q commits and customer outcomes to postgres", runID)
	return storage.NewPostgres(pool, runID)
}

func initAuth(env string) (*auth.InMemoryStore, api.IdentityDB, api.IdentitySaver, api.IdemStore, time.Duration) {
	authTTL := parseDuration(envOrDefault("AUTH_TTL", "720h"))
	idemTTL := parseDuration(envOrDefault("IDEMPOTENCY_TTL", "24h"))
	dbURL := os.Getenv("DATABASE_URL")

	var identityDB *storage.IdentityStore
	var idemDB *storage.IdempotencyStore
	authMem := auth.NewInMemoryStore()

	if dbURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool, err := storage.DefaultPool(ctx, dbURL)
		if err != nil {
			log.Printf("database connection failed, identities stay in-memory only: %v", err)
		} else if err := storage.EnsureSchema(ctx, pool); err != nil {
			log.Printf("schema init failed, identities stay in-memory only: %v", err)
		} else {
			identityDB = storage.NewIdentityStore(pool)
			if err := identityDB.EnsureSchema(ctx); err != nil {
				log.Printf("identity schema init failed: %v", err)
				identityDB = nil
			} else {
				seedIdentities(ctx, identityDB, authMem)
			}

			idemDB = storage.NewIdempotencyStore(pool, idemTTL)
			if err := idemDB.EnsureSchema(ctx); err != nil {
				log.Printf("idempotency schema init failed, registration retries won't dedupe: %v", err)
				idemDB = nil
			}
		}
	}

	if env == "prod" && dbURL == "" {
		log.Printf("warning: running in prod without DATABASE_URL, tokens will not survive a restart")
	}

	var idDB api.IdentityDB
	var idSaver api.IdentitySaver
	if identityDB != nil {
		idDB, idSaver = identityDB, identityDB
	}
	var idem api.IdemStore
	if idemDB != nil {
		idem = idemDB
	}
	return authMem, idDB, idSaver, idem, authTTL
}

func seedIdentities(ctx context.Context, db *storage.IdentityStore, mem *auth.InMemoryStore) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	all, err := db.All(ctx)
	if err != nil {
		log.Printf("failed to preload identities: %v", err)
		return
	}
	for _, ident := range all {
		mem.Seed(ident)
	}
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0
	}
	return d
}
