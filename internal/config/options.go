// Package config holds the run options record spec.md §6 defines, populated
// from environment variables in the teacher's envOrDefault style
// (cmd/server/main.go).
package config

import (
	"os"
	"strconv"
)

// Options is a simulation run's configuration. The Path* fields are read
// from the environment and kept on the record, but nothing in this module
// opens or parses them: scenarios are always built programmatically
// (internal/scenario, spec.md §8's Scenarios A-F).
type Options struct {
	PathToRoadnet  string
	PathToGtree    string
	PathToEdges    string
	PathToProblem  string
	PathToSolution string
	PathToDataout  string

	TimeMultiplier int
	VehicleSpeed   int
	MatchingPeriod int
	BatchTime      int
	StrictMode     bool
	StaticMode     bool
}

// FromEnv builds Options from the process environment, falling back to
// values tuned for a responsive local run.
func FromEnv() Options {
	return Options{
		PathToRoadnet:  os.Getenv("DARPSIM_ROADNET"),
		PathToGtree:    os.Getenv("DARPSIM_GTREE"),
		PathToEdges:    os.Getenv("DARPSIM_EDGES"),
		PathToProblem:  os.Getenv("DARPSIM_PROBLEM"),
		PathToSolution: os.Getenv("DARPSIM_SOLUTION"),
		PathToDataout:  envOrDefault("DARPSIM_DATAOUT", "run.dat"),

		TimeMultiplier: envOrDefaultInt("DARPSIM_TIME_MULTIPLIER", 1),
		VehicleSpeed:   envOrDefaultInt("DARPSIM_VEHICLE_SPEED", 10),
		MatchingPeriod: envOrDefaultInt("DARPSIM_MATCHING_PERIOD", 60),
		BatchTime:      envOrDefaultInt("DARPSIM_BATCH_TIME", 30),
		StrictMode:     envOrDefaultBool("DARPSIM_STRICT_MODE", false),
		StaticMode:     envOrDefaultBool("DARPSIM_STATIC_MODE", false),
	}
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDefaultBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
