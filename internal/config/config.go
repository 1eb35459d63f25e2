// Package config loads process configuration from the environment,
// following the typed-struct-plus-getenv-fallback pattern used
// throughout the retrieval pack rather than the teacher's bare
// os.Getenv calls.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"os"
)

// Config holds everything cmd/rwjobs needs to build an adapter, a
// logger, and a worker pool.
type Config struct {
	DatabaseURL string
	Queue       string
	ProcessName string

	MaxAttempts int
	MaxRuntime  time.Duration
	WaitTime    time.Duration

	HTTPAddr string
}

// Load reads configuration from the environment, loading a .env file
// first if present (silently ignored when absent, matching
// godotenv.Load's conventional use in the pack).
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL: mustGetenv("DATABASE_URL"),
		Queue:       getenv("RWJOBS_QUEUE", ""),
		ProcessName: getenv("RWJOBS_PROCESS_NAME", ""),

		MaxAttempts: getenvInt("RWJOBS_MAX_ATTEMPTS", 24),
		MaxRuntime:  getenvDuration("RWJOBS_MAX_RUNTIME", 4*time.Hour),
		WaitTime:    getenvDuration("RWJOBS_WAIT_TIME", 5*time.Second),

		HTTPAddr: getenv("RWJOBS_HTTP_ADDR", ":8080"),
	}
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func getenvInt(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
