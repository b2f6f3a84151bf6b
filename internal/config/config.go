// Package config loads service configuration from DOCSIM_* environment
// variables, with defaults suitable for local development.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Service
	Environment string
	Port        int
	MetricsPort int

	// Logging
	LogLevel  string
	LogPretty bool
	LogCaller bool

	// Seed corpus
	SeedEnabled bool

	// Pipeline simulator
	PipelineEnabled   bool
	PipelineTick      time.Duration
	PipelineSeed      int64
	PipelineMaxStarts int

	// Request handling
	SimulatedLatency time.Duration
}

func Load() *Config {
	return &Config{
		Environment: getEnv("DOCSIM_ENV", "local"),
		Port:        getEnvInt("DOCSIM_PORT", 8080),
		MetricsPort: getEnvInt("DOCSIM_METRICS_PORT", 9090),

		LogLevel:  getEnv("DOCSIM_LOG_LEVEL", "info"),
		LogPretty: getEnvBool("DOCSIM_LOG_PRETTY", false),
		LogCaller: getEnvBool("DOCSIM_LOG_CALLER", false),

		SeedEnabled: getEnvBool("DOCSIM_SEED", true),

		PipelineEnabled:   getEnvBool("DOCSIM_PIPELINE", true),
		PipelineTick:      getEnvDuration("DOCSIM_PIPELINE_TICK", 3*time.Second),
		PipelineSeed:      getEnvInt64("DOCSIM_PIPELINE_SEED", 42),
		PipelineMaxStarts: getEnvInt("DOCSIM_PIPELINE_MAX_STARTS", 2),

		SimulatedLatency: getEnvDuration("DOCSIM_SIMULATED_LATENCY", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
