package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the settings of the API server.
type Config struct {
	Port            string
	Store           string
	DBPath          string
	LogLevel        string
	SeedDemo        bool
	PastDueCron     string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file, then the environment. Missing variables fall back to defaults.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	seed, err := strconv.ParseBool(GetEnv("SEED_DEMO", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_DEMO: %w", err)
	}
	timeout, err := time.ParseDuration(GetEnv("SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg := &Config{
		Port:            GetEnv("PORT", "8080"),
		Store:           strings.ToLower(GetEnv("STORE", StoreMemory)),
		DBPath:          GetEnv("DB_PATH", "fredcollect.db"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		SeedDemo:        seed,
		PastDueCron:     GetEnv("PAST_DUE_SWEEP_CRON", "0 6 * * *"),
		ShutdownTimeout: timeout,
	}
	if cfg.Store != StoreMemory && cfg.Store != StoreSQLite {
		return nil, fmt.Errorf("invalid STORE %q: want %s or %s", cfg.Store, StoreMemory, StoreSQLite)
	}
	return cfg, nil
}

// GetEnv returns the value of key, or defaultValue when it is unset.
func GetEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}
