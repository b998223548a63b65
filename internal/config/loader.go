// Package config loads environment driven settings for the portal service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend selectors accepted by PORTAL_STORAGE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config captures environment driven configuration values for the portal.
type Config struct {
	HTTPPort             int
	StorageBackend       string
	DataDir              string
	SQLiteDSN            string
	StoreLatency         time.Duration
	SessionTTL           time.Duration
	SeedFixtures         bool
	FreeTierMaxPublished int
	AdminEmail           string
	AdminPassword        string
}

// Load parses configuration from the process environment. A .env file in the
// working directory is read first when present; real environment variables
// win over file entries.
func Load() (Config, error) {
	// Best effort: a missing .env file is the common case in production.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:             8080,
		StorageBackend:       BackendMemory,
		DataDir:              "data",
		SQLiteDSN:            "file:portal.db",
		StoreLatency:         0,
		SessionTTL:           24 * time.Hour,
		SeedFixtures:         true,
		FreeTierMaxPublished: 3,
	}

	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("PORTAL_HTTP_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "PORTAL_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_STORAGE_BACKEND")); value != "" {
		switch value {
		case BackendMemory, BackendFile, BackendSQLite:
			cfg.StorageBackend = value
		default:
			invalid = append(invalid, "PORTAL_STORAGE_BACKEND")
		}
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_DATA_DIR")); value != "" {
		cfg.DataDir = value
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_SQLITE_DSN")); value != "" {
		cfg.SQLiteDSN = value
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_STORE_LATENCY")); value != "" {
		latency, err := time.ParseDuration(value)
		if err != nil || latency < 0 {
			invalid = append(invalid, "PORTAL_STORE_LATENCY")
		} else {
			cfg.StoreLatency = latency
		}
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_SESSION_TTL")); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PORTAL_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_SEED_FIXTURES")); value != "" {
		seed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "PORTAL_SEED_FIXTURES")
		} else {
			cfg.SeedFixtures = seed
		}
	}

	if value := strings.TrimSpace(os.Getenv("PORTAL_FREE_TIER_MAX_PUBLISHED")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			invalid = append(invalid, "PORTAL_FREE_TIER_MAX_PUBLISHED")
		} else {
			cfg.FreeTierMaxPublished = limit
		}
	}

	cfg.AdminEmail = strings.TrimSpace(os.Getenv("PORTAL_ADMIN_EMAIL"))
	cfg.AdminPassword = os.Getenv("PORTAL_ADMIN_PASSWORD")

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
