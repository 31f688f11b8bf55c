package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/liamcoop/adjudication/adjudication"
)

const (
	defaultPort            = 8080
	defaultShutdownTimeout = 30 * time.Second
)

// Config holds the service settings
type Config struct {
	DatabaseURL     string
	Port            int
	Formula         adjudication.Formula
	RuleCacheTTL    time.Duration
	ShutdownTimeout time.Duration
}

// InMemory reports whether rule stores live in process memory
func (c Config) InMemory() bool {
	return c.DatabaseURL == ""
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads the given .env files, if present, then builds the config from
// the environment. Variables already set in the environment win.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		DatabaseURL:     getenv("DATABASE_URL"),
		Port:            defaultPort,
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	formula, err := adjudication.ParseFormula(getenv("ADJUDICATION_FORMULA"))
	if err != nil {
		return Config{}, err
	}
	cfg.Formula = formula

	if v := getenv("RULE_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl < 0 {
			return Config{}, fmt.Errorf("invalid RULE_CACHE_TTL %q", v)
		}
		cfg.RuleCacheTTL = ttl
	}

	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", v)
		}
		cfg.ShutdownTimeout = timeout
	}

	return cfg, nil
}
