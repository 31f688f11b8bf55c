package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liamcoop/adjudication/adjudication"
)

func lookup(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(lookup(nil))
	if err != nil {
		t.Fatalf("FromEnv() failed: %v", err)
	}

	if !cfg.InMemory() {
		t.Error("no DATABASE_URL should mean in-memory stores")
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", cfg.Addr())
	}
	if cfg.Formula != adjudication.FormulaPayPercentage {
		t.Errorf("Formula = %v, want pay-percentage", cfg.Formula)
	}
	if cfg.RuleCacheTTL != 0 {
		t.Errorf("RuleCacheTTL = %v, want 0", cfg.RuleCacheTTL)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"DATABASE_URL":         "postgres://localhost/claims",
		"PORT":                 "9090",
		"ADJUDICATION_FORMULA": "usage-cap-only",
		"RULE_CACHE_TTL":       "5m",
		"SHUTDOWN_TIMEOUT":     "10s",
	}))
	if err != nil {
		t.Fatalf("FromEnv() failed: %v", err)
	}

	if cfg.InMemory() {
		t.Error("DATABASE_URL set, InMemory() should be false")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Formula != adjudication.FormulaUsageCapOnly {
		t.Errorf("Formula = %v, want usage-cap-only", cfg.Formula)
	}
	if cfg.RuleCacheTTL != 5*time.Minute {
		t.Errorf("RuleCacheTTL = %v, want 5m", cfg.RuleCacheTTL)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	testCases := []struct {
		key   string
		value string
	}{
		{"PORT", "http"},
		{"PORT", "0"},
		{"PORT", "70000"},
		{"ADJUDICATION_FORMULA", "copay-only"},
		{"RULE_CACHE_TTL", "soon"},
		{"RULE_CACHE_TTL", "-1s"},
		{"SHUTDOWN_TIMEOUT", "0s"},
	}

	for _, tc := range testCases {
		if _, err := FromEnv(lookup(map[string]string{tc.key: tc.value})); err == nil {
			t.Errorf("FromEnv(%s=%q) should return error", tc.key, tc.value)
		}
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORT=7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// t.Setenv restores PORT afterwards; unset it so the file value applies
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from .env", cfg.Port)
	}
}

func TestLoadEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORT=7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "6060")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != 6060 {
		t.Errorf("Port = %d, want 6060 from the environment", cfg.Port)
	}
}
