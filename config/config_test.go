package config

import (
	"errors"
	"testing"

	"signalengine/apperrors"
)

func TestStrategyWeights_Validate_DefaultsSumToOne(t *testing.T) {
	if err := defaultWeights().Validate(); err != nil {
		t.Fatalf("default weight table should validate, got %v", err)
	}
}

// spec §9: weight tables that don't sum to 1.0 fail closed at load, they
// are not silently auto-normalized.
func TestStrategyWeights_Validate_RejectsBadSum(t *testing.T) {
	bad := StrategyWeights{
		"squeeze": {
			"volume":   0.5,
			"momentum": 0.2, // sums to 0.7, not 1.0
		},
	}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected an error for weights that do not sum to 1.0")
	}
	if !errors.Is(err, apperrors.Config) {
		t.Errorf("expected a ClassConfig error, got %v", err)
	}
}

func TestStrategyWeights_Validate_WithinTolerance(t *testing.T) {
	w := StrategyWeights{
		"squeeze": {
			"volume":   0.500,
			"momentum": 0.4995,
		},
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("sum within tolerance should pass, got %v", err)
	}
}

func TestLoadFromEnv_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected an error when DB_URL is unset")
	}
	if !errors.Is(err, apperrors.Config) {
		t.Errorf("expected a ClassConfig error, got %v", err)
	}
}

func TestLoadFromEnv_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/engine")
	t.Setenv("RATE_LIMIT_RPM", "42")
	t.Setenv("LLM_ENABLED", "true")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.RateLimit.RPMMax != 42 {
		t.Errorf("RPMMax = %d, want 42", cfg.RateLimit.RPMMax)
	}
	if cfg.RateLimit.RPHMax != 1800 {
		t.Errorf("RPHMax default = %d, want 1800", cfg.RateLimit.RPHMax)
	}
	if !cfg.LLM.Enabled {
		t.Error("LLM.Enabled should be true")
	}
	if cfg.Scan.BatchSize != 100 {
		t.Errorf("Scan.BatchSize default = %d, want 100", cfg.Scan.BatchSize)
	}
}

func TestGetEnvInt_InvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("BOGUS_INT", "not-a-number")
	if got := getEnvInt("BOGUS_INT", 7); got != 7 {
		t.Errorf("getEnvInt with invalid value = %d, want default 7", got)
	}
}
