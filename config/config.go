// Package config loads the signal engine's configuration from environment
// variables (optionally backed by a .env file), following the teacher's
// LoadFromEnv idiom: one flat getEnvX helper per primitive type, grouped
// structs per concern, sane defaults everywhere a default is safe.
//
// A missing DB_URL causes LoadFromEnv to return a ConfigError (spec §6/§7)
// instead of silently defaulting, since it has no safe default. The
// market-data credentials are optional and default to empty strings.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"signalengine/apperrors"
)

// Config is the top-level configuration for the engine.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	RateLimit RateLimitConfig
	Scan      ScanConfig
	Webhook   string // WEBHOOK_URL: external delivery sink, out of scope here
	Weights   StrategyWeights
	Risk      RiskConfig
	LLM       LLMConfig
}

// LLMConfig controls the optional narrative-analysis collaborator,
// mirroring the teacher's LLM.Enabled/Endpoint/APIKey/Model fields.
type LLMConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Model    string
}

// RiskConfig seeds scoring.RiskConfig's penalty factors, overridable per
// deployment since what counts as "pump-and-dump territory" varies by
// the universe being scanned.
type RiskConfig struct {
	HighRiskPenalty      float64
	PumpDumpPriceCeiling float64
	PumpDumpPenalty      float64
}

// DatabaseConfig is the Postgres connection the SignalStore opens.
type DatabaseConfig struct {
	URL        string // DB_URL
	ServiceKey string // DB_SERVICE_KEY (only used by collaborators that need it)
}

// RedisConfig is the optional cache backing for the MarketDataFetcher's TTL
// cache and the narrative analyzer's cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// ProviderConfig holds the market-data provider's credentials; the concrete
// provider interprets these however it needs to (spec §6: "any
// implementation satisfying these shapes works").
type ProviderConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// RateLimitConfig seeds ratelimit.Config for the fetcher's shared limiter.
type RateLimitConfig struct {
	RPMMax int
	RPHMax int
}

// ScanConfig controls orchestrator concurrency and batching.
type ScanConfig struct {
	BatchSize           int // BATCH_SIZE; not read by SignalStore, which batches by a fixed 100 rows
	FetchParallelism    int
	AnalysisParallelism int
	ScanTimeoutSeconds  int
	MaxUniverseSize     int
}

// StrategyWeights maps a strategy name to its component weights for the
// Scorer (spec §4.5). Weights must sum to 1.0 ± 0.001; LoadFromEnv seeds
// the defaults from spec.md's example pennies-strategy table and validates
// them at load (fail closed, per spec §9's resolved Open Question).
type StrategyWeights map[string]map[string]float64

func defaultWeights() StrategyWeights {
	return StrategyWeights{
		"penny_explosion": {
			"volume":            0.50,
			"momentum":          0.30,
			"relative_strength": 0.15,
			"risk_liquidity":    0.05,
		},
		"squeeze": {
			"volume":            0.30,
			"momentum":          0.40,
			"relative_strength": 0.20,
			"risk_liquidity":    0.10,
		},
		"unusual_options": {
			"volume":            0.40,
			"momentum":          0.20,
			"relative_strength": 0.10,
			"risk_liquidity":    0.30,
		},
		"reddit_opportunity": {
			"volume":            0.35,
			"momentum":          0.35,
			"relative_strength": 0.20,
			"risk_liquidity":    0.10,
		},
	}
}

// Validate checks that every strategy's weights sum to 1.0 within
// tolerance, failing closed per spec §9.
func (w StrategyWeights) Validate() error {
	const tolerance = 0.001
	for strategy, weights := range w {
		var sum float64
		for _, v := range weights {
			sum += v
		}
		if sum < 1.0-tolerance || sum > 1.0+tolerance {
			return apperrors.New(apperrors.ClassConfig,
				fmt.Sprintf("strategy %q weights sum to %.4f, want 1.0 ± %.3f", strategy, sum, tolerance), nil)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables, optionally
// seeded by a .env file in the working directory.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return nil, apperrors.New(apperrors.ClassConfig, "DB_URL is required", nil)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:        dbURL,
			ServiceKey: os.Getenv("DB_SERVICE_KEY"),
		},
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
		},
		Provider: ProviderConfig{
			APIKey:    os.Getenv("MARKETDATA_API_KEY"),
			APISecret: os.Getenv("MARKETDATA_API_SECRET"),
			BaseURL:   getEnvOrDefault("MARKETDATA_BASE_URL", ""),
		},
		RateLimit: RateLimitConfig{
			RPMMax: getEnvInt("RATE_LIMIT_RPM", 60),
			RPHMax: getEnvInt("RATE_LIMIT_RPH", 1800),
		},
		Scan: ScanConfig{
			BatchSize:           getEnvInt("BATCH_SIZE", 100),
			FetchParallelism:    getEnvInt("SCAN_PARALLELISM", 8),
			AnalysisParallelism: getEnvInt("ANALYSIS_PARALLELISM", 8),
			ScanTimeoutSeconds:  getEnvInt("SCAN_TIMEOUT_SECONDS", 30*60),
			MaxUniverseSize:     getEnvInt("MAX_UNIVERSE_SIZE", 5000),
		},
		Webhook: os.Getenv("WEBHOOK_URL"),
		Weights: defaultWeights(),
		Risk: RiskConfig{
			HighRiskPenalty:      getEnvFloat("RISK_HIGH_RISK_PENALTY", 0.9),
			PumpDumpPriceCeiling: getEnvFloat("RISK_PUMP_DUMP_PRICE_CEILING", 0.5),
			PumpDumpPenalty:      getEnvFloat("RISK_PUMP_DUMP_PENALTY", 0.8),
		},
		LLM: LLMConfig{
			Enabled:  getEnvBool("LLM_ENABLED", false),
			Endpoint: os.Getenv("LLM_ENDPOINT"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		},
	}

	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return defaultValue
	}
	return f
}
