package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment selects the broker base URL.
type Environment string

const (
	EnvPractice Environment = "practice"
	EnvLive     Environment = "live"
)

// Config holds all process-level settings, sourced from the environment.
type Config struct {
	Port string

	BrokerToken string
	BrokerEnv   Environment

	TrackedPairs []string
	AssetClass   map[string]string // instrument -> FX|METAL|CFD

	CorrelationThreshold float64

	CacheTTLPrices      time.Duration
	CacheTTLMetrics     time.Duration
	CacheTTLCorrelation time.Duration
	CacheMongoURI       string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	FanoutMaxClients   int
	FanoutPingInterval time.Duration
	FanoutPingTimeout  time.Duration

	JobHourlyEnabled bool
	JobDailyEnabled  bool

	DataRetentionDays int

	StoreDSN  string
	StoreKind string // postgres | sqlite (sqlite only meant for tests/dev)
}

// Load reads configuration from the environment (loading a .env file if
// present) and validates it. A non-nil error lists every violation found,
// not just the first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		BrokerToken: os.Getenv("BROKER_TOKEN"),
		BrokerEnv:   Environment(getEnv("BROKER_ENV", string(EnvPractice))),

		TrackedPairs: splitList(getEnv("TRACKED_PAIRS", "")),

		CorrelationThreshold: getEnvFloat("CORRELATION_THRESHOLD", 0.7),

		CacheTTLPrices:      getEnvSeconds("CACHE_TTL_PRICES", 300),
		CacheTTLMetrics:     getEnvSeconds("CACHE_TTL_METRICS", 3600),
		CacheTTLCorrelation: getEnvSeconds("CACHE_TTL_CORRELATION", 86400),
		CacheMongoURI:       os.Getenv("CACHE_MONGO_URI"),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvSeconds("RATE_LIMIT_WINDOW", 60),

		FanoutMaxClients:   getEnvInt("FANOUT_MAX_CLIENTS", 1000),
		FanoutPingInterval: getEnvSeconds("FANOUT_PING_INTERVAL", 25),
		FanoutPingTimeout:  getEnvSeconds("FANOUT_PING_TIMEOUT", 5),

		JobHourlyEnabled: getEnvBool("JOB_HOURLY_ENABLED", true),
		JobDailyEnabled:  getEnvBool("JOB_DAILY_ENABLED", true),

		DataRetentionDays: getEnvInt("DATA_RETENTION_DAYS", 365),

		StoreDSN:  getEnv("STORE_DSN", ""),
		StoreKind: getEnv("STORE_KIND", "postgres"),
	}

	cfg.AssetClass = parseAssetClasses(getEnv("TRACKED_PAIR_CLASSES", ""), cfg.TrackedPairs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate accumulates every configuration violation into a single error.
func (c *Config) Validate() error {
	var problems []string

	if c.BrokerToken == "" {
		problems = append(problems, "BROKER_TOKEN is required")
	}
	if c.BrokerEnv != EnvPractice && c.BrokerEnv != EnvLive {
		problems = append(problems, fmt.Sprintf("BROKER_ENV must be %q or %q, got %q", EnvPractice, EnvLive, c.BrokerEnv))
	}
	if len(c.TrackedPairs) == 0 {
		problems = append(problems, "TRACKED_PAIRS must list at least one instrument")
	}
	if c.CorrelationThreshold <= 0 || c.CorrelationThreshold > 1 {
		problems = append(problems, "CORRELATION_THRESHOLD must be in (0, 1]")
	}
	if c.CacheTTLPrices <= 0 || c.CacheTTLMetrics <= 0 || c.CacheTTLCorrelation <= 0 {
		problems = append(problems, "cache TTLs must be positive durations")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		problems = append(problems, "RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	if c.FanoutMaxClients <= 0 {
		problems = append(problems, "FANOUT_MAX_CLIENTS must be positive")
	}
	if c.StoreKind != "postgres" && c.StoreKind != "sqlite" {
		problems = append(problems, fmt.Sprintf("STORE_KIND must be %q or %q, got %q", "postgres", "sqlite", c.StoreKind))
	}
	if c.StoreKind == "postgres" && c.StoreDSN == "" {
		problems = append(problems, "STORE_DSN is required when STORE_KIND=postgres")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("config invalid: %s", strings.Join(problems, "; "))
}

// BaseURL returns the broker's REST base URL for the configured environment.
func (c *Config) BaseURL() string {
	switch c.BrokerEnv {
	case EnvLive:
		return "https://api-fxtrade.example.com"
	default:
		return "https://api-fxpractice.example.com"
	}
}

// MaskedToken returns a redacted form of the broker token, safe to log.
func (c *Config) MaskedToken() string {
	if len(c.BrokerToken) <= 4 {
		return "***"
	}
	return c.BrokerToken[:2] + "***" + c.BrokerToken[len(c.BrokerToken)-2:]
}

func getEnv(key, defaultValue string) string {
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
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parseAssetClasses parses "EUR_USD:FX,XAU_USD:METAL" pairs; instruments not
// named default to FX.
func parseAssetClasses(v string, universe []string) map[string]string {
	classes := make(map[string]string, len(universe))
	for _, instrument := range universe {
		classes[instrument] = "FX"
	}
	for _, entry := range splitList(v) {
		kv := strings.SplitN(entry, ":", 2)
		if len(kv) != 2 {
			continue
		}
		classes[strings.TrimSpace(kv[0])] = strings.ToUpper(strings.TrimSpace(kv[1]))
	}
	return classes
}
