package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
// It is built once at startup and passed to every component that needs it.
type Config struct {
	LogLevel    string
	MetricsAddr string

	// Custody service (ORE ID) configuration
	OreURL        string
	OreAPIKey     string
	OreAppID      string
	OreServiceKey string

	// Algorand node configuration
	AlgodServer      string
	AlgodPort        string
	AlgodToken       string
	AlgodTokenHeader string
	AlgodNetwork     string // label for logs, metrics and event subjects

	// Confirmation configuration
	ConfirmationTimeoutRounds int

	// Asset defaults
	AssetName     string
	AssetUnitName string

	// NATS configuration (optional)
	NATSURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")

	// Custody service configuration
	cfg.OreURL = getEnvOrDefault("ORE_URL", "https://service.oreid.io")
	cfg.OreAppID = os.Getenv("ORE_APP_ID")

	cfg.OreAPIKey = os.Getenv("ORE_API_KEY")
	if cfg.OreAPIKey == "" {
		errs = append(errs, fmt.Errorf("ORE_API_KEY is required"))
	}

	cfg.OreServiceKey = os.Getenv("ORE_SERVICE_KEY")
	if cfg.OreServiceKey == "" {
		errs = append(errs, fmt.Errorf("ORE_SERVICE_KEY is required"))
	}

	// Algorand node configuration
	cfg.AlgodServer = os.Getenv("ALGOD_SERVER")
	if cfg.AlgodServer == "" {
		errs = append(errs, fmt.Errorf("ALGOD_SERVER is required"))
	}
	cfg.AlgodPort = os.Getenv("ALGOD_PORT")
	cfg.AlgodToken = os.Getenv("ALGOD_TOKEN")
	cfg.AlgodTokenHeader = getEnvOrDefault("ALGOD_TOKEN_HEADER", "X-Algo-API-Token")
	cfg.AlgodNetwork = getEnvOrDefault("ALGOD_NETWORK", "algorand")

	// Confirmation configuration
	rounds, err := parseInt("CONFIRMATION_TIMEOUT_ROUNDS", 5)
	if err != nil {
		errs = append(errs, err)
	} else if rounds <= 0 {
		errs = append(errs, fmt.Errorf("CONFIRMATION_TIMEOUT_ROUNDS must be positive, got %d", rounds))
	} else {
		cfg.ConfirmationTimeoutRounds = rounds
	}

	cfg.AssetName = getEnvOrDefault("ASSET_NAME", "My Asset")
	cfg.AssetUnitName = os.Getenv("ASSET_UNIT_NAME")

	cfg.NATSURL = os.Getenv("NATS_URL")

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "assetxfer-transfers")

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for worker initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.OreURL == "" {
		errs = append(errs, fmt.Errorf("OreURL is required"))
	} else if _, err := url.ParseRequestURI(c.OreURL); err != nil {
		errs = append(errs, fmt.Errorf("OreURL is invalid: %w", err))
	}

	if c.OreAPIKey == "" {
		errs = append(errs, fmt.Errorf("OreAPIKey is required"))
	}

	if c.OreServiceKey == "" {
		errs = append(errs, fmt.Errorf("OreServiceKey is required"))
	}

	if c.AlgodServer == "" {
		errs = append(errs, fmt.Errorf("AlgodServer is required"))
	}

	if c.ConfirmationTimeoutRounds <= 0 {
		errs = append(errs, fmt.Errorf("ConfirmationTimeoutRounds must be positive"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// AlgodAddress joins the configured server and port into the address the
// algod client dials, e.g. "https://testnet-api.algonode.cloud:443".
func (c *Config) AlgodAddress() string {
	if c.AlgodPort == "" {
		return c.AlgodServer
	}
	return c.AlgodServer + ":" + c.AlgodPort
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
