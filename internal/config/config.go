package config

import (
	"os"
	"strconv"
	"sync"

	"gocausal/internal/errors"
	"gocausal/internal/propensity"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Sampler    SamplerConfig    `validate:"required"`
	Propensity PropensityConfig `validate:"required"`
	Bootstrap  BootstrapConfig  `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Database   DatabaseConfig
	Ledger     LedgerConfig
	LogLevel   string `validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE error warn info debug trace"`
}

// SamplerConfig holds do-sampler defaults
type SamplerConfig struct {
	Seed          uint64
	SampleSize    int     `validate:"gte=0"`
	ExtremePolicy string  `validate:"oneof=clip drop fail"`
	Epsilon       float64 `validate:"gt=0,lt=0.5"`
}

// PropensityConfig holds propensity model settings
type PropensityConfig struct {
	MaxIterations int     `validate:"gte=1"`
	L2            float64 `validate:"gte=0"`
}

// BootstrapConfig holds bootstrap defaults
type BootstrapConfig struct {
	Draws   int `validate:"gte=2"`
	Workers int `validate:"gte=0"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	UIPort  string `validate:"required,numeric"`
	GinMode string `validate:"omitempty,oneof=debug release test"`
}

// DatabaseConfig holds the optional dataset source connection
type DatabaseConfig struct {
	URL string
}

// LedgerConfig bounds the in-memory run ledger used without a database
type LedgerConfig struct {
	Capacity int `validate:"gte=0"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Load reads configuration from environment variables and validates it.
// Binaries call godotenv.Load first so a .env file can supply the values.
func Load() (*Config, error) {
	config := &Config{
		Sampler: SamplerConfig{
			Seed:          getEnvUintOrDefault("SAMPLER_SEED", 42),
			SampleSize:    getEnvIntOrDefault("SAMPLER_SAMPLE_SIZE", 0),
			ExtremePolicy: getEnvOrDefault("SAMPLER_EXTREME_POLICY", string(propensity.ExtremeClip)),
			Epsilon:       getEnvFloatOrDefault("SAMPLER_EPSILON", propensity.DefaultEpsilon),
		},
		Propensity: PropensityConfig{
			MaxIterations: getEnvIntOrDefault("PROPENSITY_MAX_ITER", 200),
			L2:            getEnvFloatOrDefault("PROPENSITY_L2", 0),
		},
		Bootstrap: BootstrapConfig{
			Draws:   getEnvIntOrDefault("BOOTSTRAP_DRAWS", 50),
			Workers: getEnvIntOrDefault("BOOTSTRAP_WORKERS", 0),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			UIPort:  getEnvOrDefault("UI_PORT", "8081"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Ledger: LedgerConfig{
			Capacity: getEnvIntOrDefault("LEDGER_CAPACITY", 1000),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks struct tags
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Policy returns the parsed extreme-propensity policy
func (s SamplerConfig) Policy() propensity.ExtremePolicy {
	p, err := propensity.ParseExtremePolicy(s.ExtremePolicy)
	if err != nil {
		return propensity.ExtremeClip
	}
	return p
}

// Options returns the propensity model options
func (p PropensityConfig) Options() propensity.Options {
	return propensity.Options{MaxIterations: p.MaxIterations, L2: p.L2}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
