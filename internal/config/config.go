package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        int    `validate:"required,min=1,max=65535"`
	LogLevel    string `validate:"required,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogFormat   string `validate:"required,oneof=json text"`
	ServiceName string `validate:"required"`
	Version     string `validate:"required"`
	Environment string `validate:"required,oneof=dev staging prod test"`

	DBUser     string `validate:"required"`
	DBPassword string `validate:"required"`
	DBHost     string `validate:"required"`
	DBPort     string `validate:"required"`
	DBName     string `validate:"required"`

	APIKey string `validate:"required"` // API key for the trigger/admin surface

	RemoteToken string `validate:"required"` // credential presented to the remote record system

	// Sync engine tuning
	PushBatchSize     int           `validate:"min=1,max=1000"`
	PushLease         time.Duration `validate:"min=1s"`
	PushMaxFailures   int           `validate:"min=0,max=100"`
	CycleBudget       time.Duration `validate:"min=1s"`
	PushInterval      time.Duration `validate:"min=0"`
	PullInterval      time.Duration `validate:"min=0"`
	ReconcileInterval time.Duration `validate:"min=0"`
	WorkerCount       int           `validate:"min=1,max=64"`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		ServiceName: getEnv("SERVICE_NAME", "forcelink"),
		Version:     getEnv("SERVICE_VERSION", "dev"),
		Environment: getEnv("ENVIRONMENT", "dev"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBName:      getEnv("DB_NAME", "forcelink"),
		APIKey:      getEnv("API_KEY", ""),
		RemoteToken: getEnv("REMOTE_TOKEN", "local-dev"),
	}

	port, err := getEnvInt("PORT", DefaultPort)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.PushBatchSize, err = getEnvInt("PUSH_BATCH_SIZE", DefaultPushBatchSize); err != nil {
		return nil, err
	}
	if cfg.PushMaxFailures, err = getEnvInt("PUSH_MAX_FAILURES", DefaultPushMaxFailures); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = getEnvInt("WORKER_COUNT", DefaultWorkerCount); err != nil {
		return nil, err
	}
	if cfg.PushLease, err = getEnvDuration("PUSH_LEASE", DefaultPushLease); err != nil {
		return nil, err
	}
	if cfg.CycleBudget, err = getEnvDuration("CYCLE_BUDGET", DefaultCycleBudget); err != nil {
		return nil, err
	}
	if cfg.PushInterval, err = getEnvDuration("PUSH_INTERVAL", DefaultPushInterval); err != nil {
		return nil, err
	}
	if cfg.PullInterval, err = getEnvDuration("PULL_INTERVAL", DefaultPullInterval); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = getEnvDuration("RECONCILE_INTERVAL", DefaultReconcileInterval); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
