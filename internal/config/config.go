package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Tripgether server. It is built once
// at startup and passed explicitly into constructors; core logic never reads
// the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AIServer AIServerConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// AIServerConfig describes the external AI service. APIKey authenticates our
// outbound dispatch requests; CallbackAPIKey is the distinct key the AI server
// must present on its inbound webhook callbacks.
type AIServerConfig struct {
	BaseURL        string
	APIKey         string
	CallbackAPIKey string
	ExtractPath    string
	AcceptTimeout  time.Duration
}

// JobsConfig tunes the extraction job engine.
type JobsConfig struct {
	MaxAttempt       int
	DispatchDeadline time.Duration
	SweepInterval    time.Duration
	SweepBatchSize   int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TRIPGETHER_PORT", 8080),
			Env:  envString("TRIPGETHER_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AIServer: AIServerConfig{
			BaseURL:        os.Getenv("AI_SERVER_BASE_URL"),
			APIKey:         os.Getenv("AI_SERVER_API_KEY"),
			CallbackAPIKey: os.Getenv("AI_CALLBACK_API_KEY"),
			ExtractPath:    envString("AI_SERVER_EXTRACT_PATH", "/api/extract-places"),
			AcceptTimeout:  envDuration("AI_SERVER_ACCEPT_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			MaxAttempt:       envInt("JOB_MAX_ATTEMPTS", 3),
			DispatchDeadline: envDuration("JOB_DISPATCH_DEADLINE", 2*time.Minute),
			SweepInterval:    envDuration("JOB_SWEEP_INTERVAL", 30*time.Second),
			SweepBatchSize:   envInt("JOB_SWEEP_BATCH_SIZE", 100),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AIServer.BaseURL == "" {
		return fmt.Errorf("AI_SERVER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.AIServer.BaseURL, "http://") && !strings.HasPrefix(c.AIServer.BaseURL, "https://") {
		return fmt.Errorf("AI_SERVER_BASE_URL must start with http:// or https://, got %q", c.AIServer.BaseURL)
	}
	if c.AIServer.APIKey == "" {
		return fmt.Errorf("AI_SERVER_API_KEY is required")
	}
	if c.AIServer.CallbackAPIKey == "" {
		return fmt.Errorf("AI_CALLBACK_API_KEY is required")
	}
	if !strings.HasPrefix(c.AIServer.ExtractPath, "/") {
		return fmt.Errorf("AI_SERVER_EXTRACT_PATH must start with /, got %q", c.AIServer.ExtractPath)
	}

	if c.Jobs.MaxAttempt < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1, got %d", c.Jobs.MaxAttempt)
	}
	if c.Jobs.DispatchDeadline <= 0 {
		return fmt.Errorf("JOB_DISPATCH_DEADLINE must be positive, got %s", c.Jobs.DispatchDeadline)
	}
	if c.Jobs.SweepInterval <= 0 {
		return fmt.Errorf("JOB_SWEEP_INTERVAL must be positive, got %s", c.Jobs.SweepInterval)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
