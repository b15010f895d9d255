package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "planbridge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PLANBRIDGE_PORT")
	setString(&cfg.Server.CORSOrigin, "PLANBRIDGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PLANBRIDGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PLANBRIDGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PLANBRIDGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PLANBRIDGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PLANBRIDGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Planner.Authority, "PLANBRIDGE_AUTHORITY")
	setString(&cfg.Planner.BaseURL, "PLANBRIDGE_API_BASE_URL")
	setString(&cfg.Planner.Scope, "PLANBRIDGE_API_SCOPE")
	setDuration(&cfg.Planner.Timeout, "PLANBRIDGE_API_TIMEOUT")
	setString(&cfg.Planner.SharedDirectoryID, "PLANBRIDGE_SHARED_DIRECTORY_ID")
	setString(&cfg.Planner.SharedClientID, "PLANBRIDGE_SHARED_CLIENT_ID")
	setString(&cfg.Planner.SharedSecretRef, "PLANBRIDGE_SHARED_SECRET_REF")
	setString(&cfg.Logging.Level, "PLANBRIDGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PLANBRIDGE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "PLANBRIDGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PLANBRIDGE_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "PLANBRIDGE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.DirectoryTTL, "PLANBRIDGE_CACHE_DIRECTORY_TTL")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Planner.Authority == "" || cfg.Planner.BaseURL == "" {
		return errors.New("planner.authority and planner.base_url are required")
	}
	if cfg.Planner.Timeout <= 0 {
		return errors.New("planner.timeout must be positive")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
