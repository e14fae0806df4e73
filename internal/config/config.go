package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Beacon   BeaconConfig   `yaml:"beacon"`
	Engine   EngineConfig   `yaml:"engine"`
	Sample   SampleConfig   `yaml:"sample"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AuthToken   string `yaml:"auth_token"`
}

// DatabaseConfig holds the Postgres connection string. An empty URL selects
// the in-memory store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// BeaconConfig holds the NATS connection string. An empty URL disables
// event publishing.
type BeaconConfig struct {
	URL string `yaml:"url"`
}

type EngineConfig struct {
	PCACumVarThreshold float64 `yaml:"pca_cum_var_threshold"`
}

type SampleConfig struct {
	SeedOnStartup bool `yaml:"seed_on_startup"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8710,
			MetricsPort: 8711,
		},
		Engine: EngineConfig{
			PCACumVarThreshold: 0.85,
		},
		Sample: SampleConfig{
			SeedOnStartup: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ATLAS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ATLAS_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ATLAS_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("ATLAS_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ATLAS_BEACON_URL"); v != "" {
		cfg.Beacon.URL = v
	}
	if v := os.Getenv("ATLAS_PCA_CUM_VAR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.PCACumVarThreshold = f
		}
	}
	if v := os.Getenv("ATLAS_SEED_SAMPLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Sample.SeedOnStartup = b
		}
	}
	if v := os.Getenv("ATLAS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
