package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects and configures the rule-set catalogue database.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns a lib/pq keyword/value connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// DefaultStoreConfig returns a SQLite store under data/.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Driver:     "sqlite",
		SQLitePath: "data/rulesets.db",
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "wavetiles",
			Database:        "wavetiles",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// LoadStoreConfig reads the "store" section of a YAML file and applies
// WAVETILES_DB_* environment overrides. A missing file yields the defaults.
func LoadStoreConfig(path string) (StoreConfig, error) {
	cfg := DefaultStoreConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			wrapper := struct {
				Store *StoreConfig `yaml:"store"`
			}{Store: &cfg}
			if err := yaml.Unmarshal(data, &wrapper); err != nil {
				return DefaultStoreConfig(), fmt.Errorf("parse store config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, err
		}
	}

	if v := os.Getenv("WAVETILES_DB_DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv("WAVETILES_DB_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("WAVETILES_PG_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WAVETILES_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WAVETILES_PG_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WAVETILES_PG_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WAVETILES_PG_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}

	switch cfg.Driver {
	case "sqlite", "postgres":
	default:
		return cfg, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return cfg, nil
}
