package sqldb

import (
	"time"

	"github.com/kbukum/etlkit/errors"
)

// Config holds connection settings decoded from connector params.
type Config struct {
	// DSN is the sqlite database path or URI. ":memory:" opens a private database.
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `mapstructure:"slow_query_threshold"`
	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`

	// Migrations is an optional directory of golang-migrate SQL files.
	Migrations string `mapstructure:"migrations"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 1
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.Configuration("sqldb: dsn is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.Configurationf("sqldb: max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return errors.Configurationf("sqldb: invalid conn_max_lifetime %q", c.ConnMaxLifetime).WithCause(err)
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return errors.Configurationf("sqldb: invalid slow_query_threshold %q", c.SlowQueryThreshold).WithCause(err)
	}
	return nil
}
