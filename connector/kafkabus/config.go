package kafkabus

import (
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/etlkit/errors"
)

// Config holds producer settings decoded from connector params.
type Config struct {
	Brokers []string `mapstructure:"brokers"`
	// Topic is the default topic. Loaders may override it.
	Topic string `mapstructure:"topic"`

	Compression  string `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout string `mapstructure:"batch_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	RequiredAcks int    `mapstructure:"required_acks"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "100ms"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = int(kafkago.RequireAll)
	}
}

// Validate checks durations and the acks setting.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.BatchTimeout); err != nil {
		return errors.Configurationf("kafkabus: invalid batch_timeout %q", c.BatchTimeout).WithCause(err)
	}
	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return errors.Configurationf("kafkabus: invalid write_timeout %q", c.WriteTimeout).WithCause(err)
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return errors.Configurationf("kafkabus: required_acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	return nil
}

func compression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "none":
		return 0
	default:
		return kafkago.Snappy
	}
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
