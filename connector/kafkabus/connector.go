// Package kafkabus provides a kafka-go producer connector and a loader that
// publishes one JSON message per record.
package kafkabus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
)

// Type names registered with the job registry.
const (
	TypeKafka = "kafka"
)

func init() {
	r := job.DefaultRegistry()
	r.RegisterConnector(TypeKafka, NewConnectorFactory)
	r.RegisterLoader(TypeKafka, NewMessageLoader)
}

// Writer is the subset of *kafkago.Writer the loader uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Connector owns one producer. Get returns a Stream.
type Connector struct {
	name string
	cfg  Config
	log  *logger.Logger

	mu        sync.RWMutex
	writer    Writer
	newWriter func(Config) Writer
}

// Stream is what the connector hands to loaders.
type Stream struct {
	Writer Writer
	// Topic is the connector default topic.
	Topic string
}

var (
	_ job.Connector       = (*Connector)(nil)
	_ component.Component = (*Connector)(nil)
)

// Option configures a Connector.
type Option func(*Connector)

// WithWriterFactory replaces the kafka-go writer, for tests and custom transports.
func WithWriterFactory(f func(Config) Writer) Option {
	return func(c *Connector) { c.newWriter = f }
}

// NewConnector creates a producer connector. The writer is built on Start.
func NewConnector(name string, cfg Config, log *logger.Logger, opts ...Option) (*Connector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Connector{name: name, cfg: cfg, log: log.WithComponent(name)}
	c.newWriter = c.kafkaWriter
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewConnectorFactory decodes params into Config and creates a connector.
func NewConnectorFactory(_ context.Context, name string, params job.Params, log *logger.Logger) (job.Connector, error) {
	var cfg Config
	if err := params.Decode(&cfg); err != nil {
		return nil, err
	}
	return NewConnector(name, cfg, log)
}

func (c *Connector) kafkaWriter(cfg Config) Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: duration(cfg.BatchTimeout),
		WriteTimeout: duration(cfg.WriteTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  compression(cfg.Compression),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			c.log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}
}

// Name returns the connector name.
func (c *Connector) Name() string { return c.name }

// Get returns the producer stream.
func (c *Connector) Get(_ context.Context) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.writer == nil {
		return nil, errors.ConnectorFailed(c.name, fmt.Errorf("not started"))
	}
	return Stream{Writer: c.writer, Topic: c.cfg.Topic}, nil
}

// Start builds the writer. kafka-go dials lazily on the first write.
func (c *Connector) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer == nil {
		c.writer = c.newWriter(c.cfg)
	}
	c.log.Info("kafka producer initialized", logger.Fields(
		"brokers", c.cfg.Brokers, "compression", c.cfg.Compression, "batch_size", c.cfg.BatchSize,
	))
	return nil
}

// Stop flushes pending messages and closes the writer.
func (c *Connector) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer == nil {
		return nil
	}
	err := c.writer.Close()
	c.writer = nil
	c.log.Info("kafka producer closed")
	return err
}

// Health reports whether the writer exists.
func (c *Connector) Health(_ context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.writer == nil {
		return component.Health{Name: c.name, Status: component.StatusUnhealthy, Message: "producer not initialized"}
	}
	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

// Describe reports brokers and the default topic.
func (c *Connector) Describe() component.Description {
	details := strings.Join(c.cfg.Brokers, ",")
	if c.cfg.Topic != "" {
		details += " topic=" + c.cfg.Topic
	}
	return component.Description{Type: TypeKafka, Details: details}
}
