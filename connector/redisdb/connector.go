// Package redisdb provides a go-redis connector and a hash loader that
// writes one hash per record.
package redisdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/resilience"
)

// Type names registered with the job registry.
const (
	TypeRedis = "redis"
	TypeHash  = "redis_hash"
)

func init() {
	r := job.DefaultRegistry()
	r.RegisterConnector(TypeRedis, NewConnectorFactory)
	r.RegisterLoader(TypeHash, NewHashLoader)
}

// Connector owns one go-redis client. Get returns the *goredis.Client.
type Connector struct {
	name string
	cfg  Config
	log  *logger.Logger

	mu  sync.RWMutex
	rdb *goredis.Client
}

var (
	_ job.Connector       = (*Connector)(nil)
	_ component.Component = (*Connector)(nil)
)

// NewConnector creates a Redis connector. It does not dial until Start.
func NewConnector(name string, cfg Config, log *logger.Logger) (*Connector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Connector{name: name, cfg: cfg, log: log.WithComponent(name)}, nil
}

// NewConnectorFactory decodes params into Config and creates a connector.
func NewConnectorFactory(_ context.Context, name string, params job.Params, log *logger.Logger) (job.Connector, error) {
	var cfg Config
	if err := params.Decode(&cfg); err != nil {
		return nil, err
	}
	return NewConnector(name, cfg, log)
}

// Name returns the connector name.
func (c *Connector) Name() string { return c.name }

// Get returns the client.
func (c *Connector) Get(_ context.Context) (any, error) {
	return c.Client()
}

// Client returns the client, or a CONNECTOR_FAILED error before Start.
func (c *Connector) Client() (*goredis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rdb == nil {
		return nil, errors.ConnectorFailed(c.name, fmt.Errorf("not started"))
	}
	return c.rdb, nil
}

// Start creates the client and waits until the server answers PING.
func (c *Connector) Start(ctx context.Context) error {
	dial, _ := time.ParseDuration(c.cfg.DialTimeout)
	read, _ := time.ParseDuration(c.cfg.ReadTimeout)
	write, _ := time.ParseDuration(c.cfg.WriteTimeout)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         c.cfg.Addr,
		Password:     c.cfg.Password,
		DB:           c.cfg.DB,
		PoolSize:     c.cfg.PoolSize,
		MaxRetries:   c.cfg.MaxRetries,
		DialTimeout:  dial,
		ReadTimeout:  read,
		WriteTimeout: write,
	})

	_, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (string, error) {
		return rdb.Ping(ctx).Result()
	})
	if err != nil {
		_ = rdb.Close()
		return errors.ConnectorFailed(c.name, err)
	}

	c.mu.Lock()
	c.rdb = rdb
	c.mu.Unlock()
	c.log.Info("redis client connected", logger.Fields("addr", c.cfg.Addr, "db", c.cfg.DB))
	return nil
}

// Stop closes the client. Safe to call more than once.
func (c *Connector) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rdb == nil {
		return nil
	}
	err := c.rdb.Close()
	c.rdb = nil
	c.log.Info("redis client closed")
	return err
}

// Health pings the server.
func (c *Connector) Health(ctx context.Context) component.Health {
	rdb, err := c.Client()
	if err != nil {
		return component.Health{Name: c.name, Status: component.StatusUnhealthy, Message: "redis not initialized"}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return component.Health{Name: c.name, Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

// Describe reports the address and database.
func (c *Connector) Describe() component.Description {
	return component.Description{
		Type:    TypeRedis,
		Details: fmt.Sprintf("%s db=%d pool=%d", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize),
	}
}
