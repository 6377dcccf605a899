package sqldb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/resilience"
)

// Type names registered with the job registry.
const (
	TypeSQLite = "sqlite"
	TypeSQL    = "sql"
)

func init() {
	r := job.DefaultRegistry()
	r.RegisterConnector(TypeSQLite, NewConnectorFactory)
	r.RegisterExtractor(TypeSQL, NewExtractor)
	r.RegisterLoader(TypeSQL, NewLoader)
}

// Connector owns one gorm connection pool. Get returns the *gorm.DB once
// the connector has been started.
type Connector struct {
	name string
	cfg  Config
	log  *logger.Logger

	mu     sync.RWMutex
	db     *gorm.DB
	closed bool
}

var (
	_ job.Connector       = (*Connector)(nil)
	_ component.Component = (*Connector)(nil)
)

// NewConnector creates a sqlite connector. It does not connect until Start.
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

// Get returns the connection pool.
func (c *Connector) Get(ctx context.Context) (any, error) {
	return c.DB(ctx)
}

// DB returns the gorm handle scoped to ctx.
func (c *Connector) DB(ctx context.Context) (*gorm.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, errors.ConnectorFailed(c.name, fmt.Errorf("not started"))
	}
	return c.db.WithContext(ctx), nil
}

// Start opens the database, retrying failed attempts, and applies migrations.
func (c *Connector) Start(ctx context.Context) error {
	slow, _ := time.ParseDuration(c.cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger: newGormLogger(c.log, slow, parseLogLevel(c.cfg.LogLevel)),
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.cfg.MaxRetries
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("database connection attempt failed, retrying", logger.Fields(
			"attempt", attempt, logger.FieldError, err.Error(), "backoff", backoff.String(),
		))
	}

	db, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(c.cfg.DSN), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
		if lifetime, err := time.ParseDuration(c.cfg.ConnMaxLifetime); err == nil {
			sqlDB.SetConnMaxLifetime(lifetime)
		}
		return db, nil
	})
	if err != nil {
		return errors.ConnectorFailed(c.name, err)
	}

	if c.cfg.Migrations != "" {
		if err := migrateUp(db, c.cfg.Migrations, c.log); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.db = db
	c.closed = false
	c.mu.Unlock()
	c.log.Info("database connection established")
	return nil
}

// Stop closes the pool. Safe to call more than once.
func (c *Connector) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil || c.closed {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.closed = true
	c.db = nil
	c.log.Info("closing database connection")
	return sqlDB.Close()
}

// Health pings the database.
func (c *Connector) Health(ctx context.Context) component.Health {
	db, err := c.DB(ctx)
	if err != nil {
		return component.Health{Name: c.name, Status: component.StatusUnhealthy, Message: "database not initialized"}
	}
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return component.Health{Name: c.name, Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

// Describe reports the DSN and pool size.
func (c *Connector) Describe() component.Description {
	details := fmt.Sprintf("%s pool=%d/%d", c.cfg.DSN, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Migrations != "" {
		details += " migrations=" + c.cfg.Migrations
	}
	return component.Description{Type: TypeSQLite, Details: details}
}
