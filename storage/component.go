package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/logger"
)

// Component wraps Storage and implements component.Component for lifecycle management.
type Component struct {
	name    string
	cfg     Config
	log     *logger.Logger
	mu      sync.RWMutex
	storage Storage
}

// NewComponent creates a storage component registered under name.
func NewComponent(name string, cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		name: name,
		cfg:  cfg,
		log:  log.WithComponent(name),
	}
}

// ensure Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Storage returns the underlying Storage, or nil if not started.
func (c *Component) Storage() Storage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storage
}

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// Start initializes the storage backend.
func (c *Component) Start(ctx context.Context) error {
	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.mu.Lock()
	c.storage = s
	c.mu.Unlock()
	return nil
}

// Stop releases the storage backend.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	c.storage = nil
	c.mu.Unlock()
	return nil
}

// Health probes the backend with an existence check.
func (c *Component) Health(ctx context.Context) component.Health {
	s := c.Storage()
	if s == nil {
		return component.Health{
			Name:    c.name,
			Status:  component.StatusUnhealthy,
			Message: "storage not initialized",
		}
	}

	if _, err := s.Exists(ctx, ".health"); err != nil {
		return component.Health{
			Name:    c.name,
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health probe failed: %v", err),
		}
	}

	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

// Describe reports provider and location.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s", c.cfg.Provider)
	switch c.cfg.Provider {
	case ProviderLocal:
		details += " path=" + c.cfg.BasePath
	case ProviderS3:
		details += " bucket=" + c.cfg.Bucket
	}
	if c.cfg.Prefix != "" {
		details += " prefix=" + c.cfg.Prefix
	}
	return component.Description{Type: "storage", Details: details}
}
