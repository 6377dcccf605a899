// Package objstore exposes the storage backends as a job connector and
// provides the file error handler that persists failure records.
package objstore

import (
	"context"
	"fmt"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/storage"
)

// Type names registered with the job registry.
const (
	TypeStorage = "storage"
	TypeFile    = "file"
)

func init() {
	r := job.DefaultRegistry()
	r.RegisterConnector(TypeStorage, NewConnectorFactory)
	r.RegisterErrorHandler(TypeFile, NewFileErrorHandler)
}

// Connector adapts a storage.Component. Get returns the storage.Storage.
type Connector struct {
	*storage.Component
}

var (
	_ job.Connector       = (*Connector)(nil)
	_ component.Component = (*Connector)(nil)
)

// NewConnector validates cfg and wraps a storage component.
func NewConnector(name string, cfg storage.Config, log *logger.Logger) (*Connector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	return &Connector{Component: storage.NewComponent(name, cfg, log)}, nil
}

// NewConnectorFactory decodes params into storage.Config and creates a connector.
func NewConnectorFactory(_ context.Context, name string, params job.Params, log *logger.Logger) (job.Connector, error) {
	var cfg storage.Config
	if err := params.Decode(&cfg); err != nil {
		return nil, err
	}
	return NewConnector(name, cfg, log)
}

// Get returns the started backend.
func (c *Connector) Get(_ context.Context) (any, error) {
	s := c.Storage()
	if s == nil {
		return nil, errors.ConnectorFailed(c.Name(), fmt.Errorf("not started"))
	}
	return s, nil
}

// Start initializes the backend.
func (c *Connector) Start(ctx context.Context) error {
	if err := c.Component.Start(ctx); err != nil {
		return errors.ConnectorFailed(c.Name(), err)
	}
	return nil
}
