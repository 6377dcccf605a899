package csvfile

import (
	"context"
	"os"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
)

// TypeCSV names the connector, extractor and loader in the job registry.
const TypeCSV = "csv"

func init() {
	r := job.DefaultRegistry()
	r.RegisterConnector(TypeCSV, NewConnectorFactory)
	r.RegisterExtractor(TypeCSV, NewExtractor)
	r.RegisterLoader(TypeCSV, NewLoader)
}

// Connector hands out one shared *File.
type Connector struct {
	name string
	file *File
	log  *logger.Logger
}

var (
	_ job.Connector         = (*Connector)(nil)
	_ component.Describable = (*Connector)(nil)
)

// NewConnector validates cfg and creates a connector.
func NewConnector(name string, cfg Config, log *logger.Logger) (*Connector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Connector{name: name, file: newFile(cfg), log: log.WithComponent(name)}, nil
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

// Get returns the *File.
func (c *Connector) Get(_ context.Context) (any, error) {
	return c.file, nil
}

// Describe reports the path and whether it exists yet.
func (c *Connector) Describe() component.Description {
	details := c.file.Path()
	if _, err := os.Stat(details); err != nil {
		details += " (missing)"
	}
	return component.Description{Type: TypeCSV, Details: details}
}
