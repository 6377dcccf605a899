package config

import (
	"bytes"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/validation"
)

// Role names in chain order.
const (
	RoleExtract   = "extract"
	RoleTransform = "transform"
	RoleLoad      = "load"
	RoleError     = "error"
)

// DefaultStages is used when the job file declares no pipeline stages.
var DefaultStages = []StageConfig{
	{Name: "Extract", Capacity: 1},
	{Name: "Transform", Capacity: 1},
	{Name: "Load", Capacity: 1},
	{Name: "Error", Capacity: 1},
}

// File is a parsed ETL job file.
type File struct {
	ServiceConfig `yaml:",inline"`

	Pipeline   PipelineConfig             `yaml:"pipeline"`
	Connectors map[string]ConnectorConfig `yaml:"connectors" validate:"dive"`
	Jobs       []JobConfig                `yaml:"jobs" validate:"dive"`
}

// PipelineConfig lists the stages in order.
type PipelineConfig struct {
	Stages []StageConfig `yaml:"stages" validate:"dive"`
	// MaxWorkers caps concurrently running items per stage. 0 means one worker per item.
	MaxWorkers int `yaml:"max_workers" validate:"gte=0"`
}

// StageConfig is one named bounded stage.
type StageConfig struct {
	Name     string `yaml:"name" validate:"required"`
	Capacity int    `yaml:"capacity" validate:"min=1"`
}

// ConnectorConfig declares a named connector.
type ConnectorConfig struct {
	Type   string         `yaml:"type" validate:"required"`
	Params map[string]any `yaml:"params"`
}

// RoleConfig binds one job role to an implementation and its connectors.
type RoleConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	Source      string         `yaml:"source"`
	Destination string         `yaml:"destination"`
	Params      map[string]any `yaml:"params"`
}

// TermConfig is one domain filter term.
type TermConfig struct {
	Field    string `yaml:"field" validate:"required"`
	Operator string `yaml:"operator" validate:"omitempty,oneof=eq neq gt gte lt lte in not_in like"`
	Value    any    `yaml:"value"`
}

// JobConfig describes one job and how it is partitioned.
type JobConfig struct {
	Name      string      `yaml:"name" validate:"required"`
	Extract   *RoleConfig `yaml:"extract" validate:"required"`
	Transform *RoleConfig `yaml:"transform"`
	Load      *RoleConfig `yaml:"load"`
	Error     *RoleConfig `yaml:"error"`

	Priority int            `yaml:"priority"`
	Threads  int            `yaml:"threads" validate:"gte=0"`
	Limit    int            `yaml:"limit" validate:"gte=0"`
	Active   *bool          `yaml:"active"`
	Tag      string         `yaml:"tag"`
	Params   map[string]any `yaml:"params"`
	Domain   []TermConfig   `yaml:"domain" validate:"dive"`
}

// NamedRole pairs a role name with its configuration.
type NamedRole struct {
	Role string
	*RoleConfig
}

// Roles returns the configured roles in chain order.
func (j *JobConfig) Roles() []NamedRole {
	all := []NamedRole{
		{RoleExtract, j.Extract},
		{RoleTransform, j.Transform},
		{RoleLoad, j.Load},
		{RoleError, j.Error},
	}
	roles := make([]NamedRole, 0, len(all))
	for _, r := range all {
		if r.RoleConfig != nil {
			roles = append(roles, r)
		}
	}
	return roles
}

// IsActive reports whether the job runs. Jobs are active unless disabled.
func (j *JobConfig) IsActive() bool {
	return j.Active == nil || *j.Active
}

// LoadFile reads and validates the job file at path. Environment variables in
// the file are expanded, and service settings can be overridden from the
// environment or a .env file.
func LoadFile(path string, opts ...LoaderOption) (*File, error) {
	lc := newLoaderConfig(append(opts, WithConfigFile(path)))

	data, err := lc.FileSystem.ReadFile(path)
	if err != nil {
		return nil, errors.Configurationf("cannot read job file %s", path).WithCause(err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	f, err := Parse(expanded)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(expanded)); err != nil {
		return nil, errors.Configuration("malformed job file").WithCause(err)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles("etl", lc)
	if err := overlayEnv(v, "etl", &f.ServiceConfig, files.EnvFile, lc.FileSystem); err != nil {
		return nil, errors.Configuration("invalid service settings").WithCause(err)
	}

	f.ApplyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes a job file without defaults or validation.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Configuration("malformed job file").WithCause(err)
	}
	return &f, nil
}

// ApplyDefaults fills unset fields.
func (f *File) ApplyDefaults() {
	f.ServiceConfig.ApplyDefaults()
	if len(f.Pipeline.Stages) == 0 {
		f.Pipeline.Stages = append([]StageConfig(nil), DefaultStages...)
	}
	for i := range f.Jobs {
		if f.Jobs[i].Threads == 0 {
			f.Jobs[i].Threads = 1
		}
	}
}

// Validate checks struct rules and cross references between jobs and connectors.
func (f *File) Validate() error {
	if err := f.ServiceConfig.Validate(); err != nil {
		return errors.Configuration(err.Error())
	}
	if err := validation.Validate(f); err != nil {
		return err
	}

	stages := len(f.Pipeline.Stages)
	for i := range f.Jobs {
		job := &f.Jobs[i]
		roles := job.Roles()
		if len(roles) > stages {
			return errors.Configurationf("jobs[%d] %s: %d roles need at least %d stages, pipeline has %d",
				i, job.Name, len(roles), len(roles), stages)
		}
		for _, r := range roles {
			for _, name := range []string{r.Source, r.Destination} {
				if name == "" {
					continue
				}
				if _, ok := f.Connectors[name]; !ok {
					return errors.MissingConnector(r.Role, name).
						WithDetail("job", job.Name)
				}
			}
		}
	}
	return nil
}
