package observability

// Config selects which telemetry providers the engine starts.
type Config struct {
	TracingEnabled bool    `yaml:"tracing_enabled" mapstructure:"tracing_enabled"`
	MetricsEnabled bool    `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Environment    string  `yaml:"environment" mapstructure:"environment"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// TracerConfig derives the tracer settings for a service.
func (c *Config) TracerConfig(serviceName, version string) TracerConfig {
	cfg := DefaultTracerConfig(serviceName)
	cfg.ServiceVersion = version
	cfg.Environment = c.Environment
	cfg.Endpoint = c.Endpoint
	cfg.Insecure = c.Insecure
	cfg.SampleRate = c.SampleRate
	return cfg
}

// MeterConfig derives the meter settings for a service.
func (c *Config) MeterConfig(serviceName, version string) MeterConfig {
	cfg := DefaultMeterConfig(serviceName)
	cfg.ServiceVersion = version
	cfg.Environment = c.Environment
	cfg.Endpoint = c.Endpoint
	cfg.Insecure = c.Insecure
	return cfg
}
