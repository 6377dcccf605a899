package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents a lifecycle-managed resource.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is a component's self-reported summary.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "csv", "sqlite", "redis", "kafka", "storage".
	Type string
	// Details is a one-liner, e.g. "localhost:6379 db=0" or "./partners.csv".
	Details string
}

// Describable is optionally implemented by Components that report a summary.
type Describable interface {
	Describe() Description
}

// Describe returns c's description, falling back to its name.
func Describe(c Component) Description {
	d := Description{Name: c.Name()}
	if desc, ok := c.(Describable); ok {
		d = desc.Describe()
		if d.Name == "" {
			d.Name = c.Name()
		}
	}
	return d
}
