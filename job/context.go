package job

import (
	"context"
	"fmt"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/resilience"
)

// Connector opens a source or destination stream.
type Connector interface {
	Get(ctx context.Context) (any, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (any, error)

// Get calls f.
func (f ConnectorFunc) Get(ctx context.Context) (any, error) { return f(ctx) }

// Context holds the named connectors of a run plus job metadata.
type Context map[string]any

// Connector returns the connector registered under name.
func (c Context) Connector(name string) (Connector, bool) {
	v, ok := c[name]
	if !ok {
		return nil, false
	}
	conn, ok := v.(Connector)
	return conn, ok
}

// With returns a copy of c with key set to value.
func (c Context) With(key string, value any) Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// binding is a validated reference to a connector in a job context.
type binding struct {
	role string
	name string
	conn Connector
}

func bind(jc Context, role, name string) (binding, error) {
	if name == "" {
		return binding{}, errors.MissingConnector(role, "")
	}
	conn, ok := jc.Connector(name)
	if !ok {
		return binding{}, errors.MissingConnector(role, name)
	}
	return binding{role: role, name: name, conn: conn}, nil
}

// Name returns the connector name.
func (b binding) Name() string { return b.name }

// Open returns the stream. Only errors marked retryable are retried, so a
// configuration error fails on the first attempt.
func (b binding) Open(ctx context.Context) (any, error) {
	return resilience.Retry(ctx, resilience.WriteRetryConfig(), func() (any, error) {
		stream, err := b.conn.Get(ctx)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.ConnectorFailed(b.name, err)
			}
			return nil, err
		}
		return stream, nil
	})
}

// Source is the connector a job reads from.
type Source struct{ binding }

// Destination is the connector a job writes to.
type Destination struct{ binding }

// BindSource validates that name is a connector in jc.
func BindSource(jc Context, name string) (Source, error) {
	b, err := bind(jc, "source", name)
	return Source{b}, err
}

// BindDestination validates that name is a connector in jc.
func BindDestination(jc Context, name string) (Destination, error) {
	b, err := bind(jc, "destination", name)
	return Destination{b}, err
}

// Stream opens the connector behind b and asserts its stream type.
func Stream[T any](ctx context.Context, b interface {
	Name() string
	Open(context.Context) (any, error)
}) (T, error) {
	var zero T
	raw, err := b.Open(ctx)
	if err != nil {
		return zero, err
	}
	stream, ok := raw.(T)
	if !ok {
		return zero, errors.Configurationf("connector %s returned %T, want %T", b.Name(), raw, zero)
	}
	return stream, nil
}

// String renders the binding for logs.
func (b binding) String() string {
	return fmt.Sprintf("%s:%s", b.role, b.name)
}
