package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/etlkit/logger"
)

// Lazy opens a resource on first Get and hands out the same value until
// Close. A failed open is retried on the next Get.
type Lazy[T any] struct {
	name   string
	mu     sync.Mutex
	value  T
	opened bool
	open   func(ctx context.Context) (T, error)
	close  func(T) error
}

// NewLazy creates a lazy resource with the given opener.
func NewLazy[T any](name string, open func(context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{name: name, open: open}
}

// WithCloser sets the function that releases an opened value.
func (l *Lazy[T]) WithCloser(fn func(T) error) *Lazy[T] {
	l.close = fn
	return l
}

// Name returns the resource name.
func (l *Lazy[T]) Name() string { return l.name }

// Get returns the opened value, opening it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.opened {
		return l.value, nil
	}
	if l.open == nil {
		var zero T
		return zero, fmt.Errorf("no opener for %s", l.name)
	}

	logger.Debug("opening resource", logger.Fields(logger.FieldConnector, l.name))
	v, err := l.open(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to open %s: %w", l.name, err)
	}

	l.value = v
	l.opened = true
	return v, nil
}

// IsOpen reports whether the value has been opened and not closed.
func (l *Lazy[T]) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened
}

// Close releases the value if it was opened.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return nil
	}
	l.opened = false
	v := l.value
	var zero T
	l.value = zero
	if l.close != nil {
		return l.close(v)
	}
	return nil
}
