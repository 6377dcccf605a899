package job

import (
	"context"
	"slices"
	"sync"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/logger"
)

// ConnectorFactory creates a named connector from its params. A connector
// holding resources should also implement component.Component.
type ConnectorFactory func(ctx context.Context, name string, params Params, log *logger.Logger) (Connector, error)

// ExtractorFactory creates an extractor bound to source.
type ExtractorFactory func(attrs Attributes, source string) (Extractor, error)

// TransformerFactory creates a transformer bound to source and destination.
type TransformerFactory func(attrs Attributes, source, destination string) (Transformer, error)

// LoaderFactory creates a loader bound to destination.
type LoaderFactory func(attrs Attributes, destination string) (Loader, error)

// ErrorHandlerFactory creates an error handler bound to source and destination.
type ErrorHandlerFactory func(attrs Attributes, source, destination string) (ErrorHandler, error)

// Registry maps configured type names to factories.
type Registry struct {
	mu            sync.RWMutex
	connectors    map[string]ConnectorFactory
	extractors    map[string]ExtractorFactory
	transformers  map[string]TransformerFactory
	loaders       map[string]LoaderFactory
	errorHandlers map[string]ErrorHandlerFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connectors:    make(map[string]ConnectorFactory),
		extractors:    make(map[string]ExtractorFactory),
		transformers:  make(map[string]TransformerFactory),
		loaders:       make(map[string]LoaderFactory),
		errorHandlers: make(map[string]ErrorHandlerFactory),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry connector packages register into
// from their init functions.
func DefaultRegistry() *Registry { return defaultRegistry }

// RegisterConnector registers f as the connector factory for typ.
func (r *Registry) RegisterConnector(typ string, f ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[typ] = f
}

// RegisterExtractor registers f as the extractor factory for typ.
func (r *Registry) RegisterExtractor(typ string, f ExtractorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[typ] = f
}

// RegisterTransformer registers f as the transformer factory for typ.
func (r *Registry) RegisterTransformer(typ string, f TransformerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[typ] = f
}

// RegisterLoader registers f as the loader factory for typ.
func (r *Registry) RegisterLoader(typ string, f LoaderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[typ] = f
}

// RegisterErrorHandler registers f as the error handler factory for typ.
func (r *Registry) RegisterErrorHandler(typ string, f ErrorHandlerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorHandlers[typ] = f
}

// Connector returns the connector factory for typ.
func (r *Registry) Connector(typ string) (ConnectorFactory, error) {
	return lookup(r, r.connectors, "connector", typ)
}

// Extractor returns the extractor factory for typ.
func (r *Registry) Extractor(typ string) (ExtractorFactory, error) {
	return lookup(r, r.extractors, "extract", typ)
}

// Transformer returns the transformer factory for typ.
func (r *Registry) Transformer(typ string) (TransformerFactory, error) {
	return lookup(r, r.transformers, "transform", typ)
}

// Loader returns the loader factory for typ.
func (r *Registry) Loader(typ string) (LoaderFactory, error) {
	return lookup(r, r.loaders, "load", typ)
}

// ErrorHandler returns the error handler factory for typ.
func (r *Registry) ErrorHandler(typ string) (ErrorHandlerFactory, error) {
	return lookup(r, r.errorHandlers, "error", typ)
}

// Types lists the registered connector types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func lookup[F any](r *Registry, m map[string]F, kind, typ string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := m[typ]
	if !ok {
		var zero F
		return zero, errors.Configurationf("unknown %s type %q", kind, typ).
			WithDetail("kind", kind)
	}
	return f, nil
}
