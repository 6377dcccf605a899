package job

import (
	"context"

	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

// Attributes are the read-only inputs of a job instance.
type Attributes struct {
	// Name is the configured job name.
	Name    string
	Context Context
	Params  Params
	// Offset and Limit describe the partition this instance is bound to.
	// A zero Limit means no upper bound.
	Offset int
	Limit  int
	Domain Filter
	Log    *logger.Logger
}

// Logger returns the job logger, falling back to the global one.
func (a Attributes) Logger() *logger.Logger {
	if a.Log != nil {
		return a.Log
	}
	return logger.GetGlobalLogger().WithJob(a.Name)
}

// Partition returns a copy of a bound to the given slice of the source.
func (a Attributes) Partition(offset, limit int) Attributes {
	a.Offset = offset
	a.Limit = limit
	return a
}

// Extractor reads its partition of the source and emits records.
type Extractor interface {
	Extract(ctx context.Context, chain pipeline.Chain, seed any, pool *pipeline.Pool)
	// Count returns the number of source records matching the job domain.
	Count(ctx context.Context) (int, error)
}

// Transformer reshapes records read from the source for the destination.
type Transformer interface {
	Transform(ctx context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool)
}

// Loader writes records to the destination. Write failures are emitted as
// pipeline.Failure items instead of being returned.
type Loader interface {
	Load(ctx context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool)
}

// ErrorHandler persists failure records. It is the terminal link of a chain.
type ErrorHandler interface {
	HandleError(ctx context.Context, chain pipeline.Chain, failure any, pool *pipeline.Pool)
}

// ExtractorBase carries the attributes and source binding of an extractor.
type ExtractorBase struct {
	Attributes
	Source Source
}

// NewExtractorBase validates the source binding.
func NewExtractorBase(attrs Attributes, source string) (ExtractorBase, error) {
	src, err := BindSource(attrs.Context, source)
	if err != nil {
		return ExtractorBase{}, err
	}
	return ExtractorBase{Attributes: attrs, Source: src}, nil
}

// LoaderBase carries the attributes and destination binding of a loader.
type LoaderBase struct {
	Attributes
	Destination Destination
}

// NewLoaderBase validates the destination binding.
func NewLoaderBase(attrs Attributes, destination string) (LoaderBase, error) {
	dst, err := BindDestination(attrs.Context, destination)
	if err != nil {
		return LoaderBase{}, err
	}
	return LoaderBase{Attributes: attrs, Destination: dst}, nil
}

// BridgeBase binds both a source and a destination. Transformers and
// error handlers build on it.
type BridgeBase struct {
	Attributes
	Source      Source
	Destination Destination
}

// NewBridgeBase validates both bindings.
func NewBridgeBase(attrs Attributes, source, destination string) (BridgeBase, error) {
	src, err := BindSource(attrs.Context, source)
	if err != nil {
		return BridgeBase{}, err
	}
	dst, err := BindDestination(attrs.Context, destination)
	if err != nil {
		return BridgeBase{}, err
	}
	return BridgeBase{Attributes: attrs, Source: src, Destination: dst}, nil
}

// TransformerBase is the base of transformers.
type TransformerBase = BridgeBase

// ErrorHandlerBase is the base of error handlers.
type ErrorHandlerBase = BridgeBase

// NewTransformerBase validates the source and destination of a transformer.
func NewTransformerBase(attrs Attributes, source, destination string) (TransformerBase, error) {
	return NewBridgeBase(attrs, source, destination)
}

// NewErrorHandlerBase validates the source and destination of an error handler.
func NewErrorHandlerBase(attrs Attributes, source, destination string) (ErrorHandlerBase, error) {
	return NewBridgeBase(attrs, source, destination)
}

// Set is the group of role implementations built for one partition.
type Set struct {
	Extractor    Extractor
	Transformer  Transformer
	Loader       Loader
	ErrorHandler ErrorHandler
}

// Chain returns the steps in role order. A missing transform role becomes a
// Forward link and a missing load role becomes a discard link, so the error
// handler stays aligned with the last stage and only receives failures.
func (s Set) Chain() pipeline.Chain {
	chain := make(pipeline.Chain, 0, 4)
	if s.Extractor != nil {
		chain = append(chain, s.Extractor.Extract)
	}
	if s.Transformer != nil {
		chain = append(chain, s.Transformer.Transform)
	} else {
		chain = append(chain, pipeline.Forward)
	}
	if s.Loader != nil {
		chain = append(chain, s.Loader.Load)
	} else {
		chain = append(chain, discard)
	}
	if s.ErrorHandler != nil {
		chain = append(chain, s.ErrorHandler.HandleError)
	}
	return chain
}

// discard ends the chain for records that have no destination.
func discard(context.Context, pipeline.Chain, any, *pipeline.Pool) {}

// Fail emits a failure record routed to the last link of chain. It
// returns false when chain is empty and the failure could not be routed.
func Fail(chain pipeline.Chain, pool *pipeline.Pool, failure *pipeline.Failure) bool {
	routed := pipeline.RouteToLast(chain)
	if routed == nil {
		return false
	}
	pool.Append(routed, failure)
	return true
}
