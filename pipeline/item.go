package pipeline

import (
	"context"
	"reflect"
)

// Step is one link of a Chain. It receives the remaining chain, the
// payload and the pool of the batch being processed. A step emits zero or
// more items by appending them to pool; appending nothing drops the item.
// Steps may rewrite chain before re-attaching it.
type Step func(ctx context.Context, chain Chain, payload any, pool *Pool)

// Chain is the ordered list of steps still to run for an item.
type Chain []Step

// Head returns the first step and the rest of the chain.
func (c Chain) Head() (Step, Chain) {
	if len(c) == 0 {
		return nil, nil
	}
	return c[0], c[1:]
}

// WorkItem is the unit of transport between stages.
type WorkItem struct {
	Chain   Chain
	Payload any
}

// Batch is the unit of fan-out. A nil Batch passed to Put stops the pipeline.
type Batch []WorkItem

// Forward re-emits the payload unchanged with the remaining chain. It lets
// an item pass through a stage without work.
func Forward(_ context.Context, chain Chain, payload any, pool *Pool) {
	pool.Append(chain, payload)
}

// RouteToLast returns a chain that forwards through every intermediate
// stage and runs only the last step of tail. It returns nil for an empty tail.
func RouteToLast(tail Chain) Chain {
	if len(tail) == 0 {
		return nil
	}
	routed := make(Chain, len(tail))
	for i := range len(tail) - 1 {
		routed[i] = Forward
	}
	routed[len(tail)-1] = tail[len(tail)-1]
	return routed
}

// IsEmpty reports whether a payload carries no work: nil, a nil pointer,
// or a zero-length slice, map, array or string.
func IsEmpty(payload any) bool {
	if payload == nil {
		return true
	}
	v := reflect.ValueOf(payload)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Array, reflect.String:
		return v.Len() == 0
	default:
		return false
	}
}
