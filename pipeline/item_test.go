package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	var nilPtr *int
	var nilSlice []int
	one := 1

	tests := []struct {
		name    string
		payload any
		want    bool
	}{
		{"nil", nil, true},
		{"nil pointer", nilPtr, true},
		{"nil slice", nilSlice, true},
		{"empty slice", []int{}, true},
		{"empty map", map[string]any{}, true},
		{"empty string", "", true},
		{"empty array", [0]int{}, true},
		{"zero int", 0, false},
		{"pointer", &one, false},
		{"slice", []int{1}, false},
		{"struct", struct{}{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.payload))
		})
	}
}

func TestChainHead(t *testing.T) {
	step, tail := Chain(nil).Head()
	assert.Nil(t, step)
	assert.Nil(t, tail)

	var called []string
	mk := func(name string) Step {
		return func(context.Context, Chain, any, *Pool) { called = append(called, name) }
	}
	step, tail = Chain{mk("a"), mk("b")}.Head()
	require.NotNil(t, step)
	step(context.Background(), tail, nil, NewPool())
	assert.Equal(t, []string{"a"}, called)
	assert.Len(t, tail, 1)
}

func TestRouteToLast(t *testing.T) {
	assert.Nil(t, RouteToLast(nil))

	var handled any
	handler := func(_ context.Context, _ Chain, payload any, _ *Pool) { handled = payload }
	noop := func(context.Context, Chain, any, *Pool) {}

	routed := RouteToLast(Chain{noop, noop, handler})
	require.Len(t, routed, 3)

	// The first two links forward the payload untouched.
	pool := NewPool()
	routed[0](context.Background(), routed[1:], "x", pool)
	require.Equal(t, 1, pool.Len())
	item := pool.Batch()[0]
	assert.Equal(t, "x", item.Payload)
	assert.Len(t, item.Chain, 2)

	routed[2](context.Background(), nil, "x", NewPool())
	assert.Equal(t, "x", handled)
}

func TestPool_ConcurrentAppend(t *testing.T) {
	pool := NewPool()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Append(nil, i)
		}()
	}
	wg.Wait()

	batch := pool.Batch()
	assert.Len(t, batch, 100)
	seen := make(map[int]bool)
	for _, item := range batch {
		seen[item.Payload.(int)] = true
	}
	assert.Len(t, seen, 100)
}

func TestPool_BatchIsCopy(t *testing.T) {
	pool := NewPool()
	pool.Append(nil, 1)
	b := pool.Batch()
	b[0].Payload = 2
	assert.Equal(t, 1, pool.Batch()[0].Payload)
}

func TestNewFailure(t *testing.T) {
	f := NewFailure("insert", []string{"partners"}, map[string]any{"id": 1}, assert.AnError)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "insert", f.Operation)
	assert.Equal(t, []string{"partners"}, f.Targets)
	assert.Equal(t, assert.AnError.Error(), f.Error)
	assert.False(t, f.Time.IsZero())

	assert.Empty(t, NewFailure("x", nil, nil, nil).Error)
}
