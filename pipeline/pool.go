package pipeline

import "sync"

// Pool collects the items emitted while one batch is processed. It is
// safe for concurrent use. Item order is completion order.
type Pool struct {
	mu    sync.Mutex
	items Batch
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Append adds one item.
func (p *Pool) Append(chain Chain, payload any) {
	p.mu.Lock()
	p.items = append(p.items, WorkItem{Chain: chain, Payload: payload})
	p.mu.Unlock()
}

// Len returns the number of collected items.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Batch returns a copy of the collected items.
func (p *Pool) Batch() Batch {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(Batch, len(p.items))
	copy(out, p.items)
	return out
}
