package transport

import (
	"sync"
)

// Pool manages the multiplexed transports for a single agent address.
// The controller client keeps one Pool per agent; every Call borrows a
// transport with Get and returns it with Put.
//
// Pool design: uses a buffered channel as a natural FIFO queue.
// Buffered channels are concurrency-safe, and blocking on empty is built-in.
type Pool struct {
	mu      sync.Mutex
	idle    chan *ClientTransport            // Buffered channel as pool — FIFO, goroutine-safe
	maxSize int                              // Maximum number of transports
	cur     int                              // Currently created transports (may be < maxSize)
	factory func() (*ClientTransport, error) // Dials the agent and wraps the connection
}

// NewPool creates a transport pool with the given max size.
// Transports are created lazily — the pool starts empty and grows on demand.
func NewPool(maxSize int, factory func() (*ClientTransport, error)) *Pool {
	return &Pool{
		idle:    make(chan *ClientTransport, maxSize),
		maxSize: maxSize,
		factory: factory,
	}
}

// Get borrows a transport from the pool.
// Strategy:
//  1. Try to get an idle transport from the channel (non-blocking select)
//  2. If the pool is empty but under limit, create a new transport
//  3. If the pool is empty and at limit, block until one is returned
func (p *Pool) Get() (*ClientTransport, error) {
	select {
	case t := <-p.idle:
		return t, nil
	default:
		// No idle transport
		p.mu.Lock()
		if p.cur < p.maxSize {
			p.cur++ // Reserve the slot before dialing, so concurrent Gets can't overshoot
			p.mu.Unlock()
			t, err := p.factory()
			if err != nil {
				p.mu.Lock()
				p.cur--
				p.mu.Unlock()
				return nil, err
			}
			return t, nil
		}
		p.mu.Unlock()
		// At capacity — block until a transport is returned
		return <-p.idle, nil
	}
}

// Put returns a transport to the pool.
func (p *Pool) Put(t *ClientTransport) {
	p.idle <- t
}

// Close shuts down the pool and closes all idle connections.
// Outstanding transports (borrowed, not yet Put back) are the borrower's
// to close.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.idle)
	for t := range p.idle {
		t.Conn().Close()
		p.cur--
	}
	return nil
}
