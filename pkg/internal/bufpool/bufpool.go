// Package bufpool pools bytes.Buffers and drops buffers that grew too large to be worth keeping.
package bufpool

import (
	"bytes"
	"sync"
)

// DefaultMaxSize is the capacity above which a returned buffer is not reused.
const DefaultMaxSize = 1 << 20

// Pool is a pool of bytes.Buffers. The zero value is ready to use.
type Pool struct {
	// MaxSize overrides DefaultMaxSize if > 0.
	MaxSize int

	pool sync.Pool
}

// Get returns an empty buffer.
func (p *Pool) Get() *bytes.Buffer {
	if b, ok := p.pool.Get().(*bytes.Buffer); ok {
		return b
	}
	return new(bytes.Buffer)
}

// Put resets b and returns it to the pool.
// b must not be used after Put.
func (p *Pool) Put(b *bytes.Buffer) {
	max := p.MaxSize
	if max <= 0 {
		max = DefaultMaxSize
	}
	if b.Cap() > max {
		return
	}
	b.Reset()
	p.pool.Put(b)
}
