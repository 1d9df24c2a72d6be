// Package pool recycles the byte blocks that back out-of-line field
// payloads. String bytes and vector backing stores churn on every resize,
// so freed blocks go into size-classed sync.Pools instead of the garbage
// collector.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a typed sync.Pool wrapper. The reset function, when given, runs
// before an object re-enters the pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	news  int64
	hits  int64
}

// New creates a pool around a factory and an optional reset function.
func New[T any](factory func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		atomic.AddInt64(&p.news, 1)
		return factory()
	}
	return p
}

// Get returns a pooled object, creating one when the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.hits, 1)
	return p.pool.Get().(T)
}

// Put returns an object to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// Stats reports how many Gets were served and how many had to allocate.
func (p *Pool[T]) Stats() (gets, allocs int64) {
	return atomic.LoadInt64(&p.hits), atomic.LoadInt64(&p.news)
}

const (
	minClassBits = 6  // 64 B
	maxClassBits = 20 // 1 MiB
)

// BytePool hands out zeroed byte slices from power-of-two size classes.
// Requests above the largest class fall through to plain allocation.
type BytePool struct {
	classes [maxClassBits - minClassBits + 1]sync.Pool
}

// NewBytePool creates an empty byte pool.
func NewBytePool() *BytePool {
	p := &BytePool{}
	for i := range p.classes {
		size := 1 << (minClassBits + i)
		p.classes[i].New = func() any {
			return make([]byte, size)
		}
	}
	return p
}

// classFor returns the index of the smallest class holding n bytes, or -1
// when n is out of pooled range.
func classFor(n int) int {
	if n == 0 || n > 1<<maxClassBits {
		return -1
	}
	c := 0
	for s := 1 << minClassBits; s < n; s <<= 1 {
		c++
	}
	return c
}

// Get returns a zeroed slice of length n.
func (p *BytePool) Get(n int) []byte {
	c := classFor(n)
	if c < 0 {
		return make([]byte, n)
	}
	block := p.classes[c].Get().([]byte)[:n]
	for i := range block {
		block[i] = 0
	}
	return block
}

// Put recycles a slice. Slices whose capacity is not an exact class size
// are dropped.
func (p *BytePool) Put(block []byte) {
	c := classFor(cap(block))
	if c < 0 || cap(block) != 1<<(minClassBits+c) {
		return
	}
	p.classes[c].Put(block[:cap(block)])
}

// Bytes is the shared byte pool.
var Bytes = NewBytePool()
