package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolReusesObjects(t *testing.T) {
	type scratch struct{ n int }
	p := New(func() *scratch { return &scratch{} }, func(s *scratch) { s.n = 0 })

	s := p.Get()
	s.n = 42
	p.Put(s)

	s2 := p.Get()
	assert.Equal(t, 0, s2.n)

	gets, allocs := p.Stats()
	assert.Equal(t, int64(2), gets)
	assert.LessOrEqual(t, allocs, gets)
}

func TestClassFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, -1},
		{1, 0},
		{64, 0},
		{65, 1},
		{128, 1},
		{1 << 20, 14},
		{1<<20 + 1, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classFor(tt.n), "n=%d", tt.n)
	}
}

func TestBytePoolGetIsZeroedAndSized(t *testing.T) {
	p := NewBytePool()
	b := p.Get(100)
	require.Len(t, b, 100)
	assert.Equal(t, 128, cap(b))
	for i := range b {
		b[i] = 0xFF
	}
	p.Put(b)

	b2 := p.Get(100)
	require.Len(t, b2, 100)
	for i, c := range b2 {
		require.Zero(t, c, "byte %d not cleared", i)
	}
}

func TestBytePoolOversize(t *testing.T) {
	p := NewBytePool()
	b := p.Get(1<<20 + 1)
	assert.Len(t, b, 1<<20+1)
	p.Put(b) // dropped, not pooled
}

func TestBytePoolZeroLength(t *testing.T) {
	p := NewBytePool()
	assert.Len(t, p.Get(0), 0)
}
