package brickset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFastCell(t *testing.T) {
	h := NewHasher[uint64]()
	var c fastCell[uint64]
	require.True(t, c.Empty(h))
	c.Store(42, 99)
	require.False(t, c.Empty(h))
	require.True(t, c.Is(42, 99, h))
	require.False(t, c.Is(42, 100, h))
	require.Equal(t, uint64(42), c.Fetch())
	require.Equal(t, uint64(99), c.HashOf(h))
}

func TestCompactCell(t *testing.T) {
	h := NewHasher[uint64]()
	var c compactCell[uint64]
	require.True(t, c.Empty(h))
	c.Store(7, 0)
	require.False(t, c.Empty(h))
	hash, _ := h.Hash(uint64(7))
	require.True(t, c.Is(7, hash, h))
}

func TestAtomicCompactCellRoundTrip(t *testing.T) {
	h := NewHasher[uint64]()
	var c atomicCompactCell[uint64]
	require.True(t, c.Empty(h))
	hash, _ := h.Hash(uint64(123))
	require.True(t, c.TryStore(123, hash))
	require.False(t, c.TryStore(456, hash)) // already occupied
	require.True(t, c.Is(123, hash, h))
	require.Equal(t, uint64(123), c.Fetch())
	require.False(t, c.Invalid())

	value, occupied := c.Invalidate()
	require.True(t, occupied)
	require.Equal(t, uint64(123), value)
	require.True(t, c.Invalid())
}

func TestAtomicCompactCellInvalidateEmpty(t *testing.T) {
	var c atomicCompactCell[uint64]
	_, occupied := c.Invalidate()
	require.False(t, occupied)
	require.True(t, c.Invalid())
}

func TestAtomicFastCellRoundTrip(t *testing.T) {
	h := NewHasher[uint64]()
	var c atomicFastCell[uint64]
	require.True(t, c.Empty(h))
	hash, _ := h.Hash(uint64(9001))
	require.True(t, c.TryStore(9001, hash))
	require.False(t, c.TryStore(1, hash))
	require.True(t, c.Is(9001, hash, h))
	require.False(t, c.Is(9002, hash, h))
	require.Equal(t, uint64(9001), c.Fetch())

	value, occupied := c.Invalidate()
	require.True(t, occupied)
	require.Equal(t, uint64(9001), value)
	require.True(t, c.Invalid())

	// Invalidating an already-invalid cell reports not-occupied.
	_, occupied = c.Invalidate()
	require.False(t, occupied)
}

func TestAtomicFastCellInvalidateEmpty(t *testing.T) {
	var c atomicFastCell[uint64]
	_, occupied := c.Invalidate()
	require.False(t, occupied)
}
