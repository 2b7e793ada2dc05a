package brickset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentSetSequential(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64](), WithInitialSize(8))
	r := cs.Insert(11)
	require.True(t, r.IsNew())
	r = cs.Insert(11)
	require.False(t, r.IsNew())
	require.True(t, cs.Find(11).Valid())
	require.False(t, cs.Find(12).Valid())
}

func TestConcurrentSetGrows(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64](), WithInitialSize(4))
	const n = 20000
	for i := uint64(1); i <= n; i++ {
		r := cs.Insert(i)
		require.True(t, r.IsNew(), "insert %d should be new", i)
	}
	for i := uint64(1); i <= n; i++ {
		require.True(t, cs.Find(i).Valid(), "expected %d to be found", i)
	}
}

// TestConcurrentSetTwoThreads runs a two-thread insert scenario: each
// goroutine inserts a disjoint range of keys while growth is forced by a
// small initial size, and afterward every key from both ranges must be
// found through a fresh handle.
func TestConcurrentSetTwoThreads(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64](), WithInitialSize(4))
	const perThread = 5000

	var wg sync.WaitGroup
	wg.Add(2)
	for g := 0; g < 2; g++ {
		go func(g int) {
			defer wg.Done()
			td := &ThreadData{}
			h := cs.With(td)
			base := uint64(g*perThread + 1)
			for i := uint64(0); i < perThread; i++ {
				h.Insert(base + i)
			}
		}(g)
	}
	wg.Wait()

	td := &ThreadData{}
	h := cs.With(td)
	for i := uint64(1); i <= 2*perThread; i++ {
		require.True(t, h.Find(i).Valid(), "expected %d to be found", i)
	}
}

// TestConcurrentSetTenThreads mirrors the original's ten-thread
// scenario: many goroutines insert overlapping and distinct keys
// concurrently, and every key any of them inserted must be visible
// afterward (no key lost).
func TestConcurrentSetTenThreads(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64](), WithInitialSize(4))
	const workers = 10
	const perWorker = 2000

	var wg sync.WaitGroup
	wg.Add(workers)
	for g := 0; g < workers; g++ {
		go func(g int) {
			defer wg.Done()
			td := &ThreadData{}
			h := cs.With(td)
			for i := uint64(1); i <= perWorker; i++ {
				// Every worker inserts the same shared key range plus
				// its own private range, so both contended and
				// uncontended inserts are exercised.
				h.Insert(i)
				h.Insert(uint64(g)*perWorker + i + workers*perWorker)
			}
		}(g)
	}
	wg.Wait()

	td := &ThreadData{}
	h := cs.With(td)
	for i := uint64(1); i <= perWorker; i++ {
		require.True(t, h.Find(i).Valid())
	}
	for g := 0; g < workers; g++ {
		for i := uint64(1); i <= perWorker; i++ {
			key := uint64(g)*perWorker + i + workers*perWorker
			require.True(t, h.Find(key).Valid(), "expected %d to be found", key)
		}
	}
}

func TestConcurrentSetCompactCells(t *testing.T) {
	cs := NewConcurrentCompact[uint64](NewHasher[uint64](), WithInitialSize(8))
	for i := uint64(1); i <= 3000; i++ {
		require.True(t, cs.Insert(i).IsNew())
	}
	for i := uint64(1); i <= 3000; i++ {
		require.True(t, cs.Find(i).Valid())
	}
}

func TestConcurrentSetCloseObservable(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64]())
	require.True(t, cs.IsRunning())
	cs.Close()
	require.False(t, cs.IsRunning())
}

func TestConcurrentSetInsertFindAfterClose(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64]())
	require.True(t, cs.Insert(1).IsNew())
	cs.Close()

	r := cs.Insert(2)
	require.ErrorIs(t, r.Err(), ErrClosed)
	require.False(t, r.Valid())

	r = cs.Find(1)
	require.ErrorIs(t, r.Err(), ErrClosed)
	require.False(t, r.Valid())
}

func TestConcurrentSetIterationUnderBarrier(t *testing.T) {
	cs := NewConcurrentFast[uint64](NewHasher[uint64](), WithInitialSize(64))
	inserted := map[uint64]bool{}
	for i := uint64(1); i <= 40; i++ {
		cs.Insert(i)
		inserted[i] = true
	}
	seen := map[uint64]bool{}
	for i := 0; i < cs.Size(); i++ {
		if cs.ValidAt(i) {
			seen[cs.At(i)] = true
		}
	}
	require.Equal(t, inserted, seen)
}
