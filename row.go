package brickset

import (
	"sync/atomic"

	"github.com/templexxx/cpu"
)

// row is one generation of the concurrent engine's table. Rows are
// stored in a fixed-length vector inside ConcurrentSet and are
// replaced, never resized in place: growing the set allocates a new,
// larger row and migrates cells out of the old one. workerCount tracks
// how many threads still hold a reference into this row (via
// ThreadData.currentRow); the row's storage is released once the count
// drops to zero, except for row 0, whose count is never touched and
// which therefore lives for the set's whole lifetime.
type row[T Key] struct {
	data        atomic.Pointer[[]atomicCell[T]]
	size        uint64
	workerCount atomic.Int32
	_           [cpu.X86FalseSharingRange]byte
}

func (r *row[T]) empty() bool {
	return r.data.Load() == nil
}

func (r *row[T]) cells() []atomicCell[T] {
	p := r.data.Load()
	if p == nil {
		return nil
	}
	return *p
}

// resize allocates fresh storage of size n, populated with cells from
// newCell, and installs it as the row's contents.
func (r *row[T]) resize(n uint64, newCell func() atomicCell[T]) {
	cells := make([]atomicCell[T], n)
	for i := range cells {
		cells[i] = newCell()
	}
	r.data.Store(&cells)
	r.size = n
}

// free drops the row's storage, letting the garbage collector reclaim
// it once the last reader releases its reference.
func (r *row[T]) free() {
	r.data.Store(nil)
	r.size = 0
}
