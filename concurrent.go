// Concurrent engine: a lock-free open-addressed hash set that grows by
// appending a new, larger generation to a vector of rows rather than
// resizing a table in place. A generation advance is exclusive (one
// thread wins the right to publish the new row), but the segmented
// migration of cells from the old row into the new one is cooperative:
// any thread that notices growing is in progress helps move a share of
// the work before retrying its own operation.
package brickset

import "sync/atomic"

// resolution names the outcome of one probe attempt against a single
// row, used internally to drive the insert/find state machines.
type resolution int

const (
	resSuccess resolution = iota
	resFound
	resNotFound
	resNoSpace
	resGrowing
)

type opResult[T Key] struct {
	res   resolution
	value T
}

// ThreadData is a caller-owned handle into a ConcurrentSet: it remembers
// which generation (row) the calling goroutine last observed, so
// repeated operations avoid re-deriving that state from the shared
// control word. A ThreadData must not be shared between goroutines; the
// zero value is ready to use.
type ThreadData struct {
	currentRow uint32
	inserts    uint32
}

// ConcurrentSet is a lock-free open-addressed hash set safe for
// concurrent Insert/Find calls from multiple goroutines, each through a
// Handle bound to its own ThreadData (see With), with growth
// performed cooperatively by whichever goroutines happen to call in
// while a generation advance is underway.
type ConcurrentSet[T Key] struct {
	hasher  Hasher[T]
	newCell func() atomicCell[T]
	ctrl    control
	rows    []row[T]

	used              atomic.Uint64
	availableSegments atomic.Int64
	doneSegments      atomic.Uint64

	global ThreadData
}

// NewConcurrentFast builds a ConcurrentSet using the atomic-fast cell
// layout (separate hash and value words). This is the safe default: it
// places no restriction on the width of T beyond Key itself.
func NewConcurrentFast[T Key](hasher Hasher[T], opts ...Option) *ConcurrentSet[T] {
	return newConcurrentSet[T](hasher, func() atomicCell[T] { return &atomicFastCell[T]{} }, opts)
}

// NewConcurrentCompact builds a ConcurrentSet using the atomic-compact
// cell layout (value and hash tag packed into one word via CAS). Every
// value ever inserted must fit within compactValueBits bits.
func NewConcurrentCompact[T Key](hasher Hasher[T], opts ...Option) *ConcurrentSet[T] {
	return newConcurrentSet[T](hasher, func() atomicCell[T] { return &atomicCompactCell[T]{} }, opts)
}

func newConcurrentSet[T Key](hasher Hasher[T], newCell func() atomicCell[T], opts []Option) *ConcurrentSet[T] {
	cfg := concurrentConfig{maxGrowths: defaultMaxGrowths, initialSize: defaultInitialSize}
	for _, o := range opts {
		o(&cfg)
	}
	cs := &ConcurrentSet[T]{
		hasher:  hasher,
		newCell: newCell,
		rows:    make([]row[T], cfg.maxGrowths),
	}
	cs.ctrl.word.Store(createControl())
	cs.setSize(uint64(cfg.initialSize))
	return cs
}

// setSize picks the smallest row-0 size whose growth schedule can reach
// at least s, and allocates row 0 at that size.
func (cs *ConcurrentSet[T]) setSize(s uint64) {
	if s == 0 {
		s = 1
	}
	s = fill(s-1) + 1
	toSet := uint64(1)
	for nextSize(toSet) < s {
		toSet <<= 1
	}
	cs.rows[0].resize(toSet, cs.newCell)
}

// IsRunning reports whether Close has not yet been called.
func (cs *ConcurrentSet[T]) IsRunning() bool { return cs.ctrl.isRunning() }

// Close marks the set closed. It does not stop goroutines already
// inside Insert/Find, and does not release row storage; it exists so
// callers with an explicit shutdown phase can make IsRunning observable
// to others.
func (cs *ConcurrentSet[T]) Close() { cs.ctrl.close() }

// Used returns the approximate number of occupied cells across all
// rows. Because helper threads publish their insert counts in batches
// of syncPoint, this can lag the true count by up to syncPoint per
// active goroutine.
func (cs *ConcurrentSet[T]) Used() uint64 { return cs.used.Load() }

// Size returns the capacity in cells of the current generation's row.
func (cs *ConcurrentSet[T]) Size() int {
	return int(cs.rows[cs.ctrl.currentRow()].size)
}

// At returns the value stored at cell index i of the current
// generation's row. It is safe only when the caller can guarantee no
// concurrent Insert/growth is in flight (an external barrier), exactly
// as reading the original's table snapshot out from under live writers
// would be.
func (cs *ConcurrentSet[T]) At(i int) T {
	return cs.rows[cs.ctrl.currentRow()].cells()[i].Fetch()
}

// ValidAt reports whether cell index i of the current generation's row
// is occupied. Same external-barrier caveat as At.
func (cs *ConcurrentSet[T]) ValidAt(i int) bool {
	return !cs.rows[cs.ctrl.currentRow()].cells()[i].Empty(cs.hasher)
}

// Insert adds v using the set's own internal ThreadData. That
// ThreadData is shared by the set's own Insert, Find and Count, so these
// are not safe to call from several goroutines at once; concurrent
// callers each call With with their own ThreadData and use the returned
// Handle instead.
func (cs *ConcurrentSet[T]) Insert(v T) Result[T] { return cs.With(&cs.global).Insert(v) }

// Find looks up v using the set's own internal ThreadData.
func (cs *ConcurrentSet[T]) Find(v T) Result[T] { return cs.With(&cs.global).Find(v) }

// Count returns 1 if v is present and 0 otherwise.
func (cs *ConcurrentSet[T]) Count(v T) int {
	if cs.Find(v).Valid() {
		return 1
	}
	return 0
}

// Handle is a ConcurrentSet bound to one caller-owned ThreadData. A
// goroutine that performs many operations should build one Handle with
// With and reuse it, so its generation bookkeeping and insert-count
// batching persist across calls.
type Handle[T Key] struct {
	cs *ConcurrentSet[T]
	td *ThreadData
}

// With binds td to cs, returning a Handle. td must not be used from
// more than one goroutine at a time.
func (cs *ConcurrentSet[T]) With(td *ThreadData) Handle[T] {
	return Handle[T]{cs: cs, td: td}
}

func (h Handle[T]) row(i uint32) *row[T] { return &h.cs.rows[i] }

// changed reports whether the generation the handle last observed is no
// longer current, or a generation advance is actively in flight — both
// are reasons a probe against the handle's remembered row can no longer
// be trusted.
func (h Handle[T]) changed(rowIndex uint32) bool {
	return rowIndex < h.cs.ctrl.currentRow() || h.cs.ctrl.isGrowing()
}

// Insert adds v, retrying through generation advances as needed. It
// returns a Result carrying ErrClosed, and does not touch the table, if
// the set has already been closed.
func (h Handle[T]) Insert(v T) Result[T] {
	if !h.cs.ctrl.isRunning() {
		return Result[T]{err: ErrClosed}
	}
	hash, _ := h.cs.hasher.Hash(v)
	for {
		r := h.insertCell(v, hash, false)
		switch r.res {
		case resSuccess:
			h.increaseUsage()
			return Result[T]{value: v, ok: true, isNew: true}
		case resFound:
			return Result[T]{value: r.value, ok: true}
		case resNoSpace:
			if h.grow(h.td.currentRow + 1) {
				h.td.currentRow++
				continue
			}
			h.helpWithRehashing()
			h.updateIndex()
		case resGrowing:
			h.helpWithRehashing()
			h.updateIndex()
		default:
			panic("brickset: impossible insert resolution")
		}
	}
}

// Find looks up v, retrying through generation advances as needed. It
// returns a Result carrying ErrClosed if the set has already been
// closed.
func (h Handle[T]) Find(v T) Result[T] {
	if !h.cs.ctrl.isRunning() {
		return Result[T]{err: ErrClosed}
	}
	hash, _ := h.cs.hasher.Hash(v)
	for {
		r := h.findCell(v, hash, h.td.currentRow)
		switch r.res {
		case resFound:
			return Result[T]{value: r.value, ok: true}
		case resNotFound:
			return Result[T]{}
		case resGrowing:
			h.helpWithRehashing()
			h.updateIndex()
		default:
			panic("brickset: impossible find resolution")
		}
	}
}

// Count returns 1 if v is present and 0 otherwise.
func (h Handle[T]) Count(v T) int {
	if h.Find(v).Valid() {
		return 1
	}
	return 0
}

// insertCell probes the handle's current row for v, or, when force is
// true, probes unconditionally into that row without the load-factor
// and generation checks — the mode segment migration uses to place a
// value it has already claimed from the old row.
func (h Handle[T]) insertCell(v T, hash uint64, force bool) opResult[T] {
	r := h.row(h.td.currentRow)
	if !force {
		u := h.cs.used.Load()
		if r.empty() || 4*u >= 3*r.size {
			return opResult[T]{res: resNoSpace}
		}
		if h.changed(h.td.currentRow) {
			return opResult[T]{res: resGrowing}
		}
	}
	cells := r.cells()
	mask := r.size - 1
	for i := uint64(0); i < maxCollisions; i++ {
		cell := cells[index(hash, i, mask)]
		if cell.Empty(h.cs.hasher) {
			if cell.TryStore(v, hash) {
				return opResult[T]{res: resSuccess}
			}
			if cell.Is(v, hash, h.cs.hasher) {
				return opResult[T]{res: resFound, value: cell.Fetch()}
			}
			if !force && h.changed(h.td.currentRow) {
				return opResult[T]{res: resGrowing}
			}
			continue
		}
		if cell.Is(v, hash, h.cs.hasher) {
			return opResult[T]{res: resFound, value: cell.Fetch()}
		}
		if cell.Invalid() {
			return opResult[T]{res: resGrowing}
		}
		if !force && h.changed(h.td.currentRow) {
			return opResult[T]{res: resGrowing}
		}
	}
	return opResult[T]{res: resNoSpace}
}

// findCell probes rowIndex for v.
func (h Handle[T]) findCell(v T, hash uint64, rowIndex uint32) opResult[T] {
	if h.changed(rowIndex) {
		return opResult[T]{res: resGrowing}
	}
	r := h.row(rowIndex)
	if r.empty() {
		return opResult[T]{res: resNotFound}
	}
	cells := r.cells()
	mask := r.size - 1
	for i := uint64(0); i < maxCollisions; i++ {
		if h.changed(rowIndex) {
			return opResult[T]{res: resGrowing}
		}
		cell := cells[index(hash, i, mask)]
		if cell.Empty(h.cs.hasher) {
			return opResult[T]{res: resNotFound}
		}
		if cell.Is(v, hash, h.cs.hasher) {
			return opResult[T]{res: resFound, value: cell.Fetch()}
		}
		if cell.Invalid() {
			return opResult[T]{res: resGrowing}
		}
	}
	return opResult[T]{res: resNotFound}
}

// grow attempts to advance the current generation to target, returning
// false if another thread already got there first. The winner allocates
// the new row, publishes it as current, and then either migrates the
// old row's cells itself or, if a concurrent helper races in first,
// shares the work via availableSegments.
func (h Handle[T]) grow(target uint32) bool {
	if target == 0 {
		panic("brickset: invalid growth target")
	}
	if int(target) >= len(h.cs.rows) {
		panic("brickset: exhausted configured growth headroom")
	}
	if h.cs.ctrl.currentRow() >= target {
		return false
	}
	for !h.cs.ctrl.tryLockGrowing() {
		h.helpWithRehashing()
	}
	if h.cs.ctrl.currentRow() >= target {
		h.cs.ctrl.unlockGrowing()
		return false
	}

	prev := h.row(target - 1)
	h.row(target).resize(nextSize(prev.size), h.cs.newCell)
	h.cs.ctrl.setCurrentRow(target)
	h.row(target).workerCount.Store(1)
	h.cs.doneSegments.Store(0)

	if prev.empty() {
		h.rehashingDone(target)
		return true
	}

	segments := prev.size / segmentSize
	if segments == 0 {
		segments = 1
	}
	h.cs.availableSegments.Store(int64(segments))

	for h.rehashSegment(target) {
	}
	return true
}

// rehashSegment claims and migrates one segment's worth of cells from
// row target-1 into row target, returning true if segments remain
// unclaimed. Threads that call in via helpWithRehashing race the
// original grower for segments here.
func (h Handle[T]) rehashSegment(target uint32) bool {
	segment := h.cs.availableSegments.Add(-1)
	if segment < 0 {
		return false
	}

	prev := h.row(target - 1)
	segments := prev.size / segmentSize
	if segments == 0 {
		segments = 1
	}
	cells := prev.cells()
	start := uint64(segment) * segmentSize
	end := start + segmentSize
	if end > prev.size {
		end = prev.size
	}

	migrant := Handle[T]{cs: h.cs, td: &ThreadData{currentRow: target}}
	for i := start; i < end; i++ {
		value, occupied := cells[i].Invalidate()
		if !occupied {
			continue
		}
		valueHash, _ := h.cs.hasher.Hash(value)
		r := migrant.insertCell(value, valueHash, true)
		if r.res != resSuccess {
			panic("brickset: row exhausted during growth")
		}
	}

	if h.cs.doneSegments.Add(1) == uint64(segments) {
		h.rehashingDone(target)
	}
	return segment > 0
}

func (h Handle[T]) rehashingDone(target uint32) {
	h.releaseRow(target - 1)
	h.cs.ctrl.unlockGrowing()
}

// helpWithRehashing migrates segments of whatever generation advance is
// currently in flight until none remain, then returns. Called by any
// thread whose own probe reported resGrowing or that lost the race to
// start a growth it needed.
func (h Handle[T]) helpWithRehashing() {
	for h.cs.ctrl.isGrowing() {
		target := h.cs.ctrl.currentRow()
		for h.rehashSegment(target) {
		}
	}
}

// updateIndex moves the handle's remembered row forward to the set's
// current generation, releasing its hold on the old row and acquiring
// one on the new row.
func (h Handle[T]) updateIndex() {
	current := h.cs.ctrl.currentRow()
	if current == h.td.currentRow {
		return
	}
	h.releaseRow(h.td.currentRow)
	h.td.currentRow = h.acquireRow(current)
}

// acquireRow increments idx's worker count, retrying against whatever
// row is actually current if idx was already fully released (meaning it
// has since been freed and the caller's information was stale).
func (h Handle[T]) acquireRow(idx uint32) uint32 {
	for {
		r := h.row(idx)
		count := r.workerCount.Load()
		if count == 0 {
			idx = h.cs.ctrl.currentRow()
			continue
		}
		if r.workerCount.CompareAndSwap(count, count+1) {
			return idx
		}
	}
}

// releaseRow decrements idx's worker count, freeing its storage if the
// count reaches zero. Row 0 is never reference-counted: its count stays
// at zero for the set's whole life, and this is a no-op for it.
func (h Handle[T]) releaseRow(idx uint32) {
	r := h.row(idx)
	if r.workerCount.Load() == 0 {
		return
	}
	if r.workerCount.Add(-1) == 0 {
		r.free()
	}
}

// increaseUsage batches the handle's local insert count into the
// shared usage counter every syncPoint inserts, trading exact live
// accounting for reduced contention on cs.used.
func (h Handle[T]) increaseUsage() {
	h.td.inserts++
	if h.td.inserts == syncPoint {
		h.cs.used.Add(syncPoint)
		h.td.inserts = 0
	}
}
