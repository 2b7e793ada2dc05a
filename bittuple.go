package brickset

import "sync/atomic"

// BitTuple packs a fixed sequence of fields, each of an independently
// chosen bit width, into a contiguous run of 32-bit words. It is the
// runtime counterpart of a compile-time field-offset table: widths are
// supplied once at construction and offsets are computed then, so every
// field access afterwards is a single bitcopy.
//
// Go has no variadic type parameter list to mirror a template parameter
// pack, so where the original composes distinct field types at compile
// time, BitTuple records a slice of widths and dispatches on a runtime
// field index instead.
type BitTuple struct {
	words   []uint32
	offsets []int
	widths  []int
}

// NewBitTuple builds a tuple with one field per entry in widths, packed
// back to back starting at bit 0. A width of 1 is suitable for use with
// Lock/Unlock/Locked.
func NewBitTuple(widths ...int) *BitTuple {
	offsets := make([]int, len(widths))
	total := 0
	for i, w := range widths {
		if w <= 0 || w > 64 {
			panic("brickset: bit tuple field width out of range")
		}
		offsets[i] = total
		total += w
	}
	nwords := (total + 31) / 32
	if nwords == 0 {
		nwords = 1
	}
	return &BitTuple{
		words:   make([]uint32, nwords),
		offsets: offsets,
		widths:  append([]int(nil), widths...),
	}
}

// Width reports the total number of bits occupied by the tuple.
func (t *BitTuple) Width() int {
	if len(t.widths) == 0 {
		return 0
	}
	return t.offsets[len(t.offsets)-1] + t.widths[len(t.widths)-1]
}

// FieldWidth reports the width in bits of field i.
func (t *BitTuple) FieldWidth(i int) int {
	return t.widths[i]
}

func (t *BitTuple) pointer(offset int) bitPointer {
	return newBitPointer(t.words, offset)
}

// GetUint returns field i's stored bits, zero-extended to 64 bits.
func (t *BitTuple) GetUint(i int) uint64 {
	var buf [2]uint32
	bitcopy(t.pointer(t.offsets[i]), newBitPointer(buf[:], 0), t.widths[i])
	return uint64(buf[0]) | uint64(buf[1])<<32
}

// SetUint stores v into field i. If v does not fit in the field's
// width, the excess high-order bits are silently truncated, exactly as
// assigning a too-wide integer into a fixed-width bitfield in C would.
func (t *BitTuple) SetUint(i int, v uint64) {
	buf := [2]uint32{uint32(v), uint32(v >> 32)}
	bitcopy(newBitPointer(buf[:], 0), t.pointer(t.offsets[i]), t.widths[i])
}

// GetField reads field i as T, a thin generic convenience over GetUint.
func GetField[T ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int](t *BitTuple, i int) T {
	return T(t.GetUint(i))
}

// SetField writes v into field i, a thin generic convenience over
// SetUint.
func SetField[T ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int](t *BitTuple, i int, v T) {
	t.SetUint(i, uint64(v))
}

func (t *BitTuple) wordAndBit(i int) (idx int, bit uint32) {
	if t.widths[i] != 1 {
		panic("brickset: Lock/Unlock require a 1-bit field")
	}
	offset := t.offsets[i]
	return offset / 32, 1 << uint(offset%32)
}

// Lock spins a compare-and-swap loop until it atomically sets field i's
// single bit, acting as a mutex bit embedded in the tuple's storage
// word. Concurrent writers to other fields sharing that word are not
// synchronized by this call.
func (t *BitTuple) Lock(i int) {
	idx, bit := t.wordAndBit(i)
	word := &t.words[idx]
	for {
		l := atomic.LoadUint32(word)
		l &^= bit
		if atomic.CompareAndSwapUint32(word, l, l|bit) {
			return
		}
	}
}

// Unlock atomically clears field i's single bit.
func (t *BitTuple) Unlock(i int) {
	idx, bit := t.wordAndBit(i)
	word := &t.words[idx]
	for {
		l := atomic.LoadUint32(word)
		if atomic.CompareAndSwapUint32(word, l, l&^bit) {
			return
		}
	}
}

// Locked reports whether field i's bit is currently set.
func (t *BitTuple) Locked(i int) bool {
	idx, bit := t.wordAndBit(i)
	return atomic.LoadUint32(&t.words[idx])&bit != 0
}
