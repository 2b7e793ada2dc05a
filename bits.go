// Package brickset provides a compact bit-packing substrate and a
// concurrent open-addressed hash set with cooperative, thread-assisted
// incremental rehashing.
package brickset

import (
	"math/bits"
	"unsafe"
)

var bigEndian = func() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 0
}()

// msb returns the 0-based index of the highest set bit of x.
// The result is undefined for x == 0; callers must guard against it.
func msb(x uint64) int {
	return bits.Len64(x) - 1
}

// fill returns the smallest mask >= x whose bits from the most
// significant bit downward are all set.
func fill(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	r := uint(1)
	for r != 64 {
		x |= x >> r
		r <<= 1
	}
	return x
}

// bitshift performs a byte-order-agnostic shift of t, treated as a
// little-endian bit string: a positive shift moves bits logically right
// within that convention, a negative shift moves them left. On
// little-endian hardware this degenerates to a plain shift; on
// big-endian hardware the word is byte-swapped before and after so the
// bit-copy routines below produce identical results on both.
func bitshift(t uint64, shift int) uint64 {
	if !bigEndian {
		if shift < 0 {
			return t << uint(-shift)
		}
		return t >> uint(shift)
	}
	if shift < 0 {
		return bits.ReverseBytes64(bits.ReverseBytes64(t) << uint(-shift))
	}
	return bits.ReverseBytes64(bits.ReverseBytes64(t) >> uint(shift))
}

// mask returns a bitmask of count set bits starting at bit index first.
func mask(first, count int) uint64 {
	return bitshift(^uint64(0), -first) & bitshift(^uint64(0), 64-first-count)
}

// bitPointer names a bit offset into a shared []uint32 word array. Its
// base is a word index plus a remainder in [0,32), mirroring the
// original word-aligned-base-plus-offset bit pointer.
type bitPointer struct {
	words     []uint32
	wordIndex int
	bitOffset int
}

func newBitPointer(words []uint32, offset int) bitPointer {
	p := bitPointer{words: words}
	p.wordIndex = offset / 32
	p.bitOffset = offset % 32
	return p
}

func (p bitPointer) word() uint32 {
	return p.words[p.wordIndex]
}

func (p *bitPointer) setWord(v uint32) {
	p.words[p.wordIndex] = v
}

func (p bitPointer) dword() uint64 {
	lo := uint64(p.words[p.wordIndex])
	var hi uint64
	if p.wordIndex+1 < len(p.words) {
		hi = uint64(p.words[p.wordIndex+1])
	}
	return lo | hi<<32
}

func (p *bitPointer) setDword(v uint64) {
	p.words[p.wordIndex] = uint32(v)
	if p.wordIndex+1 < len(p.words) {
		p.words[p.wordIndex+1] = uint32(v >> 32)
	}
}

func (p bitPointer) shifted(n int) bitPointer {
	total := p.wordIndex*32 + p.bitOffset + n
	p.wordIndex = total / 32
	p.bitOffset = total % 32
	return p
}

// bitcopy copies bitcount bits from the source bit pointer to the
// destination bit pointer, in slices bounded by the source word
// boundary. Writing through the destination uses a 64-bit
// load/modify/store when the span crosses a 32-bit boundary and a
// 32-bit one otherwise, so the memory effect never touches bits outside
// the destination range.
func bitcopy(from, to bitPointer, bitcount int) {
	for bitcount > 0 {
		w := 32 - from.bitOffset
		if bitcount < w {
			w = bitcount
		}
		fmask := uint32(mask(from.bitOffset, w))
		tmask := mask(to.bitOffset, w)
		bitsVal := bitshift(uint64(from.word()&fmask), from.bitOffset-to.bitOffset)

		if to.bitOffset+bitcount > 32 {
			to.setDword((to.dword() &^ tmask) | bitsVal)
		} else {
			to.setWord((to.word() &^ uint32(tmask)) | uint32(bitsVal))
		}

		from = from.shifted(w)
		to = to.shifted(w)
		bitcount -= w
	}
}
