// Package bits provides low-level bit manipulation primitives for the
// code bitmaps and the rank index.
package bits

import "math/bits"

const (
	// WordBits is the number of vertices covered by one bitmap word and by
	// one fine rank entry.
	WordBits = 64

	// BlockBits is the number of vertices covered by one coarse rank entry.
	BlockBits = 65536
)

// Words returns the number of 64-bit words needed to hold n bits.
func Words(n uint32) uint32 {
	return uint32((uint64(n) + WordBits - 1) / WordBits)
}

// Blocks returns the number of coarse rank blocks needed for n vertices.
func Blocks(n uint32) uint32 {
	return uint32((uint64(n) + BlockBits - 1) / BlockBits)
}

// OnesBelow counts the set bits of w strictly below bit position pos&63.
func OnesBelow(w uint64, pos uint32) uint32 {
	mask := uint64(1)<<(pos&(WordBits-1)) - 1
	return uint32(bits.OnesCount64(w & mask))
}
