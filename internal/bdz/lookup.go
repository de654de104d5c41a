package bdz

import (
	intbits "github.com/tamirms/bdzhash/internal/bits"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

// Reader is read access to the serialized tables: the two code bitmaps and
// the coarse and fine rank arrays.
type Reader interface {
	G1Word(w uint32) uint64
	G2Word(w uint32) uint64
	CoarseHoles(b uint32) uint32
	FineHoles(w uint32) uint16
}

// code reconstructs the 2-bit code of vertex v modulo 3 as bit0 - bit1
// (0 -> 0, 1 -> 1, 2 -> -1, 3 -> 0).
func code[R Reader](r R, v uint32) int {
	w, b := v/intbits.WordBits, v%intbits.WordBits
	return int(r.G1Word(w)>>b&1) - int(r.G2Word(w)>>b&1)
}

// Owner returns which of the candidate vertices of e owns the edge.
func Owner[R Reader](r R, e hypergraph.Edge) uint32 {
	sum := 9 + code(r, e[0]) + code(r, e[1]) + code(r, e[2])
	return e[sum%hypergraph.Arity]
}

// HolesBefore returns the number of holes strictly before vertex v.
func HolesBefore[R Reader](r R, v uint32) uint32 {
	w := v / intbits.WordBits
	holeBits := r.G1Word(w) & r.G2Word(w)
	return r.CoarseHoles(v/intbits.BlockBits) + uint32(r.FineHoles(w)) + intbits.OnesBelow(holeBits, v)
}

// Slot maps the candidate vertices of a key to its dense index: the owner
// vertex minus the holes before it. For keys of the original set the result
// is the key's ResultMap entry. Other keys may land on a hole past the last
// owner, whose rank is numKeys; that is folded back to numKeys-1 so every
// result stays in [0, numKeys).
func Slot[R Reader](r R, e hypergraph.Edge, numKeys uint32) uint32 {
	v := Owner(r, e)
	slot := v - HolesBefore(r, v)
	if numKeys > 0 && slot >= numKeys {
		slot = numKeys - 1
	}
	return slot
}
