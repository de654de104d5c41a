// Package hashfamily implements the seeded hash families used to place keys
// in the hypergraph.
//
// A Family computes up to MaxValues() 32-bit hash values per key and can
// render the Go statements that recompute exactly the same values inside a
// generated lookup function. The generated code and the in-process
// computation must never diverge; the root package tests compile generated
// functions and compare their slots with in-process lookups.
package hashfamily

import (
	"fmt"

	bdzerrors "github.com/tamirms/bdzhash/errors"
)

// ID identifies a hash family. It is stored in the table header.
type ID uint16

const (
	// XXH3 uses xxHash3-128 with a 64-bit seed.
	XXH3 ID = 0

	// Murmur3 uses MurmurHash3 x64-128 with a 32-bit seed.
	Murmur3 ID = 1
)

// String returns the family name.
func (id ID) String() string {
	switch id {
	case XXH3:
		return "xxh3"
	case Murmur3:
		return "murmur3"
	default:
		return "unknown"
	}
}

// ParseID maps a family name to its ID.
func ParseID(name string) (ID, error) {
	switch name {
	case "xxh3":
		return XXH3, nil
	case "murmur3":
		return Murmur3, nil
	}
	return 0, fmt.Errorf("%w: %q", bdzerrors.ErrUnknownHashFamily, name)
}

// maxValues is the number of 32-bit lanes in a 128-bit digest.
const maxValues = 4

// Family is a seeded hash oracle.
//
// Hash and HashInt fill len(out) values; len(out) must not exceed
// MaxValues(). Values are raw: reduction modulo the vertex count is left to
// the caller, as it is in the generated code.
type Family interface {
	// ID returns the family identifier.
	ID() ID

	// Seed returns the seed the family was constructed with.
	Seed() uint64

	// MaxValues returns the largest hash size the family supports.
	MaxValues() int

	// Hash computes hash values for a byte-string key.
	Hash(key []byte, out []uint32)

	// HashInt computes hash values for an integer key.
	HashInt(key int32, out []uint32)

	// Imports returns the import paths the generated prelude needs.
	Imports(integer bool) []string

	// Prelude returns Go statements that fill outVar[0:n] from keyVar.
	// keyVar is a []byte, or an int32 when integer is set.
	Prelude(keyVar, outVar string, n int, integer bool) string
}

// New constructs the family identified by id, seeded with seed. This is the
// only seeding step: the returned family is immutable.
func New(id ID, seed uint64) (Family, error) {
	switch id {
	case XXH3:
		return xxh3Family{seed: seed}, nil
	case Murmur3:
		return murmur3Family{seed: uint32(seed)}, nil
	}
	return nil, fmt.Errorf("%w: id %d", bdzerrors.ErrUnknownHashFamily, id)
}

// splitLanes writes the 32-bit lanes of a 128-bit digest into out.
func splitLanes(lo, hi uint64, out []uint32) {
	lanes := [maxValues]uint32{uint32(lo), uint32(lo >> 32), uint32(hi), uint32(hi >> 32)}
	copy(out, lanes[:])
}

// laneStatements renders the statements matching splitLanes.
func laneStatements(outVar, loExpr, hiExpr string, n int) string {
	exprs := [maxValues]string{
		fmt.Sprintf("uint32(%s)", loExpr),
		fmt.Sprintf("uint32(%s >> 32)", loExpr),
		fmt.Sprintf("uint32(%s)", hiExpr),
		fmt.Sprintf("uint32(%s >> 32)", hiExpr),
	}
	var s string
	for i := 0; i < n && i < maxValues; i++ {
		s += fmt.Sprintf("%s[%d] = %s\n", outVar, i, exprs[i])
	}
	return s
}

// intKeyStatements renders the little-endian encoding of an integer key
// into a stack buffer named kb.
func intKeyStatements(keyVar string) string {
	return "var kb [4]byte\n" +
		fmt.Sprintf("binary.LittleEndian.PutUint32(kb[:], uint32(%s))\n", keyVar)
}
