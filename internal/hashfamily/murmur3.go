package hashfamily

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// murmur3Family hashes keys with MurmurHash3 x64-128. Only the low 32 bits
// of the construction seed are used.
type murmur3Family struct {
	seed uint32
}

func (f murmur3Family) ID() ID         { return Murmur3 }
func (f murmur3Family) Seed() uint64   { return uint64(f.seed) }
func (f murmur3Family) MaxValues() int { return maxValues }

func (f murmur3Family) Hash(key []byte, out []uint32) {
	h1, h2 := murmur3.Sum128WithSeed(key, f.seed)
	splitLanes(h1, h2, out)
}

func (f murmur3Family) HashInt(key int32, out []uint32) {
	var kb [4]byte
	binary.LittleEndian.PutUint32(kb[:], uint32(key))
	f.Hash(kb[:], out)
}

func (f murmur3Family) Imports(integer bool) []string {
	if integer {
		return []string{"encoding/binary", "github.com/spaolacci/murmur3"}
	}
	return []string{"github.com/spaolacci/murmur3"}
}

func (f murmur3Family) Prelude(keyVar, outVar string, n int, integer bool) string {
	var s string
	src := keyVar
	if integer {
		s += intKeyStatements(keyVar)
		src = "kb[:]"
	}
	s += fmt.Sprintf("hv1, hv2 := murmur3.Sum128WithSeed(%s, 0x%08x)\n", src, f.seed)
	return s + laneStatements(outVar, "hv1", "hv2", n)
}
