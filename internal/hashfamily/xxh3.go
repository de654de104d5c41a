package hashfamily

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// xxh3Family hashes keys with xxHash3-128.
type xxh3Family struct {
	seed uint64
}

func (f xxh3Family) ID() ID         { return XXH3 }
func (f xxh3Family) Seed() uint64   { return f.seed }
func (f xxh3Family) MaxValues() int { return maxValues }

func (f xxh3Family) Hash(key []byte, out []uint32) {
	h := xxh3.Hash128Seed(key, f.seed)
	splitLanes(h.Lo, h.Hi, out)
}

func (f xxh3Family) HashInt(key int32, out []uint32) {
	var kb [4]byte
	binary.LittleEndian.PutUint32(kb[:], uint32(key))
	f.Hash(kb[:], out)
}

func (f xxh3Family) Imports(integer bool) []string {
	if integer {
		return []string{"encoding/binary", "github.com/zeebo/xxh3"}
	}
	return []string{"github.com/zeebo/xxh3"}
}

func (f xxh3Family) Prelude(keyVar, outVar string, n int, integer bool) string {
	var s string
	src := keyVar
	if integer {
		s += intKeyStatements(keyVar)
		src = "kb[:]"
	}
	s += fmt.Sprintf("hv := xxh3.Hash128Seed(%s, 0x%016x)\n", src, f.seed)
	return s + laneStatements(outVar, "hv.Lo", "hv.Hi", n)
}
