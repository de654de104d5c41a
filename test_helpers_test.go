package bdzhash

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"go/parser"
	"go/token"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/tamirms/bdzhash/internal/hashfamily"
)

const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := 0; j < tail; j++ {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateRandomKeys creates n distinct pseudo-random keys of keySize bytes.
func generateRandomKeys(rng *rand.Rand, n, keySize int) [][]byte {
	seen := make(map[string]bool, n)
	keys := make([][]byte, 0, n)
	for len(keys) < n {
		key := make([]byte, keySize)
		fillFromRNG(rng, key)
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		keys = append(keys, key)
	}
	return keys
}

// generateRandomInts creates n distinct pseudo-random int32 keys.
func generateRandomInts(rng *rand.Rand, n int) []int32 {
	seen := make(map[int32]bool, n)
	keys := make([]int32, 0, n)
	for len(keys) < n {
		k := int32(rng.Uint32())
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// requirePermutation fails unless slots is a permutation of [0, len(slots)).
func requirePermutation(t *testing.T, slots []uint32) {
	t.Helper()
	seen := make([]bool, len(slots))
	for j, s := range slots {
		if int(s) >= len(slots) {
			t.Fatalf("key %d: slot %d out of range [0, %d)", j, s, len(slots))
		}
		if seen[s] {
			t.Fatalf("key %d: duplicate slot %d", j, s)
		}
		seen[s] = true
	}
}

// requireParses fails unless src is a syntactically valid Go file.
func requireParses(t *testing.T, src []byte) {
	t.Helper()
	if _, err := parser.ParseFile(token.NewFileSet(), "generated.go", src, 0); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, src)
	}
}

// fixedFamily returns preset hash values per key. Unknown keys hash to
// values derived from their length.
type fixedFamily struct {
	values map[string][4]uint32
}

func (f fixedFamily) ID() hashfamily.ID { return hashfamily.ID(0x7fff) }
func (f fixedFamily) Seed() uint64      { return 0 }
func (f fixedFamily) MaxValues() int    { return 4 }

func (f fixedFamily) Hash(key []byte, out []uint32) {
	v, ok := f.values[string(key)]
	if !ok {
		n := uint32(len(key))
		v = [4]uint32{n, n + 1, n + 2, n + 3}
	}
	copy(out, v[:])
}

func (f fixedFamily) HashInt(key int32, out []uint32) {
	f.Hash([]byte(fmt.Sprint(key)), out)
}

func (f fixedFamily) Imports(bool) []string { return nil }

func (f fixedFamily) Prelude(keyVar, outVar string, n int, integer bool) string {
	var b bytes.Buffer
	for i := range n {
		fmt.Fprintf(&b, "%s[%d] = uint32(len(%s))\n", outVar, i, keyVar)
	}
	return b.String()
}
