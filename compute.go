package bdzhash

import (
	"errors"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	"github.com/tamirms/bdzhash/internal/emit"
	"github.com/tamirms/bdzhash/internal/hashfamily"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

const (
	// maxKeys is the largest key set accepted. Slots and vertex ids are
	// uint32 and the vertex space is at least 1.24 times the key count.
	maxKeys = 1 << 31

	// minModulus is the smallest hash modulus, used for tiny key sets.
	minModulus = 10
)

// Result describes a successfully built function.
type Result struct {
	// NumKeys is the number of keys; slots are in [0, NumKeys).
	NumKeys uint32

	// Modulus is the value hash values are reduced by.
	Modulus uint32

	// Vertices is the size of the vertex space the tables cover.
	Vertices uint32

	// Seed is the seed the hash family was constructed with.
	Seed uint64

	// Fudged reports whether any candidate-vertex collision was separated.
	Fudged bool

	// Attempts is the number of seeds tried, 1 for Compute.
	Attempts int

	// ResultMap[j] is the slot of keys[j].
	ResultMap []uint32

	// Table is the in-memory image of the tables. It answers the same
	// lookups as the generated function and can be written to disk.
	Table *Table
}

// keySet is the input of one build: byte-string keys or integer keys.
type keySet struct {
	bytes   [][]byte
	ints    []int32
	integer bool
}

func (ks keySet) len() int {
	if ks.integer {
		return len(ks.ints)
	}
	return len(ks.bytes)
}

func (ks keySet) hash(f hashfamily.Family, i int, out []uint32) {
	if ks.integer {
		f.HashInt(ks.ints[i], out)
		return
	}
	f.Hash(ks.bytes[i], out)
}

// Compute builds a minimal perfect hash function over keys and writes its
// Go source to out. It makes exactly one construction attempt: when the
// random hypergraph has a cycle it returns an error matching
// ErrNotAcyclic, and the caller may retry with another seed (see Search).
//
// Keys must be distinct; a duplicated key always produces a cycle. Nothing
// is written to out or to the map output unless construction succeeds.
func Compute(keys [][]byte, out io.Writer, opts ...Option) (*Result, error) {
	return compute(keySet{bytes: keys}, out, newBuildConfig(opts))
}

// ComputeInts is Compute for int32 keys. The generated function takes an
// int32.
func ComputeInts(keys []int32, out io.Writer, opts ...Option) (*Result, error) {
	return compute(keySet{ints: keys, integer: true}, out, newBuildConfig(opts))
}

// IsRetryable reports whether err is a failed attempt that another seed may
// fix.
func IsRetryable(err error) bool {
	return errors.Is(err, bdzerrors.ErrNotAcyclic)
}

func compute(ks keySet, out io.Writer, cfg *buildConfig) (*Result, error) {
	fam, err := validate(ks, out, cfg)
	if err != nil {
		return nil, err
	}
	log := cfg.logger

	numKeys := ks.len()
	modulus, vertices := geometry(numKeys, cfg.loadFactor, cfg.fudge)
	log.Debug("geometry",
		zap.Int("keys", numKeys),
		zap.Uint32("modulus", modulus),
		zap.Uint32("vertices", vertices),
		zap.Stringer("family", fam.ID()),
		zap.Uint64("seed", fam.Seed()))

	g := hypergraph.New(modulus, numKeys, cfg.fudge)
	h := make([]uint32, cfg.hashSize)
	for i := range numKeys {
		ks.hash(fam, i, h)
		if err := g.AddEdge(h); err != nil {
			return nil, fmt.Errorf("seed %#x: %w", fam.Seed(), err)
		}
	}
	if err := g.Peel(); err != nil {
		log.Debug("attempt failed", zap.Uint64("seed", fam.Seed()), zap.Error(err))
		return nil, fmt.Errorf("seed %#x: %w", fam.Seed(), err)
	}

	a := bdz.Assign(g)

	tbl := newTable(encodeTable(tableHeaderFor(cfg, fam, ks.integer, uint32(numKeys), g), a), fam)

	if err := emit.Write(out, emit.Params{
		PackageName:  cfg.packageName,
		FunctionName: cfg.functionName,
		Static:       cfg.static,
		Family:       fam,
		HashSize:     cfg.hashSize,
		Integer:      ks.integer,
		NumKeys:      uint32(numKeys),
		Modulus:      modulus,
		Vertices:     vertices,
		Fudge:        g.Fudge,
		G1:           a.G1,
		G2:           a.G2,
		HolesCoarse:  a.HolesCoarse,
		HolesFine:    a.HolesFine,
	}); err != nil {
		return nil, err
	}
	if cfg.mapOutput != nil {
		if err := emit.WriteMap(cfg.mapOutput, a.ResultMap); err != nil {
			return nil, err
		}
	}

	log.Debug("function built",
		zap.Int("keys", numKeys),
		zap.Uint32("holes", vertices-uint32(numKeys)),
		zap.Bool("fudged", g.Fudge != 0))

	return &Result{
		NumKeys:   uint32(numKeys),
		Modulus:   modulus,
		Vertices:  vertices,
		Seed:      fam.Seed(),
		Fudged:    g.Fudge != 0,
		Attempts:  1,
		ResultMap: a.ResultMap,
		Table:     tbl,
	}, nil
}

// validate checks the configuration before anything is allocated and
// returns the seeded hash family.
func validate(ks keySet, out io.Writer, cfg *buildConfig) (hashfamily.Family, error) {
	if out == nil {
		return nil, bdzerrors.ErrNoOutput
	}
	if cfg.loadFactor == 0 {
		cfg.loadFactor = minLoadFactor
	}
	if cfg.loadFactor < minLoadFactor || math.IsNaN(cfg.loadFactor) || math.IsInf(cfg.loadFactor, 0) {
		return nil, fmt.Errorf("%w: %v", bdzerrors.ErrLoadFactorTooSmall, cfg.loadFactor)
	}
	if n := ks.len(); uint64(n) > maxKeys || cfg.loadFactor*float64(n) > math.MaxUint32-8 {
		return nil, fmt.Errorf("%w: %d keys at load factor %v", bdzerrors.ErrTooManyKeys, n, cfg.loadFactor)
	}

	fam := cfg.familyOverride
	if fam == nil {
		var err error
		fam, err = hashfamily.New(cfg.family, cfg.seed)
		if err != nil {
			return nil, err
		}
	}
	p := emit.Params{
		PackageName:  cfg.packageName,
		FunctionName: cfg.functionName,
		Static:       cfg.static,
		Family:       fam,
		HashSize:     cfg.hashSize,
		Integer:      ks.integer,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return fam, nil
}

// geometry returns the hash modulus and the vertex-space size for numKeys
// keys at load factor c.
//
// With fudging the modulus has both low bits set, so every XOR adjustment of
// a vertex below it stays below modulus+1.
func geometry(numKeys int, c float64, fudge bool) (modulus, vertices uint32) {
	v := uint64(math.Ceil(c * float64(numKeys)))
	if minLoadFactor*float64(numKeys) > float64(v) {
		v++
	}
	if v < minModulus {
		v = minModulus
	}
	if !fudge {
		return uint32(v), uint32(v)
	}
	v |= 3
	return uint32(v), uint32(v + 1)
}
