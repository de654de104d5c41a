package bdzhash

import (
	"io"

	"go.uber.org/zap"

	"github.com/tamirms/bdzhash/internal/hashfamily"
)

const (
	// minLoadFactor is the smallest ratio of vertices to keys for which a
	// random 3-uniform hypergraph is acyclic with high probability.
	minLoadFactor = 1.24

	// defaultHashSize is the number of hash values computed per key.
	defaultHashSize = 3

	defaultFunctionName = "Lookup"
	defaultPackageName  = "perfecthash"
	defaultSeed         = 0x1234567890abcdef // Arbitrary default; overridden via WithSeed
)

// HashFamilyID identifies the hash family a function is built with.
type HashFamilyID = hashfamily.ID

const (
	// HashXXH3 hashes keys with xxHash3-128 (default).
	HashXXH3 HashFamilyID = hashfamily.XXH3

	// HashMurmur3 hashes keys with MurmurHash3 x64-128. Only the low 32
	// bits of the seed are used.
	HashMurmur3 HashFamilyID = hashfamily.Murmur3
)

// ParseHashFamily maps a family name ("xxh3", "murmur3") to its ID.
func ParseHashFamily(name string) (HashFamilyID, error) {
	return hashfamily.ParseID(name)
}

// Option is a functional option for configuring Compute.
type Option func(*buildConfig)

type buildConfig struct {
	loadFactor   float64
	hashSize     int
	fudge        bool
	family       HashFamilyID
	seed         uint64
	functionName string
	static       bool
	packageName  string
	mapOutput    io.Writer
	logger       *zap.Logger

	// familyOverride replaces the family built from (family, seed). Tests
	// use it to force specific hash values.
	familyOverride hashfamily.Family
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		hashSize:     defaultHashSize,
		fudge:        true,
		family:       HashXXH3,
		seed:         defaultSeed,
		functionName: defaultFunctionName,
		packageName:  defaultPackageName,
		logger:       zap.NewNop(),
	}
}

func newBuildConfig(opts []Option) *buildConfig {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLoadFactor sets the ratio of vertices to keys. It must be at least
// 1.24; zero selects 1.24.
func WithLoadFactor(c float64) Option {
	return func(cfg *buildConfig) {
		cfg.loadFactor = c
	}
}

// WithHashSize sets how many 32-bit hash values the generated function
// computes per key. Only the first three place the key; it must be between 3
// and the family's maximum (4).
func WithHashSize(n int) Option {
	return func(cfg *buildConfig) {
		cfg.hashSize = n
	}
}

// WithFudging controls whether colliding candidate vertices of a key are
// separated by XOR adjustments (default true). Without fudging such a key
// fails the attempt.
func WithFudging(enabled bool) Option {
	return func(cfg *buildConfig) {
		cfg.fudge = enabled
	}
}

// WithHashFamily selects the hash family. Default is HashXXH3.
func WithHashFamily(id HashFamilyID) Option {
	return func(cfg *buildConfig) {
		cfg.family = id
	}
}

// WithSeed sets the hash seed.
func WithSeed(seed uint64) Option {
	return func(cfg *buildConfig) {
		cfg.seed = seed
	}
}

// WithFunctionName sets the name of the generated lookup function. Default
// is "Lookup".
func WithFunctionName(name string) Option {
	return func(cfg *buildConfig) {
		cfg.functionName = name
	}
}

// WithStatic makes the generated function unexported.
func WithStatic(static bool) Option {
	return func(cfg *buildConfig) {
		cfg.static = static
	}
}

// WithPackageName sets the package clause of the generated file. Default is
// "perfecthash".
func WithPackageName(name string) Option {
	return func(cfg *buildConfig) {
		cfg.packageName = name
	}
}

// WithMapOutput writes the slot of every key, one per line in key order, to
// w after a successful build.
func WithMapOutput(w io.Writer) Option {
	return func(cfg *buildConfig) {
		cfg.mapOutput = w
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *buildConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// withFamily overrides the hash family.
func withFamily(f hashfamily.Family) Option {
	return func(cfg *buildConfig) {
		cfg.familyOverride = f
	}
}
