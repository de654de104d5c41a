package bdzhash

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	bdzerrors "github.com/tamirms/bdzhash/errors"
)

func TestGeometry(t *testing.T) {
	tests := []struct {
		name         string
		keys         int
		c            float64
		fudge        bool
		wantModulus  uint32
		wantVertices uint32
	}{
		{"empty_fudge", 0, 1.24, true, 11, 12},
		{"empty_no_fudge", 0, 1.24, false, 10, 10},
		{"three_keys_floor", 3, 1.24, false, 10, 10},
		{"three_keys_fudge", 3, 1.24, true, 11, 12},
		{"thousand", 1000, 1.24, false, 1240, 1240},
		{"thousand_fudge", 1000, 1.24, true, 1243, 1244},
		{"looser", 1000, 2.0, true, 2003, 2004},
		{"ceil", 7, 1.5, false, 11, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, v := geometry(tt.keys, tt.c, tt.fudge)
			if m != tt.wantModulus || v != tt.wantVertices {
				t.Errorf("geometry(%d, %v, %v) = (%d, %d), want (%d, %d)",
					tt.keys, tt.c, tt.fudge, m, v, tt.wantModulus, tt.wantVertices)
			}
			if float64(m) < tt.c*float64(tt.keys) {
				t.Errorf("modulus %d below c*e = %v", m, tt.c*float64(tt.keys))
			}
		})
	}
}

// TestComputeColours builds the three-key colours set.
func TestComputeColours(t *testing.T) {
	keys := [][]byte{[]byte("red"), []byte("green"), []byte("blue")}

	t.Run("fudging", func(t *testing.T) {
		var src bytes.Buffer
		res, err := Search(context.Background(), keys, &src, 100, WithLoadFactor(1.24))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if res.Modulus != 11 || res.Vertices != 12 {
			t.Errorf("geometry = (%d, %d), want (11, 12)", res.Modulus, res.Vertices)
		}
		requirePermutation(t, res.ResultMap)
		requireParses(t, src.Bytes())
		checkTableLookups(t, res, keys)
	})

	t.Run("no_fudging", func(t *testing.T) {
		var src bytes.Buffer
		res, err := Search(context.Background(), keys, &src, 1000, WithLoadFactor(1.24), WithFudging(false))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if res.Modulus != 10 || res.Vertices != 10 {
			t.Errorf("geometry = (%d, %d), want (10, 10)", res.Modulus, res.Vertices)
		}
		if res.Fudged {
			t.Error("Fudged set with fudging disabled")
		}
		if strings.Contains(src.String(), "^=") {
			t.Error("generated source contains fudge adjustments")
		}
		requirePermutation(t, res.ResultMap)
		checkTableLookups(t, res, keys)
	})
}

func checkTableLookups(t *testing.T, res *Result, keys [][]byte) {
	t.Helper()
	for j, key := range keys {
		slot, err := res.Table.Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", key, err)
		}
		if slot != res.ResultMap[j] {
			t.Fatalf("Lookup(%q) = %d, ResultMap = %d", key, slot, res.ResultMap[j])
		}
	}
}

// TestComputeFudgedCollisions forces keys whose first two hash values
// collide and checks they still get distinct slots.
func TestComputeFudgedCollisions(t *testing.T) {
	tests := []struct {
		name   string
		values map[string][4]uint32
	}{
		{
			// Each key repeats a vertex: h[0] == h[1] within the key.
			name: "within_key",
			values: map[string][4]uint32{
				"alpha": {5, 5, 1, 0},
				"beta":  {7, 7, 2, 0},
			},
		},
		{
			// Both keys share h[0] and h[1].
			name: "across_keys",
			values: map[string][4]uint32{
				"alpha": {5, 6, 1, 0},
				"beta":  {5, 6, 2, 0},
			},
		},
		{
			// Both: every key collides internally and with the other.
			name: "both",
			values: map[string][4]uint32{
				"alpha": {4, 4, 0, 0},
				"beta":  {4, 4, 9, 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := [][]byte{[]byte("alpha"), []byte("beta")}
			var src bytes.Buffer
			res, err := Compute(keys, &src, withFamily(fixedFamily{values: tt.values}))
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if res.ResultMap[0] == res.ResultMap[1] {
				t.Fatalf("both keys got slot %d", res.ResultMap[0])
			}
			requirePermutation(t, res.ResultMap)
			checkTableLookups(t, res, keys)
			requireParses(t, src.Bytes())

			wantFudge := tt.values["alpha"][0] == tt.values["alpha"][1]
			if res.Fudged != wantFudge {
				t.Errorf("Fudged = %v, want %v", res.Fudged, wantFudge)
			}
			if got := strings.Contains(src.String(), "h[1] ^= 1"); got != wantFudge {
				t.Errorf("source has second-vertex adjustment = %v, want %v", got, wantFudge)
			}
		})
	}
}

func TestComputeCollisionWithoutFudging(t *testing.T) {
	keys := [][]byte{[]byte("alpha")}
	fam := fixedFamily{values: map[string][4]uint32{"alpha": {3, 3, 1, 0}}}
	var src, m bytes.Buffer
	_, err := Compute(keys, &src, withFamily(fam), WithFudging(false), WithMapOutput(&m))
	if !errors.Is(err, bdzerrors.ErrNotAcyclic) {
		t.Fatalf("expected ErrNotAcyclic, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable = false for a failed attempt")
	}
	if src.Len() != 0 || m.Len() != 0 {
		t.Error("output written for a failed attempt")
	}
}

// TestComputeNonMembers checks that keys outside the set get a slot in range.
func TestComputeNonMembers(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 1000, 12)
	var src bytes.Buffer
	res, err := Search(context.Background(), keys, &src, 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	member := make(map[string]bool, len(keys))
	for _, k := range keys {
		member[string(k)] = true
	}
	for _, k := range generateRandomKeys(rng, 5000, 12) {
		if member[string(k)] {
			continue
		}
		slot, err := res.Table.Lookup(k)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if slot >= res.NumKeys {
			t.Fatalf("non-member slot %d out of range [0, %d)", slot, res.NumKeys)
		}
	}
}

func TestComputeNoKeys(t *testing.T) {
	var src, m bytes.Buffer
	res, err := Compute(nil, &src, WithMapOutput(&m))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.Modulus != 11 || res.Vertices != 12 {
		t.Errorf("geometry = (%d, %d), want (11, 12)", res.Modulus, res.Vertices)
	}
	st := res.Table.Stats()
	if st.Holes != res.Vertices {
		t.Errorf("holes = %d, want %d", st.Holes, res.Vertices)
	}
	if st.BitsPerKey != 0 {
		t.Errorf("BitsPerKey = %v, want 0", st.BitsPerKey)
	}
	if m.Len() != 0 {
		t.Errorf("map output = %q, want empty", m.String())
	}
	requireParses(t, src.Bytes())
	if !strings.Contains(src.String(), "[1]uint64{") {
		t.Errorf("expected one-word bitmaps in:\n%s", src.String())
	}
	if err := res.Table.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestComputeRandomKeys(t *testing.T) {
	rng := newTestRNG(t)
	for _, n := range []int{1, 2, 10, 100, 5000} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			keys := generateRandomKeys(rng, n, 16)
			var src bytes.Buffer
			res, err := Search(context.Background(), keys, &src, 100)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(res.ResultMap) != n {
				t.Fatalf("ResultMap has %d entries, want %d", len(res.ResultMap), n)
			}
			requirePermutation(t, res.ResultMap)
			checkTableLookups(t, res, keys)
			requireParses(t, src.Bytes())
		})
	}
}

func TestComputeLargeKeySet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large key set in short mode")
	}
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 100_000, 16)
	var src bytes.Buffer
	res, err := Search(context.Background(), keys, &src, 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Vertices <= 65536 {
		t.Fatalf("vertex space %d does not span several rank blocks", res.Vertices)
	}
	requirePermutation(t, res.ResultMap)
	checkTableLookups(t, res, keys)
}

func TestComputeFamilies(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 500, 8)
	for _, tc := range []struct {
		family   HashFamilyID
		hashSize int
		imp      string
	}{
		{HashXXH3, 3, "github.com/zeebo/xxh3"},
		{HashXXH3, 4, "github.com/zeebo/xxh3"},
		{HashMurmur3, 3, "github.com/spaolacci/murmur3"},
		{HashMurmur3, 4, "github.com/spaolacci/murmur3"},
	} {
		t.Run(tc.family.String()+"/"+strconv.Itoa(tc.hashSize), func(t *testing.T) {
			var src bytes.Buffer
			res, err := Search(context.Background(), keys, &src, 100,
				WithHashFamily(tc.family), WithHashSize(tc.hashSize), WithSeed(99))
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			requirePermutation(t, res.ResultMap)
			checkTableLookups(t, res, keys)
			s := src.String()
			if !strings.Contains(s, strconv.Quote(tc.imp)) {
				t.Errorf("missing import %q", tc.imp)
			}
			if !strings.Contains(s, "var h ["+strconv.Itoa(tc.hashSize)+"]uint32") {
				t.Errorf("hash array does not have %d values", tc.hashSize)
			}
		})
	}
}

func TestComputeInts(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomInts(rng, 2000)
	var src bytes.Buffer
	res, err := SearchInts(context.Background(), keys, &src, 100)
	if err != nil {
		t.Fatalf("SearchInts: %v", err)
	}
	requirePermutation(t, res.ResultMap)
	requireParses(t, src.Bytes())
	if !strings.Contains(src.String(), "(key int32) uint32") {
		t.Error("generated function does not take an int32 key")
	}

	if !res.Table.IntegerKeys() {
		t.Error("IntegerKeys = false")
	}
	for j, k := range keys {
		slot, err := res.Table.LookupInt(k)
		if err != nil {
			t.Fatalf("LookupInt: %v", err)
		}
		if slot != res.ResultMap[j] {
			t.Fatalf("LookupInt(%d) = %d, want %d", k, slot, res.ResultMap[j])
		}
	}
	if _, err := res.Table.Lookup([]byte("x")); !errors.Is(err, bdzerrors.ErrKeyKindMismatch) {
		t.Errorf("Lookup on integer table: expected ErrKeyKindMismatch, got %v", err)
	}
}

func TestComputeDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 1000, 10)

	build := func() (src, m []byte, res *Result) {
		var s, mb bytes.Buffer
		r, err := Search(context.Background(), keys, &s, 100, WithSeed(7), WithMapOutput(&mb))
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		return s.Bytes(), mb.Bytes(), r
	}
	src1, map1, res1 := build()
	src2, map2, res2 := build()

	if !bytes.Equal(src1, src2) {
		t.Error("generated source differs between identical builds")
	}
	if !bytes.Equal(map1, map2) {
		t.Error("map output differs between identical builds")
	}
	if !bytes.Equal(res1.Table.Bytes(), res2.Table.Bytes()) {
		t.Error("table image differs between identical builds")
	}
	if res1.Seed != res2.Seed {
		t.Errorf("seeds differ: %#x vs %#x", res1.Seed, res2.Seed)
	}
}

func TestComputeMapOutput(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 50, 10)
	var src, m bytes.Buffer
	res, err := Search(context.Background(), keys, &src, 100, WithMapOutput(&m))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(m.String(), "\n"), "\n")
	if len(lines) != len(keys) {
		t.Fatalf("map has %d lines, want %d", len(lines), len(keys))
	}
	for j, line := range lines {
		if line != strconv.FormatUint(uint64(res.ResultMap[j]), 10) {
			t.Fatalf("map line %d = %q, want %d", j, line, res.ResultMap[j])
		}
	}
}

func TestComputeNaming(t *testing.T) {
	keys := [][]byte{[]byte("if"), []byte("else"), []byte("for")}

	var src bytes.Buffer
	if _, err := Search(context.Background(), keys, &src, 100,
		WithFunctionName("Keyword"), WithStatic(true), WithPackageName("lexer")); err != nil {
		t.Fatalf("Search: %v", err)
	}
	s := src.String()
	for _, want := range []string{
		"// Code generated by bdzgen. DO NOT EDIT.",
		"package lexer",
		"func keyword(key []byte) uint32",
		"var keywordG1 = ",
		"var keywordHolesFine = ",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("generated source lacks %q", want)
		}
	}

	src.Reset()
	if _, err := Search(context.Background(), keys, &src, 100, WithFunctionName("keyword")); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.Contains(src.String(), "func Keyword(key []byte) uint32") {
		t.Error("exported function name not upper-cased")
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestComputeConfigErrors(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b")}
	tests := []struct {
		name string
		out  bool
		opts []Option
		want error
	}{
		{"load_factor", true, []Option{WithLoadFactor(1.2)}, bdzerrors.ErrLoadFactorTooSmall},
		{"load_factor_negative", true, []Option{WithLoadFactor(-2)}, bdzerrors.ErrLoadFactorTooSmall},
		{"load_factor_nan", true, []Option{WithLoadFactor(math.NaN())}, bdzerrors.ErrLoadFactorTooSmall},
		{"hash_size_small", true, []Option{WithHashSize(2)}, bdzerrors.ErrHashSizeTooSmall},
		{"hash_size_large", true, []Option{WithHashSize(5)}, bdzerrors.ErrHashSizeTooLarge},
		{"function_name", true, []Option{WithFunctionName("no-dash")}, bdzerrors.ErrInvalidFunctionName},
		{"function_name_empty", true, []Option{WithFunctionName("")}, bdzerrors.ErrInvalidFunctionName},
		{"package_name", true, []Option{WithPackageName("1pkg")}, bdzerrors.ErrInvalidPackageName},
		{"family", true, []Option{WithHashFamily(HashFamilyID(42))}, bdzerrors.ErrUnknownHashFamily},
		{"no_output", false, nil, bdzerrors.ErrNoOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src, m bytes.Buffer
			opts := append([]Option{WithMapOutput(&m)}, tt.opts...)
			var err error
			if tt.out {
				_, err = Compute(keys, &src, opts...)
			} else {
				_, err = Compute(keys, nil, opts...)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if IsRetryable(err) {
				t.Error("configuration error reported as retryable")
			}
			if src.Len() != 0 || m.Len() != 0 {
				t.Error("output written for a configuration error")
			}
		})
	}
}

func TestComputeWriteError(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b")}
	_, err := Search(context.Background(), keys, errWriter{}, 100)
	if err == nil || !strings.Contains(err.Error(), "write failed") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestComputeDuplicateKeys(t *testing.T) {
	keys := [][]byte{[]byte("same"), []byte("other"), []byte("same")}
	var src bytes.Buffer
	_, err := Compute(keys, &src)
	if !errors.Is(err, bdzerrors.ErrNotAcyclic) {
		t.Fatalf("expected ErrNotAcyclic for duplicate keys, got %v", err)
	}
	if src.Len() != 0 {
		t.Error("output written for a failed attempt")
	}
}
