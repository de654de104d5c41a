// Package bdzhash generates minimal perfect hash functions for a fixed set
// of keys as Go source, using the BDZ construction over a random acyclic
// 3-uniform hypergraph.
//
// The generated function maps each of the e keys to a distinct slot in
// [0, e) with two 2-bit-per-vertex bitmaps and a two-level rank index. Keys
// outside the set map to some slot in range; there is no "not found".
//
// # Basic Usage
//
// Generating a function:
//
//	var src bytes.Buffer
//	res, err := bdzhash.Search(ctx, keys, &src, 100,
//	    bdzhash.WithPackageName("keywords"),
//	    bdzhash.WithFunctionName("Keyword"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// src holds the Go file, res.ResultMap[j] the slot of keys[j].
//
// Compute makes a single attempt. When the hypergraph has a cycle it returns
// an error matching errors.ErrNotAcyclic from the errors subpackage, for
// which IsRetryable reports true; Search reseeds and retries.
//
// Looking up keys without compiling the generated source:
//
//	if err := res.Table.WriteFile("keywords.bdz"); err != nil {
//	    log.Fatal(err)
//	}
//	t, err := bdzhash.Open("keywords.bdz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//	slot, err := t.Lookup([]byte("func"))
//
// # Package Structure
//
//   - Public API: compute.go (Compute, ComputeInts), search.go (Search)
//   - Configuration: options.go (Option, With* functions)
//   - Table artifact: table.go (Open, Lookup, Verify), table_format.go
//     (header, footer, sections), table_writer.go (WriteFile)
//   - Hash families: internal/hashfamily/ (xxh3, murmur3)
//   - Construction: internal/hypergraph/ (edges, peeling),
//     internal/bdz/ (vertex codes, rank index, lookup)
//   - Code generation: internal/emit/
//   - Key files: internal/keyfile/
//   - OS hints (block reservation, prefault, read-ahead): internal/platform/
package bdzhash
