// Bench is a benchmarking tool for measuring bdzhash construction
// throughput, table size and lookup latency.
//
// Usage:
//
//	go run ./cmd/bench -keys 1000000 -sets 8 -workers 4 -family xxh3
//
// Flags:
//
//	-keys      Keys per set (default: 1,000,000)
//	-sets      Number of independent key sets to build (default: 4)
//	-workers   Number of concurrent builds (default: GOMAXPROCS)
//	-key-size  Key length in bytes (default: 16)
//	-family    Hash family: xxh3 or murmur3 (default: xxh3)
//	-c         Load factor (default: 1.24)
//	-attempts  Maximum seeds per set (default: 100)
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"os"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/bdzhash"
	"github.com/tamirms/bdzhash/internal/hashfamily"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

func generateKeys(n, size int) [][]byte {
	buf := make([]byte, n*size)
	_, _ = rand.Read(buf) // crypto/rand.Read error is fatal system issue; ignore for benchmark
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = buf[i*size : (i+1)*size : (i+1)*size]
	}
	return keys
}

// timeHashing measures how long the given family takes to compute the
// placement hash values of every key.
func timeHashing(id hashfamily.ID, keys [][]byte) (time.Duration, error) {
	hasher, err := hashfamily.New(id, 0x1234)
	if err != nil {
		return 0, err
	}
	var h [hypergraph.Arity]uint32
	start := time.Now()
	for _, key := range keys {
		hasher.Hash(key, h[:])
	}
	return time.Since(start), nil
}

type setResult struct {
	res      *bdzhash.Result
	duration time.Duration
}

func main() {
	keysFlag := flag.Int("keys", 1_000_000, "keys per set")
	setsFlag := flag.Int("sets", 4, "number of independent key sets")
	workersFlag := flag.Int("workers", runtime.GOMAXPROCS(0), "number of concurrent builds")
	keySizeFlag := flag.Int("key-size", 16, "key length in bytes")
	familyFlag := flag.String("family", "xxh3", "hash family: xxh3 or murmur3")
	loadFlag := flag.Float64("c", 1.24, "load factor")
	attemptsFlag := flag.Int("attempts", 100, "maximum seeds per set")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	flag.Parse()

	numKeys := *keysFlag
	numSets := *setsFlag
	if numKeys < 1 || numSets < 1 || *workersFlag < 1 {
		fmt.Println("-keys, -sets and -workers must be positive")
		return
	}

	family, err := bdzhash.ParseHashFamily(*familyFlag)
	if err != nil {
		fmt.Printf("%v (use 'xxh3' or 'murmur3')\n", err)
		return
	}

	fmt.Println("Generating keys...")
	sets := make([][][]byte, numSets)
	for i := range sets {
		// Random 16+ byte keys collide with negligible probability.
		sets[i] = generateKeys(numKeys, *keySizeFlag)
	}

	fmt.Printf("Hashing keys with %s...\n", family)
	hashDuration, err := timeHashing(family, sets[0])
	if err != nil {
		fmt.Printf("%v\n", err)
		return
	}

	runtime.GC()
	baselineRSS := getMaxRSS()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
	}

	fmt.Printf("Building %d sets with %d workers...\n", numSets, *workersFlag)
	results := make([]setResult, numSets)
	var totalAttempts atomic.Int64

	buildStart := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workersFlag)
	for i := range sets {
		g.Go(func() error {
			start := time.Now()
			seed := uint64(i)*0x9E3779B97F4A7C15 + 1
			res, err := bdzhash.Search(ctx, sets[i], io.Discard, *attemptsFlag,
				bdzhash.WithHashFamily(family),
				bdzhash.WithLoadFactor(*loadFlag),
				bdzhash.WithSeed(seed))
			if err != nil {
				return fmt.Errorf("set %d: %w", i, err)
			}
			totalAttempts.Add(int64(res.Attempts))
			results[i] = setResult{res: res, duration: time.Since(start)}
			return nil
		})
	}
	err = g.Wait()
	buildDuration := time.Since(buildStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	peakRSSMem := getMaxRSS() - baselineRSS

	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		return
	}

	stats := results[0].res.Table.Stats()
	tbl := results[0].res.Table
	keys := sets[0]
	queryOrder := mrand.Perm(numKeys)

	fmt.Println("Warming up queries...")
	for i := 0; i < 10000; i++ {
		_, _ = tbl.Lookup(keys[queryOrder[i%numKeys]]) // Benchmark: measuring throughput, not correctness
	}

	fmt.Println("Benchmarking queries...")
	numQueries := 100000
	queryStart := time.Now()
	for i := 0; i < numQueries; i++ {
		_, _ = tbl.Lookup(keys[queryOrder[i%numKeys]])
	}
	queryDuration := time.Since(queryStart)
	avgLatency := float64(queryDuration.Nanoseconds()) / float64(numQueries) / 1000

	var slowest time.Duration
	for _, r := range results {
		slowest = max(slowest, r.duration)
	}
	totalKeys := float64(numKeys * numSets)

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╗\n")
	fmt.Printf("║ Family: %-12s║ Sets: %-8d ║\n", *familyFlag, numSets)
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Metric              ║ Value          ║\n")
	fmt.Printf("╠═════════════════════╬════════════════╣\n")
	fmt.Printf("║ Bits per key        ║ %6.3f bits/key║\n", stats.BitsPerKey)
	fmt.Printf("║ Vertices per key    ║ %6.3f        ║\n", float64(stats.Vertices)/float64(max(stats.NumKeys, 1)))
	fmt.Printf("║ Attempts per set    ║ %6.2f        ║\n", float64(totalAttempts.Load())/float64(numSets))
	fmt.Printf("║ Query latency       ║ %6.2f μs      ║\n", avgLatency)
	fmt.Printf("║ Build time (wall)   ║ %6.2f sec     ║\n", buildDuration.Seconds())
	fmt.Printf("║ Slowest set         ║ %6.2f sec     ║\n", slowest.Seconds())
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║\n", totalKeys/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Hash time (1 set)   ║ %6.2f sec     ║\n", hashDuration.Seconds())
	fmt.Printf("║ Peak RSS memory     ║ %6.1f MB      ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╝\n")
}
