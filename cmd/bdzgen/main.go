// Bdzgen generates a minimal perfect hash function for a list of keys as
// Go source.
//
// Usage:
//
//	bdzgen [flags] [keyfile]
//
// Keys are read one per line from keyfile, or from stdin when keyfile is
// omitted or "-".
//
// Flags:
//
//	-o          Go source output file (default: stdout)
//	-m          Write the slot of every key, one per line in input order
//	-t          Write the binary lookup table to this file
//	-n          Name of the generated function (default: Lookup)
//	-p          Package name of the generated file (default: perfecthash)
//	-c          Load factor, at least 1.24 (default: 1.24)
//	-hash-size  Number of 32-bit hash values per key (default: 3)
//	-family     Hash family: xxh3 or murmur3 (default: xxh3)
//	-seed       Base seed of the first attempt
//	-static     Generate an unexported function
//	-no-fudge   Fail attempts where a key's vertices collide
//	-int        Keys are int32 values
//	-attempts   Maximum number of seeds to try (default: 100)
//	-v          Verbose logging
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamirms/bdzhash"
	"github.com/tamirms/bdzhash/internal/keyfile"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type config struct {
	output       string
	mapFile      string
	tableFile    string
	functionName string
	packageName  string
	loadFactor   float64
	hashSize     int
	family       string
	seed         uint64
	seedSet      bool
	static       bool
	noFudge      bool
	integer      bool
	attempts     int
	verbose      bool
	keyFile      string
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("bdzgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: bdzgen [flags] [keyfile]")
		fs.PrintDefaults()
	}

	cfg := &config{}
	fs.StringVar(&cfg.output, "o", "-", "Go source output file")
	fs.StringVar(&cfg.mapFile, "m", "", "write the slot of every key to this file")
	fs.StringVar(&cfg.tableFile, "t", "", "write the binary lookup table to this file")
	fs.StringVar(&cfg.functionName, "n", "Lookup", "name of the generated function")
	fs.StringVar(&cfg.packageName, "p", "perfecthash", "package name of the generated file")
	fs.Float64Var(&cfg.loadFactor, "c", 1.24, "load factor (vertices per key)")
	fs.IntVar(&cfg.hashSize, "hash-size", 3, "number of 32-bit hash values per key")
	fs.StringVar(&cfg.family, "family", "xxh3", "hash family: xxh3 or murmur3")
	fs.Uint64Var(&cfg.seed, "seed", 0, "base seed of the first attempt")
	fs.BoolVar(&cfg.static, "static", false, "generate an unexported function")
	fs.BoolVar(&cfg.noFudge, "no-fudge", false, "fail attempts where a key's vertices collide")
	fs.BoolVar(&cfg.integer, "int", false, "keys are int32 values")
	fs.IntVar(&cfg.attempts, "attempts", 100, "maximum number of seeds to try")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.seedSet = true
		}
	})

	switch fs.NArg() {
	case 0:
		cfg.keyFile = "-"
	case 1:
		cfg.keyFile = fs.Arg(0)
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected at most one key file, got %d", fs.NArg())
	}
	if cfg.attempts < 1 {
		return nil, fmt.Errorf("-attempts must be positive, got %d", cfg.attempts)
	}
	return cfg, nil
}

// newLogger writes to w: human-readable at debug level when verbose,
// JSON at warn level otherwise.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	level := zapcore.WarnLevel
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	if zcfg.Encoding == "console" {
		enc = zapcore.NewConsoleEncoder(zcfg.EncoderConfig)
	} else {
		enc = zapcore.NewJSONEncoder(zcfg.EncoderConfig)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "bdzgen: %v\n", err)
		return exitUsage
	}

	logger := newLogger(cfg.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	if err := generate(ctx, cfg, stdin, stdout, logger); err != nil {
		fmt.Fprintf(stderr, "bdzgen: %v\n", err)
		return exitError
	}
	return exitOK
}

func generate(ctx context.Context, cfg *config, stdin io.Reader, stdout io.Writer, logger *zap.Logger) error {
	family, err := bdzhash.ParseHashFamily(cfg.family)
	if err != nil {
		return err
	}

	var src, slots bytes.Buffer
	opts := []bdzhash.Option{
		bdzhash.WithLoadFactor(cfg.loadFactor),
		bdzhash.WithHashSize(cfg.hashSize),
		bdzhash.WithFudging(!cfg.noFudge),
		bdzhash.WithHashFamily(family),
		bdzhash.WithFunctionName(cfg.functionName),
		bdzhash.WithStatic(cfg.static),
		bdzhash.WithPackageName(cfg.packageName),
		bdzhash.WithLogger(logger),
	}
	if cfg.seedSet {
		opts = append(opts, bdzhash.WithSeed(cfg.seed))
	}
	if cfg.mapFile != "" {
		opts = append(opts, bdzhash.WithMapOutput(&slots))
	}

	var res *bdzhash.Result
	if cfg.integer {
		keys, err := keyfile.ReadIntsFile(cfg.keyFile, stdin)
		if err != nil {
			return err
		}
		res, err = bdzhash.SearchInts(ctx, keys, &src, cfg.attempts, opts...)
		if err != nil {
			return err
		}
	} else {
		keys, err := keyfile.ReadFile(cfg.keyFile, stdin)
		if err != nil {
			return err
		}
		res, err = bdzhash.Search(ctx, keys, &src, cfg.attempts, opts...)
		if err != nil {
			return err
		}
	}

	logger.Info("generated function",
		zap.Uint32("keys", res.NumKeys),
		zap.Uint32("vertices", res.Vertices),
		zap.Uint64("seed", res.Seed),
		zap.Bool("fudged", res.Fudged))

	if err := writeOutput(cfg.output, stdout, src.Bytes()); err != nil {
		return err
	}
	if cfg.mapFile != "" {
		if err := writeOutput(cfg.mapFile, stdout, slots.Bytes()); err != nil {
			return err
		}
	}
	if cfg.tableFile != "" {
		if err := res.Table.WriteFile(cfg.tableFile); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}
	return nil
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
