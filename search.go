package bdzhash

import (
	"context"
	"fmt"
	"io"
	"math/bits"

	"go.uber.org/zap"

	bdzerrors "github.com/tamirms/bdzhash/errors"
)

// seedStep is the 64-bit golden-ratio constant used to spread attempt seeds.
const seedStep = 0x9E3779B97F4A7C15

// attemptSeed derives the seed of attempt i from the base seed. Attempt 0
// uses the base seed itself, so Search with a seed that is known to work
// reproduces Compute.
func attemptSeed(base uint64, i int) uint64 {
	if i == 0 {
		return base
	}
	hi, lo := bits.Mul64(base^uint64(i), seedStep)
	return hi ^ lo
}

// Search calls Compute with a fresh seed until construction succeeds, a
// non-retryable error occurs, maxAttempts attempts have failed
// (ErrAttemptsExhausted), or ctx is done. Seeds are derived from the seed
// option, so the outcome is deterministic.
func Search(ctx context.Context, keys [][]byte, out io.Writer, maxAttempts int, opts ...Option) (*Result, error) {
	return search(ctx, keySet{bytes: keys}, out, maxAttempts, opts)
}

// SearchInts is Search for int32 keys.
func SearchInts(ctx context.Context, keys []int32, out io.Writer, maxAttempts int, opts ...Option) (*Result, error) {
	return search(ctx, keySet{ints: keys, integer: true}, out, maxAttempts, opts)
}

func search(ctx context.Context, ks keySet, out io.Writer, maxAttempts int, opts []Option) (*Result, error) {
	base := newBuildConfig(opts)
	log := base.logger

	var lastErr error
	for i := range maxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg := newBuildConfig(opts)
		cfg.seed = attemptSeed(base.seed, i)
		res, err := compute(ks, out, cfg)
		if err == nil {
			res.Attempts = i + 1
			log.Debug("search succeeded", zap.Int("attempts", res.Attempts), zap.Uint64("seed", res.Seed))
			return res, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		log.Info("retrying with a new seed", zap.Int("attempt", i+1), zap.Error(err))
		lastErr = err
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: max attempts %d", bdzerrors.ErrAttemptsExhausted, maxAttempts)
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", bdzerrors.ErrAttemptsExhausted, maxAttempts, lastErr)
}
