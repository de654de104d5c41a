// Package errors defines all exported error sentinels for the bdzhash library.
//
// This is the single source of truth for error values. The top-level bdzhash
// package and the internal construction packages import from here, so
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Configuration errors
var (
	ErrLoadFactorTooSmall  = errors.New("bdzhash: load factor must be at least 1.24")
	ErrHashSizeTooSmall    = errors.New("bdzhash: the hash function must generate at least 3 values")
	ErrHashSizeTooLarge    = errors.New("bdzhash: hash size exceeds what the hash family can produce")
	ErrTooManyKeys         = errors.New("bdzhash: key count exceeds maximum (2^31)")
	ErrUnknownHashFamily   = errors.New("bdzhash: unknown hash family")
	ErrInvalidFunctionName = errors.New("bdzhash: function name is not a valid Go identifier")
	ErrInvalidPackageName  = errors.New("bdzhash: package name is not a valid Go identifier")
	ErrNoOutput            = errors.New("bdzhash: no output writer")
)

// Construction errors. These are expected outcomes of a single attempt:
// reseed and retry.
var (
	ErrNotAcyclic        = errors.New("bdzhash: hypergraph is not acyclic - retry with a different seed")
	ErrAttemptsExhausted = errors.New("bdzhash: no acyclic hypergraph found within the attempt limit")
)

// Table errors
var (
	ErrInvalidMagic    = errors.New("bdzhash: invalid magic number")
	ErrInvalidVersion  = errors.New("bdzhash: unsupported version")
	ErrChecksumFailed  = errors.New("bdzhash: table checksum verification failed")
	ErrTruncatedFile   = errors.New("bdzhash: table file is truncated")
	ErrCorruptedTable  = errors.New("bdzhash: table data is corrupted")
	ErrTableClosed     = errors.New("bdzhash: table is closed")
	ErrKeyKindMismatch = errors.New("bdzhash: key kind does not match the table")
)
