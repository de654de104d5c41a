// Package keyfile reads key lists with one key per line.
//
// Byte keys are the raw line contents without the line terminator ("\n" or
// "\r\n"); empty lines are keys too. Integer keys are parsed as int32 in
// decimal, or in hex/octal/binary with a 0x, 0o or 0b prefix, surrounded by
// optional blanks.
package keyfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tamirms/bdzhash/internal/platform"
)

// MaxLineLength is the longest key line accepted.
const MaxLineLength = 1 << 20

var (
	ErrLineTooLong    = errors.New("keyfile: line too long")
	ErrInvalidInteger = errors.New("keyfile: invalid int32 key")
)

// Read reads byte keys from r.
func Read(r io.Reader) ([][]byte, error) {
	var keys [][]byte
	err := scan(r, func(_ int, line []byte) error {
		keys = append(keys, bytes.Clone(line))
		return nil
	})
	return keys, err
}

// ReadInts reads integer keys from r.
func ReadInts(r io.Reader) ([]int32, error) {
	var keys []int32
	err := scan(r, func(n int, line []byte) error {
		s := string(bytes.TrimSpace(line))
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return fmt.Errorf("%w: line %d: %q", ErrInvalidInteger, n, s)
		}
		keys = append(keys, int32(v))
		return nil
	})
	return keys, err
}

// ReadFile reads byte keys from the file at path, or from stdin when path
// is "-".
func ReadFile(path string, stdin io.Reader) ([][]byte, error) {
	var keys [][]byte
	err := withInput(path, stdin, func(r io.Reader) (err error) {
		keys, err = Read(r)
		return err
	})
	return keys, err
}

// ReadIntsFile reads integer keys from the file at path, or from stdin when
// path is "-".
func ReadIntsFile(path string, stdin io.Reader) ([]int32, error) {
	var keys []int32
	err := withInput(path, stdin, func(r io.Reader) (err error) {
		keys, err = ReadInts(r)
		return err
	})
	return keys, err
}

func withInput(path string, stdin io.Reader, fn func(io.Reader) error) error {
	if path == "-" {
		return fn(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()

	platform.AdviseSequential(f)
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// scan calls fn with the 1-based number and contents of every line.
func scan(r io.Reader, fn func(n int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	n := 0
	for sc.Scan() {
		n++
		if err := fn(n, sc.Bytes()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("%w: line %d exceeds %d bytes", ErrLineTooLong, n+1, MaxLineLength)
		}
		return fmt.Errorf("read keys: %w", err)
	}
	return nil
}
