package bdzhash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	"github.com/tamirms/bdzhash/internal/hashfamily"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

// minFileSize is the size of a table with no sections: header and footer.
const minFileSize = headerSize + footerSize

// Table is a read-only image of a function's tables. Lookup returns the
// same slot as the generated Go function for the same key.
//
// Thread Safety:
// - Lookup, LookupInt, Verify and Stats are safe for concurrent use
// - Close is NOT safe to call concurrently with lookups
// - After Close returns, lookups return ErrTableClosed
type Table struct {
	// Memory map (nil for in-memory tables)
	mmap mmap.MMap
	data []byte

	header *header
	layout layout
	family hashfamily.Family

	closed atomic.Bool
}

// Stats holds table statistics.
type Stats struct {
	NumKeys    uint32
	Vertices   uint32
	Holes      uint32
	HashFamily HashFamilyID
	Seed       uint64

	// BitsPerKey counts the bitmaps and the rank index only, which is what
	// the generated source embeds.
	BitsPerKey float64

	// TableSize is the size of the serialized image, header and footer
	// included.
	TableSize int64
}

// newTable wraps an image produced by encodeTable. fam is used as is, so
// tables built with an injected family keep working.
func newTable(data []byte, fam hashfamily.Family) *Table {
	hdr, err := decodeHeader(data)
	if err != nil {
		panic("bdzhash: encoded table does not decode: " + err.Error())
	}
	return &Table{
		data:   data,
		header: hdr,
		layout: layoutFor(hdr.Vertices),
		family: fam,
	}
}

// Open opens a table file for lookups.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat table file: %w", err)
	}
	if stat.Size() < int64(minFileSize) {
		return nil, bdzerrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap table file: %w", err)
	}

	t := &Table{
		mmap: mm,
		data: []byte(mm),
	}
	if err := t.initFromData(); err != nil {
		return nil, errors.Join(err, t.Close())
	}
	return t, nil
}

// OpenBytes creates a table from an in-memory image. Close is a no-op.
// The caller must ensure data is not modified while the Table is in use.
func OpenBytes(data []byte) (*Table, error) {
	if len(data) < minFileSize {
		return nil, bdzerrors.ErrTruncatedFile
	}
	t := &Table{
		data: data,
	}
	if err := t.initFromData(); err != nil {
		return nil, err
	}
	return t, nil
}

// initFromData parses the header and checks the image size. Section hashes
// are only checked by Verify.
func (t *Table) initFromData() error {
	hdr, err := decodeHeader(t.data[:headerSize])
	if err != nil {
		return err
	}

	l := layoutFor(hdr.Vertices)
	size := uint64(len(t.data))
	if size < l.size {
		return bdzerrors.ErrTruncatedFile
	}
	if size > l.size {
		return fmt.Errorf("%w: %d trailing bytes", bdzerrors.ErrCorruptedTable, size-l.size)
	}

	fam, err := hashfamily.New(hdr.HashFamily, hdr.Seed)
	if err != nil {
		return fmt.Errorf("%w: %w", bdzerrors.ErrCorruptedTable, err)
	}
	if int(hdr.HashSize) > fam.MaxValues() {
		return bdzerrors.ErrCorruptedTable
	}

	t.header = hdr
	t.layout = l
	t.family = fam
	return nil
}

// Close releases the memory map.
func (t *Table) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}

	if t.mmap != nil {
		return t.mmap.Unmap()
	}
	return nil
}

// Bytes returns the serialized image. For opened files the slice is backed
// by the memory map and is invalid after Close.
func (t *Table) Bytes() []byte {
	return t.data
}

// Lookup returns the slot of a byte-string key. For keys of the input
// set the slot is the key's entry in the result map; other keys get some
// slot in [0, NumKeys).
func (t *Table) Lookup(key []byte) (uint32, error) {
	if t.closed.Load() {
		return 0, bdzerrors.ErrTableClosed
	}
	if t.header.KeyKind != keyBytes {
		return 0, bdzerrors.ErrKeyKindMismatch
	}
	var h [4]uint32
	t.family.Hash(key, h[:t.header.HashSize])
	return t.slot(h[:]), nil
}

// LookupInt returns the slot of an integer key.
func (t *Table) LookupInt(key int32) (uint32, error) {
	if t.closed.Load() {
		return 0, bdzerrors.ErrTableClosed
	}
	if t.header.KeyKind != keyInt32 {
		return 0, bdzerrors.ErrKeyKindMismatch
	}
	var h [4]uint32
	t.family.HashInt(key, h[:t.header.HashSize])
	return t.slot(h[:]), nil
}

func (t *Table) slot(h []uint32) uint32 {
	e := hypergraph.Place(h, t.header.Modulus, hypergraph.Fudge(t.header.Fudge))
	return bdz.Slot(tableReader{data: t.data, l: &t.layout}, e, t.header.NumKeys)
}

// tableReader reads the sections of a serialized image.
type tableReader struct {
	data []byte
	l    *layout
}

func (r tableReader) G1Word(w uint32) uint64 {
	return binary.LittleEndian.Uint64(r.data[r.l.g1+uint64(w)*8:])
}

func (r tableReader) G2Word(w uint32) uint64 {
	return binary.LittleEndian.Uint64(r.data[r.l.g2+uint64(w)*8:])
}

func (r tableReader) CoarseHoles(b uint32) uint32 {
	return binary.LittleEndian.Uint32(r.data[r.l.coarse+uint64(b)*4:])
}

func (r tableReader) FineHoles(w uint32) uint16 {
	return binary.LittleEndian.Uint16(r.data[r.l.fine+uint64(w)*2:])
}

// NumKeys returns the number of keys the table was built from.
func (t *Table) NumKeys() uint32 {
	return t.header.NumKeys
}

// IntegerKeys reports whether the table was built for int32 keys.
func (t *Table) IntegerKeys() bool {
	return t.header.KeyKind == keyInt32
}

// Stats returns statistics for the table.
func (t *Table) Stats() *Stats {
	hdr := t.header
	totalSize := int64(len(t.data))

	bitsPerKey := float64(0)
	if hdr.NumKeys > 0 {
		tableBits := (t.layout.footer - headerSize) * 8
		bitsPerKey = float64(tableBits) / float64(hdr.NumKeys)
	}

	return &Stats{
		NumKeys:    hdr.NumKeys,
		Vertices:   hdr.Vertices,
		Holes:      hdr.Vertices - hdr.NumKeys,
		HashFamily: hdr.HashFamily,
		Seed:       hdr.Seed,
		BitsPerKey: bitsPerKey,
		TableSize:  totalSize,
	}
}

// GetStats returns statistics for a table file.
func GetStats(path string) (*Stats, error) {
	t, err := Open(path)
	if err != nil {
		return nil, err
	}

	return t.Stats(), t.Close()
}

// Verify checks the header and section hashes recorded in the footer.
func (t *Table) Verify() error {
	if t.closed.Load() {
		return bdzerrors.ErrTableClosed
	}

	ft, err := decodeFooter(t.data[t.layout.footer:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(t.data[:headerSize]) != ft.HeaderHash {
		return fmt.Errorf("%w: header", bdzerrors.ErrChecksumFailed)
	}
	if xxhash.Sum64(t.data[headerSize:t.layout.footer]) != ft.TablesHash {
		return fmt.Errorf("%w: sections", bdzerrors.ErrChecksumFailed)
	}
	return nil
}
