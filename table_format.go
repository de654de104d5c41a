package bdzhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/bdz"
	intbits "github.com/tamirms/bdzhash/internal/bits"
	"github.com/tamirms/bdzhash/internal/hashfamily"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

const (
	// magic number for table files: "BDZT" in little-endian
	magic = uint32(0x545A4442)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32

	// maxFudge is the union of all fudge flags.
	maxFudge = uint8(hypergraph.FudgeSecond | hypergraph.FudgeThird)
)

// keyKind is the key type a table was built for.
type keyKind uint8

const (
	keyBytes keyKind = 0
	keyInt32 keyKind = 1
)

// header is the 64-byte table header.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       4     Magic       0x545A4442 ("BDZT")
//	4       2     Version     0x0001
//	6       4     NumKeys     uint32_le
//	10      4     Modulus     uint32_le
//	14      4     Vertices    uint32_le
//	18      1     HashSize    uint8
//	19      1     Fudge       uint8 (bit 0: second, bit 1: third)
//	20      1     KeyKind     uint8 (0=bytes, 1=int32)
//	21      2     HashFamily  uint16_le (0=xxh3, 1=murmur3)
//	23      8     Seed        uint64_le
//	31      33    Reserved    [33]byte (zero)
//
// The sections follow the header in this order, each little-endian:
//
//	G1           words × uint64
//	G2           words × uint64
//	HolesCoarse  blocks × uint32
//	HolesFine    words × uint16, zero-padded to a multiple of 8 bytes
//
// where words = ceil(Vertices/64) and blocks = ceil(Vertices/65536).
type header struct {
	Magic      uint32
	Version    uint16
	NumKeys    uint32
	Modulus    uint32
	Vertices   uint32
	HashSize   uint8
	Fudge      uint8
	KeyKind    keyKind
	HashFamily hashfamily.ID
	Seed       uint64
	Reserved   [33]byte
}

func tableHeaderFor(cfg *buildConfig, fam hashfamily.Family, integer bool, numKeys uint32, g *hypergraph.Graph) header {
	kind := keyBytes
	if integer {
		kind = keyInt32
	}
	return header{
		Magic:      magic,
		Version:    version,
		NumKeys:    numKeys,
		Modulus:    g.Modulus,
		Vertices:   g.Vertices,
		HashSize:   uint8(cfg.hashSize),
		Fudge:      uint8(g.Fudge),
		KeyKind:    kind,
		HashFamily: fam.ID(),
		Seed:       fam.Seed(),
	}
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint32(buf[6:10], h.NumKeys)
	binary.LittleEndian.PutUint32(buf[10:14], h.Modulus)
	binary.LittleEndian.PutUint32(buf[14:18], h.Vertices)
	buf[18] = h.HashSize
	buf[19] = h.Fudge
	buf[20] = uint8(h.KeyKind)
	binary.LittleEndian.PutUint16(buf[21:23], uint16(h.HashFamily))
	binary.LittleEndian.PutUint64(buf[23:31], h.Seed)
	copy(buf[31:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, bdzerrors.ErrTruncatedFile
	}

	h := &header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint16(buf[4:6]),
		NumKeys:    binary.LittleEndian.Uint32(buf[6:10]),
		Modulus:    binary.LittleEndian.Uint32(buf[10:14]),
		Vertices:   binary.LittleEndian.Uint32(buf[14:18]),
		HashSize:   buf[18],
		Fudge:      buf[19],
		KeyKind:    keyKind(buf[20]),
		HashFamily: hashfamily.ID(binary.LittleEndian.Uint16(buf[21:23])),
		Seed:       binary.LittleEndian.Uint64(buf[23:31]),
	}
	copy(h.Reserved[:], buf[31:64])

	if h.Magic != magic {
		return nil, bdzerrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, bdzerrors.ErrInvalidVersion
	}
	if h.HashSize < hypergraph.Arity || h.Fudge > maxFudge || h.KeyKind > keyInt32 {
		return nil, bdzerrors.ErrCorruptedTable
	}
	if h.Modulus < hypergraph.Arity || h.NumKeys > h.Vertices {
		return nil, bdzerrors.ErrCorruptedTable
	}
	if h.Vertices != h.Modulus && (h.Vertices != h.Modulus+1 || h.Modulus&3 != 3) {
		return nil, bdzerrors.ErrCorruptedTable
	}

	return h, nil
}

// layout is the byte offset of every section for a given vertex count.
type layout struct {
	words, blocks uint32

	g1, g2, coarse, fine uint64
	footer               uint64
	size                 uint64
}

func layoutFor(vertices uint32) layout {
	l := layout{
		words:  intbits.Words(vertices),
		blocks: intbits.Blocks(vertices),
	}
	l.g1 = headerSize
	l.g2 = l.g1 + uint64(l.words)*8
	l.coarse = l.g2 + uint64(l.words)*8
	l.fine = l.coarse + uint64(l.blocks)*4
	l.footer = l.fine + (uint64(l.words)*2+7)&^7
	l.size = l.footer + footerSize
	return l
}

// footer is the 32-byte file footer.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       8     HeaderHash   uint64_le (xxHash64 of the header)
//	8       8     TablesHash   uint64_le (xxHash64 of all sections)
//	16      16    Reserved     [16]byte (zero)
type footer struct {
	HeaderHash uint64
	TablesHash uint64
	Reserved   [16]byte
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.HeaderHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.TablesHash)
	copy(buf[16:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, bdzerrors.ErrTruncatedFile
	}

	f := &footer{
		HeaderHash: binary.LittleEndian.Uint64(buf[0:8]),
		TablesHash: binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(f.Reserved[:], buf[16:32])

	return f, nil
}

// encodeTable serializes the header, the assignment's tables and the footer
// into a new buffer.
func encodeTable(h header, a *bdz.Assignment) []byte {
	l := layoutFor(h.Vertices)
	buf := make([]byte, l.size)

	h.encodeTo(buf[:headerSize])
	for i, w := range a.G1 {
		binary.LittleEndian.PutUint64(buf[l.g1+uint64(i)*8:], w)
	}
	for i, w := range a.G2 {
		binary.LittleEndian.PutUint64(buf[l.g2+uint64(i)*8:], w)
	}
	for i, c := range a.HolesCoarse {
		binary.LittleEndian.PutUint32(buf[l.coarse+uint64(i)*4:], c)
	}
	for i, f := range a.HolesFine {
		binary.LittleEndian.PutUint16(buf[l.fine+uint64(i)*2:], f)
	}

	ftr := footer{
		HeaderHash: xxhash.Sum64(buf[:headerSize]),
		TablesHash: xxhash.Sum64(buf[headerSize:l.footer]),
	}
	ftr.encodeTo(buf[l.footer:])
	return buf
}
