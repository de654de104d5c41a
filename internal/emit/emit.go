// Package emit renders a constructed BDZ function as a Go source file: the
// two code bitmaps, the rank index and a lookup function that recomputes a
// key's hash values, picks its owner vertex and ranks it.
package emit

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/hashfamily"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

// Header is the first line of every generated file.
const Header = "// Code generated by bdzgen. DO NOT EDIT."

// Values per line in table literals.
const (
	wordsPerLine  = 4
	holesPerLine  = 12
	coarsePerLine = 8
)

// Params describes one generated function.
type Params struct {
	PackageName  string
	FunctionName string
	Static       bool

	Family   hashfamily.Family
	HashSize int
	Integer  bool

	NumKeys  uint32
	Modulus  uint32
	Vertices uint32
	Fudge    hypergraph.Fudge

	G1, G2      []uint64
	HolesCoarse []uint32
	HolesFine   []uint16
}

// FuncName applies the linkage rule to name: static functions start with a
// lower-case letter, all others with an upper-case one.
func FuncName(name string, static bool) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 {
		return name
	}
	if static {
		r = unicode.ToLower(r)
	} else {
		r = unicode.ToUpper(r)
	}
	return string(r) + name[size:]
}

// ValidIdent reports whether name can be used as a Go identifier.
func ValidIdent(name string) bool {
	return token.IsIdentifier(name) && name != "_"
}

// tableNames returns the identifiers of the four tables of function fn.
// They are always unexported.
func tableNames(fn string) (g1, g2, coarse, fine string) {
	base := FuncName(fn, true)
	return base + "G1", base + "G2", base + "HolesCoarse", base + "HolesFine"
}

// Write renders the source file and writes it to w in one call. Nothing is
// written if rendering fails.
func Write(w io.Writer, p Params) error {
	src, err := Render(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(src); err != nil {
		return fmt.Errorf("write generated source: %w", err)
	}
	return nil
}

// Render returns the gofmt-formatted source file.
func Render(p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	name := FuncName(p.FunctionName, p.Static)
	g1, g2, coarse, fine := tableNames(name)

	buf := &bytes.Buffer{}
	add := func(format string, a ...any) {
		_, _ = fmt.Fprintf(buf, format, a...)
	}

	add("%s\n\n", Header)
	add("package %s\n\n", p.PackageName)

	imports := append([]string{"math/bits"}, p.Family.Imports(p.Integer)...)
	slices.Sort(imports)
	imports = slices.Compact(imports)
	add("import (\n")
	for _, path := range imports {
		add("%q\n", path)
	}
	add(")\n\n")

	add("// %s function: %d keys, %d vertices, hash family %s, seed %#x.\n",
		name, p.NumKeys, p.Vertices, p.Family.ID(), p.Family.Seed())
	writeWords(add, g1, p.G1)
	writeWords(add, g2, p.G2)
	writeCoarse(add, coarse, p.HolesCoarse)
	writeFine(add, fine, p.HolesFine)

	keyType := "[]byte"
	if p.Integer {
		keyType = "int32"
	}
	add("\n// %s returns the slot of key in [0, %d). Keys outside the set the\n", name, p.NumKeys)
	add("// function was generated from get an unspecified slot.\n")
	add("func %s(key %s) uint32 {\n", name, keyType)
	add("var h [%d]uint32\n", p.HashSize)
	add("%s", p.Family.Prelude("key", "h", p.HashSize, p.Integer))
	for k := range hypergraph.Arity {
		add("h[%d] %%= %d\n", k, p.Modulus)
	}
	if p.Fudge&hypergraph.FudgeSecond != 0 {
		add("if h[0] == h[1] {\nh[1] ^= 1\n}\n")
	}
	if p.Fudge&hypergraph.FudgeThird != 0 {
		add("if h[0] == h[2] || h[1] == h[2] {\nh[2] ^= 1\n}\n")
		add("if h[0] == h[2] || h[1] == h[2] {\nh[2] ^= 2\n}\n")
	}
	add("bit0 := %s\n", bitSum(g1))
	add("bit1 := %s\n", bitSum(g2))
	add("idx := h[(9+bit0-bit1)%%3]\n")
	add("w := idx >> 6\n")
	add("holes := %s[w] & %s[w] & (uint64(1)<<(idx&63) - 1)\n", g1, g2)
	add("slot := idx - uint32(%s[w]) - %s[idx>>16] - uint32(bits.OnesCount64(holes))\n", fine, coarse)
	if p.NumKeys > 0 {
		add("if slot >= %d {\nslot = %d\n}\n", p.NumKeys, p.NumKeys-1)
	}
	add("return slot\n")
	add("}\n")

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}

// Validate checks the naming and hash parameters. The tables are not
// inspected.
func (p *Params) Validate() error {
	if p.Family == nil {
		return fmt.Errorf("%w: no hash family", bdzerrors.ErrUnknownHashFamily)
	}
	if !ValidIdent(p.FunctionName) {
		return fmt.Errorf("%w: %q", bdzerrors.ErrInvalidFunctionName, p.FunctionName)
	}
	if !ValidIdent(p.PackageName) {
		return fmt.Errorf("%w: %q", bdzerrors.ErrInvalidPackageName, p.PackageName)
	}
	name := FuncName(p.FunctionName, p.Static)
	if name == "init" || (name == "main" && p.PackageName == "main") {
		return fmt.Errorf("%w: %q is reserved", bdzerrors.ErrInvalidFunctionName, name)
	}
	for _, path := range append([]string{"math/bits"}, p.Family.Imports(p.Integer)...) {
		if name == path[strings.LastIndexByte(path, '/')+1:] {
			return fmt.Errorf("%w: %q shadows imported package %s", bdzerrors.ErrInvalidFunctionName, name, path)
		}
	}
	if p.HashSize < hypergraph.Arity {
		return fmt.Errorf("%w: %d", bdzerrors.ErrHashSizeTooSmall, p.HashSize)
	}
	if p.HashSize > p.Family.MaxValues() {
		return fmt.Errorf("%w: %d > %d", bdzerrors.ErrHashSizeTooLarge, p.HashSize, p.Family.MaxValues())
	}
	return nil
}

// bitSum renders the sum of one code bit over the three candidate vertices.
func bitSum(table string) string {
	terms := make([]string, hypergraph.Arity)
	for k := range terms {
		terms[k] = fmt.Sprintf("%s[h[%d]>>6]>>(h[%d]&63)&1", table, k, k)
	}
	return strings.Join(terms, " + ")
}

func writeWords(add func(string, ...any), name string, words []uint64) {
	add("var %s = [%d]uint64{", name, len(words))
	for i, w := range words {
		if i%wordsPerLine == 0 {
			add("\n")
		}
		add("0x%016x, ", w)
	}
	add("\n}\n\n")
}

func writeCoarse(add func(string, ...any), name string, holes []uint32) {
	add("var %s = [%d]uint32{", name, len(holes))
	for i, h := range holes {
		if i%coarsePerLine == 0 {
			add("\n")
		}
		add("%d, ", h)
	}
	add("\n}\n\n")
}

func writeFine(add func(string, ...any), name string, holes []uint16) {
	add("var %s = [%d]uint16{", name, len(holes))
	for i, h := range holes {
		if i%holesPerLine == 0 {
			add("\n")
		}
		add("%d, ", h)
	}
	add("\n}\n")
}

// WriteMap writes the dense slot of every key, one decimal per line, in key
// order.
func WriteMap(w io.Writer, resultMap []uint32) error {
	var buf bytes.Buffer
	for _, slot := range resultMap {
		fmt.Fprintf(&buf, "%d\n", slot)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	return nil
}
