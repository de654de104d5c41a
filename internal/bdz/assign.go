// Package bdz implements the vertex labelling of the BDZ construction
// (Botelho, Pagh and Ziviani, "Simple and Space-Efficient Minimal Perfect
// Hash Functions", WADS 2007) and the rank index that compresses the vertex
// space into [0, keys).
//
// Each vertex gets a 2-bit code. For every edge exactly one vertex, its
// owner, is chosen so that the codes of the edge's three vertices sum to the
// owner's position (0, 1 or 2) modulo 3. Vertices that own no edge keep
// code 3 and are holes; the rank index counts holes so that owner vertex i
// maps to i minus the number of holes before it.
package bdz

import (
	"fmt"

	intbits "github.com/tamirms/bdzhash/internal/bits"
	"github.com/tamirms/bdzhash/internal/hypergraph"
)

// Hole is the code of a vertex that owns no edge.
const Hole = 3

type statusKind uint8

const (
	unvisited statusKind = iota
	visited
	owner
)

// vertexStatus is the visited state of a vertex. edge is meaningful only
// for owner.
type vertexStatus struct {
	kind statusKind
	edge uint32
}

// Assignment is the output of Assign.
type Assignment struct {
	// Vertices is the size of the vertex space.
	Vertices uint32

	// Codes holds the 2-bit code of every vertex.
	Codes []uint8

	// G1 and G2 hold bit 0 and bit 1 of every code, one word per 64
	// vertices. Bits past the last vertex are zero.
	G1, G2 []uint64

	// HolesCoarse[i] is the number of holes before vertex i*65536.
	HolesCoarse []uint32

	// HolesFine[i] is the number of holes before vertex i*64, counted from
	// the start of its coarse block.
	HolesFine []uint16

	// ResultMap[j] is the dense slot assigned to edge (key) j.
	ResultMap []uint32
}

// Assign labels the vertices of an acyclic graph whose peeling order has
// been computed, and builds the rank index.
//
// Assign panics if an edge has no unvisited vertex when its turn comes: that
// means the peeling order is broken, which Peel never produces.
func Assign(g *hypergraph.Graph) *Assignment {
	n := g.Vertices
	numEdges := len(g.Edges)

	// Codes are padded to a whole number of bitmap words.
	codes := make([]uint8, intbits.Words(n)*intbits.WordBits)
	for i := range n {
		codes[i] = Hole
	}
	status := make([]vertexStatus, n)

	for _, j := range g.Order {
		e := &g.Edges[j]
		r := -1
		for k, v := range e {
			if status[v].kind == unvisited {
				r = k
				break
			}
		}
		if r < 0 {
			panic(fmt.Sprintf("bdz: edge %d %v has no unvisited vertex; peeling order violated", j, *e))
		}

		t := e[r]
		status[t] = vertexStatus{kind: owner, edge: j}
		for _, v := range e {
			if status[v].kind == unvisited {
				status[v].kind = visited
			}
		}

		// codes[t] is still Hole here and takes part in the sum, as do the
		// other vertices' codes; unlabelled vertices count as 3 = 0 mod 3.
		sum := 9 + r - int(codes[e[0]]) - int(codes[e[1]]) - int(codes[e[2]])
		codes[t] = uint8(sum % 3)
	}

	a := &Assignment{
		Vertices:    n,
		Codes:       codes[:n],
		HolesCoarse: make([]uint32, intbits.Blocks(n)),
		HolesFine:   make([]uint16, intbits.Words(n)),
		ResultMap:   make([]uint32, numEdges),
	}

	var holes uint32
	for i := range n {
		if i%intbits.BlockBits == 0 {
			a.HolesCoarse[i/intbits.BlockBits] = holes
		}
		if i%intbits.WordBits == 0 {
			a.HolesFine[i/intbits.WordBits] = uint16(holes - a.HolesCoarse[i/intbits.BlockBits])
		}
		if status[i].kind == owner {
			a.ResultMap[status[i].edge] = i - holes
		}
		if codes[i] == Hole {
			holes++
		}
	}

	a.G1, a.G2 = splitCodes(a.Codes)
	return a
}

// splitCodes packs the codes into two parallel bitmaps.
func splitCodes(codes []uint8) (g1, g2 []uint64) {
	words := intbits.Words(uint32(len(codes)))
	g1 = make([]uint64, words)
	g2 = make([]uint64, words)
	for i, c := range codes {
		w, b := i/intbits.WordBits, uint(i%intbits.WordBits)
		g1[w] |= uint64(c&1) << b
		g2[w] |= uint64(c>>1) << b
	}
	return g1, g2
}

func (a *Assignment) G1Word(w uint32) uint64      { return a.G1[w] }
func (a *Assignment) G2Word(w uint32) uint64      { return a.G2[w] }
func (a *Assignment) CoarseHoles(b uint32) uint32 { return a.HolesCoarse[b] }
func (a *Assignment) FineHoles(w uint32) uint16   { return a.HolesFine[w] }
