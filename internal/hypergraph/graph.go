// Package hypergraph builds the random 3-uniform hypergraph whose edges are
// the keys, and finds a peeling order that witnesses its acyclicity.
//
// # Geometry
//
// Hash values are reduced modulo Modulus. When candidate-vertex collisions
// are fudged apart, the XOR adjustments stay inside an aligned group of four
// vertices; since Modulus then has both low bits set, the last group is
// Modulus-3..Modulus and Vertices is Modulus+1. Without fudging Vertices
// equals Modulus.
package hypergraph

import (
	"fmt"

	bdzerrors "github.com/tamirms/bdzhash/errors"
)

// Arity is the number of vertices per edge.
const Arity = 3

// Edge is the vertex triple of one key.
type Edge [Arity]uint32

// Fudge records which disambiguation adjustments were applied while
// building edges. The generated lookup repeats only the recorded ones.
type Fudge uint8

const (
	// FudgeSecond: h[1] ^= 1 when h[0] == h[1].
	FudgeSecond Fudge = 1 << iota

	// FudgeThird: h[2] ^= 1, then h[2] ^= 2, each while h[2] equals h[0] or h[1].
	FudgeThird
)

// Graph is a 3-uniform hypergraph with one edge per key.
//
// Graph is not safe for concurrent use.
type Graph struct {
	Modulus    uint32
	Vertices   uint32
	AllowFudge bool

	Edges []Edge
	Fudge Fudge

	// Order is the peeling order: processing edges in this order, every edge
	// has a vertex that no earlier edge touched. Valid after Peel succeeds.
	Order []uint32
}

// New returns an empty graph for numEdges keys.
func New(modulus uint32, numEdges int, allowFudge bool) *Graph {
	vertices := modulus
	if allowFudge {
		vertices = modulus + 1
	}
	return &Graph{
		Modulus:    modulus,
		Vertices:   vertices,
		AllowFudge: allowFudge,
		Edges:      make([]Edge, 0, numEdges),
	}
}

// AddEdge reduces the first Arity raw hash values modulo the vertex count,
// separates colliding vertices when fudging is allowed, and appends the edge.
// Without fudging a collision fails the attempt with ErrNotAcyclic.
func (g *Graph) AddEdge(h []uint32) error {
	var e Edge
	for i := range e {
		e[i] = h[i] % g.Modulus
	}

	if e[0] == e[1] {
		if !g.AllowFudge {
			return fmt.Errorf("%w: edge %d repeats vertex %d", bdzerrors.ErrNotAcyclic, len(g.Edges), e[0])
		}
		e[1] ^= 1
		g.Fudge |= FudgeSecond
	}
	if e[0] == e[2] || e[1] == e[2] {
		if !g.AllowFudge {
			return fmt.Errorf("%w: edge %d repeats vertex %d", bdzerrors.ErrNotAcyclic, len(g.Edges), e[2])
		}
		e[2] ^= 1
		if e[0] == e[2] || e[1] == e[2] {
			e[2] ^= 2
		}
		g.Fudge |= FudgeThird
	}

	g.Edges = append(g.Edges, e)
	return nil
}

// Place recomputes the edge of a key at lookup time, applying only the
// adjustments recorded in fudge. For every key that was added to a graph it
// returns the same edge AddEdge stored.
func Place(h []uint32, modulus uint32, fudge Fudge) Edge {
	var e Edge
	for i := range e {
		e[i] = h[i] % modulus
	}
	if fudge&FudgeSecond != 0 && e[0] == e[1] {
		e[1] ^= 1
	}
	if fudge&FudgeThird != 0 {
		if e[0] == e[2] || e[1] == e[2] {
			e[2] ^= 1
		}
		if e[0] == e[2] || e[1] == e[2] {
			e[2] ^= 2
		}
	}
	return e
}

// Peel computes Order. It returns ErrNotAcyclic when the graph has a
// 2-core, i.e. some set of edges cannot be peeled away.
func (g *Graph) Peel() error {
	degree := make([]uint32, g.Vertices)
	incident := make([]uint32, g.Vertices) // XOR of incident edge indices
	for j, e := range g.Edges {
		for _, v := range e {
			degree[v]++
			incident[v] ^= uint32(j)
		}
	}

	stack := make([]uint32, 0, len(g.Edges))
	for v := range degree {
		if degree[v] == 1 {
			stack = append(stack, uint32(v))
		}
	}

	peeled := make([]uint32, 0, len(g.Edges))
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if degree[v] != 1 {
			continue
		}
		j := incident[v]
		peeled = append(peeled, j)
		for _, u := range g.Edges[j] {
			degree[u]--
			incident[u] ^= j
			if degree[u] == 1 {
				stack = append(stack, u)
			}
		}
	}

	if len(peeled) != len(g.Edges) {
		return fmt.Errorf("%w: %d of %d edges left in the 2-core", bdzerrors.ErrNotAcyclic, len(g.Edges)-len(peeled), len(g.Edges))
	}

	// The last edge peeled is the first one assigned.
	for i, k := 0, len(peeled)-1; i < k; i, k = i+1, k-1 {
		peeled[i], peeled[k] = peeled[k], peeled[i]
	}
	g.Order = peeled
	return nil
}
