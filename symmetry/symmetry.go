// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symmetry implements the Symmetry, Equivalence, and Permutation
// primitives that describe how a tensor's indices are grouped and how the
// resulting symmetric structure maps back to a canonical ordering.
//
// A Symmetry is a composition s = (s1,...,sg) of non-negative integers: the
// tensor is symmetric within each of g consecutive index groups but not
// across groups. An Equivalence is an ordered partition of {0,...,n-1} used
// to enumerate the terms of a Faà di Bruno composition. A Permutation maps
// one ordering of indices to another, e.g. the class-contiguous order
// induced by an Equivalence, or the sorting permutation of a raw
// IntSequence.
package symmetry

import (
	"sort"

	"github.com/quantgo/korder/intseq"
)

// Sym is a symmetry: group sizes s1,...,sg summing to the tensor's total
// order ("dimen").
type Sym intseq.Seq

// New returns a Sym with the given group sizes.
func New(sizes ...int) Sym {
	return Sym(append([]int(nil), sizes...))
}

// Dimen returns the total order Σ s_i.
func (s Sym) Dimen() int {
	return intseq.Seq(s).Sum()
}

// NumGroups returns g, the number of groups (including zero-sized groups).
func (s Sym) NumGroups() int {
	return len(s)
}

// IsFull reports whether at most one group is non-zero, i.e. the tensor is
// fully symmetric in a single block of variables.
func (s Sym) IsFull() bool {
	nonzero := 0
	for _, v := range s {
		if v != 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

// FindClass returns the group index g such that position i (0-based, over
// the flattened dimen indices) falls within group g.
func (s Sym) FindClass(i int) int {
	if i < 0 || i >= s.Dimen() {
		panic("symmetry: index out of range")
	}
	acc := 0
	for g, v := range s {
		acc += v
		if i < acc {
			return g
		}
	}
	panic("symmetry: unreachable")
}

// Offsets returns the cumulative starting offset of each group, i.e.
// Offsets()[g] is the first flattened index belonging to group g, and
// Offsets()[len(s)] == Dimen().
func (s Sym) Offsets() []int {
	off := make([]int, len(s)+1)
	for g, v := range s {
		off[g+1] = off[g] + v
	}
	return off
}

// Equal reports whether two symmetries have identical group sizes.
func Equal(a, b Sym) bool {
	return intseq.Equal(intseq.Seq(a), intseq.Seq(b))
}

// Add returns the element-wise sum of two symmetries of equal group count,
// used to combine the per-group order of a stacked composition.
func Add(a, b Sym) Sym {
	if len(a) != len(b) {
		panic("symmetry: group-count mismatch")
	}
	out := make(Sym, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Reduce returns the symmetry obtained by restricting s to the positions
// named by the (increasing) class cls: the i-th group of the result counts
// how many elements of cls fall in group i of s.
func (s Sym) Reduce(cls []int) Sym {
	out := make(Sym, len(s))
	offs := s.Offsets()
	for _, idx := range cls {
		for g := 0; g < len(s); g++ {
			if idx >= offs[g] && idx < offs[g+1] {
				out[g]++
				break
			}
		}
	}
	return out
}

// FromClassSizes builds a Symmetry of g groups whose sizes equal the given
// equivalence class sizes — used when a Symmetry is produced as "the sum of
// equivalence class sizes" over the Faà di Bruno composition order.
func FromClassSizes(sizes ...int) Sym {
	return New(sizes...)
}

// Equivalence is an ordered partition of {0,...,n-1} into non-empty classes,
// each class an increasing []int, classes ordered by their first element.
type Equivalence struct {
	n       int
	classes [][]int
}

// NewEquivalence returns the equivalence on n elements with the given
// classes; classes are sorted internally and reordered by first element.
func NewEquivalence(n int, classes [][]int) Equivalence {
	cs := make([][]int, len(classes))
	for i, c := range classes {
		cc := append([]int(nil), c...)
		sort.Ints(cc)
		cs[i] = cc
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i][0] < cs[j][0] })
	return Equivalence{n: n, classes: cs}
}

// N returns the number of elements partitioned.
func (e Equivalence) N() int { return e.n }

// NumClasses returns the number of classes.
func (e Equivalence) NumClasses() int { return len(e.classes) }

// Class returns class i (an increasing slice of element indices).
func (e Equivalence) Class(i int) []int { return e.classes[i] }

// InducedSymmetries returns one Symmetry per equivalence class: the g-th
// entry is s restricted to the elements of class g (see Sym.Reduce),
// giving the per-term symmetry used to pick the Faà di Bruno derivative of
// each inner function.
func (e Equivalence) InducedSymmetries(s Sym) []Sym {
	out := make([]Sym, e.NumClasses())
	for i, c := range e.classes {
		out[i] = s.Reduce(c)
	}
	return out
}

// Trace writes into dst the permutation that moves indices into
// class-contiguous order: dst[i] is the position, in the flattened
// concatenation of classes, of the class containing original index i is
// irrelevant — rather dst lists, for each destination slot (iterating
// classes in order and elements within a class in order), which original
// index lands there. This matches Permutation's map semantics: applying
// dst to a sequence s produces s ordered by equivalence class.
func (e Equivalence) Trace(dst []int) {
	if len(dst) != e.n {
		panic("symmetry: trace destination length mismatch")
	}
	k := 0
	for _, c := range e.classes {
		for _, idx := range c {
			dst[k] = idx
			k++
		}
	}
}

// EquivalenceSet enumerates every ordered partition ("equivalence") of
// {0,...,n-1} exactly once, calling yield for each. The count over all n is
// the n-th Bell number. Enumeration proceeds by the classic restricted
// growth string algorithm: build the partition of {0,...,i} from the
// partition of {0,...,i-1} by either joining element i to an existing
// class or starting a new one.
func EquivalenceSet(n int, yield func(Equivalence)) {
	if n < 0 {
		panic("symmetry: negative n")
	}
	if n == 0 {
		yield(Equivalence{n: 0})
		return
	}
	rgs := make([]int, n) // restricted growth string
	var classesFromRGS = func() [][]int {
		nc := 0
		for _, v := range rgs {
			if v+1 > nc {
				nc = v + 1
			}
		}
		cs := make([][]int, nc)
		for i, v := range rgs {
			cs[v] = append(cs[v], i)
		}
		return cs
	}
	// rec builds the restricted growth string element by element: a[0] = 0
	// always, and a[i] ranges over 0..max(a[0..i-1])+1 (join an existing
	// class or start the next new one). This enumerates every set
	// partition of {0,...,n-1} exactly once.
	var rec func(i, curMax int)
	rec = func(i, curMax int) {
		if i == n {
			yield(NewEquivalence(n, classesFromRGS()))
			return
		}
		for v := 0; v <= curMax+1; v++ {
			rgs[i] = v
			next := curMax
			if v > next {
				next = v
			}
			rec(i+1, next)
		}
	}
	rgs[0] = 0
	rec(1, 0)
}
