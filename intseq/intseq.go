// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intseq implements IntSequence, a fixed-length ordered sequence of
// non-negative integers used throughout korder as a multi-index: a tensor
// coordinate, a symmetry, a dimension tuple, or the contents of an
// equivalence class. It exists in place of []int so that lexicographic
// and Cartesian ordering, prefix runs, and unfolded offsets have a single,
// well-tested home; folded (Pascal-triangle) offsets live in package
// tensor.
package intseq

import (
	"fmt"
	"sort"
)

// Seq is an ordered, fixed-length sequence of non-negative integers.
type Seq []int

// New returns a Seq of length n with every element set to v.
func New(n, v int) Seq {
	if n < 0 {
		panic("intseq: negative length")
	}
	s := make(Seq, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Clone returns a copy of s.
func (s Seq) Clone() Seq {
	c := make(Seq, len(s))
	copy(c, s)
	return c
}

// Equal reports whether s and t have the same length and elements.
func Equal(s, t Seq) bool {
	if len(s) != len(t) {
		return false
	}
	for i := range s {
		if s[i] != t[i] {
			return false
		}
	}
	return true
}

// Less reports whether s precedes t in lexicographic order. Both must have
// equal length, otherwise Less panics.
func Less(s, t Seq) bool {
	if len(s) != len(t) {
		panic("intseq: length mismatch")
	}
	for i := range s {
		if s[i] != t[i] {
			return s[i] < t[i]
		}
	}
	return false
}

// LessEq reports whether s precedes or equals t lexicographically.
func LessEq(s, t Seq) bool {
	return Equal(s, t) || Less(s, t)
}

// LessCartesian reports whether s is component-wise less than or equal to t
// everywhere and strictly less somewhere (the "Cartesian", non-linear,
// partial order used when comparing multi-indices across tensor dimensions
// of possibly differing sizes).
func LessCartesian(s, t Seq) bool {
	if len(s) != len(t) {
		panic("intseq: length mismatch")
	}
	strict := false
	for i := range s {
		if s[i] > t[i] {
			return false
		}
		if s[i] < t[i] {
			strict = true
		}
	}
	return strict
}

// Sort sorts s ascending in place and returns it.
func (s Seq) Sort() Seq {
	sort.Ints(s)
	return s
}

// Sorted returns a sorted copy of s.
func (s Seq) Sorted() Seq {
	return s.Clone().Sort()
}

// IsSorted reports whether s is non-decreasing, i.e. is a valid canonical
// (folded) multi-index.
func (s Seq) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

// Sum returns the sum of the elements of s ("dimen" in the tensor algebra:
// the total order of a symmetry).
func (s Seq) Sum() int {
	t := 0
	for _, v := range s {
		t += v
	}
	return t
}

// Product returns the product of s[i1:i2]. Product() over the whole
// sequence (i1=0, i2=len(s)) is the Kronecker-product column count implied
// by per-group variable counts.
func (s Seq) Product(i1, i2 int) int {
	p := 1
	for _, v := range s[i1:i2] {
		p *= v
	}
	return p
}

// Mult is Product over the whole sequence.
func (s Seq) Mult() int {
	return s.Product(0, len(s))
}

// PrefixLength returns the length of the initial run of equal elements,
// i.e. the multiplicity of s[0] at the front of a sorted sequence. Used by
// the folded-tensor offset recursion.
func (s Seq) PrefixLength() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for n < len(s) && s[n] == s[0] {
		n++
	}
	return n
}

// NumDistinct returns the number of distinct values in a sorted sequence.
func (s Seq) NumDistinct() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1] {
			n++
		}
	}
	return n
}

// Max returns the maximum element, or -1 for an empty sequence.
func (s Seq) Max() int {
	m := -1
	for _, v := range s {
		if v > m {
			m = v
		}
	}
	return m
}

// IsPositive reports whether every element is strictly positive.
func (s Seq) IsPositive() bool {
	for _, v := range s {
		if v <= 0 {
			return false
		}
	}
	return true
}

// IsConstant reports whether every element equals s[0].
func (s Seq) IsConstant() bool {
	for _, v := range s {
		if v != s[0] {
			return false
		}
	}
	return true
}

// Add adds f to every element and returns s.
func (s Seq) Add(f int) Seq {
	for i := range s {
		s[i] += f
	}
	return s
}

// AddSeq adds t element-wise to s and returns s. s and t must have equal
// length.
func (s Seq) AddSeq(t Seq) Seq {
	if len(s) != len(t) {
		panic("intseq: length mismatch")
	}
	for i := range s {
		s[i] += t[i]
	}
	return s
}

// Increment advances s, read as an unfolded (lexicographic) multi-index
// over coordinate sizes nv (nv[i] is the number of admissible values for
// position i, shared by all positions when nv has length 1), to the next
// multi-index in lexicographic order. It reports whether the sequence
// wrapped around back to all-zero (i.e. enumeration is complete).
func (s Seq) Increment(nv Seq) bool {
	i := len(s) - 1
	for i >= 0 {
		bound := nv[0]
		if len(nv) == len(s) {
			bound = nv[i]
		}
		s[i]++
		if s[i] < bound {
			return false
		}
		s[i] = 0
		i--
	}
	return true
}

// Decrement is the inverse of Increment.
func (s Seq) Decrement(nv Seq) bool {
	i := len(s) - 1
	for i >= 0 {
		bound := nv[0]
		if len(nv) == len(s) {
			bound = nv[i]
		}
		if s[i] > 0 {
			s[i]--
			return false
		}
		s[i] = bound - 1
		i--
	}
	return true
}

// Offset returns the column offset of s within an unfolded tensor whose
// coordinates each range over nv values (a single shared size, full
// symmetry). offset = Σ s[i] * nv^(len(s)-1-i).
func (s Seq) Offset(nv int) int {
	off := 0
	for _, v := range s {
		off = off*nv + v
	}
	return off
}

// String implements fmt.Stringer for debugging/log output.
func (s Seq) String() string {
	return fmt.Sprintf("%v", []int(s))
}
