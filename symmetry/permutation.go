// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symmetry

import "sort"

// Permutation represents a map (0,...,n-1) -> (m0,...,m_{n-1}). Applying it
// to a sequence s produces s∘m: the value at destination position i is
// s[m[i]].
type Permutation struct {
	permap []int
}

// Identity returns the identity permutation of length n.
func Identity(n int) Permutation {
	m := make([]int, n)
	for i := range m {
		m[i] = i
	}
	return Permutation{permap: m}
}

// FromEquivalence returns the permutation that reorders indices into
// class-contiguous order as defined by e.
func FromEquivalence(e Equivalence) Permutation {
	m := make([]int, e.N())
	e.Trace(m)
	return Permutation{permap: m}
}

// FromSortOf returns the permutation p such that applying p to Sorted(s)
// reproduces s, i.e. sorted(s)∘p == s. This is the permutation implied by
// stable-sorting s.
func FromSortOf(s []int) Permutation {
	n := len(s)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return s[idx[i]] < s[idx[j]] })
	// idx[k] is the original position of the k-th smallest element, i.e.
	// sorted[k] = s[idx[k]]. We want p with sorted∘p == s, meaning
	// sorted[p[i]] == s[i], i.e. p[i] is the rank (position in sorted
	// order) of the element originally at i.
	p := make([]int, n)
	for rank, orig := range idx {
		p[orig] = rank
	}
	return Permutation{permap: p}
}

// Size returns the length of the permutation.
func (p Permutation) Size() int { return len(p.permap) }

// Map returns the underlying map; callers must not mutate it in place.
func (p Permutation) Map() []int { return p.permap }

// Apply writes into dst the sequence src permuted by p: dst[i] = src[p[i]].
func (p Permutation) Apply(src []int, dst []int) {
	if len(src) != len(p.permap) || len(dst) != len(p.permap) {
		panic("symmetry: permutation length mismatch")
	}
	for i, m := range p.permap {
		dst[i] = src[m]
	}
}

// ApplyInPlace permutes tar in place: tar[i] = tar_orig[p[i]].
func (p Permutation) ApplyInPlace(tar []int) {
	src := append([]int(nil), tar...)
	p.Apply(src, tar)
}

// Inverse returns the inverse permutation.
func (p Permutation) Inverse() Permutation {
	inv := make([]int, len(p.permap))
	for i, m := range p.permap {
		inv[m] = i
	}
	return Permutation{permap: inv}
}

// Compose returns the permutation equivalent to first applying q then p,
// i.e. (p∘q)[i] = q[p[i]] mirrors the original library's two-argument
// constructor Permutation(p1,p2) = p1 applied to p2's map.
func Compose(p, q Permutation) Permutation {
	if p.Size() != q.Size() {
		panic("symmetry: permutation size mismatch")
	}
	out := make([]int, p.Size())
	p.Apply(q.permap, out)
	return Permutation{permap: out}
}

// TailIdentity returns the number of trailing positions i for which
// p[i] == i, used to detect a cheap no-op suffix of a permutation.
func (p Permutation) TailIdentity() int {
	n := 0
	for i := len(p.permap) - 1; i >= 0 && p.permap[i] == i; i-- {
		n++
	}
	return n
}
