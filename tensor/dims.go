// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tensor implements dense folded and unfolded storage for symmetric
// multilinear forms ("S" in the system overview), plus the sparse storage
// used for model derivatives. A Dims value pins down the symmetry and the
// per-group variable counts of a tensor; Folded and Unfolded wrap a
// gonum.org/v1/gonum/mat.Dense whose columns are indexed by folded or raw
// multi-indices respectively.
package tensor

import (
	"gonum.org/v1/gonum/stat/combin"

	"github.com/quantgo/korder/symmetry"
)

// Dims describes the shape of a tensor: its symmetry (grouping of indices)
// and, for each group, the number of admissible variables.
type Dims struct {
	Sym symmetry.Sym
	Nvs []int // variables per group, len(Nvs) == len(Sym)
	nvx []int // per flattened position (len == Sym.Dimen()), the owning group's Nvs
}

// NewDims builds the dimensions for symmetry sym with per-group variable
// counts nvs.
func NewDims(sym symmetry.Sym, nvs []int) Dims {
	if len(nvs) != sym.NumGroups() {
		panic("tensor: nvs/symmetry group-count mismatch")
	}
	nvx := make([]int, sym.Dimen())
	pos := 0
	for g, s := range sym {
		for i := 0; i < s; i++ {
			nvx[pos] = nvs[g]
			pos++
		}
	}
	return Dims{Sym: sym, Nvs: append([]int(nil), nvs...), nvx: nvx}
}

// NewFullDims builds the dimensions of a fully symmetric tensor over nvar
// variables of the given order ("dimen").
func NewFullDims(nvar, order int) Dims {
	return NewDims(symmetry.New(order), []int{nvar})
}

// Dimen returns the tensor's total order.
func (d Dims) Dimen() int { return d.Sym.Dimen() }

// NVX returns, for each flattened position, the admissible-value count of
// its owning group (the original library's "nvmax").
func (d Dims) NVX() []int { return d.nvx }

// UnfoldedCols returns n1^s1 * n2^s2 * ... the number of raw (unfolded)
// columns.
func (d Dims) UnfoldedCols() int {
	cols := 1
	for _, n := range d.nvx {
		cols *= n
	}
	if d.Dimen() == 0 {
		return 1
	}
	return cols
}

// foldedColsGroup returns C(n+k-1, k), the number of non-decreasing
// sequences of length k over n values.
func foldedColsGroup(n, k int) int {
	if k == 0 {
		return 1
	}
	return combin.Binomial(n+k-1, k)
}

// FoldedCols returns the number of folded (canonical) columns: the product
// over groups of C(nvs[g]+sym[g]-1, sym[g]).
func (d Dims) FoldedCols() int {
	cols := 1
	for g, s := range d.Sym {
		cols *= foldedColsGroup(d.Nvs[g], s)
	}
	return cols
}

// GroupRange returns the [lo,hi) flattened-position range of symmetry
// group g, the exported counterpart of groupSlices for a single group.
func (d Dims) GroupRange(g int) (lo, hi int) {
	offs := d.Sym.Offsets()
	return offs[g], offs[g+1]
}

// groupSlices returns the [start,end) boundaries of each group within a
// flattened dimen-length multi-index.
func (d Dims) groupSlices() [][2]int {
	offs := d.Sym.Offsets()
	out := make([][2]int, len(d.Sym))
	for g := range d.Sym {
		out[g] = [2]int{offs[g], offs[g+1]}
	}
	return out
}

// foldOffsetGroup computes the Pascal-triangle offset of a canonical
// (non-decreasing) length-k sequence v over n values, by the recursion
//
//	offset(v,n) = C(n+k-1,k) - C(n-m+k-1,k) + offset(v'[prefix:]-m, n-m)
//
// where m = v[0], k = len(v), and prefix is the length of the initial run
// of v equal to m.
func foldOffsetGroup(v []int, n int) int {
	k := len(v)
	if k == 0 {
		return 0
	}
	m := v[0]
	p := 1
	for p < k && v[p] == m {
		p++
	}
	suffix := make([]int, k-p)
	for i, x := range v[p:] {
		suffix[i] = x - m
	}
	return combin.Binomial(n+k-1, k) - combin.Binomial(n-m+k-1, k) + foldOffsetGroup(suffix, n-m)
}

// FoldOffset returns the folded column offset of canonical multi-index v.
// v must be non-decreasing within each symmetry group; use Canonicalize to
// produce such a v from an arbitrary raw index.
func (d Dims) FoldOffset(v []int) int {
	if len(v) != d.Dimen() {
		panic("tensor: multi-index length mismatch")
	}
	slices := d.groupSlices()
	off := 0
	for g, sl := range slices {
		vg := v[sl[0]:sl[1]]
		off = off*foldedColsGroup(d.Nvs[g], len(vg)) + foldOffsetGroup(vg, d.Nvs[g])
	}
	return off
}

// UnfoldOffset returns the raw (lexicographic, mixed-radix) column offset
// of multi-index v, which need not be canonical.
func (d Dims) UnfoldOffset(v []int) int {
	if len(v) != d.Dimen() {
		panic("tensor: multi-index length mismatch")
	}
	off := 0
	for i, x := range v {
		off = off*d.nvx[i] + x
	}
	return off
}

// Canonicalize returns a sorted-within-group copy of v together with its
// multiplicity: the number of distinct raw multi-indices (permutations
// within each group) that map to the same canonical index.
func (d Dims) Canonicalize(v []int) (canon []int, mult int) {
	canon = append([]int(nil), v...)
	mult = 1
	for _, sl := range d.groupSlices() {
		sub := canon[sl[0]:sl[1]]
		sortInts(sub)
		mult *= multinomialCount(sub)
	}
	return canon, mult
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// multinomialCount returns k!/∏(count_i!) for a sorted sequence: the number
// of distinct permutations of the multiset it represents.
func multinomialCount(sorted []int) int {
	k := len(sorted)
	if k == 0 {
		return 1
	}
	num := factorial(k)
	i := 0
	for i < k {
		j := i + 1
		for j < k && sorted[j] == sorted[i] {
			j++
		}
		num /= factorial(j - i)
		i = j
	}
	return num
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}

// IncrementUnfolded advances v to the next raw multi-index in lexicographic
// (lowest position fastest on the right) order, reporting whether it
// wrapped back to all-zero.
func (d Dims) IncrementUnfolded(v []int) bool {
	for i := len(v) - 1; i >= 0; i-- {
		v[i]++
		if v[i] < d.nvx[i] {
			return false
		}
		v[i] = 0
	}
	return true
}

// IncrementFolded advances canonical multi-index v to the next canonical
// index in the order implied by FoldOffset, reporting whether it wrapped.
// Each group is advanced independently by the standard "next combination
// with repetition" step: find the rightmost position that can still grow,
// increment it, and reset everything to its right (within the group) to
// the same value, which is exactly the bijection FoldOffset's Pascal
// recursion assumes.
func (d Dims) IncrementFolded(v []int) bool {
	slices := d.groupSlices()
	for g := len(slices) - 1; g >= 0; g-- {
		sl := slices[g]
		sub := v[sl[0]:sl[1]]
		if nextMonotoneInPlace(sub, d.Nvs[g]) {
			continue // this group wrapped, carry into the previous group
		}
		return false
	}
	return true
}

// nextMonotoneInPlace advances v (a non-decreasing sequence over [0,n)) to
// its lexicographic successor among non-decreasing sequences, reporting
// whether it wrapped back to all-zero.
func nextMonotoneInPlace(v []int, n int) bool {
	k := len(v)
	i := k - 1
	for i >= 0 && v[i] == n-1 {
		i--
	}
	if i < 0 {
		for j := range v {
			v[j] = 0
		}
		return true
	}
	v[i]++
	for j := i + 1; j < k; j++ {
		v[j] = v[i]
	}
	return false
}
