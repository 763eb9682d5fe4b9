// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package faadibruno implements the Faà di Bruno composition engine ("F" in
// the system overview): given the sparse derivatives of an outer function f
// with respect to a stacked argument z, and the derivatives of z itself
// with respect to (y*,u,σ), it evaluates the derivatives of f∘z at a
// target symmetry by summing, over every way of partitioning the target's
// indices into non-empty classes, the outer derivative of that class count
// contracted with the Kronecker product of the inner derivatives picked
// out by each class.
package faadibruno

import (
	"runtime"
	"sort"
	"sync"

	"github.com/quantgo/korder/kron"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tensor"
)

// SparseDerivs holds the outer function's sparse derivatives f_{z^l} for
// each order l present.
type SparseDerivs map[int]*tensor.Sparse

// Engine evaluates compositions against a fixed stacked argument.
type Engine struct {
	Stack *kron.Stack
	// MaxParallel caps the number of goroutines used to distribute
	// top-level output multi-indices across workers (§5: default 2). A
	// value ≤ 1 forces strictly sequential, deterministic evaluation.
	MaxParallel int
}

// NewEngine returns an Engine over stk with the default parallelism (2).
func NewEngine(stk *kron.Stack) *Engine {
	return &Engine{Stack: stk, MaxParallel: 2}
}

// ComputeSparse evaluates the composition's derivatives at the symmetry
// described by target (a symmetry over the (y*,u,σ,...) argument groups
// shared by every stack member) and returns them as an Unfolded tensor of
// rows(outer) rows. target.Dimen() must be ≥ 1.
//
// Work is split across MaxParallel workers by top-level raw column
// (§4.F/§5): each worker owns a disjoint set of output columns and there is
// no shared mutable state to lock, unlike the coarse output-tensor mutex
// of the original design — partitioning the column set up front is the
// lock-free alternative named in the design notes.
func (e *Engine) ComputeSparse(outer SparseDerivs, rows int, target tensor.Dims) *tensor.Unfolded {
	out := tensor.NewUnfolded(rows, target)
	cols := allUnfoldedIndices(target)

	workers := e.MaxParallel
	if workers < 1 {
		workers = 1
	}
	if workers > len(cols) {
		workers = len(cols)
	}
	if workers <= 1 {
		for _, v := range cols {
			out.SetCol(v, e.evalColumn(outer, rows, target, v))
		}
		return out
	}

	var wg sync.WaitGroup
	chunk := (len(cols) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if lo >= len(cols) {
			break
		}
		if hi > len(cols) {
			hi = len(cols)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for _, v := range cols[lo:hi] {
				col := e.evalColumn(outer, rows, target, v)
				out.SetCol(v, col) // disjoint columns across workers: no lock needed
			}
		}(lo, hi)
	}
	wg.Wait()
	return out
}

// evalColumn computes, for the single output column v,
//
//	Σ_l Σ_{equivalences e of dimen into l classes} Σ_{entries of outer[l]}
//	    value · Σ_{distinct perms p of entry.Key} Π_i zDeriv(class_i, p[i])
//
// adding row-wise into a fresh rows-length slice. The innermost permutation
// sum is what turns a single stored canonical (sorted) outer-derivative
// entry back into its full symmetric contribution across the l
// distinguishable classes; it costs at most l! per entry; l is the model's
// derivative order and stays small in practice.
func (e *Engine) evalColumn(outer SparseDerivs, rows int, target tensor.Dims, v []int) []float64 {
	out := make([]float64, rows)
	dimen := target.Dimen()
	if dimen == 0 {
		return out
	}
	rowOffsets := e.Stack.RowOffsets()
	for l, sp := range outer {
		if l == 0 || l > dimen {
			continue
		}
		symmetry.EquivalenceSet(dimen, func(eq symmetry.Equivalence) {
			if eq.NumClasses() != l {
				return
			}
			classSub := make([][]int, l)
			classSym := make([]symmetry.Sym, l)
			for p := 0; p < l; p++ {
				cls := eq.Class(p)
				classSub[p] = extractSubIndex(v, cls, target.Sym)
				classSym[p] = target.Sym.Reduce(cls)
			}
			for _, ent := range sp.Entries {
				// F is symmetric in its l arguments, so only the canonical
				// (sorted) key is stored; recovering the full contribution
				// requires summing over every distinct way of handing the
				// key's l (possibly repeated) z-indices to the l
				// distinguishable classes, not just the sorted order.
				perm := append([]int(nil), ent.Key...)
				for {
					prod := ent.Value
					for p := 0; p < l; p++ {
						zrow := perm[p]
						member := blockIndex(rowOffsets, zrow)
						local := zrow - rowOffsets[member]
						col := e.Stack.Column(member, classSym[p], classSub[p])
						prod *= col[local]
						if prod == 0 {
							break
						}
					}
					if prod != 0 {
						out[ent.Row] += prod
					}
					if nextPermutation(perm) {
						break
					}
				}
			}
		})
	}
	return out
}

// nextPermutation advances perm (assumed to start sorted ascending) to its
// lexicographic successor in place, reporting whether it wrapped back to
// ascending order. Run from a sorted start until it reports true, this
// enumerates every distinct permutation of a multiset exactly once — the
// standard std::next_permutation algorithm, which handles repeated
// elements correctly without extra bookkeeping.
func nextPermutation(perm []int) bool {
	n := len(perm)
	i := n - 2
	for i >= 0 && perm[i] >= perm[i+1] {
		i--
	}
	if i < 0 {
		sort.Ints(perm)
		return true
	}
	j := n - 1
	for perm[j] <= perm[i] {
		j--
	}
	perm[i], perm[j] = perm[j], perm[i]
	for l, r := i+1, n-1; l < r; l, r = l+1, r-1 {
		perm[l], perm[r] = perm[r], perm[l]
	}
	return false
}

func blockIndex(offsets []int, row int) int {
	for b := 0; b < len(offsets)-1; b++ {
		if row >= offsets[b] && row < offsets[b+1] {
			return b
		}
	}
	panic("faadibruno: z-row out of range")
}

// extractSubIndex collects v's values at positions listed in cls, grouped
// and sorted by target's symmetry groups, i.e. a canonical multi-index
// suitable for looking up the induced-symmetry derivative tensor.
func extractSubIndex(v []int, cls []int, sym symmetry.Sym) []int {
	groups := make([][]int, sym.NumGroups())
	for _, pos := range cls {
		g := sym.FindClass(pos)
		groups[g] = append(groups[g], v[pos])
	}
	out := make([]int, 0, len(cls))
	for _, g := range groups {
		sort.Ints(g)
		out = append(out, g...)
	}
	return out
}

// allUnfoldedIndices enumerates every raw multi-index of d, used to drive
// the (embarrassingly parallel, by construction) per-column evaluation.
func allUnfoldedIndices(d tensor.Dims) [][]int {
	var out [][]int
	v := make([]int, d.Dimen())
	if d.Dimen() == 0 {
		return [][]int{v}
	}
	for {
		out = append(out, append([]int(nil), v...))
		if d.IncrementUnfolded(v) {
			break
		}
	}
	return out
}

// DefaultParallel returns a sensible default worker cap derived from
// runtime.NumCPU, bounded as the configuration's max_parallel_threads
// would be; callers needing deterministic single-threaded evaluation
// should set Engine.MaxParallel = 1 directly instead of using this.
func DefaultParallel() int {
	n := runtime.NumCPU()
	if n > 2 {
		return 2
	}
	if n < 1 {
		return 1
	}
	return n
}
