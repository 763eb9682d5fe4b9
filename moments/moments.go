// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package moments computes the raw moment tensors of a zero-mean normal
// random vector u ~ N(0,V) ("M" in the system overview). Odd moments
// vanish; the 2n-th moment is, by Wick/Isserlis' theorem, the sum over
// every way of partitioning the 2n index slots into n disjoint pairs of
// the product of V evaluated at each pair — exactly the even-order terms
// of the moment generating function f(t) = exp(½tᵀVt) worked out by
// repeated differentiation.
package moments

import (
	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// pairPartitions returns every equivalence of {0,...,m-1} (m even) into
// exactly m/2 classes of size 2, computed once per order and reused across
// every output column since the partition structure does not depend on
// the column being filled.
func pairPartitions(m int) []symmetry.Equivalence {
	var out []symmetry.Equivalence
	symmetry.EquivalenceSet(m, func(eq symmetry.Equivalence) {
		if eq.NumClasses() != m/2 {
			return
		}
		for c := 0; c < eq.NumClasses(); c++ {
			if len(eq.Class(c)) != 2 {
				return
			}
		}
		out = append(out, eq)
	})
	return out
}

// NewUnfolded returns the unfolded raw-moment container of u ~ N(0,V) for
// every even order up to maxDim (odd orders are not stored; callers must
// treat any odd-order moment as the zero tensor). V must be square and
// symmetric positive semi-definite; its dimension is the number of shock
// variables.
func NewUnfolded(maxDim int, v *mat.Dense) *tcontainer.Unfolded {
	nvar, nc := v.Dims()
	if nvar != nc {
		panic("moments: V must be square")
	}
	c := tcontainer.NewUnfolded()
	for m := 2; m <= maxDim; m += 2 {
		pairs := pairPartitions(m)
		d := tensor.NewDims(symmetry.New(m), []int{nvar})
		t := tensor.NewUnfolded(1, d)
		idx := make([]int, m)
		for {
			sum := 0.0
			for _, eq := range pairs {
				prod := 1.0
				for cl := 0; cl < eq.NumClasses(); cl++ {
					pair := eq.Class(cl)
					prod *= v.At(idx[pair[0]], idx[pair[1]])
				}
				sum += prod
			}
			t.SetCol(idx, []float64{sum})
			if d.IncrementUnfolded(idx) {
				break
			}
		}
		c.Insert(symmetry.New(m), t)
	}
	return c
}

// NewFolded returns the folded counterpart of u's moment container — the
// form the solver's Container-typed derivative blocks expect when
// contracting against a moments tensor (see tensor.Unfolded.ContractAndAdd,
// which operates on the unfolded side, but folded storage is what
// kord-style containers keep at rest).
func NewFolded(maxDim int, v *mat.Dense) *tcontainer.Folded {
	return NewUnfolded(maxDim, v).FoldAll()
}
