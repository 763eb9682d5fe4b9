// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package faadibruno

import (
	"testing"

	"github.com/quantgo/korder/kron"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// identityStack builds a single-member stack z = x (z_i = x_i), so that
// composing any f through it reduces to evaluating f's own derivatives,
// letting the tests check the combinatorics of the composition in
// isolation from any nonlinearity in the inner function.
func identityStack(n int) *kron.Stack {
	c := tcontainer.NewFolded()
	d1 := tensor.NewDims(symmetry.New(1), []int{n})
	first := tensor.NewFolded(n, d1)
	for i := 0; i < n; i++ {
		col := make([]float64, n)
		col[i] = 1
		first.SetCol([]int{i}, col)
	}
	c.Insert(symmetry.New(1), first)
	return &kron.Stack{Members: []kron.Member{{Rows: n, Kind: kron.Matrix, Derivs: c}}}
}

// TestComputeSparseSecondOrderProduct checks d²(x0*x1)/dx_i dx_j against
// the known answer (1 off-diagonal, 0 on-diagonal) for every raw ordering,
// exercising the permutation sum over a repeated-free key.
func TestComputeSparseSecondOrderProduct(t *testing.T) {
	stk := identityStack(2)
	outer := SparseDerivs{
		2: func() *tensor.Sparse {
			sp := tensor.NewSparse(2, 2)
			sp.Add(0, []int{0, 1}, 1) // f_{z0,z1} = 1, f(z) = z0*z1
			return sp
		}(),
	}
	target := tensor.NewDims(symmetry.New(2), []int{2})
	e := &Engine{Stack: stk, MaxParallel: 1}
	got := e.ComputeSparse(outer, 1, target)

	want := map[[2]int]float64{
		{0, 0}: 0,
		{0, 1}: 1,
		{1, 0}: 1,
		{1, 1}: 0,
	}
	for idx, w := range want {
		v := []int{idx[0], idx[1]}
		col := got.Col(v)
		if col[0] != w {
			t.Errorf("d2f/dx%d dx%d = %v, want %v", idx[0], idx[1], col[0], w)
		}
	}
}

// TestComputeSparseChainRuleFirstOrder checks the trivial first-order case
// (l=1, single class): composing through the identity stack must return
// outer's own first derivative unchanged.
func TestComputeSparseChainRuleFirstOrder(t *testing.T) {
	stk := identityStack(2)
	outer := SparseDerivs{
		1: func() *tensor.Sparse {
			sp := tensor.NewSparse(2, 1)
			sp.Add(0, []int{0}, 3)
			sp.Add(0, []int{1}, 5)
			return sp
		}(),
	}
	target := tensor.NewDims(symmetry.New(1), []int{2})
	e := &Engine{Stack: stk, MaxParallel: 1}
	got := e.ComputeSparse(outer, 1, target)

	if v := got.Col([]int{0}); v[0] != 3 {
		t.Errorf("df/dx0 = %v, want 3", v[0])
	}
	if v := got.Col([]int{1}); v[0] != 5 {
		t.Errorf("df/dx1 = %v, want 5", v[0])
	}
}

// TestComputeSparseRepeatedKeyMultiplicity checks that a repeated-index
// outer entry (f_{z0,z0}) is not double counted by the permutation sum:
// z0=x0 identity means d²f/dx0² must equal the stored coefficient exactly
// once, since [0,0] has only one distinct permutation.
func TestComputeSparseRepeatedKeyMultiplicity(t *testing.T) {
	stk := identityStack(1)
	outer := SparseDerivs{
		2: func() *tensor.Sparse {
			sp := tensor.NewSparse(1, 2)
			sp.Add(0, []int{0, 0}, 4) // f(z) = 2 z0^2, f_{z0 z0} = 4
			return sp
		}(),
	}
	target := tensor.NewDims(symmetry.New(2), []int{1})
	e := &Engine{Stack: stk, MaxParallel: 1}
	got := e.ComputeSparse(outer, 1, target)
	if v := got.Col([]int{0, 0}); v[0] != 4 {
		t.Errorf("d2f/dx0^2 = %v, want 4", v[0])
	}
}

// TestComputeSparseParallelMatchesSequential verifies that splitting
// output columns across goroutines does not change any result.
func TestComputeSparseParallelMatchesSequential(t *testing.T) {
	stk := identityStack(2)
	outer := SparseDerivs{
		2: func() *tensor.Sparse {
			sp := tensor.NewSparse(2, 2)
			sp.Add(0, []int{0, 1}, 1)
			sp.Add(0, []int{1, 1}, 2)
			return sp
		}(),
	}
	target := tensor.NewDims(symmetry.New(2), []int{2})
	seq := (&Engine{Stack: stk, MaxParallel: 1}).ComputeSparse(outer, 1, target)
	par := (&Engine{Stack: stk, MaxParallel: 4}).ComputeSparse(outer, 1, target)

	v := make([]int, 2)
	for {
		if seq.Col(v)[0] != par.Col(v)[0] {
			t.Fatalf("mismatch at %v: sequential %v parallel %v", v, seq.Col(v)[0], par.Col(v)[0])
		}
		if target.IncrementUnfolded(v) {
			break
		}
	}
}
