// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tensor

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/quantgo/korder/symmetry"
)

func TestFoldedColsMatchesBinomial(t *testing.T) {
	d := NewFullDims(4, 3)
	want := combin.Binomial(4+3-1, 3)
	if got := d.FoldedCols(); got != want {
		t.Errorf("FoldedCols() = %d, want %d", got, want)
	}
}

func TestUnfoldedCols(t *testing.T) {
	d := NewFullDims(3, 2)
	if got, want := d.UnfoldedCols(), 9; got != want {
		t.Errorf("UnfoldedCols() = %d, want %d", got, want)
	}
}

func TestFoldOffsetEnumeratesSequentially(t *testing.T) {
	d := NewFullDims(4, 3)
	v := make([]int, 3)
	seen := map[int]bool{}
	count := 0
	for {
		off := d.FoldOffset(v)
		if off < 0 || off >= d.FoldedCols() {
			t.Fatalf("offset %d out of range for %v", off, v)
		}
		if seen[off] {
			t.Fatalf("duplicate offset %d for %v", off, v)
		}
		seen[off] = true
		count++
		if d.IncrementFolded(v) {
			break
		}
	}
	if count != d.FoldedCols() {
		t.Errorf("enumerated %d canonical indices, want %d", count, d.FoldedCols())
	}
}

func TestUnfoldFoldRoundTrip(t *testing.T) {
	d := NewFullDims(3, 2)
	f := NewFolded(2, d)
	v := make([]int, 2)
	val := 1.0
	for {
		f.SetCol(v, []float64{val, -val})
		val++
		if d.IncrementFolded(v) {
			break
		}
	}
	u := f.Unfold()
	back := u.Fold()
	v = make([]int, 2)
	for {
		want := f.Col(v)
		got := back.Col(v)
		for i := range want {
			if math.Abs(want[i]-got[i]) > 1e-12 {
				t.Fatalf("round-trip mismatch at %v: got %v want %v", v, got, want)
			}
		}
		if d.IncrementFolded(v) {
			break
		}
	}
}

func TestUnfoldBroadcastsSymmetricValue(t *testing.T) {
	d := NewFullDims(2, 2)
	f := NewFolded(1, d)
	f.SetCol([]int{0, 1}, []float64{5})
	u := f.Unfold()
	if got := u.Col([]int{0, 1})[0]; got != 5 {
		t.Errorf("Col(0,1) = %v, want 5", got)
	}
	if got := u.Col([]int{1, 0})[0]; got != 5 {
		t.Errorf("Col(1,0) = %v, want 5 (symmetric partner)", got)
	}
}

func TestGeneralSymmetryDims(t *testing.T) {
	// symmetry (2,1): 2 y-indices (3 vars), 1 u-index (2 vars).
	sym := symmetry.New(2, 1)
	d := NewDims(sym, []int{3, 2})
	wantFolded := combin.Binomial(3+2-1, 2) * combin.Binomial(2, 1)
	if got := d.FoldedCols(); got != wantFolded {
		t.Errorf("FoldedCols() = %d, want %d", got, wantFolded)
	}
	wantUnfolded := 3 * 3 * 2
	if got := d.UnfoldedCols(); got != wantUnfolded {
		t.Errorf("UnfoldedCols() = %d, want %d", got, wantUnfolded)
	}
}

func TestContractAndAdd(t *testing.T) {
	// dims (2,1) over (3 y-vars, 2 u-vars); contract the u group (group 1)
	// against a weight vector, leaving a pure-y tensor of order 2.
	sym := symmetry.New(2, 1)
	d := NewDims(sym, []int{3, 2})
	full := NewUnfolded(1, d)
	v := make([]int, d.Dimen())
	val := 1.0
	for {
		full.SetCol(v, []float64{val})
		val++
		if d.IncrementUnfolded(v) {
			break
		}
	}
	outDims := NewDims(symmetry.New(2), []int{3})
	out := NewUnfolded(1, outDims)
	full.ContractAndAdd(1, out, []float64{2, 3})
	// for y-index (0,0): sum over u in {0,1} of full(0,0,u)*c[u]
	got := out.Col([]int{0, 0})[0]
	v0 := full.Col([]int{0, 0, 0})[0]
	v1 := full.Col([]int{0, 0, 1})[0]
	want := v0*2 + v1*3
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("ContractAndAdd mismatch: got %v want %v", got, want)
	}
}

func TestContractTailAndAdd(t *testing.T) {
	// dims (1,2) over (2 x-vars, 2 u-vars); t is constant in u, so
	// contracting the 2-wide u group against a moment tensor M reduces to
	// scaling by Σ M, the sum of M's entries.
	sym := symmetry.New(1, 2)
	d := NewDims(sym, []int{2, 2})
	full := NewUnfolded(1, d)
	v := make([]int, d.Dimen())
	for {
		x0 := v[0]
		val := float64(x0 + 1) // 1 for x0=0, 2 for x0=1, independent of u
		full.SetCol(v, []float64{val})
		if d.IncrementUnfolded(v) {
			break
		}
	}

	mDims := NewDims(symmetry.New(2), []int{2})
	moment := NewUnfolded(1, mDims)
	moment.SetCol([]int{0, 0}, []float64{1})
	moment.SetCol([]int{1, 1}, []float64{1})
	// off-diagonal entries stay 0

	outDims := NewDims(symmetry.New(1), []int{2})
	out := NewUnfolded(1, outDims)
	full.ContractTailAndAdd(1, 2, out, moment)

	if got := out.Col([]int{0})[0]; math.Abs(got-2) > 1e-12 {
		t.Errorf("contracted x0=0 = %v, want 2", got)
	}
	if got := out.Col([]int{1})[0]; math.Abs(got-4) > 1e-12 {
		t.Errorf("contracted x0=1 = %v, want 4", got)
	}
}

func TestSparseSliceTensor(t *testing.T) {
	// Two stacked blocks: block0 has 2 vars (offsets 0,1), block1 has 2
	// vars (offsets 2,3). Build a dimen-2 sparse tensor and slice out the
	// part with one index from each block.
	s := NewSparse(1, 2)
	s.Add(0, []int{0, 2}, 1.5) // one from block0 (0), one from block1 (2)
	s.Add(0, []int{1, 1}, 9.0) // both from block0 -- should be excluded
	stackSizes := []int{0, 2, 4}
	target := NewDims(symmetry.New(1, 1), []int{2, 2})
	sliced := s.SliceTensor(stackSizes, []int{1, 1}, target)
	if len(sliced.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(sliced.Entries))
	}
	e := sliced.Entries[0]
	if e.Value != 1.5 {
		t.Errorf("value = %v, want 1.5", e.Value)
	}
	wantKey := []int{0, 0} // block0 local 0, block1 local (2-2)=0
	if !intsEqual(e.Key, wantKey) {
		t.Errorf("key = %v, want %v", e.Key, wantKey)
	}
}
