// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korderstoch

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/decisionrule"
	"github.com/quantgo/korder/korder"
	"github.com/quantgo/korder/tensor"
)

func TestFixedPointConvergesOnAffineMap(t *testing.T) {
	// y = 0.5*y + 1 has fixed point y = 2.
	gyStar := mat.NewDense(1, 1, []float64{0.5})
	f := func(y []float64) []float64 { return []float64{0.5*y[0] + 1} }
	got, err := FixedPoint(f, gyStar, []float64{0}, 1e-12, 100)
	if err != nil {
		t.Fatalf("FixedPoint: %v", err)
	}
	if math.Abs(got[0]-2) > 1e-9 {
		t.Errorf("FixedPoint = %v, want 2", got[0])
	}
}

func TestFixedPointReportsNotConverged(t *testing.T) {
	// y = 2*y has no attracting fixed point under this (wrong) Jacobian
	// guess; the search should exhaust maxIter rather than loop forever.
	gyStar := mat.NewDense(1, 1, []float64{0.5})
	f := func(y []float64) []float64 { return []float64{2 * y[0]} }
	_, err := FixedPoint(f, gyStar, []float64{1}, 1e-12, 5)
	var nc *korder.NotConvergedError
	if !errorsAs(err, &nc) {
		t.Fatalf("FixedPoint error = %v, want *korder.NotConvergedError", err)
	}
}

func errorsAs(err error, target **korder.NotConvergedError) bool {
	nc, ok := err.(*korder.NotConvergedError)
	if !ok {
		return false
	}
	*target = nc
	return true
}

// linearSolver mirrors korder's and decisionrule's own test fixture: a
// purely backward AR(1) model y_t = a*y*_{t-1} + b*u_t, for which every
// higher-order g-block is exactly zero, so the walk should leave the
// deterministic steady state (0) untouched at every σ.
func linearSolver(t *testing.T, a, b float64) *korder.Solver {
	t.Helper()
	part := korder.PartitionY{NPred: 1}
	f1 := tensor.NewSparse(1, 1)
	f1.Add(0, []int{0}, 1)
	f1.Add(0, []int{1}, -a)
	f1.Add(0, []int{2}, -b)
	s, err := korder.NewSolver(korder.Inputs{
		Part:  part,
		NU:    1,
		Order: 3,
		F:     map[int]*tensor.Sparse{1: f1},
		Gy:    mat.NewDense(1, 1, []float64{a}),
		Gu:    mat.NewDense(1, 1, []float64{b}),
		V:     mat.NewDense(1, 1, []float64{1}),
	})
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	if err := s.Solve(3); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return s
}

func TestWalkLinearModelSteadyStateUnchanged(t *testing.T) {
	const a, b = 0.6, 0.3
	s := linearSolver(t, a, b)
	gyStar := mat.NewDense(1, 1, []float64{a})

	f1 := tensor.NewSparse(1, 1)
	f1.Add(0, []int{0}, 1)
	f1.Add(0, []int{1}, -a)
	f1.Add(0, []int{2}, -b)
	refit := func(ybar []float64) map[int]*tensor.Sparse {
		return map[int]*tensor.Sparse{1: f1}
	}
	eval := func(ystar []float64, sigma float64) []float64 {
		dr := decisionrule.FromSolverG(s.G(), s.Part(), s.NU(), []float64{0}, s.MaxOrder())
		return dr.Evaluate(ystar, []float64{0}, sigma, false)
	}

	path, err := Walk(s, 4, []float64{0}, gyStar, eval, refit, 1e-10, 100)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(path) != 5 {
		t.Fatalf("len(path) = %d, want 5", len(path))
	}
	last := path[len(path)-1]
	if last.Sigma != 1 {
		t.Errorf("final sigma = %v, want 1", last.Sigma)
	}
	if math.Abs(last.Ybar[0]) > 1e-8 {
		t.Errorf("final ybar = %v, want ~0 (linear model has no risk correction)", last.Ybar[0])
	}
}

func TestRecenterZeroShiftIsIdentity(t *testing.T) {
	s := linearSolver(t, 0.5, 0.2)
	h := s.IntegDerivs(0)
	nvs := []int{s.Part().NYS(), s.NU(), s.NU(), 1}
	out := Recenter(h, s.Part().NYSS(), nvs, s.MaxOrder(), []float64{0}, 0)

	for _, sym := range h.Symmetries() {
		if !out.Check(sym) {
			t.Fatalf("Recenter with zero shift dropped symmetry %v", sym)
		}
		want := h.Get(sym).ColAt(0)
		got := out.Get(sym).ColAt(0)
		for i := range want {
			if math.Abs(want[i]-got[i]) > 1e-9 {
				t.Errorf("Recenter(zero shift)[%v][%d] = %v, want %v", sym, i, got[i], want[i])
			}
		}
	}
}
