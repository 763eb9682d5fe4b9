// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decisionrule

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/korder"
	"github.com/quantgo/korder/tensor"
)

// linearSolver mirrors korder's own test fixture: a purely backward AR(1)
// model y_t = a*y*_{t-1} + b*u_t, for which every higher-order g-block is
// exactly zero.
func linearSolver(t *testing.T, a, b float64) *korder.Solver {
	t.Helper()
	part := korder.PartitionY{NPred: 1}
	nu := 1
	f1 := tensor.NewSparse(1, 1)
	f1.Add(0, []int{0}, 1)
	f1.Add(0, []int{1}, -a)
	f1.Add(0, []int{2}, -b)
	s, err := korder.NewSolver(korder.Inputs{
		Part:  part,
		NU:    nu,
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

func TestEvalDirectMatchesFirstOrderLinearModel(t *testing.T) {
	const a, b = 0.6, 0.4
	s := linearSolver(t, a, b)
	dr := FromSolverG(s.G(), s.Part(), 1, []float64{0}, s.MaxOrder())

	ystarPrev := []float64{0.2}
	u := []float64{0.1}
	y := dr.Evaluate(ystarPrev, u, 1, false)
	want := a*ystarPrev[0] + b*u[0]
	if math.Abs(y[0]-want) > 1e-9 {
		t.Errorf("Evaluate(direct) = %v, want %v", y[0], want)
	}
}

func TestEvalHornerMatchesEvalDirect(t *testing.T) {
	const a, b = 0.6, 0.4
	s := linearSolver(t, a, b)
	dr := FromSolverG(s.G(), s.Part(), 1, []float64{0}, s.MaxOrder())

	ystar := []float64{0.3}
	u := []float64{-0.2}
	direct := dr.EvalDirect(ystar, u, 1)
	horner := dr.EvalHorner(ystar, u, 1)
	for i := range direct {
		if math.Abs(direct[i]-horner[i]) > 1e-9 {
			t.Errorf("EvalHorner[%d] = %v, EvalDirect[%d] = %v, want equal", i, horner[i], i, direct[i])
		}
	}
}

func TestSimulateProducesRequestedLength(t *testing.T) {
	s := linearSolver(t, 0.5, 0.2)
	dr := FromSolverG(s.G(), s.Part(), 1, []float64{0}, s.MaxOrder())
	src, err := NewShockSource(mat.NewDense(1, 1, []float64{1}), 42)
	if err != nil {
		t.Fatalf("NewShockSource: %v", err)
	}
	path := dr.Simulate([]float64{0}, 10, src)
	r, c := path.Dims()
	if r != 1 || c != 11 {
		t.Errorf("Simulate dims = (%d,%d), want (1,11)", r, c)
	}
}

func TestUnconditionalCovarianceConverges(t *testing.T) {
	part := korder.PartitionY{NPred: 1}
	gy := mat.NewDense(1, 1, []float64{0.5})
	gu := mat.NewDense(1, 1, []float64{1})
	sigma := mat.NewDense(1, 1, []float64{1})
	v, err := UnconditionalCovariance(gy, part, gu, sigma, 1e-12, 10000)
	if err != nil {
		t.Fatalf("UnconditionalCovariance: %v", err)
	}
	// AR(1) y=0.5y+e, var(e)=1 => var(y) = 1/(1-0.25) = 4/3.
	want := 1.0 / (1 - 0.25)
	if math.Abs(v.At(0, 0)-want) > 1e-6 {
		t.Errorf("V[0,0] = %v, want %v", v.At(0, 0), want)
	}
}
