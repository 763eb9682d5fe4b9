// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sylvester

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func approxEqualDense(t *testing.T, got, want *mat.Dense, tol float64) {
	t.Helper()
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		t.Fatalf("shape mismatch: got %dx%d want %dx%d", gr, gc, wr, wc)
	}
	for i := 0; i < gr; i++ {
		for j := 0; j < gc; j++ {
			if math.Abs(got.At(i, j)-want.At(i, j)) > tol {
				t.Errorf("(%d,%d): got %v want %v", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestSolveOrderZeroIsPlainLinearSystem(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
	b := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	c := mat.NewDense(1, 1, []float64{0})
	d := mat.NewDense(2, 1, []float64{3, 4})
	eq := Equation{A: a, B: b, C: c, Order: 0}
	x, err := eq.Solve(d)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := mat.NewDense(2, 1, []float64{1, 1})
	approxEqualDense(t, x, want, 1e-10)
}

func TestSolveScalarFirstOrder(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{2})
	b := mat.NewDense(1, 1, []float64{1})
	c := mat.NewDense(1, 1, []float64{3})
	d := mat.NewDense(1, 1, []float64{10})
	eq := Equation{A: a, B: b, C: c, Order: 1}
	x, err := eq.Solve(d)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := mat.NewDense(1, 1, []float64{2}) // 2*2 + 1*2*3 = 10
	approxEqualDense(t, x, want, 1e-10)
}

func TestSolveSecondOrderIdentityC(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{1})
	b := mat.NewDense(1, 1, []float64{1})
	c := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	d := mat.NewDense(1, 4, []float64{2, 4, 6, 8})
	eq := Equation{A: a, B: b, C: c, Order: 2}
	x, err := eq.Solve(d)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	want := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	approxEqualDense(t, x, want, 1e-10)
}

func TestSolveResidualSmallForRandomish(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{2, 0.1, 0.2, 3})
	b := mat.NewDense(2, 2, []float64{0.3, 0, 0, 0.4})
	c := mat.NewDense(2, 2, []float64{0.5, 0.1, 0, 0.6})
	d := mat.NewDense(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	eq := Equation{A: a, B: b, C: c, Order: 2}
	x, err := eq.Solve(d)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	// residual = A X + B X (C⊗C) - D
	cc := kronecker(c, c)
	var ax, bx, bxk, resid mat.Dense
	ax.Mul(a, x)
	bx.Mul(b, x)
	bxk.Mul(&bx, cc)
	resid.Sub(&ax, d)
	resid.Add(&resid, &bxk)
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(resid.At(i, j)) > 1e-8 {
				t.Errorf("residual at (%d,%d) = %v, want ~0", i, j, resid.At(i, j))
			}
		}
	}
}
