// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moments

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/symmetry"
)

func TestSecondMomentIsV(t *testing.T) {
	v := mat.NewDense(2, 2, []float64{2, 0.5, 0.5, 1})
	c := NewUnfolded(2, v)
	m2 := c.Get(symmetry.New(2))
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			got := m2.Col([]int{i, j})[0]
			want := v.At(i, j)
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("E[u_%d u_%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestFourthMomentScalarIsThreeSigma4(t *testing.T) {
	sigma2 := 2.5
	v := mat.NewDense(1, 1, []float64{sigma2})
	c := NewUnfolded(4, v)
	m4 := c.Get(symmetry.New(4))
	got := m4.Col([]int{0, 0, 0, 0})[0]
	want := 3 * sigma2 * sigma2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("E[u^4] = %v, want %v", got, want)
	}
}

func TestFourthMomentIsserlisTwoVariables(t *testing.T) {
	v := mat.NewDense(2, 2, []float64{1, 0.3, 0.3, 2})
	c := NewUnfolded(4, v)
	m4 := c.Get(symmetry.New(4))
	// E[u0 u0 u1 u1] = V00*V11 + V01*V01 + V01*V10 (Isserlis, 3 pairings).
	got := m4.Col([]int{0, 0, 1, 1})[0]
	want := v.At(0, 0)*v.At(1, 1) + v.At(0, 1)*v.At(0, 1) + v.At(0, 1)*v.At(1, 0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("E[u0^2 u1^2] = %v, want %v", got, want)
	}
}

func TestNewFoldedRoundTripsSecondMoment(t *testing.T) {
	v := mat.NewDense(2, 2, []float64{1, 0.4, 0.4, 1})
	folded := NewFolded(2, v)
	m2 := folded.Get(symmetry.New(2))
	if got := m2.Col([]int{0, 1})[0]; math.Abs(got-0.4) > 1e-12 {
		t.Errorf("folded E[u0 u1] = %v, want 0.4", got)
	}
}
