// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quad

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestGaussHermiteWeightsSumToSqrtPi(t *testing.T) {
	_, w := GaussHermite(7)
	got := floats.Sum(w)
	want := math.Sqrt(math.Pi)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Σw = %v, want %v", got, want)
	}
}

func TestGaussHermiteOddNIncludesOrigin(t *testing.T) {
	x, _ := GaussHermite(5)
	mid := x[2]
	if math.Abs(mid) > 1e-9 {
		t.Errorf("middle node = %v, want 0", mid)
	}
}

func TestGaussLegendreWeightsSumToTwo(t *testing.T) {
	x, w := GaussLegendre(6)
	got := floats.Sum(w)
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("Σw = %v, want 2", got)
	}
	for _, xi := range x {
		if xi < -1 || xi > 1 {
			t.Errorf("node %v out of [-1,1]", xi)
		}
	}
}

func TestGaussLegendreIntegratesQuadraticExactly(t *testing.T) {
	x, w := GaussLegendre(3)
	got := 0.0
	for i := range x {
		got += w[i] * x[i] * x[i]
	}
	want := 2.0 / 3.0 // ∫_{-1}^1 x^2 dx
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("∫x^2 = %v, want %v", got, want)
	}
}

func TestProductCardinalityAndConstantIntegral(t *testing.T) {
	r := Product(2, 3, Legendre1D())
	if len(r.Points) != 9 {
		t.Fatalf("len(Points) = %d, want 9", len(r.Points))
	}
	got := floats.Sum(r.Weights)
	if math.Abs(got-4) > 1e-9 { // (∫_{-1}^1 1 dx)^2 = 4
		t.Errorf("Σw = %v, want 4", got)
	}
}

func TestSmolyakNumEvaluationsMatchesBuiltRule(t *testing.T) {
	d, l := 2, 3
	r := Smolyak(d, l, Legendre1D())
	n := NumEvaluations(d, l, Legendre1D())
	if len(r.Points) != n {
		t.Errorf("len(Points) = %d, want %d", len(r.Points), n)
	}
}

func TestDesignLevelForEvalsProductStaysUnderBudget(t *testing.T) {
	lev, evals := DesignLevelForEvalsProduct(3, 100, Legendre1D())
	if evals > 100 {
		t.Errorf("evals = %d, want <= 100", evals)
	}
	if intPow(lev+1, 3) <= 100 {
		t.Errorf("level %d is not maximal under budget 100", lev)
	}
}

func TestHaltonWeightsSumToOne(t *testing.T) {
	r := Halton(2, 50, IdentityPermutation{})
	got := floats.Sum(r.Weights)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("Σw = %v, want 1", got)
	}
	for _, p := range r.Points {
		for _, x := range p {
			if x < 0 || x >= 1 {
				t.Errorf("coordinate %v out of [0,1)", x)
			}
		}
	}
}

func TestHaltonIdentityMatchesVanDerCorputBase2(t *testing.T) {
	r := Halton(1, 3, IdentityPermutation{})
	want := []float64{0.5, 0.25, 0.75}
	for i, p := range r.Points {
		if math.Abs(p[0]-want[i]) > 1e-12 {
			t.Errorf("point %d = %v, want %v", i, p[0], want[i])
		}
	}
}

func TestReversePermutationDiffersFromIdentity(t *testing.T) {
	id := Halton(2, 10, IdentityPermutation{})
	rev := Halton(2, 10, ReversePermutation{})
	same := true
	for i := range id.Points {
		if id.Points[i][1] != rev.Points[i][1] {
			same = false
		}
	}
	if same {
		t.Error("reverse permutation produced identical second-dimension sequence to identity")
	}
}
