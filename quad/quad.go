// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package quad implements the integration primitives ("I" in the system
// overview) used to evaluate forward-looking expectations: 1-D
// Gauss–Hermite and Gauss–Legendre rules, their full tensor-product
// combination, Smolyak sparse-grid combination, and a quasi-Monte-Carlo
// Halton-sequence rule over the unit cube.
package quad

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// Rule is a fixed set of nodes (each a dim-length coordinate) and matching
// weights for a multivariate quadrature.
type Rule struct {
	Points  [][]float64
	Weights []float64
}

// GaussHermite returns the n-point Gauss–Hermite nodes and weights for
//
//	∫_{-∞}^{∞} e^{-x²} f(x) dx ≈ Σ w_i f(x_i).
//
// Computed by gonum's asymptotic Hermite root finder rather than a
// hand-rolled Newton iteration.
func GaussHermite(n int) (points, weights []float64) {
	if n < 1 {
		panic("quad: n must be positive")
	}
	points = make([]float64, n)
	weights = make([]float64, n)
	quad.Hermite{}.FixedLocations(points, weights, math.Inf(-1), math.Inf(1))
	return points, weights
}

// GaussLegendre returns the n-point Gauss–Legendre nodes and weights for
//
//	∫_{-1}^{1} f(x) dx ≈ Σ w_i f(x_i),
//
// computed via the Golub–Welsch algorithm: the nodes are the eigenvalues of
// the symmetric tridiagonal Jacobi matrix of the Legendre recurrence, and
// the weights are 2 times the squared first component of each normalized
// eigenvector — delegated entirely to gonum's symmetric eigendecomposition.
func GaussLegendre(n int) (points, weights []float64) {
	if n < 1 {
		panic("quad: n must be positive")
	}
	jac := mat.NewSymDense(n, nil)
	for i := 0; i < n-1; i++ {
		k := float64(i + 1)
		beta := k / math.Sqrt(4*k*k-1)
		jac.SetSym(i, i+1, beta)
	}
	var eig mat.EigenSym
	if !eig.Factorize(jac, true) {
		panic("quad: Legendre Jacobi eigendecomposition failed to converge")
	}
	points = eig.Values(nil)
	var vecs mat.Dense
	vecs.EigenvectorsSym(&eig)
	weights = make([]float64, n)
	for j := 0; j < n; j++ {
		v0 := vecs.At(0, j)
		weights[j] = 2 * v0 * v0
	}
	return points, weights
}

// OneD is a 1-D quadrature rule generator: NumPoints determines the node
// count at a given level, and Rule returns that level's nodes/weights.
type OneD struct {
	NumPoints func(level int) int
	Rule      func(level int) (points, weights []float64)
}

// Hermite1D returns a OneD generator using n = level Gauss–Hermite points.
func Hermite1D() OneD {
	return OneD{
		NumPoints: func(level int) int { return level },
		Rule:      GaussHermite,
	}
}

// Legendre1D returns a OneD generator using n = level Gauss–Legendre points.
func Legendre1D() OneD {
	return OneD{
		NumPoints: func(level int) int { return level },
		Rule:      GaussLegendre,
	}
}

// Product builds the full tensor-product quadrature of dim copies of u at
// the given level: Πᵈ (nodes at level) points, weight = product of 1-D
// weights.
func Product(dim, level int, u OneD) *Rule {
	if dim < 1 {
		panic("quad: dim must be positive")
	}
	pts1, wts1 := u.Rule(level)
	n := len(pts1)
	total := intPow(n, dim)
	points := make([][]float64, 0, total)
	weights := make([]float64, 0, total)
	idx := make([]int, dim)
	for {
		p := make([]float64, dim)
		w := 1.0
		for d := 0; d < dim; d++ {
			p[d] = pts1[idx[d]]
			w *= wts1[idx[d]]
		}
		points = append(points, p)
		weights = append(weights, w)
		if !incrementMixedRadix(idx, n) {
			break
		}
	}
	return &Rule{Points: points, Weights: weights}
}

// DesignLevelForEvalsProduct returns the largest level such that the
// number of evaluations of a dim-dimensional product rule (n(level)^dim)
// does not exceed maxEvals, mirroring the original library's
// designLevelForEvals but for the product rule.
func DesignLevelForEvalsProduct(dim, maxEvals int, u OneD) (level, evals int) {
	lastEvals := 1
	lev := 1
	ev := intPow(u.NumPoints(lev), dim)
	for ev <= maxEvals && lev < 1000 {
		lastEvals = ev
		lev++
		ev = intPow(u.NumPoints(lev), dim)
	}
	if ev > maxEvals {
		return lev - 1, lastEvals
	}
	return lev, ev
}

func incrementMixedRadix(idx []int, base int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < base {
			return true
		}
		idx[i] = 0
	}
	return false
}

func intPow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
