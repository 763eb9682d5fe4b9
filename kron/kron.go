// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kron implements the Kronecker-product machinery used by the
// k-order solver ("K" in the system overview): computing
//
//	B · (A1 ⊗ A2 ⊗ ... ⊗ An)
//
// without ever materializing the (typically astronomically large) full
// Kronecker product, by applying each factor in turn as a mode-product
// against a reshaped view of the running result.
package kron

import "gonum.org/v1/gonum/mat"

// Factors is a left-to-right list of the Kronecker factors A1,...,An.
type Factors []*mat.Dense

// rowDims returns the row count of each factor, in order.
func (f Factors) rowDims() []int {
	d := make([]int, len(f))
	for i, a := range f {
		r, _ := a.Dims()
		d[i] = r
	}
	return d
}

// Multiply computes B·(A1⊗...⊗An) and returns the result. B must have
// rows(B)×(Πrows(Ai)) shape; the result is rows(B)×(Πcols(Ai)). The factors are applied in an order chosen to
// minimize the total element count ever materialized (MultiplyOrdered),
// which is mathematically equivalent to applying them left to right since
// each factor acts on a disjoint set of Kronecker axes.
func Multiply(b *mat.Dense, factors Factors) *mat.Dense {
	return MultiplyOrdered(b, factors, optimalOrder(factors))
}

// MultiplyOrdered is Multiply with an explicit processing order (a
// permutation of 0..len(factors)-1); callers that already know a good
// order (e.g. from a prior OptimalOrder call on matrices of the same
// shape) can skip recomputing it.
func MultiplyOrdered(b *mat.Dense, factors Factors, order []int) *mat.Dense {
	if len(order) != len(factors) {
		panic("kron: order/factors length mismatch")
	}
	dims := factors.rowDims()
	_, totalCols := b.Dims()
	wantCols := 1
	for _, d := range dims {
		wantCols *= d
	}
	if totalCols != wantCols {
		panic("kron: B column count does not match product of factor row counts")
	}

	cur := b
	sizes := append([]int(nil), dims...)
	for _, k := range order {
		a := factors[k]
		mk, nk := a.Dims()
		if sizes[k] != mk {
			panic("kron: factor row count changed since sizing")
		}
		left := 1
		for i := 0; i < k; i++ {
			left *= sizes[i]
		}
		right := 1
		for i := k + 1; i < len(sizes); i++ {
			right *= sizes[i]
		}
		cur = applyMode(cur, left, mk, right, a)
		sizes[k] = nk
	}
	return cur
}

// applyMode multiplies the middle axis of cur, whose columns are viewed as
// a (left, m, right) tensor in row-major order, by matrix A (m×n) from the
// right, producing a (rows(cur), left*n*right) result.
func applyMode(cur *mat.Dense, left, m, right int, a *mat.Dense) *mat.Dense {
	r, _ := cur.Dims()
	_, n := a.Dims()
	out := mat.NewDense(r, left*n*right, nil)
	page := mat.NewDense(m, right, nil)
	var res mat.Dense
	for row := 0; row < r; row++ {
		for l := 0; l < left; l++ {
			for i := 0; i < m; i++ {
				base := (l*m + i) * right
				for j := 0; j < right; j++ {
					page.Set(i, j, cur.At(row, base+j))
				}
			}
			res.Mul(a.T(), page)
			for i := 0; i < n; i++ {
				base := (l*n + i) * right
				for j := 0; j < right; j++ {
					out.Set(row, base+j, res.At(i, j))
				}
			}
		}
	}
	return out
}

// optimalOrder implements KronProdAllOptim's near-optimal heuristic:
// process factors in descending order of the ratio rows(Ai)/cols(Ai), so
// that dimension-reducing factors (ratio > 1) are applied early, keeping
// the running intermediate as small as possible for as long as possible.
// This fixes, per the design notes, one explicit cost function (minimize
// cumulative intermediate element count) rather than leaving the tradeoff
// between memory and flops unresolved.
func optimalOrder(factors Factors) []int {
	n := len(factors)
	order := make([]int, n)
	ratio := make([]float64, n)
	for i, a := range factors {
		m, c := a.Dims()
		order[i] = i
		ratio[i] = float64(m) / float64(c)
	}
	// simple insertion sort: n is always small (the model's stack depth).
	for i := 1; i < n; i++ {
		j := i
		for j > 0 && ratio[order[j-1]] < ratio[order[j]] {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	return order
}

// OptimalOrder exposes optimalOrder for callers that want to cache a
// processing order across repeated calls to MultiplyOrdered with factors
// of the same shapes.
func OptimalOrder(factors Factors) []int { return optimalOrder(factors) }
