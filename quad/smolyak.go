// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quad

import "gonum.org/v1/gonum/stat/combin"

// Smolyak builds a level-l, dimension-d sparse-grid quadrature from 1-D
// rule u, following SmolyakQuadrature: sum, over every positive-integer
// sequence k of length d with l ≤ Σk ≤ l+d-1, the full tensor-product rule
// at per-dimension levels k scaled by (-1)^{l+d-1-Σk}·C(d-1, Σk-l). Points
// from different summands are not deduplicated or compressed onto a
// canonical sparse grid — a valid (if unoptimized) quadrature rule, since
// the weighted sum of evaluations is unaffected by how many distinct grids
// contributed it.
func Smolyak(d, l int, u OneD) *Rule {
	if d < 1 {
		panic("quad: d must be positive")
	}
	if l < 1 {
		panic("quad: l must be positive")
	}
	out := &Rule{}
	k := make([]int, d)
	maxPerDim := l // Σk ≤ l+d-1 with every other component ≥ 1 bounds k_i ≤ l.
	var rec func(i, sum int)
	rec = func(i, sum int) {
		if i == d {
			if sum >= l && sum <= l+d-1 {
				addSmolyakSummand(out, k, d, l, sum, u)
			}
			return
		}
		for v := 1; v <= maxPerDim; v++ {
			k[i] = v
			rec(i+1, sum+v)
		}
	}
	rec(0, 0)
	return out
}

func addSmolyakSummand(out *Rule, k []int, d, l, sum int, u OneD) {
	m1exp := l + d - sum - 1
	sign := 1.0
	if m1exp%2 != 0 {
		sign = -1.0
	}
	scale := sign * float64(combin.Binomial(d-1, sum-l))

	pts := make([][]float64, d)
	wts := make([][]float64, d)
	for i := 0; i < d; i++ {
		pts[i], wts[i] = u.Rule(k[i])
	}
	sizes := make([]int, d)
	for i, p := range pts {
		sizes[i] = len(p)
	}
	idx := make([]int, d)
	for {
		p := make([]float64, d)
		w := scale
		for i := 0; i < d; i++ {
			p[i] = pts[i][idx[i]]
			w *= wts[i][idx[i]]
		}
		out.Points = append(out.Points, p)
		out.Weights = append(out.Weights, w)
		if !incrementMixedRadixSizes(idx, sizes) {
			break
		}
	}
}

func incrementMixedRadixSizes(idx, sizes []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < sizes[i] {
			return true
		}
		idx[i] = 0
	}
	return false
}

// NumEvaluations returns the total evaluation count of Smolyak(d, l, u)
// without building it, used by DesignLevelForEvalsSmolyak.
func NumEvaluations(d, l int, u OneD) int {
	total := 0
	k := make([]int, d)
	maxPerDim := l
	var rec func(i, sum int)
	rec = func(i, sum int) {
		if i == d {
			if sum >= l && sum <= l+d-1 {
				prod := 1
				for _, ki := range k {
					prod *= u.NumPoints(ki)
				}
				total += prod
			}
			return
		}
		for v := 1; v <= maxPerDim; v++ {
			k[i] = v
			rec(i+1, sum+v)
		}
	}
	rec(0, 0)
	return total
}

// DesignLevelForEvalsSmolyak returns the largest Smolyak level whose
// evaluation count does not exceed maxEvals, mirroring
// SmolyakQuadrature::designLevelForEvals. The search starts at level 1,
// so the result can be below d.
func DesignLevelForEvalsSmolyak(d, maxEvals int, u OneD) (level, evals int) {
	lastEvals := 1
	lev := 1
	ev := 1
	for lev < 1000 && ev <= maxEvals {
		lev++
		lastEvals = ev
		ev = NumEvaluations(d, lev, u)
	}
	lev--
	return lev, lastEvals
}
