// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package korderstoch implements the stochastic-steady walk of spec.md
// §4.X (KOrderStoch in korder.hh/dynare++): starting from a korder.Solver
// already solved at the deterministic steady state (σ=0), it carries the
// approximation forward in ns equal σ-increments to the true stochastic
// steady (σ=1), re-centering the Taylor expansion and re-solving for g at
// each step with the one-step-ahead composition replaced by the already
// integrated future expectation h = E_t g**(ȳ,u',σ).
//
// The heavy per-step linear algebra (IntegDerivs, the h-substituted
// recovery, and the re-differentiated A/S/B matrices) lives on
// korder.Solver itself (korder/stoch.go) — this package supplies the
// parts that are specific to the walk: the Newton fixed-point search for
// each step's new steady state, and the Taylor-coefficient shift that
// re-centers a derivative container on that new point.
package korderstoch

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/quantgo/korder/korder"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// groupYStar is the index, within the 4-group (y*,u,u',σ) symmetry
// convention korder.Solver.G and korder.Solver.IntegDerivs both use, of
// the predetermined-state group — mirrored here rather than imported
// since korder keeps its own copy unexported.
const groupYStar = 0

// FixedPoint solves y* = f(y*) for a decision rule's predetermined-state
// block by Newton iteration with a full (undamped) step, applying the
// inverse of the fixed Jacobian jac = I - gyStar, factored once, rather
// than refactoring at every step: gyStar is the rule's own σ-invariant
// first-order y*-block, and the same linearization is used as the Newton
// direction throughout (spec.md §4.X step 1). No stability check on
// gyStar is made here or in korder.NewSolver. f evaluates the rule's
// y*-sub-block at u=0 for a candidate y*. On exhaustion the returned
// *korder.NotConvergedError carries the largest residual of the last
// iterate evaluated.
func FixedPoint(f func(ystar []float64) []float64, gyStar *mat.Dense, y0 []float64, tol float64, maxIter int) ([]float64, error) {
	n := len(y0)
	jac := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -gyStar.At(i, j)
			if i == j {
				v += 1
			}
			jac.Set(i, j, v)
		}
	}
	var lu mat.LU
	lu.Factorize(jac)

	ystar := append([]float64(nil), y0...)
	maxRes := 0.0
	for it := 0; it < maxIter; it++ {
		fy := f(ystar)
		resid := mat.NewDense(n, 1, nil)
		maxRes = 0.0
		for i := 0; i < n; i++ {
			r := fy[i] - ystar[i]
			resid.Set(i, 0, r)
			if math.Abs(r) > maxRes {
				maxRes = math.Abs(r)
			}
		}
		if maxRes < tol {
			return ystar, nil
		}
		var step mat.Dense
		if err := lu.SolveTo(&step, false, resid); err != nil {
			return nil, &korder.SylvesterError{Order: 1, Phase: "stoch_fixed_point", Err: err}
		}
		for i := 0; i < n; i++ {
			ystar[i] += step.At(i, 0)
		}
	}
	return ystar, &korder.NotConvergedError{Iterations: maxIter, Residual: maxRes}
}

// powerTensor builds the rank-1, 1-row "moment" tensor of order m whose
// every entry is the corresponding product of d's own coordinates
// (d[v_1]·...·d[v_m]) — the degenerate, deterministic analogue of a true
// raw moment tensor, used to contract a symmetric tensor against a literal
// displacement vector the same way ContractTailAndAdd contracts against a
// genuine shock moment elsewhere in the solver.
func powerTensor(d []float64, m int) *tensor.Unfolded {
	dims := tensor.NewDims(symmetry.New(m), []int{len(d)})
	t := tensor.NewUnfolded(1, dims)
	v := make([]int, m)
	for {
		w := 1.0
		for _, idx := range v {
			w *= d[idx]
		}
		t.SetCol(v, []float64{w})
		if dims.IncrementUnfolded(v) {
			break
		}
	}
	return t
}

// scaleCopy returns a copy of t with every entry multiplied by c.
func scaleCopy(t *tensor.Unfolded, c float64) *tensor.Unfolded {
	out := tensor.NewUnfolded(t.Rows(), t.Dims())
	n := t.Cols()
	for off := 0; off < n; off++ {
		col := t.ColAt(off)
		scaled := make([]float64, len(col))
		for i, x := range col {
			scaled[i] = x * c
		}
		out.SetColAt(off, scaled)
	}
	return out
}

// addBroadcast adds src into dst column by column, assuming both share the
// same column count — valid whenever src and dst differ only in their
// σ-group's width, since σ's single admissible value makes FoldedCols and
// UnfoldedCols invariant to that width (the same fact korder.Solver's own
// addBroadcastSigma relies on).
func addBroadcast(dst, src *tensor.Unfolded) {
	n := src.Cols()
	for off := 0; off < n; off++ {
		d := dst.ColAt(off)
		s := src.ColAt(off)
		for i := range d {
			d[i] += s[i]
		}
		dst.SetColAt(off, d)
	}
}

// Recenter shifts every stored h_{y^i u^j σ^k} block from its old center
// (ȳ_old, σ_old) to a new center displaced by (deltaYstar, deltaSigma), by
// the standard multivariate Taylor-coefficient shift (spec.md §4.X step 3,
// "StochForwardDerivs"): for every source block at (i,j,k) and every
// target (i',j,k') with i'<=i and k'<=k (the u-group j is a literal
// current-period shock and is never itself shifted), the target
// accumulates
//
//	C(k,k')·deltaSigma^{k-k'} · contract(g_{y^i u^j σ^k}, deltaYstar^{⊗(i-i')})
//
// contracting the trailing i-i' y*-positions of the source against
// deltaYstar's own (i-i')-th Kronecker power (powerTensor), exactly the
// same ContractTailAndAdd primitive korder.Solver.IntegDerivs uses to
// contract against a genuine shock moment — here the "moment" is simply
// the deterministic displacement itself. rows is the row count shared by
// every block in h (s.part.NYSS() for h, s.part.NY() for a full g).
func Recenter(h *tcontainer.Folded, rows int, nvs []int, maxOrder int, deltaYstar []float64, deltaSigma float64) *tcontainer.Folded {
	out := tcontainer.NewFolded()
	srcSyms := h.Symmetries()
	for order := 0; order <= maxOrder; order++ {
		for ip := 0; ip <= order; ip++ {
			for j := 0; j <= order-ip; j++ {
				kp := order - ip - j
				targetSym := symmetry.New(ip, j, 0, kp)
				dims := tensor.NewDims(targetSym, nvs)
				acc := tensor.NewUnfolded(rows, dims)
				present := false
				for _, sym := range srcSyms {
					i, sj, k := sym[0], sym[1], sym[3]
					if sj != j || i < ip || k < kp {
						continue
					}
					present = true
					m := i - ip
					src := h.Get(sym).Unfold()
					var reduced *tensor.Unfolded
					if m == 0 {
						reduced = src
					} else {
						reduced = tensor.NewUnfolded(rows, tensor.NewDims(symmetry.New(ip, j, 0, k), nvs))
						src.ContractTailAndAdd(groupYStar, m, reduced, powerTensor(deltaYstar, m))
					}
					weight := float64(combin.Binomial(k, kp)) * math.Pow(deltaSigma, float64(k-kp))
					addBroadcast(acc, scaleCopy(reduced, weight))
				}
				if present {
					out.Insert(targetSym, acc.Fold())
				}
			}
		}
	}
	return out
}

// Result is one visited point of the walk: the steady state ȳ and the σ
// value it was solved at.
type Result struct {
	Ybar  []float64
	Sigma float64
}

// Walk performs the ns-step stochastic-steady walk of spec.md §4.X. s must
// already be solved (via korder.Solver.Solve) at the deterministic steady
// state, σ=0. gyStar is the rule's σ-invariant first-order y*-block
// (FixedPoint's Jacobian). eval evaluates the current decision rule's full
// y-vector at a candidate y* and σ (u=0) — ordinarily backed by a
// decisionrule.DecisionRule built from s.G() at the start of each step.
// refit re-differentiates the dynamic system at a tentative new steady ȳ
// and returns its sparse F, the external parser/model-differentiator
// boundary spec.md §1 places outside this module's scope. It returns the
// sequence of steady states visited, Result[0] the initial deterministic
// steady and Result[ns] the final stochastic one.
func Walk(s *korder.Solver, ns int, ybar0 []float64, gyStar *mat.Dense, eval func(ystar []float64, sigma float64) []float64, refit func(ybar []float64) map[int]*tensor.Sparse, tol float64, maxIter int) ([]Result, error) {
	part := s.Part()
	nys := part.NYS()
	nvs := []int{nys, s.NU(), s.NU(), 1}
	delta := 1.0 / float64(ns)

	path := make([]Result, 0, ns+1)
	path = append(path, Result{Ybar: append([]float64(nil), ybar0...), Sigma: 0})

	sigmaOld := 0.0
	ybarOld := append([]float64(nil), ybar0...)
	for step := 0; step < ns; step++ {
		sigmaNew := sigmaOld + delta
		ystarOld := ybarOld[part.NStat : part.NStat+nys]

		ystarNew, err := FixedPoint(func(ystar []float64) []float64 {
			return eval(ystar, sigmaNew)[part.NStat : part.NStat+nys]
		}, gyStar, ystarOld, tol, maxIter)
		if err != nil {
			return path, err
		}
		ybarNew := eval(ystarNew, sigmaNew)

		h := s.IntegDerivs(sigmaOld)
		deltaYstar := make([]float64, nys)
		for i := range deltaYstar {
			deltaYstar[i] = ystarNew[i] - ystarOld[i]
		}
		hShifted := Recenter(h, part.NYSS(), nvs, s.MaxOrder(), deltaYstar, sigmaNew-sigmaOld)

		if err := s.SetF(refit(ybarNew)); err != nil {
			return path, err
		}
		target := s.MaxOrder()
		for order := 2; order <= target; order++ {
			if err := s.RecoverWithFuture(hShifted, order); err != nil {
				return path, err
			}
		}

		path = append(path, Result{Ybar: ybarNew, Sigma: sigmaNew})
		ybarOld, sigmaOld = ybarNew, sigmaNew
	}
	return path, nil
}

// Centralize performs the optional final re-centering pass described at
// the end of spec.md §4.X ("dr_centralize"): one more Newton fixed-point
// search at σ=1, followed by a pure y*-direction Recenter (deltaSigma=0,
// so only the blocks already at k'=k survive the shift) splicing the
// result back into s via InsertG, leaving g centered exactly on the rule's
// own true fixed point rather than the last walk step's ȳ. It returns the
// recentered steady state.
func Centralize(s *korder.Solver, ybar []float64, gyStar *mat.Dense, eval func(ystar []float64, sigma float64) []float64, tol float64, maxIter int) ([]float64, error) {
	part := s.Part()
	nys := part.NYS()
	ystarOld := ybar[part.NStat : part.NStat+nys]

	ystarNew, err := FixedPoint(func(ystar []float64) []float64 {
		return eval(ystar, 1)[part.NStat : part.NStat+nys]
	}, gyStar, ystarOld, tol, maxIter)
	if err != nil {
		return nil, err
	}
	ybarNew := eval(ystarNew, 1)

	deltaYstar := make([]float64, nys)
	for i := range deltaYstar {
		deltaYstar[i] = ystarNew[i] - ystarOld[i]
	}
	nvs := []int{nys, s.NU(), s.NU(), 1}
	shifted := Recenter(s.G(), part.NY(), nvs, s.MaxOrder(), deltaYstar, 0)
	for _, sym := range shifted.Symmetries() {
		s.InsertG(sym, shifted.Get(sym))
	}
	return ybarNew, nil
}
