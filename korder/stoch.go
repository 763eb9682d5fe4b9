// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korder

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/quantgo/korder/faadibruno"
	"github.com/quantgo/korder/kron"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// IntegDerivs computes h_{y^i σ^p} = E_t g**(ȳ, u', σ) for every i+p <=
// s.MaxOrder(), from gss's own derivatives at the previous step's steady
// state (sigmaOld) and the solver's shock moments (spec.md §4.X):
//
//	h_{y^i σ^p} = Σ_{n=0}^{p} Σ_{m ≡ n (mod 2)} (σ_old^m · C(p,n) / m!) ·
//	              contract(g_{y^i u^{m+n} σ^{p-n}}, Σ^{(m+n)})
//
// contracting the full u-group (width m+n) of each existing g** block
// against the (m+n)-th raw moment of u, and adding the (i, p-n)-shaped
// result into h_{y^i σ^p} via the same σ-broadcast addBroadcastSigma
// already uses elsewhere, since σ's single admissible value makes every
// σ-power of a given (i, u-count) block occupy the same columns.
func (s *Solver) IntegDerivs(sigmaOld float64) *tcontainer.Folded {
	h := tcontainer.NewFolded()
	nyss := s.part.NYSS()
	for order := 0; order <= s.maxOrder; order++ {
		for i := 0; i <= order; i++ {
			p := order - i
			dims := tensor.NewDims(sym4(i, 0, 0, p), s.nvs)
			acc := tensor.NewUnfolded(nyss, dims)
			for n := 0; n <= p; n++ {
				k := p - n
				for m := n % 2; i+n+k+m <= s.maxOrder; m += 2 {
					jn := m + n
					sym := sym4(i, jn, 0, k)
					if !s.gss.Check(sym) {
						continue
					}
					block := s.gss.Get(sym).Unfold()
					reduced := tensor.NewUnfolded(nyss, tensor.NewDims(sym4(i, 0, 0, k), s.nvs))
					if jn == 0 {
						addUnfoldedInto(reduced, block)
					} else {
						block.ContractTailAndAdd(groupU, jn, reduced, s.moments.Get(symmetry.New(jn)))
					}
					weight := math.Pow(sigmaOld, float64(m)) * float64(combin.Binomial(p, n)) / float64(factorial(m))
					scaleUnfolded(reduced, weight)
					addBroadcastSigma(acc, reduced)
				}
			}
			h.Insert(sym4(i, 0, 0, p), acc.Fold())
		}
	}
	return h
}

// addUnfoldedInto adds every column of src into dst in place (the m==0
// case of IntegDerivs's contraction loop, where there is no u-group left
// to contract at all).
func addUnfoldedInto(dst, src *tensor.Unfolded) {
	d := dst.Dims()
	v := make([]int, d.Dimen())
	for {
		col := dst.Col(v)
		sc := src.Col(v)
		for i := range col {
			col[i] += sc[i]
		}
		dst.SetCol(v, col)
		if d.IncrementUnfolded(v) {
			break
		}
	}
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}

// buildZstackWithFuture is buildZstack with its one-step-ahead member
// replaced by an externally supplied future-expectation container h —
// used once h = E_t g**(ȳ, u', σ) is already known at the new stochastic
// steady, so no u' ever appears in the composition and no Sylvester
// self-reference remains (korder.hh's KOrderStoch, which inherits KOrder's
// z-stack machinery with exactly this one substitution).
func (s *Solver) buildZstackWithFuture(h *tcontainer.Folded) *kron.Stack {
	return &kron.Stack{Members: []kron.Member{
		{Rows: s.part.NYSS(), Kind: kron.Matrix, Derivs: h},
		{Rows: s.part.NY(), Kind: kron.Matrix, Derivs: s.g},
		{Rows: s.part.NYS(), Kind: kron.Unit, Group: groupYStar},
		{Rows: s.nu, Kind: kron.Unit, Group: groupU},
	}}
}

// faaDiBrunoZWithFuture is faaDiBrunoZ against buildZstackWithFuture.
func (s *Solver) faaDiBrunoZWithFuture(h *tcontainer.Folded, sym symmetry.Sym) *tensor.Unfolded {
	target := tensor.NewDims(sym, s.nvs)
	eng := &faadibruno.Engine{Stack: s.buildZstackWithFuture(h), MaxParallel: s.maxParallel}
	return eng.ComputeSparse(s.f, s.part.NY(), target)
}

// RecoverWithFuture recovers every g_{y^i u^j σ^k} block of the given
// total order using h in place of the one-step-ahead composition: since h
// is already a known tensor (not an unknown being solved for jointly with
// X), every split solves by a single A^{-1} apply, with no Sylvester
// structure and no D/E correction terms (h has already integrated out
// every occurrence of u'). This is korder.hh's KOrderStoch, reusing
// KOrder's own pre-factored A matrix. Blocks already present at this
// order are overwritten, and s.MaxOrder() is set to order afterwards
// (ordinarily called for order = 2..s.MaxOrder() after SetF has installed
// the new steady's f derivatives).
func (s *Solver) RecoverWithFuture(h *tcontainer.Folded, order int) error {
	for i := order; i >= 0; i-- {
		for j := order - i; j >= 0; j-- {
			k := order - i - j
			sym := sym4(i, j, 0, k)
			rhs := s.faaDiBrunoZWithFuture(h, sym)
			d := unfoldedToDense(rhs)
			d.Scale(-1, d)
			x, err := s.matA.solveInto(d, "recover_stoch")
			if err != nil {
				return err
			}
			s.insertGBlock(sym, denseToUnfolded(x, tensor.NewDims(sym, s.nvs)).Fold())
		}
	}
	s.maxOrder = order
	return nil
}

// SetF installs a freshly re-differentiated set of sparse f derivatives
// (evaluated at a new steady state) and rebuilds the A/S/B matrices
// against it — used at the start of every stochastic-walk step, since f
// is evaluated at a moving point while the walk proceeds (spec.md §4.X
// step 4: "recompute f's derivatives at the new steady"). The first-order
// g blocks already stored in s are kept unchanged and reused to rebuild A
// and S.
func (s *Solver) SetF(f map[int]*tensor.Sparse) error {
	f1, ok := f[1]
	if !ok {
		return &PreconditionError{Msg: "SetF: F must contain the first-order block (key 1)"}
	}
	s.f = f
	nys := s.part.NYS()
	gyssFirst := foldedOrder1ToDense(s.gss.Get(sym4(1, 0, 0, 0)), s.part.NYSS(), nys)
	s.matA = newPLU(buildMatrixA(f1, s.part, gyssFirst))
	s.matS = newPLU(buildMatrixS(f1, s.part, gyssFirst))
	s.matB = embedMatrixB(buildMatrixB(f1, s.part), s.part)
	return nil
}
