// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korder

import (
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/quantgo/korder/faadibruno"
	"github.com/quantgo/korder/korderlog"
	"github.com/quantgo/korder/moments"
	"github.com/quantgo/korder/sylvester"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// Inputs bundles everything an external first-order solver and model
// differentiator must supply before a Solver can be built (spec.md §6).
type Inputs struct {
	Part PartitionY
	NU   int
	// F holds the dynamic system's sparse derivatives f_{z^l} for every
	// order l = 1..Order, over the stacked argument z = [y**_{t+1}; y_t;
	// y*_{t-1}; u_t] (see stackOffsets).
	F map[int]*tensor.Sparse
	// Gy, Gu are the externally supplied first-order decision rule blocks:
	// Gy is ny x nys, Gu is ny x nu.
	Gy, Gu *mat.Dense
	// V is the nu x nu shock covariance Σ.
	V *mat.Dense
	// Order is the highest order this solver will ever be asked to reach;
	// it only sizes the moments container.
	Order int

	Journal     *korderlog.Journal
	MaxParallel int
}

// Solver holds the containers and pre-factored matrices of the k-order
// solver (KOrder in korder.hh): g and its row-restricted gs/gss views, G,
// the raw-moments container, and the PLU-factored A/S matrices together
// with B and gs's own first-order block (the Sylvester equation's C
// operand).
type Solver struct {
	part PartitionY
	nu   int
	nvs  []int // {nys, nu, nu, 1}: variables per (y*,u,u',σ) group
	f    map[int]*tensor.Sparse

	g    *tcontainer.Folded
	gs   *tcontainer.Folded
	gss  *tcontainer.Folded
	bigG *tcontainer.Folded

	moments *tcontainer.Unfolded

	matA    *plu
	matS    *plu
	matB    *mat.Dense // embedded f_{y**+}, ny x ny: the Sylvester equation's B
	gsFirst *mat.Dense // g*_{y*}, nys x nys: the Sylvester equation's C

	journal     *korderlog.Journal
	maxParallel int
	maxOrder    int
}

// NewSolver validates in and builds a Solver ready to recover orders
// 2..in.Order via successive PerformStep calls. The first-order blocks
// (Gy, Gu) are inserted immediately, together with the first-order G
// entries they imply, since every later recover step needs G complete at
// every order strictly below the one it is solving.
func NewSolver(in Inputs) (*Solver, error) {
	if err := in.Part.validate(); err != nil {
		return nil, err
	}
	if in.NU < 0 {
		return nil, &PreconditionError{Msg: "NU must be non-negative"}
	}
	if in.Order < 1 {
		return nil, &PreconditionError{Msg: "Order must be >= 1"}
	}
	ny, nys := in.Part.NY(), in.Part.NYS()
	if in.Gy == nil || in.Gu == nil {
		return nil, &PreconditionError{Msg: "Gy and Gu are required"}
	}
	if r, c := in.Gy.Dims(); r != ny || c != nys {
		return nil, &PreconditionError{Msg: "Gy must be NY x NYS"}
	}
	if r, c := in.Gu.Dims(); r != ny || c != in.NU {
		return nil, &PreconditionError{Msg: "Gu must be NY x NU"}
	}
	if in.V != nil {
		if r, c := in.V.Dims(); r != in.NU || c != in.NU {
			return nil, &PreconditionError{Msg: "V must be NU x NU"}
		}
	}
	f1, ok := in.F[1]
	if !ok {
		return nil, &PreconditionError{Msg: "F must contain the first-order block (key 1)"}
	}

	nvs := []int{nys, in.NU, in.NU, 1}
	s := &Solver{
		part: in.Part, nu: in.NU, nvs: nvs, f: in.F,
		g: tcontainer.NewFolded(), gs: tcontainer.NewFolded(), gss: tcontainer.NewFolded(),
		bigG:        tcontainer.NewFolded(),
		journal:     in.Journal,
		maxParallel: in.MaxParallel,
		maxOrder:    1,
	}
	if s.maxParallel <= 0 {
		s.maxParallel = faadibruno.DefaultParallel()
	}

	v := in.V
	if v == nil {
		v = mat.NewDense(in.NU, in.NU, nil)
	}
	s.moments = moments.NewUnfolded(in.Order, v)

	s.insertGBlock(sym4(1, 0, 0, 0), denseToFoldedOrder1(in.Gy, nvs, groupYStar))
	s.insertGBlock(sym4(0, 1, 0, 0), denseToFoldedOrder1(in.Gu, nvs, groupU))

	nyss := in.Part.NYSS()
	s.gsFirst = foldedOrder1ToDense(s.gs.Get(sym4(1, 0, 0, 0)), nys, nys)
	gyssFirst := foldedOrder1ToDense(s.gss.Get(sym4(1, 0, 0, 0)), nyss, nys)

	s.matA = newPLU(buildMatrixA(f1, in.Part, gyssFirst))
	s.matS = newPLU(buildMatrixS(f1, in.Part, gyssFirst))
	s.matB = embedMatrixB(buildMatrixB(f1, in.Part), in.Part)

	for g := 0; g < 4; g++ {
		counts := make([]int, 4)
		counts[g] = 1
		s.computeAndInsertG(symmetry.New(counts...))
	}

	return s, nil
}

// insertGBlock stores a freshly solved (or externally supplied) g-block
// under sym, together with its row-restricted gs (y* output rows) and gss
// (y** output rows) views — the Go equivalent of korder.hh's
// insertDerivative.
func (s *Solver) insertGBlock(sym symmetry.Sym, full *tensor.Folded) {
	s.g.Insert(sym, full)
	lo, hi := s.part.NStat, s.part.NStat+s.part.NYS()
	s.gs.Insert(sym, sliceRows(full, lo, hi))
	lo, hi = s.part.NStat+s.part.NPred, s.part.NStat+s.part.NPred+s.part.NYSS()
	s.gss.Insert(sym, sliceRows(full, lo, hi))
}

// fillG pre-populates G at every symmetry (i,j,m,k-m), m = 1..k with
// k-m even, that calcDijk/calcEijk will need to look up while computing
// the D/E correction terms of g_{y^i u^j σ^k} (korder.hh's fillG). m is the
// number of "future shock" (u') powers standing in for m of the k σ-powers
// being integrated out.
func (s *Solver) fillG(i, j, k int) {
	for m := 1; m <= k; m++ {
		if (k-m)%2 != 0 {
			continue
		}
		sym := sym4(i, j, m, k-m)
		if !s.bigG.Check(sym) {
			s.computeAndInsertG(sym)
		}
	}
}

// calcDijk returns D_{ijk}, the k-th moment's contribution to the
// expectation correction for g_{y^i u^j σ^k}: F evaluated with k copies of
// u' instead of k copies of σ, contracted against u's k-th raw moment.
// Vanishes (returns the zero tensor) when k is odd, since odd moments of a
// zero-mean shock are zero.
func (s *Solver) calcDijk(i, j, k int) *tensor.Unfolded {
	dims := tensor.NewDims(sym4(i, j, 0, 0), s.nvs)
	res := tensor.NewUnfolded(s.part.NY(), dims)
	if k%2 != 0 {
		return res
	}
	tmp := s.faaDiBrunoZ(sym4(i, j, k, 0))
	tmp.ContractTailAndAdd(groupUPrime, k, res, s.moments.Get(symmetry.New(k)))
	return res
}

// calcEijk returns E_{ijk}, the remaining even-order moment terms (orders
// 2,4,...,k-1, each weighted by C(k,n)) needed once k >= 3. Together,
// D_{ijk}+E_{ijk} are the full expectation correction korder.hh adds to
// the σ^k-order residual before solving for g_{y^i u^j σ^k}.
func (s *Solver) calcEijk(i, j, k int) *tensor.Unfolded {
	dims := tensor.NewDims(sym4(i, j, 0, 0), s.nvs)
	res := tensor.NewUnfolded(s.part.NY(), dims)
	for n := 2; n <= k-1; n += 2 {
		tmp := s.faaDiBrunoZ(sym4(i, j, n, k-n))
		scaleUnfolded(tmp, float64(combin.Binomial(k, n)))
		tmp.ContractTailAndAdd(groupUPrime, n, res, s.moments.Get(symmetry.New(n)))
	}
	return res
}

// scaleUnfolded multiplies every entry of t by c in place.
func scaleUnfolded(t *tensor.Unfolded, c float64) {
	d := t.Dims()
	v := make([]int, d.Dimen())
	for {
		col := t.Col(v)
		for i := range col {
			col[i] *= c
		}
		t.SetCol(v, col)
		if d.IncrementUnfolded(v) {
			break
		}
	}
}

// recoverY solves for g_{y^i} (korder.hh's recover_y): the one family of
// blocks with genuine self-reference (y* feeds y** one step ahead), solved
// via the full generalized Sylvester equation with C = g*_{y*} raised to
// the i-th Kronecker power.
func (s *Solver) recoverY(order int) error {
	sym := sym4(order, 0, 0, 0)
	rhs := s.faaDiBrunoZ(sym)
	d := unfoldedToDense(rhs)
	d.Scale(-1, d)
	eq := sylvester.Equation{A: s.matA.m, B: s.matB, C: s.gsFirst, Order: order}
	x, err := eq.Solve(d)
	if err != nil {
		return &SylvesterError{Order: order, Phase: "recover_y", Err: err.(*sylvester.Error).Err}
	}
	s.insertGBlock(sym, denseToUnfolded(x, tensor.NewDims(sym, s.nvs)).Fold())
	s.computeAndInsertG(sym)
	return nil
}

// recoverYU solves for g_{y^i u^j}, j > 0 (korder.hh's recover_yu): no
// self-reference through u, so a plain A^{-1} apply suffices.
func (s *Solver) recoverYU(i, j int) error {
	sym := sym4(i, j, 0, 0)
	rhs := s.faaDiBrunoZ(sym)
	d := unfoldedToDense(rhs)
	d.Scale(-1, d)
	x, err := s.matA.solveInto(d, "recover_yu")
	if err != nil {
		return err
	}
	s.insertGBlock(sym, denseToUnfolded(x, tensor.NewDims(sym, s.nvs)).Fold())
	s.computeAndInsertG(sym)
	return nil
}

// recoverYS solves for g_{y^i σ^j}, i > 0 (korder.hh's recover_ys): the
// same Sylvester structure as recover_y (Order = i, σ contributing no real
// Kronecker dimension), plus the expectation corrections D_{i,0,j} and, for
// j >= 3, E_{i,0,j}. A no-op when j is odd.
func (s *Solver) recoverYS(i, j int) error {
	s.fillG(i, 0, j)
	if j%2 != 0 {
		return nil
	}
	sym := sym4(i, 0, 0, j)
	rhs := s.faaDiBrunoZ(sym)
	addBroadcastSigma(rhs, s.calcDijk(i, 0, j))
	if j >= 3 {
		addBroadcastSigma(rhs, s.calcEijk(i, 0, j))
	}
	d := unfoldedToDense(rhs)
	d.Scale(-1, d)
	eq := sylvester.Equation{A: s.matA.m, B: s.matB, C: s.gsFirst, Order: i}
	x, err := eq.Solve(d)
	if err != nil {
		return &SylvesterError{Order: i, Phase: "recover_ys", Err: err.(*sylvester.Error).Err}
	}
	s.insertGBlock(sym, denseToUnfolded(x, tensor.NewDims(sym, s.nvs)).Fold())
	s.computeAndInsertG(sym)
	return nil
}

// recoverYUS solves for g_{y^i u^j σ^k} (korder.hh's recover_yus): like
// recover_yu, no self-reference (u participates, not y* alone), so a plain
// A^{-1} apply suffices even with the D/E corrections added in. A no-op
// when k is odd.
func (s *Solver) recoverYUS(i, j, k int) error {
	s.fillG(i, j, k)
	if k%2 != 0 {
		return nil
	}
	sym := sym4(i, j, 0, k)
	rhs := s.faaDiBrunoZ(sym)
	addBroadcastSigma(rhs, s.calcDijk(i, j, k))
	if k >= 3 {
		addBroadcastSigma(rhs, s.calcEijk(i, j, k))
	}
	d := unfoldedToDense(rhs)
	d.Scale(-1, d)
	x, err := s.matA.solveInto(d, "recover_yus")
	if err != nil {
		return err
	}
	s.insertGBlock(sym, denseToUnfolded(x, tensor.NewDims(sym, s.nvs)).Fold())
	s.computeAndInsertG(sym)
	return nil
}

// recoverS solves for g_{σ^k} (korder.hh's recover_s): the deficient,
// order-0 case (no y* at all, so no real Sylvester structure), solved with
// the pre-factored S = A + [0,0,f_{y**+}] matrix instead. A no-op when k
// is odd.
func (s *Solver) recoverS(order int) error {
	s.fillG(0, 0, order)
	if order%2 != 0 {
		return nil
	}
	sym := sym4(0, 0, 0, order)
	rhs := s.faaDiBrunoZ(sym)
	addBroadcastSigma(rhs, s.calcDijk(0, 0, order))
	if order >= 3 {
		addBroadcastSigma(rhs, s.calcEijk(0, 0, order))
	}
	d := unfoldedToDense(rhs)
	d.Scale(-1, d)
	x, err := s.matS.solveInto(d, "recover_s")
	if err != nil {
		return err
	}
	s.insertGBlock(sym, denseToUnfolded(x, tensor.NewDims(sym, s.nvs)).Fold())
	s.computeAndInsertG(sym)
	return nil
}

// PerformStep recovers every g-block of the given total order, in the
// dependency order korder.hh's performStep establishes: pure y* first
// (recover_y, since every other family at this order may need it), then
// the mixed y*/u blocks, then the y*/σ and y*/u/σ families from the
// highest u-power down, then the pure-u/σ family, and finally the pure-σ
// block. order must be exactly one more than the highest order already
// recovered.
func (s *Solver) PerformStep(order int) error {
	if order != s.maxOrder+1 {
		return &PreconditionError{Msg: "PerformStep must be called with consecutive orders starting at 2"}
	}
	start := time.Now()

	if err := s.recoverY(order); err != nil {
		return err
	}
	for i := 0; i < order; i++ {
		if err := s.recoverYU(i, order-i); err != nil {
			return err
		}
	}
	for j := 1; j < order; j++ {
		for i := j - 1; i >= 1; i-- {
			if err := s.recoverYUS(order-j, i, j-i); err != nil {
				return err
			}
		}
		if err := s.recoverYS(order-j, j); err != nil {
			return err
		}
	}
	for i := order - 1; i >= 1; i-- {
		if err := s.recoverYUS(0, i, order-i); err != nil {
			return err
		}
	}
	if err := s.recoverS(order); err != nil {
		return err
	}

	s.maxOrder = order
	if s.journal != nil {
		res := s.checkInternal(order)
		s.journal.Record(order, "performStep", res, time.Since(start))
	}
	return nil
}

// Solve runs PerformStep for every order from 2 up to order.
func (s *Solver) Solve(order int) error {
	for o := 2; o <= order; o++ {
		if err := s.PerformStep(o); err != nil {
			return err
		}
	}
	return nil
}

// Check returns the largest absolute residual of the dynamic system's
// equations, evaluated at every (y^i u^j), (y^i u^j σ^k + D + E), and
// (σ^dim + D + E) family summing to exactly dim (korder.hh's check): a
// diagnostic of how well the just-recovered order dim satisfies the model,
// not a precondition for continuing to higher orders.
func (s *Solver) Check(dim int) (float64, error) {
	if dim > s.maxOrder {
		return 0, &PreconditionError{Msg: "Check: dim exceeds the highest order solved so far"}
	}
	return s.checkInternal(dim), nil
}

func (s *Solver) checkInternal(dim int) float64 {
	maxErr := 0.0
	upd := func(e float64) {
		if e > maxErr {
			maxErr = e
		}
	}

	for i := 0; i <= dim; i++ {
		upd(maxAbs(s.faaDiBrunoZ(sym4(dim-i, i, 0, 0))))
	}
	for total := 0; total <= dim; total++ {
		k := dim - total
		if k == 0 {
			continue
		}
		for i := 0; i <= total; i++ {
			j := total - i
			if i+j == 0 {
				continue
			}
			r := s.faaDiBrunoZ(sym4(i, j, 0, k))
			addBroadcastSigma(r, s.calcDijk(i, j, k))
			addBroadcastSigma(r, s.calcEijk(i, j, k))
			upd(maxAbs(r))
		}
	}
	if dim > 0 {
		r := s.faaDiBrunoZ(sym4(0, 0, 0, dim))
		addBroadcastSigma(r, s.calcDijk(0, 0, dim))
		addBroadcastSigma(r, s.calcEijk(0, 0, dim))
		upd(maxAbs(r))
	}
	return maxErr
}

// G returns the solved decision-rule container: symmetries (i,j,0,k) hold
// g_{y^i u^j σ^k}.
func (s *Solver) G() *tcontainer.Folded { return s.g }

// MaxOrder returns the highest order recovered so far.
func (s *Solver) MaxOrder() int { return s.maxOrder }

// Part returns the solver's state-variable partition.
func (s *Solver) Part() PartitionY { return s.part }

// NU returns the number of exogenous shocks u.
func (s *Solver) NU() int { return s.nu }

// InsertG replaces g's block at sym with full, the same primitive Solve
// uses internally to record a freshly recovered order — exported so
// korderstoch can splice a recentered g container back in after
// Centralize's final Taylor shift.
func (s *Solver) InsertG(sym symmetry.Sym, full *tensor.Folded) {
	s.insertGBlock(sym, full)
}
