// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korder

import (
	"github.com/quantgo/korder/faadibruno"
	"github.com/quantgo/korder/kron"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tensor"
)

// buildZstack returns the stack for z = [y**_{t+1}; y_t; y*_{t-1}; u_t]
// (korder.hh's Zstack): the two composed members route through G and g
// themselves, and the two raw members inject y*_{t-1} and u_t directly as
// identity slices of the target's own y* and u groups.
func (s *Solver) buildZstack() *kron.Stack {
	return &kron.Stack{Members: []kron.Member{
		{Rows: s.part.NYSS(), Kind: kron.Matrix, Derivs: s.bigG},
		{Rows: s.part.NY(), Kind: kron.Matrix, Derivs: s.g},
		{Rows: s.part.NYS(), Kind: kron.Unit, Group: groupYStar},
		{Rows: s.nu, Kind: kron.Unit, Group: groupU},
	}}
}

// buildGstack returns the stack used to compose gss (g restricted to its
// y** output rows) one step ahead into G (korder.hh's Gstack): gss's own
// domain is (y*_t, u', σ), time-invariantly the same formula as g's
// (y*_{t-1}, u_t, σ) — so the first member routes through gs (g* composed
// with the previous period's y*_{t-1} and u_t) exactly as Zstack's "y"
// member does, and the remaining two members inject u' and σ as raw
// identity slices of the target's u'- and σ-groups.
func (s *Solver) buildGstack() *kron.Stack {
	return &kron.Stack{Members: []kron.Member{
		{Rows: s.part.NYS(), Kind: kron.Matrix, Derivs: s.gs},
		{Rows: s.nu, Kind: kron.Unit, Group: groupUPrime},
		{Rows: 1, Kind: kron.Unit, Group: groupSigma},
	}}
}

// faaDiBrunoZ composes f (a genuinely sparse outer function) through
// Zstack at the given target symmetry, returning F∘z's derivative tensor
// (korder.hh's faaDiBrunoZ).
func (s *Solver) faaDiBrunoZ(sym symmetry.Sym) *tensor.Unfolded {
	target := tensor.NewDims(sym, s.nvs)
	eng := &faadibruno.Engine{Stack: s.buildZstack(), MaxParallel: s.maxParallel}
	return eng.ComputeSparse(s.f, s.part.NY(), target)
}

// faaDiBrunoG composes gss (a dense, general-symmetry container reused as
// the outer function) through Gstack at the given target symmetry,
// returning G's derivative tensor at that symmetry (korder.hh's
// faaDiBrunoG). gss's own three active groups (y*, u, σ — its u'-count is
// always zero) are remapped onto Gstack's row layout [gs | u'-raw |
// σ-raw]: gss's y*-group feeds the gs member (offset 0), gss's u-group is
// fed Gstack's raw u' values (offset nys, since gss's formula is evaluated
// one period ahead with u' standing in for u), and gss's σ-group feeds the
// raw σ member (offset nys+nu). gss's u'-group never has any weight, so
// its own offset is never used.
func (s *Solver) faaDiBrunoG(sym symmetry.Sym) *tensor.Unfolded {
	target := tensor.NewDims(sym, s.nvs)
	nys := s.part.NYS()
	groupOffsets := []int{0, nys, 0, nys + s.nu}
	outer := containerToSparseDerivs(s.gss, nys+s.nu+1, groupOffsets)
	eng := &faadibruno.Engine{Stack: s.buildGstack(), MaxParallel: s.maxParallel}
	return eng.ComputeSparse(outer, s.part.NYSS(), target)
}

// computeAndInsertG computes G at sym via faaDiBrunoG and (re)inserts it,
// overwriting any previous entry. Dynare++'s own korder.hh computes each
// G-block once, conditionally, and then patches in the two terms that were
// still circularly missing at that point (the new block's own l=1 and l=i
// Faà di Bruno terms) via a bespoke incremental update. This solver instead
// always recomputes G fully, after every new g-block has been inserted
// into gss — mathematically equivalent (the "conditional" convention
// already treats an absent entry as zero, so a block computed before its
// own g exists is just an earlier, incomplete snapshot) and simpler to
// follow, at the cost of redoing a full Faà di Bruno pass per symmetry
// instead of patching two extra terms. See DESIGN.md.
func (s *Solver) computeAndInsertG(sym symmetry.Sym) {
	if sym.Dimen() == 0 {
		return
	}
	s.bigG.Insert(sym, s.faaDiBrunoG(sym).Fold())
}
