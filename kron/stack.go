// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kron

import (
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
)

// MemberKind classifies how a stacked member z_i contributes at a given
// symmetry: Matrix means a real derivative tensor is present, Zero means
// the whole Kronecker term vanishes, and Unit means the member behaves
// like an identity slice (1 at one designated coordinate, 0 elsewhere) —
// used for stack members that are themselves one of the underlying
// variables (e.g. the "y" slot of the stacked argument [y**;y;y*;u]).
type MemberKind int

const (
	Matrix MemberKind = iota
	Zero
	Unit
)

// Member is one block z_i of a stacked argument z = [z_1;...;z_n].
type Member struct {
	Rows   int
	Kind   MemberKind
	Derivs *tcontainer.Folded // valid when Kind == Matrix
	// Group is, for Kind == Unit, the index of the target symmetry's own
	// group that this raw coordinate belongs to (e.g. the y* group versus
	// the u group of a (y*,u,σ) target domain). A class assigned to a Unit
	// member is non-zero only when it is a singleton drawn from this exact
	// group — a raw coordinate's derivative with respect to any other
	// group's variable, or with respect to more than one variable, is
	// identically zero.
	Group int
}

// Stack represents the stacked argument of the outer function together
// with enough information to reconstruct, for any requested symmetry and
// equivalence-class induced sub-symmetry, the column of each member's
// derivative tensor that the Faà di Bruno composition needs.
type Stack struct {
	Members []Member
}

// TotalRows returns Σ Rows over all members — the dimension of the
// stacked argument z.
func (s *Stack) TotalRows() int {
	n := 0
	for _, m := range s.Members {
		n += m.Rows
	}
	return n
}

// RowOffsets returns the cumulative row boundaries of each member.
func (s *Stack) RowOffsets() []int {
	offs := make([]int, len(s.Members)+1)
	for i, m := range s.Members {
		offs[i+1] = offs[i] + m.Rows
	}
	return offs
}

// ClassifyAt reports which block a flattened z-row index falls in.
func (s *Stack) ClassifyAt(row int) int {
	offs := s.RowOffsets()
	for b := 0; b < len(s.Members); b++ {
		if row >= offs[b] && row < offs[b+1] {
			return b
		}
	}
	panic("kron: row index out of range")
}

// Column returns the Rows(i)-length column vector contributed by member i
// at the given induced symmetry and canonical (per-member) multi-index.
// Zero members return an all-zero vector (the caller can detect them in
// advance via Member.Kind to skip the term entirely). A Unit member
// represents a raw (non-composed) sub-vector — z_i is literally one of
// the stacked function's own input blocks, e.g. y*_{t-1} or u_t appearing
// directly as an f argument — so its derivative is the identity injection:
// at first order, and only when the single class index was itself drawn
// from this member's own Group, the column is e_{v[0]}, the standard basis
// vector for whichever of its own Rows coordinates the class picked. Any
// higher order, or a class index drawn from a different group (a raw
// coordinate does not depend on any other variable), is identically zero.
func (s *Stack) Column(i int, sym symmetry.Sym, v []int) []float64 {
	m := s.Members[i]
	switch m.Kind {
	case Zero:
		return make([]float64, m.Rows)
	case Unit:
		col := make([]float64, m.Rows)
		if sym.Dimen() == 1 && sym[m.Group] == 1 {
			col[v[0]] = 1
		}
		return col
	default:
		// A symmetry not yet present in a Matrix member's container is
		// treated as the zero tensor rather than an error: composition is
		// always run conditionally on the container's current contents
		// (some blocks, e.g. g's dependence on the "future shock" group,
		// are identically zero and simply never get inserted).
		if !m.Derivs.Check(sym) {
			return make([]float64, m.Rows)
		}
		return m.Derivs.Get(sym).Col(v)
	}
}

// AnyZero reports whether any member's Kind is Zero, meaning the whole Kronecker term is the zero tensor
// and the expensive column/product construction can be skipped.
func (s *Stack) AnyZero() bool {
	for _, m := range s.Members {
		if m.Kind == Zero {
			return true
		}
	}
	return false
}
