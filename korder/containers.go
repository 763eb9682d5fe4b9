// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korder

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/faadibruno"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// The solver's every container shares one symmetry convention: four
// groups (y*, u, u', σ) over per-group variable counts [nys, nu, nu, 1].
// g, gs and gss only ever populate entries whose u' count is zero — g
// itself never depends on the next-period shock — but keying them the
// same way as G (which genuinely does, while it is still an intermediate
// quantity) lets every container share one lookup convention and lets a
// Matrix stack member fall back to the zero tensor for a symmetry it
// simply never populates (kron.Stack.Column), rather than needing a
// separate case per container shape.
const (
	groupYStar  = 0
	groupU      = 1
	groupUPrime = 2
	groupSigma  = 3
)

func sym4(i, j, m, k int) symmetry.Sym { return symmetry.New(i, j, m, k) }

// sliceRows returns the sub-tensor of t's rows [lo,hi), keeping t's
// dimensions unchanged — used to derive gs (g restricted to the y* output
// rows) and gss (g restricted to the y** output rows) from a freshly
// solved g block, mirroring the Ttensor(rowOffset, rows, der) constructor
// used throughout korder.hh's insertDerivative.
func sliceRows(t *tensor.Folded, lo, hi int) *tensor.Folded {
	d := t.Dims()
	out := tensor.NewFolded(hi-lo, d)
	v := make([]int, d.Dimen())
	for {
		col := t.Col(v)
		out.SetCol(v, append([]float64(nil), col[lo:hi]...))
		if d.IncrementFolded(v) {
			break
		}
	}
	return out
}

// denseToFoldedOrder1 wraps a dense ny x width first-order derivative
// matrix (g_y or g_u, supplied directly by the external first-order
// solver) as a Folded tensor over the shared 4-group symmetry, with all
// its weight in the named group.
func denseToFoldedOrder1(m *mat.Dense, nvs []int, group int) *tensor.Folded {
	rows, width := m.Dims()
	counts := make([]int, len(nvs))
	counts[group] = 1
	d := tensor.NewDims(symmetry.New(counts...), nvs)
	out := tensor.NewFolded(rows, d)
	col := make([]float64, rows)
	for x := 0; x < width; x++ {
		mat.Col(col, x, m)
		out.SetCol([]int{x}, append([]float64(nil), col...))
	}
	return out
}

// foldedOrder1ToDense is the inverse of denseToFoldedOrder1: it reads a
// single-group, first-order Folded tensor back out as a plain dense
// matrix, used to pull gs_y and gss_y out of their containers for the
// pre-factored A/S/B matrices and the Sylvester equation's C operand.
func foldedOrder1ToDense(t *tensor.Folded, rows, width int) *mat.Dense {
	out := mat.NewDense(rows, width, nil)
	for x := 0; x < width; x++ {
		out.SetCol(x, t.Col([]int{x}))
	}
	return out
}

// unfoldedToDense reads an entire Unfolded tensor out as a dense matrix in
// raw (mixed-radix) column order — the layout package sylvester expects
// for its right-hand side, and the layout the Sylvester solution comes
// back in.
func unfoldedToDense(t *tensor.Unfolded) *mat.Dense {
	out := mat.NewDense(t.Rows(), t.Cols(), nil)
	for c := 0; c < t.Cols(); c++ {
		out.SetCol(c, t.ColAt(c))
	}
	return out
}

// denseToUnfolded is unfoldedToDense's inverse, used to wrap a Sylvester
// or plain linear solve's solution back up as an Unfolded tensor before
// folding it for storage.
func denseToUnfolded(x *mat.Dense, d tensor.Dims) *tensor.Unfolded {
	rows, cols := x.Dims()
	out := tensor.NewUnfolded(rows, d)
	col := make([]float64, rows)
	for c := 0; c < cols; c++ {
		mat.Col(col, c, x)
		out.SetColAt(c, append([]float64(nil), col...))
	}
	return out
}

// addBroadcastSigma adds corr (dims over (i,j,0,0), i.e. no σ-power) into
// rhs (dims over (i,j,0,k) for the same i,j) in place. Because σ has
// exactly one admissible value, a group of any σ-power contributes a
// storage factor of exactly 1 regardless of its width — FoldedCols and
// UnfoldedCols, and every offset into them, are identical whether the
// trailing σ-group has width 0 or k. corr and rhs are therefore the same
// shape in memory, and the correction can be added by raw column offset
// without re-deriving per-group multi-indices.
func addBroadcastSigma(rhs, corr *tensor.Unfolded) {
	n := corr.Cols()
	if rhs.Cols() != n {
		panic("korder: sigma-broadcast column count mismatch")
	}
	for off := 0; off < n; off++ {
		col := rhs.ColAt(off)
		cc := corr.ColAt(off)
		for i := range col {
			col[i] += cc[i]
		}
		rhs.SetColAt(off, col)
	}
}

// containerToSparseDerivs flattens a dense, general-symmetry derivative
// container into the faadibruno.SparseDerivs shape an Engine composition
// expects as its outer function: for every order l present (summed across
// every symmetry of that total order, since several distinct (i,j,m,k)
// splits can all contribute to the same l), the container's entries are
// remapped onto the flat z-row numbering of the stack they are about to
// be composed through. This is the bridge named in DESIGN.md for reusing
// one sparse-outer composition engine for both f (genuinely sparse) and
// gss (a dense container reused as the outer of faaDiBrunoG).
func containerToSparseDerivs(c *tcontainer.Folded, nvarTotal int, groupOffsets []int) faadibruno.SparseDerivs {
	out := faadibruno.SparseDerivs{}
	for _, s := range c.Symmetries() {
		l := s.Dimen()
		if l == 0 {
			continue
		}
		sp := c.Get(s).ToSparse(nvarTotal, groupOffsets)
		if existing, ok := out[l]; ok {
			for _, e := range sp.Entries {
				existing.Add(e.Row, e.Key, e.Value)
			}
		} else {
			out[l] = sp
		}
	}
	return out
}

// maxAbs returns the largest absolute entry of t, used by Check to reduce
// a residual tensor to the single diagnostic number spec.md §4.O calls
// for.
func maxAbs(t *tensor.Unfolded) float64 {
	d := t.Dims()
	v := make([]int, d.Dimen())
	max := 0.0
	for {
		for _, x := range t.Col(v) {
			if a := math.Abs(x); a > max {
				max = a
			}
		}
		if d.IncrementUnfolded(v) {
			break
		}
	}
	return max
}
