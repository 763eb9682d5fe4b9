// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korder

import (
	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/tensor"
)

// stackOffsets returns the cumulative boundaries of the dynamic system's
// own stacked argument z = [y**_{t+1}; y_t; y*_{t-1}; u_t], matching
// spec.md §6's "exact layout" for f_{z^l}.
func stackOffsets(part PartitionY, nu int) []int {
	nyss, ny, nys := part.NYSS(), part.NY(), part.NYS()
	return []int{0, nyss, nyss + ny, nyss + ny + nys, nyss + ny + nys + nu}
}

// firstOrderBlock extracts the dense n x (hi-lo) sub-matrix of a
// first-order (dimen==1) sparse tensor corresponding to stacked-argument
// columns [lo,hi).
func firstOrderBlock(f *tensor.Sparse, n, lo, hi int) *mat.Dense {
	if f.Dimen != 1 {
		panic("korder: firstOrderBlock requires a first-order sparse tensor")
	}
	out := mat.NewDense(n, hi-lo, nil)
	for _, e := range f.Entries {
		k := e.Key[0]
		if k >= lo && k < hi {
			out.Set(e.Row, k-lo, e.Value)
		}
	}
	return out
}

// addBlock adds src (rows x cols) into dst's rows [0,rows) and columns
// [colOff, colOff+cols).
func addBlock(dst *mat.Dense, src mat.Matrix, colOff int) {
	rows, cols := src.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := src.At(i, j)
			if v != 0 {
				dst.Set(i, colOff+j, dst.At(i, colOff+j)+v)
			}
		}
	}
}

// buildMatrixB returns B = [f_{y**_+}], the ny x nyss block of the first
// derivative of f with respect to the forward y** argument (MatrixB in
// korder.hh).
func buildMatrixB(f *tensor.Sparse, part PartitionY) *mat.Dense {
	ny, nyss := part.NY(), part.NYSS()
	return firstOrderBlock(f, ny, 0, nyss)
}

// buildMatrixA returns
//
//	A = [f_y] + [0, [f_{y**_+}]·[g**_{y*}], 0]
//
// (MatrixA in korder.hh): f_y is f's own derivative with respect to the
// contemporaneous y block; the correction term adds f_{y**_+}·gyss into
// A's middle nys columns (the y* = [predetermined;both] sub-block of y),
// where gyss is g**'s first derivative with respect to y* (an nyss x nys
// matrix: g restricted to output rows [both;forward] and all its columns,
// since g's domain already is y*).
func buildMatrixA(f *tensor.Sparse, part PartitionY, gyss *mat.Dense) *mat.Dense {
	ny, nyss, nys := part.NY(), part.NYSS(), part.NYS()
	a := firstOrderBlock(f, ny, nyss, nyss+ny)
	if nyss > 0 && nys > 0 {
		fyp := firstOrderBlock(f, ny, 0, nyss)
		var prod mat.Dense
		prod.Mul(fyp, gyss)
		addBlock(a, &prod, part.NStat)
	}
	return a
}

// embedMatrixB expands B = [f_{y**_+}] (ny x nyss) into a square ny x ny
// matrix with B's columns placed at the y**-output columns of y (the
// [both;forward] sub-block, offset NStat+NPred), zero elsewhere. The
// generalized Sylvester equation's B operand must be square (B·X needs
// B's column count to match X's ny rows); embedding it this way makes
// B·X pick out exactly X's y**-output rows, weighted by f_{y**_+}, while
// contributing nothing from X's other rows — equivalent to the thinner
// f_{y**_+}·X_yss product without needing a separate row-sliced solve.
func embedMatrixB(b *mat.Dense, part PartitionY) *mat.Dense {
	ny, nyss := part.NY(), part.NYSS()
	out := mat.NewDense(ny, ny, nil)
	if nyss > 0 {
		addBlock(out, b, part.NStat+part.NPred)
	}
	return out
}

// buildMatrixS returns S = A + [0, 0, f_{y**_+}] (MatrixS in korder.hh):
// A plus f_{y**_+} added directly into the last nforw columns of A (the
// forward sub-block of y), needed because recover_s solves for pure-σ
// derivatives where the forward-looking term is not yet routed through a
// higher-order g.
func buildMatrixS(f *tensor.Sparse, part PartitionY, gyss *mat.Dense) *mat.Dense {
	s := mat.DenseCopyOf(buildMatrixA(f, part, gyss))
	nyss, ny, nforw := part.NYSS(), part.NY(), part.NForw
	if nyss > 0 && nforw > 0 {
		fyp := firstOrderBlock(f, ny, 0, nyss)
		addBlock(s, fyp, ny-nforw)
	}
	return s
}

// plu is a square matrix together with its PLU factorization, used to
// apply A^{-1} (or S^{-1}) to many right-hand sides without refactoring
// (PLUMatrix in korder.hh).
type plu struct {
	m  *mat.Dense
	lu mat.LU
}

func newPLU(m *mat.Dense) *plu {
	p := &plu{m: m}
	p.lu.Factorize(m)
	return p
}

// solveInto solves m·X = rhs and returns X, reporting a *SylvesterError
// (order 1, the degenerate A/S-inverse "Sylvester" case) on singularity.
func (p *plu) solveInto(rhs *mat.Dense, phase string) (*mat.Dense, error) {
	var x mat.Dense
	if err := p.lu.SolveTo(&x, false, rhs); err != nil {
		return nil, &SylvesterError{Order: 1, Phase: phase, Err: err}
	}
	return &x, nil
}
