// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tensor

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Folded is a tensor stored with one column per equivalence class under its
// symmetry (a "folded general symmetry tensor", FGS/FFS in the source
// material).
type Folded struct {
	dims Dims
	rows int
	data *mat.Dense // rows x FoldedCols
}

// Unfolded is a tensor stored with one column per raw multi-index (a
// "UGS/UFS" tensor): cheaper to multiply, more memory.
type Unfolded struct {
	dims Dims
	rows int
	data *mat.Dense // rows x UnfoldedCols
}

// NewFolded allocates a zero Folded tensor of r rows and the given
// dimensions.
func NewFolded(r int, d Dims) *Folded {
	return &Folded{dims: d, rows: r, data: mat.NewDense(r, d.FoldedCols(), nil)}
}

// NewUnfolded allocates a zero Unfolded tensor of r rows and the given
// dimensions.
func NewUnfolded(r int, d Dims) *Unfolded {
	return &Unfolded{dims: d, rows: r, data: mat.NewDense(r, d.UnfoldedCols(), nil)}
}

// Dims returns the tensor's dimensions.
func (t *Folded) Dims() Dims { return t.dims }

// Dims returns the tensor's dimensions.
func (t *Unfolded) Dims() Dims { return t.dims }

// Rows returns the number of rows ("r" — typically ny, the number of
// endogenous variables).
func (t *Folded) Rows() int { return t.rows }

// Rows returns the number of rows.
func (t *Unfolded) Rows() int { return t.rows }

// Cols returns the number of folded columns.
func (t *Folded) Cols() int { return t.data.RawMatrix().Cols }

// Cols returns the number of unfolded (raw) columns.
func (t *Unfolded) Cols() int { return t.data.RawMatrix().Cols }

// Col returns the r-vector stored at canonical multi-index v (v must be
// non-decreasing within each symmetry group).
func (t *Folded) Col(v []int) []float64 {
	off := t.dims.FoldOffset(v)
	return t.colAt(off)
}

func (t *Folded) colAt(off int) []float64 {
	col := make([]float64, t.rows)
	mat.Col(col, off, t.data)
	return col
}

// ColAt returns the column stored at raw folded offset off directly
// (bypassing multi-index translation); used by callers that already
// enumerate offsets via Dims.IncrementFolded.
func (t *Folded) ColAt(off int) []float64 { return t.colAt(off) }

// SetCol stores col (length Rows()) at canonical multi-index v.
func (t *Folded) SetCol(v []int, col []float64) {
	t.SetColAt(t.dims.FoldOffset(v), col)
}

// SetColAt stores col directly at folded offset off.
func (t *Folded) SetColAt(off int, col []float64) {
	if len(col) != t.rows {
		panic("tensor: column length mismatch")
	}
	t.data.SetCol(off, col)
}

// AddColAt adds col into the column at folded offset off.
func (t *Folded) AddColAt(off int, col []float64) {
	if len(col) != t.rows {
		panic("tensor: column length mismatch")
	}
	cur := t.colAt(off)
	floats.Add(cur, col)
	t.data.SetCol(off, cur)
}

// Col returns the r-vector stored at raw multi-index v.
func (t *Unfolded) Col(v []int) []float64 {
	off := t.dims.UnfoldOffset(v)
	return t.colAt(off)
}

func (t *Unfolded) colAt(off int) []float64 {
	col := make([]float64, t.rows)
	mat.Col(col, off, t.data)
	return col
}

// ColAt returns the column at raw offset off directly.
func (t *Unfolded) ColAt(off int) []float64 { return t.colAt(off) }

// SetCol stores col at raw multi-index v.
func (t *Unfolded) SetCol(v []int, col []float64) {
	t.SetColAt(t.dims.UnfoldOffset(v), col)
}

// SetColAt stores col directly at raw offset off.
func (t *Unfolded) SetColAt(off int, col []float64) {
	if len(col) != t.rows {
		panic("tensor: column length mismatch")
	}
	t.data.SetCol(off, col)
}

// AddColAt adds col into the column at raw offset off.
func (t *Unfolded) AddColAt(off int, col []float64) {
	if len(col) != t.rows {
		panic("tensor: column length mismatch")
	}
	cur := t.colAt(off)
	floats.Add(cur, col)
	t.data.SetCol(off, cur)
}

// Unfold returns a newly allocated Unfolded copy: the value at each raw
// column equals the folded column of its canonical representative
// (broadcast, no rescaling).
func (t *Folded) Unfold() *Unfolded {
	out := NewUnfolded(t.rows, t.dims)
	v := make([]int, t.dims.Dimen())
	for {
		canon, _ := t.dims.Canonicalize(v)
		col := t.Col(canon)
		out.SetCol(v, col)
		if t.dims.IncrementUnfolded(v) {
			break
		}
	}
	return out
}

// Fold returns a newly allocated Folded copy: each folded column is the
// average over all raw columns sharing its canonical representative
// (the inverse of Unfold's broadcast; see Dims.Canonicalize).
func (t *Unfolded) Fold() *Folded {
	out := NewFolded(t.rows, t.dims)
	sums := make(map[int][]float64)
	counts := make(map[int]int)
	v := make([]int, t.dims.Dimen())
	for {
		canonV, _ := t.dims.Canonicalize(v)
		off := t.dims.FoldOffset(canonV)
		col := t.Col(v)
		if sums[off] == nil {
			sums[off] = make([]float64, t.rows)
		}
		floats.Add(sums[off], col)
		counts[off]++
		if t.dims.IncrementUnfolded(v) {
			break
		}
	}
	for off, s := range sums {
		avg := make([]float64, t.rows)
		floats.AddScaled(avg, 1/float64(counts[off]), s)
		out.SetColAt(off, avg)
	}
	return out
}

// ContractAndAdd contracts group g of t against the matching length-Nvs[g]
// column vector c (e.g. a slice of a moments or stack-realization vector)
// and adds the resulting (dimen - symGroupSize(g))-order tensor into out.
// This implements "contractAndAdd(dim, out, c)" from the system overview
// (§4.S): used to contract E_t against normal moments, reducing a group of
// indices to a scalar weight per surviving multi-index.
func (t *Unfolded) ContractAndAdd(g int, out *Unfolded, c []float64) {
	if g < 0 || g >= len(t.dims.Sym) {
		panic("tensor: group index out of range")
	}
	if len(c) != t.dims.Nvs[g] {
		panic("tensor: contraction vector length mismatch")
	}
	slices := t.dims.groupSlices()
	sl := slices[g]
	width := sl[1] - sl[0]
	v := make([]int, t.dims.Dimen())
	outIdx := make([]int, 0, t.dims.Dimen()-width)
	for {
		col := t.Col(v)
		w := v[sl[0]:sl[1]]
		weight := 1.0
		for _, x := range w {
			weight *= c[x]
		}
		if weight != 0 {
			outIdx = outIdx[:0]
			outIdx = append(outIdx, v[:sl[0]]...)
			outIdx = append(outIdx, v[sl[1]:]...)
			cur := out.Col(outIdx)
			floats.AddScaled(cur, weight, col)
			out.SetCol(outIdx, cur)
		}
		if t.dims.IncrementUnfolded(v) {
			break
		}
	}
}

// ContractTailAndAdd contracts the last m raw positions of symmetry group g
// against a rows==1, dimen==m moment tensor (as produced by package
// moments), adding the resulting (dimen-m)-order tensor into out. This
// generalizes ContractAndAdd from a single-index vector contraction to a
// whole-tensor contraction, used by the k-order solver to integrate out m
// repeated occurrences of a shock group against its m-th raw moment (e.g.
// D_{ijk}/E_{ijk}'s future-shock correction terms).
func (t *Unfolded) ContractTailAndAdd(g, m int, out *Unfolded, moment *Unfolded) {
	lo, hi := t.dims.GroupRange(g)
	width := hi - lo
	if m < 0 || m > width {
		panic("tensor: contraction tail width out of range")
	}
	if moment.Dims().Dimen() != m {
		panic("tensor: moment tensor order mismatch")
	}
	v := make([]int, t.dims.Dimen())
	outIdx := make([]int, 0, t.dims.Dimen()-m)
	for {
		mval := 1.0
		if m > 0 {
			mval = moment.Col(v[hi-m : hi])[0]
		}
		if mval != 0 {
			col := t.Col(v)
			outIdx = outIdx[:0]
			outIdx = append(outIdx, v[:hi-m]...)
			outIdx = append(outIdx, v[hi:]...)
			cur := out.Col(outIdx)
			floats.AddScaled(cur, mval, col)
			out.SetCol(outIdx, cur)
		}
		if t.dims.IncrementUnfolded(v) {
			break
		}
	}
}
