// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decisionrule implements the final policy-rule type ("D" in the
// system overview): a Taylor polynomial over the combined state s =
// (y*_{t-1} - ȳ*; u_t; σ), evaluated either by a true Horner recursion or
// by direct Kronecker-power summation, plus simulation and the
// unconditional covariance diagnostic. Grounded on the DecisionRule
// section of kord/korder.hh and dynare_simul.cc.
package decisionrule

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantgo/korder/korder"
	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tcontainer"
	"github.com/quantgo/korder/tensor"
)

// DecisionRule is a polynomial over the combined state s = (y*-ȳ*; u; σ),
// one Folded tensor per total order l over a single width-(nys+nu+1) group,
// holding g's order-l derivatives divided by l! (the Taylor coefficients)
// (as opposed to korder's internal (y*,u,u',σ) 4-group containers, which
// split by which derivative family produced each block — that split is
// irrelevant once g is solved and only its values at a given order matter).
type DecisionRule struct {
	byOrder  map[int]*tensor.Folded
	ny       int
	nys      int
	nu       int
	ybar     []float64 // length ny, the steady state the rule is centred on
	maxOrder int
}

// width returns nys+nu+1, the combined domain size.
func (dr *DecisionRule) width() int { return dr.nys + dr.nu + 1 }

// FromSolverG builds a DecisionRule from a solved korder.Solver's g
// container: every (i,j,0,k) block (u'-count is always zero in g) is
// flattened onto the single combined group this package evaluates
// against. ybar is the full-length (ny) steady state; part and nu
// describe the same partition and shock count the solver was built with.
func FromSolverG(g *tcontainer.Folded, part korder.PartitionY, nu int, ybar []float64, maxOrder int) *DecisionRule {
	nys, ny := part.NYS(), part.NY()
	if len(ybar) != ny {
		panic("decisionrule: ybar must have length ny")
	}
	dr := &DecisionRule{
		byOrder:  map[int]*tensor.Folded{},
		ny:       ny,
		nys:      nys,
		nu:       nu,
		ybar:     append([]float64(nil), ybar...),
		maxOrder: maxOrder,
	}
	for _, sym := range g.Symmetries() {
		dr.insertFromG(sym, g.Get(sym))
	}
	return dr
}

// insertFromG folds one (i,j,0,k) block of g into the combined-domain
// representation, remapping each canonical class's y*-group indices
// (unchanged), u-group indices (offset by nys), and σ-group occurrences
// (offset by nys+nu) onto the single flat width-(nys+nu+1) group, and
// scaling every entry by 1/l! so the stored tensor is the Taylor
// coefficient of order l.
func (dr *DecisionRule) insertFromG(sym symmetry.Sym, ft *tensor.Folded) {
	l := sym.Dimen()
	if l == 0 {
		dr.byOrder[0] = ft
		return
	}
	scale := 1.0
	for f := 2; f <= l; f++ {
		scale /= float64(f)
	}
	d := ft.Dims()
	comb := dr.byOrder[l]
	if comb == nil {
		comb = tensor.NewFolded(ft.Rows(), tensor.NewDims(symmetry.New(l), []int{dr.width()}))
		dr.byOrder[l] = comb
	}
	yLo, yHi := d.GroupRange(0)
	uLo, uHi := d.GroupRange(1)
	sLo, sHi := d.GroupRange(3)
	v := make([]int, d.Dimen())
	global := make([]int, 0, l)
	for {
		col := ft.Col(v)
		global = global[:0]
		global = append(global, v[yLo:yHi]...)
		for _, idx := range v[uLo:uHi] {
			global = append(global, idx+dr.nys)
		}
		for range v[sLo:sHi] {
			global = append(global, dr.nys+dr.nu)
		}
		scaled := make([]float64, len(col))
		for r, x := range col {
			scaled[r] = x * scale
		}
		comb.SetCol(global, scaled)
		if d.IncrementFolded(v) {
			break
		}
	}
}

// combinedState returns (y*-ȳ*; u; σ), the single flat vector every order's
// tensor is evaluated against.
func (dr *DecisionRule) combinedState(ystar, u []float64, sigma float64) []float64 {
	if len(ystar) != dr.nys || len(u) != dr.nu {
		panic("decisionrule: ystar/u length mismatch")
	}
	s := make([]float64, dr.width())
	copy(s, ystar)
	copy(s[dr.nys:], u)
	s[dr.nys+dr.nu] = sigma
	return s
}

// EvalDirect computes Δy = Σ_l T_l · s^{⊗l}, T_l being the stored order-l
// Taylor coefficient tensor, by summing, for every stored order, the
// tensor's unfolded entries weighted by the product of the
// matching s-components (the Kronecker-power contraction made explicit,
// without ever materializing s^{⊗l}).
func (dr *DecisionRule) EvalDirect(ystar, u []float64, sigma float64) []float64 {
	s := dr.combinedState(ystar, u, sigma)
	res := make([]float64, dr.ny)
	if c, ok := dr.byOrder[0]; ok {
		floats.Add(res, c.Col(nil))
	}
	for l := 1; l <= dr.maxOrder; l++ {
		c, ok := dr.byOrder[l]
		if !ok {
			continue
		}
		uf := c.Unfold()
		d := uf.Dims()
		v := make([]int, l)
		for {
			w := 1.0
			for _, idx := range v {
				w *= s[idx]
			}
			if w != 0 {
				floats.AddScaled(res, w, uf.Col(v))
			}
			if d.IncrementUnfolded(v) {
				break
			}
		}
	}
	return res
}

// EvalHorner computes the same value via a true Horner recursion: the
// highest stored order's tensor is contracted one trailing s-index at a
// time (tensor.Unfolded.ContractTailAndAdd with a synthetic dimen-1
// "moment" whose value at index i is literally s[i]), adding in the next
// lower order's own tensor before each further contraction — "build the
// innermost contracted tensor ...; add the next-lower-order tensor;
// repeat" (spec.md §4.D).
func (dr *DecisionRule) EvalHorner(ystar, u []float64, sigma float64) []float64 {
	s := dr.combinedState(ystar, u, sigma)
	sTensor := tensor.NewUnfolded(1, tensor.NewDims(symmetry.New(1), []int{dr.width()}))
	for i, x := range s {
		sTensor.SetCol([]int{i}, []float64{x})
	}

	acc := dr.orderTensor(dr.maxOrder)
	for p := dr.maxOrder; p >= 1; p-- {
		next := tensor.NewUnfolded(dr.ny, tensor.NewDims(symmetry.New(p-1), []int{dr.width()}))
		acc.ContractTailAndAdd(0, 1, next, sTensor)
		acc = next
		if p-1 >= 1 {
			if c, ok := dr.byOrder[p-1]; ok {
				addUnfolded(acc, c.Unfold())
			}
		}
	}
	res := append([]float64(nil), acc.Col(nil)...)
	if c, ok := dr.byOrder[0]; ok {
		floats.Add(res, c.Col(nil))
	}
	return res
}

// orderTensor returns the stored order-l tensor unfolded, or the zero
// tensor of that order if none was ever inserted (an order with no
// surviving symmetry, e.g. an odd σ-power at a Gaussian steady state).
func (dr *DecisionRule) orderTensor(l int) *tensor.Unfolded {
	if l == 0 {
		return tensor.NewUnfolded(dr.ny, tensor.NewDims(symmetry.New(0), []int{dr.width()}))
	}
	if c, ok := dr.byOrder[l]; ok {
		return c.Unfold()
	}
	return tensor.NewUnfolded(dr.ny, tensor.NewDims(symmetry.New(l), []int{dr.width()}))
}

func addUnfolded(dst, src *tensor.Unfolded) {
	d := dst.Dims()
	v := make([]int, d.Dimen())
	for {
		floats.Add(dst.Col(v), src.Col(v))
		if d.IncrementUnfolded(v) {
			break
		}
	}
}

// Evaluate returns the full y_t = ȳ + Δy, given the previous period's
// predetermined state y*_{t-1}, the current shock u_t, and σ (the scale
// at which the rule is being evaluated — 1 for the genuine stochastic
// rule, 0 to recover the deterministic skeleton).
func (dr *DecisionRule) Evaluate(ystarPrev []float64, u []float64, sigma float64, horner bool) []float64 {
	ystarBar := dr.ybar[:dr.nys]
	dy := make([]float64, dr.nys)
	copy(dy, ystarPrev)
	floats.Sub(dy, ystarBar)
	var delta []float64
	if horner {
		delta = dr.EvalHorner(dy, u, sigma)
	} else {
		delta = dr.EvalDirect(dy, u, sigma)
	}
	y := append([]float64(nil), dr.ybar...)
	floats.Add(y, delta)
	return y
}

// Steady returns the steady state the rule is centred on.
func (dr *DecisionRule) Steady() []float64 { return append([]float64(nil), dr.ybar...) }

// NY, NYS, NU return the rule's output and argument widths.
func (dr *DecisionRule) NY() int  { return dr.ny }
func (dr *DecisionRule) NYS() int { return dr.nys }
func (dr *DecisionRule) NU() int  { return dr.nu }

// ShockSource draws i.i.d. N(0,Σ) shock vectors via a Cholesky factor L
// (Σ = L·Lᵀ) applied to independent standard normals from a seeded
// source, replacing the original's hand-rolled Mersenne Twister +
// Box-Muller with gonum's distuv.Normal.Rand (gonum's standard-normal
// sampler, not an inverse-CDF draw). distuv.Normal.Src expects a
// golang.org/x/exp/rand.Source (Uint64() uint64 and Seed(uint64));
// randSource below satisfies that shape directly without this module
// needing to import x/exp/rand itself, since it is already a transitive
// dependency of gonum's own distuv package.
type ShockSource struct {
	l    *mat.Cholesky
	nu   int
	draw distuv.Normal
}

// NewShockSource builds a shock source for covariance Σ (nu x nu,
// symmetric positive semi-definite) seeded deterministically from seed.
func NewShockSource(sigma *mat.Dense, seed uint64) (*ShockSource, error) {
	nu, _ := sigma.Dims()
	sym := mat.NewSymDense(nu, nil)
	for i := 0; i < nu; i++ {
		for j := i; j < nu; j++ {
			sym.SetSym(i, j, sigma.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, &korder.PreconditionError{Msg: "shock covariance is not positive semi-definite"}
	}
	src := randSource{state: seed*2862933555777941757 + 3037000493}
	return &ShockSource{
		l:    &chol,
		nu:   nu,
		draw: distuv.Normal{Mu: 0, Sigma: 1, Src: &src},
	}, nil
}

// Next draws one i.i.d. N(0, Σ) shock vector u = L·z, z ~ N(0, I).
func (s *ShockSource) Next() []float64 {
	z := mat.NewVecDense(s.nu, nil)
	for i := 0; i < s.nu; i++ {
		z.SetVec(i, s.draw.Rand())
	}
	var lMat mat.TriDense
	s.l.LTo(&lMat)
	var u mat.VecDense
	u.MulVec(&lMat, z)
	out := make([]float64, s.nu)
	for i := range out {
		out[i] = u.AtVec(i)
	}
	return out
}

// randSource is a small splitmix64-style deterministic source with the
// Uint64/Seed methods distuv.Normal.Src expects, so ShockSource needs no
// PRNG package of its own while remaining reproducible across runs given
// the same simulation.seed configuration knob (spec.md §6).
type randSource struct {
	state uint64
}

// Seed resets the generator's state to seed.
func (r *randSource) Seed(seed uint64) { r.state = seed }

func (r *randSource) Uint64() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Simulate runs the rule forward for n periods starting from y0 (length
// ny), drawing shocks from src and evaluating at σ=1 (the genuine
// stochastic rule). It returns the ny x (n+1) path including y0.
func (dr *DecisionRule) Simulate(y0 []float64, n int, src *ShockSource) *mat.Dense {
	if len(y0) != dr.ny {
		panic("decisionrule: y0 must have length ny")
	}
	out := mat.NewDense(dr.ny, n+1, nil)
	out.SetCol(0, y0)
	ystar := make([]float64, dr.nys)
	for t := 0; t < n; t++ {
		mat.Col(ystar, 0, out.Slice(0, dr.nys, t, t+1))
		u := src.Next()
		y := dr.Evaluate(ystar, u, 1, false)
		out.SetCol(t+1, y)
	}
	return out
}

// UnconditionalCovariance solves V = G·V·Gᵀ + gu·Σ·guᵀ by fixed-point
// iteration, where G is the ny x ny matrix whose y*-output columns equal
// the rule's first-order state derivative and whose other columns are
// zero (spec.md §6's optional diagnostic). tol and maxIter bound the
// iteration; it reports *korder.NotConvergedError if it fails to settle.
func UnconditionalCovariance(gy *mat.Dense, part korder.PartitionY, gu, sigma *mat.Dense, tol float64, maxIter int) (*mat.Dense, error) {
	ny := part.NY()
	nys := part.NYS()
	g := mat.NewDense(ny, ny, nil)
	for i := 0; i < ny; i++ {
		for j := 0; j < nys; j++ {
			g.Set(i, part.NStat+j, gy.At(i, j))
		}
	}
	var q, tmp mat.Dense
	q.Mul(gu, sigma)
	tmp.Mul(&q, gu.T())
	q.CloneFrom(&tmp)

	v := mat.NewDense(ny, ny, nil)
	var gv, gvgt mat.Dense
	diff := 0.0
	for it := 0; it < maxIter; it++ {
		gv.Mul(g, v)
		gvgt.Mul(&gv, g.T())
		next := mat.NewDense(ny, ny, nil)
		next.Add(&gvgt, &q)
		diff = 0.0
		for i := 0; i < ny; i++ {
			for j := 0; j < ny; j++ {
				d := math.Abs(next.At(i, j) - v.At(i, j))
				if d > diff {
					diff = d
				}
			}
		}
		v = next
		if diff < tol {
			return v, nil
		}
	}
	return v, &korder.NotConvergedError{Iterations: maxIter, Residual: diff}
}
