// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package approx

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/decisionrule"
	"github.com/quantgo/korder/korder"
	"github.com/quantgo/korder/quad"
)

// CheckExpectation numerically integrates the packaged decision rule's
// output at the rule's own steady y* and σ=1 over a Gauss-Hermite product
// quadrature grid in u — an "integration backend" in spec.md §6's sense,
// exercising opts.QuadratureMaxEvals — and compares that expectation with
// the rule's value at u=0 (its zero-shock skeleton). It does not call
// korder.Solver.IntegDerivs. It returns the maximum absolute
// per-coordinate discrepancy and the number of quadrature evaluations
// used.
//
// Gauss-Hermite nodes/weights integrate against e^{-x²}; converting to a
// genuine N(0,Σ) expectation uses the standard change of variables
// u = √2·L·x (Σ = L·Lᵀ) with an extra (1/√π)^nu normalization per
// dynare++'s own quadrature-to-moment convention (integ/cc/quadrature.cc).
func CheckExpectation(rule *decisionrule.DecisionRule, sigma *mat.Dense, maxEvals int) (residual float64, evals int, err error) {
	nu := rule.NU()
	symSigma := mat.NewSymDense(nu, nil)
	for i := 0; i < nu; i++ {
		for j := i; j < nu; j++ {
			symSigma.SetSym(i, j, sigma.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(symSigma); !ok {
		return 0, 0, &korder.PreconditionError{Msg: "CheckExpectation: shock covariance is not positive semi-definite"}
	}
	var l mat.TriDense
	chol.LTo(&l)

	u1D := quad.Hermite1D()
	level, n := quad.DesignLevelForEvalsProduct(nu, maxEvals, u1D)
	grid := quad.Product(nu, level, u1D)

	ystarBar := rule.Steady()[:rule.NYS()]
	norm := math.Pow(math.Pi, -float64(nu)/2)

	ny := rule.NY()
	expect := make([]float64, ny)
	u := make([]float64, nu)
	for i, p := range grid.Points {
		uVec := mat.NewVecDense(nu, nil)
		for d := 0; d < nu; d++ {
			uVec.SetVec(d, p[d]*math.Sqrt2)
		}
		var scaled mat.VecDense
		scaled.MulVec(&l, uVec)
		for d := 0; d < nu; d++ {
			u[d] = scaled.AtVec(d)
		}
		y := rule.Evaluate(ystarBar, u, 1, false)
		w := grid.Weights[i] * norm
		for k := 0; k < ny; k++ {
			expect[k] += w * y[k]
		}
	}

	skeleton := rule.Evaluate(ystarBar, make([]float64, nu), 1, false)
	maxDiff := 0.0
	for k := 0; k < ny; k++ {
		d := math.Abs(expect[k] - skeleton[k])
		if d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff, n, nil
}
