// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package approx implements the façade ("A" in the system overview) that
// drives korder.Solver through a full k-order approximation: the
// deterministic-steady k-order solve (O), the stochastic-steady walk (X),
// and packaging the result as a decisionrule.DecisionRule (D) — grounded
// on original_source/kord/approximation.hh/.cc, which plays exactly this
// coordinating role over KOrder/KOrderStoch/DecisionRule.
package approx

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/quantgo/korder/decisionrule"
	"github.com/quantgo/korder/korder"
	"github.com/quantgo/korder/korderlog"
	"github.com/quantgo/korder/korderstoch"
	"github.com/quantgo/korder/tensor"
)

// Options bundles the configuration knobs spec.md §6 lists: the Taylor
// order, the number of stochastic-walk steps, whether to run the final
// Centralize pass, the QZ criterium, the worker pool width, and the
// quadrature evaluation budget used when an integration backend is
// attached via CheckExpectation. Run passes QZCriterium as the
// convergence tolerance of the Newton fixed-point searches in
// korderstoch.Walk and korderstoch.Centralize; no stability check uses it.
type Options struct {
	Order              int
	NS                 int
	Centralize         bool
	QZCriterium        float64
	MaxParallelThreads int
	QuadratureMaxEvals int
	SimulationSeed     uint64
}

// DefaultOptions returns the spec.md §6 defaults: a second-order solve, a
// single-step walk (the stochastic and deterministic steadies coincide to
// first order so ns=1 is always valid), centralization on, and a QZ
// tolerance of 1e-6.
func DefaultOptions() Options {
	return Options{
		Order:              2,
		NS:                 1,
		Centralize:         true,
		QZCriterium:        1e-6,
		MaxParallelThreads: 1,
		QuadratureMaxEvals: 1000,
		SimulationSeed:     1,
	}
}

// Result is the output of Run: the final decision rule, the stochastic
// steady state it is centred on, and the run's journal.
type Result struct {
	Rule    *decisionrule.DecisionRule
	Steady  []float64
	Journal *korderlog.Journal
}

// Refitter re-differentiates the dynamic system's sparse derivatives at a
// tentative new steady state, the external parser/model-differentiator
// boundary spec.md §1 places outside this module's scope — Run and
// korderstoch.Walk never evaluate F themselves, only ever re-derive
// orders already known to be required.
type Refitter func(ybar []float64) map[int]*tensor.Sparse

// Run drives a full approximation from externally supplied first-order
// inputs: it builds a korder.Solver, solves every order up to
// opts.Order at the deterministic steady (σ=0), walks forward to the
// stochastic steady over opts.NS steps (spec.md §4.X), optionally
// centralizes, and packages the result as a DecisionRule. ybar0 is the
// deterministic steady state (ny-length, σ=0) the solver's first-order
// Gy/Gu/F already describe. refit is invoked once per walk step to obtain
// F at each tentative new steady; the Centralize pass does not call it.
func Run(in korder.Inputs, opts Options, ybar0 []float64, refit Refitter) (*Result, error) {
	in.MaxParallel = opts.MaxParallelThreads
	if in.Journal == nil {
		in.Journal = korderlog.New()
	}
	start := time.Now()
	s, err := korder.NewSolver(in)
	if err != nil {
		return nil, err
	}
	if err := s.Solve(opts.Order); err != nil {
		return nil, err
	}
	in.Journal.Record(opts.Order, "deterministic_solve", 0, time.Since(start))

	// FixedPoint's Jacobian is the y*-row sub-block of the first-order
	// rule, not the full ny x nys Gy: only the predetermined/both
	// variables feed back into next period's y*_{t-1}.
	part := s.Part()
	nys := part.NYS()
	gyStar := mat.NewDense(nys, nys, nil)
	for i := 0; i < nys; i++ {
		for j := 0; j < nys; j++ {
			gyStar.Set(i, j, in.Gy.At(part.NStat+i, j))
		}
	}

	steady := append([]float64(nil), ybar0...)
	if opts.NS > 0 {
		eval := func(ystar []float64, sigma float64) []float64 {
			dr := decisionrule.FromSolverG(s.G(), s.Part(), s.NU(), steady, s.MaxOrder())
			return dr.Evaluate(ystar, make([]float64, s.NU()), sigma, false)
		}
		path, err := korderstoch.Walk(s, opts.NS, steady, gyStar, eval, refit, opts.QZCriterium, 1000)
		if err != nil {
			return nil, err
		}
		steady = path[len(path)-1].Ybar
		in.Journal.Record(opts.Order, "stochastic_walk", 0, time.Since(start))
	}

	if opts.Centralize {
		eval := func(ystar []float64, sigma float64) []float64 {
			dr := decisionrule.FromSolverG(s.G(), s.Part(), s.NU(), steady, s.MaxOrder())
			return dr.Evaluate(ystar, make([]float64, s.NU()), sigma, false)
		}
		newSteady, err := korderstoch.Centralize(s, steady, gyStar, eval, opts.QZCriterium, 1000)
		if err != nil {
			return nil, err
		}
		steady = newSteady
		in.Journal.Record(opts.Order, "centralize", 0, time.Since(start))
	}

	if _, err := s.Check(opts.Order); err != nil {
		in.Journal.Warn(opts.Order, "check", err.Error())
	}

	rule := decisionrule.FromSolverG(s.G(), s.Part(), s.NU(), steady, s.MaxOrder())
	return &Result{Rule: rule, Steady: steady, Journal: in.Journal}, nil
}
