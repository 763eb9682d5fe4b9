// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korder

import "fmt"

// PreconditionError reports a PreconditionFailed condition (§7): argument
// sizes, symmetries, or orderings that are inconsistent. Callers that hit
// this have a bug in how they drive the solver, not a numerical failure.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return "korder: precondition failed: " + e.Msg }

// NotStableError reports NotBlanchardKahnStable (§7): the externally
// supplied g_y implies an unstable transition (spectral radius ≥ 1 on the
// y* block), so no perturbation expansion around it is meaningful.
type NotStableError struct {
	SpectralRadius float64
}

func (e *NotStableError) Error() string {
	return fmt.Sprintf("korder: g_y is not stable (spectral radius %.6g >= 1)", e.SpectralRadius)
}

// SylvesterError reports SylvesterFailure (§7): the vectorized linear
// system behind a generalized Sylvester solve was singular or failed to
// factor at the given order.
type SylvesterError struct {
	Order int
	Phase string
	Err   error
}

func (e *SylvesterError) Error() string {
	return fmt.Sprintf("korder: sylvester failed at order %d (%s): %v", e.Order, e.Phase, e.Err)
}

func (e *SylvesterError) Unwrap() error { return e.Err }

// NotConvergedError reports FixPointNotConverged (§7): used by korderstoch
// for the Newton fixed-point search, exported here so both packages share
// one error family.
type NotConvergedError struct {
	Iterations int
	Residual   float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("korder: fixed point did not converge after %d iterations (residual %.3g)", e.Iterations, e.Residual)
}

// ResidualError reports that check(dim) found a residual above the
// caller's tolerance — a diagnostic-level condition, not necessarily
// fatal, so it is returned rather than panicked.
type ResidualError struct {
	Order       int
	MaxResidual float64
	Tolerance   float64
}

func (e *ResidualError) Error() string {
	return fmt.Sprintf("korder: order %d residual %.3g exceeds tolerance %.3g", e.Order, e.MaxResidual, e.Tolerance)
}
