// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package korder implements the k-order perturbation solver ("O" in the
// system overview): given sparse derivatives of the dynamic system, the
// first-order decision rule, and the shock covariance, it recovers every
// higher-order block of g by Faà di Bruno composition and generalized
// Sylvester/PLU solves, grounded on kord/korder.hh.
package korder

// PartitionY is the state-variable partition (PartitionY in korder.hh):
// nstat variables appear only at t, npred only at t-1, nboth at both t-1
// and t+1, nforw only at t+1.
type PartitionY struct {
	NStat, NPred, NBoth, NForw int
}

// NY returns the total number of endogenous variables.
func (p PartitionY) NY() int { return p.NStat + p.NPred + p.NBoth + p.NForw }

// NYS returns the width of y* = [predetermined; both], the solver's own
// state argument.
func (p PartitionY) NYS() int { return p.NPred + p.NBoth }

// NYSS returns the width of y** = [both; forward], the sub-vector that
// appears at t+1 and therefore needs a one-step-ahead composition G.
func (p PartitionY) NYSS() int { return p.NBoth + p.NForw }

func (p PartitionY) validate() error {
	if p.NStat < 0 || p.NPred < 0 || p.NBoth < 0 || p.NForw < 0 {
		return &PreconditionError{Msg: "partition counts must be non-negative"}
	}
	return nil
}
