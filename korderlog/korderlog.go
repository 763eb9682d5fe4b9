// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package korderlog implements the solver's structured run journal,
// grounded on kord/journal.hh's resource-usage log: a typed, in-memory
// record of what each solver step did (order, sub-step name, residual,
// elapsed time) plus non-fatal warnings, printed by the caller rather than
// written by the package itself — no logging framework is wired because
// none appears in the retrieved dependency pack; this keeps the module's
// core free of a logging dependency while still being structured, the way
// gonum.org/v1/gonum/optimize reports a typed Stats/Result rather than
// emitting free-text log lines.
package korderlog

import (
	"fmt"
	"io"
	"time"
)

// StepEntry records one completed solver sub-step.
type StepEntry struct {
	Order       int
	Phase       string // e.g. "recover_y", "recover_yu", "recover_s"
	MaxResidual float64
	Elapsed     time.Duration
}

// Warning records a non-fatal condition (§7 OutOfMemory, NumericalDomain)
// encountered during a step.
type Warning struct {
	Order int
	Phase string
	Msg   string
}

// Journal accumulates StepEntry and Warning records across a solver run.
type Journal struct {
	Entries  []StepEntry
	Warnings []Warning
}

// New returns an empty journal.
func New() *Journal { return &Journal{} }

// Record appends a completed-step entry.
func (j *Journal) Record(order int, phase string, maxResidual float64, elapsed time.Duration) {
	if j == nil {
		return
	}
	j.Entries = append(j.Entries, StepEntry{Order: order, Phase: phase, MaxResidual: maxResidual, Elapsed: elapsed})
}

// Warn appends a non-fatal warning (the step proceeds regardless).
func (j *Journal) Warn(order int, phase, msg string) {
	if j == nil {
		return
	}
	j.Warnings = append(j.Warnings, Warning{Order: order, Phase: phase, Msg: msg})
}

// WriteTable prints the journal as a fixed-width table, the Go equivalent
// of Journal::printHeader/flush from the original resource-usage log.
func (j *Journal) WriteTable(w io.Writer) error {
	if j == nil {
		return nil
	}
	for _, e := range j.Entries {
		if _, err := fmt.Fprintf(w, "order=%-2d phase=%-12s max_resid=%.3e elapsed=%s\n",
			e.Order, e.Phase, e.MaxResidual, e.Elapsed); err != nil {
			return err
		}
	}
	for _, wn := range j.Warnings {
		if _, err := fmt.Fprintf(w, "order=%-2d phase=%-12s WARNING: %s\n", wn.Order, wn.Phase, wn.Msg); err != nil {
			return err
		}
	}
	return nil
}

// MaxResidual returns the largest MaxResidual recorded at or below order,
// or 0 if nothing has been recorded yet.
func (j *Journal) MaxResidual(order int) float64 {
	if j == nil {
		return 0
	}
	max := 0.0
	for _, e := range j.Entries {
		if e.Order <= order && e.MaxResidual > max {
			max = e.MaxResidual
		}
	}
	return max
}
