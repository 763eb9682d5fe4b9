// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package korderlog

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRecordAndWriteTable(t *testing.T) {
	j := New()
	j.Record(2, "recover_y", 1.2e-9, 3*time.Millisecond)
	j.Record(2, "recover_s", 4.5e-10, time.Millisecond)
	j.Warn(2, "recover_y", "slab width reduced to fallback minimum")

	var buf bytes.Buffer
	if err := j.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "recover_y") || !strings.Contains(out, "recover_s") {
		t.Errorf("table missing phase names: %q", out)
	}
	if !strings.Contains(out, "WARNING") {
		t.Errorf("table missing warning: %q", out)
	}
}

func TestMaxResidualFiltersByOrder(t *testing.T) {
	j := New()
	j.Record(2, "recover_y", 1e-9, 0)
	j.Record(3, "recover_y", 1e-3, 0)
	if got := j.MaxResidual(2); got != 1e-9 {
		t.Errorf("MaxResidual(2) = %v, want 1e-9", got)
	}
	if got := j.MaxResidual(3); got != 1e-3 {
		t.Errorf("MaxResidual(3) = %v, want 1e-3", got)
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	j.Record(1, "x", 1, 0)
	j.Warn(1, "x", "msg")
	if err := j.WriteTable(&bytes.Buffer{}); err != nil {
		t.Fatalf("WriteTable on nil: %v", err)
	}
	if got := j.MaxResidual(1); got != 0 {
		t.Errorf("MaxResidual on nil = %v, want 0", got)
	}
}
