// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tcontainer

import (
	"testing"

	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tensor"
)

func TestFoldedContainerCheckGetInsert(t *testing.T) {
	c := NewFolded()
	sy := symmetry.New(2)
	if c.Check(sy) {
		t.Fatal("Check() = true before insert")
	}
	d := tensor.NewFullDims(3, 2)
	tt := tensor.NewFolded(2, d)
	c.Insert(sy, tt)
	if !c.Check(sy) {
		t.Fatal("Check() = false after insert")
	}
	if c.Get(sy) != tt {
		t.Fatal("Get() did not return the inserted tensor")
	}
}

func TestFoldedContainerGetMissingPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Get() on missing symmetry did not panic")
		}
	}()
	NewFolded().Get(symmetry.New(1))
}

func TestContainerFoldAllRoundTrip(t *testing.T) {
	c := NewFolded()
	sy := symmetry.New(2)
	d := tensor.NewFullDims(3, 2)
	tt := tensor.NewFolded(1, d)
	v := []int{0, 0}
	tt.SetCol(v, []float64{7})
	c.Insert(sy, tt)

	uc := c.FoldAll()
	if !uc.Check(sy) {
		t.Fatal("FoldAll() lost the symmetry")
	}
	back := uc.FoldAll()
	if got := back.Get(sy).Col(v)[0]; got != 7 {
		t.Errorf("round trip value = %v, want 7", got)
	}
}

func TestSymmetriesSortedOrder(t *testing.T) {
	c := NewFolded()
	d2 := tensor.NewFullDims(2, 2)
	d1 := tensor.NewFullDims(2, 1)
	c.Insert(symmetry.New(2), tensor.NewFolded(1, d2))
	c.Insert(symmetry.New(1), tensor.NewFolded(1, d1))
	syms := c.Symmetries()
	if len(syms) != 2 || syms[0].Dimen() != 1 || syms[1].Dimen() != 2 {
		t.Errorf("Symmetries() = %v, want ascending by Dimen", syms)
	}
}
