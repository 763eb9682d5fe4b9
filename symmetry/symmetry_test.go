// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symmetry

import (
	"testing"

	"gonum.org/v1/gonum/stat/combin"
)

func TestIsFullAndDimen(t *testing.T) {
	s := New(3, 0, 0)
	if !s.IsFull() {
		t.Error("IsFull() = false, want true")
	}
	if s.Dimen() != 3 {
		t.Errorf("Dimen() = %d, want 3", s.Dimen())
	}
	mixed := New(2, 1)
	if mixed.IsFull() {
		t.Error("IsFull() = true, want false")
	}
}

func TestFindClassAndOffsets(t *testing.T) {
	s := New(2, 3, 1)
	want := []int{0, 0, 1, 1, 1, 2}
	for i, w := range want {
		if g := s.FindClass(i); g != w {
			t.Errorf("FindClass(%d) = %d, want %d", i, g, w)
		}
	}
	offs := s.Offsets()
	if offs[0] != 0 || offs[1] != 2 || offs[2] != 5 || offs[3] != 6 {
		t.Errorf("Offsets() = %v, want [0 2 5 6]", offs)
	}
}

func TestReduce(t *testing.T) {
	s := New(2, 2) // positions 0,1 in group0; 2,3 in group1
	r := s.Reduce([]int{0, 2, 3})
	want := New(1, 2)
	if !Equal(r, want) {
		t.Errorf("Reduce = %v, want %v", r, want)
	}
}

func TestEquivalenceSetBellNumbers(t *testing.T) {
	// Bell numbers: B0=1, B1=1, B2=2, B3=5, B4=15.
	wantCounts := map[int]int{0: 1, 1: 1, 2: 2, 3: 5, 4: 15}
	for n, want := range wantCounts {
		count := 0
		seen := map[string]bool{}
		EquivalenceSet(n, func(e Equivalence) {
			count++
			// Every element must appear in exactly one class.
			total := 0
			for i := 0; i < e.NumClasses(); i++ {
				total += len(e.Class(i))
			}
			if total != n {
				t.Errorf("n=%d: equivalence covers %d elements, want %d", n, total, n)
			}
			key := ""
			for i := 0; i < e.NumClasses(); i++ {
				key += fmtInts(e.Class(i)) + "|"
			}
			if seen[key] {
				t.Errorf("n=%d: duplicate equivalence emitted: %s", n, key)
			}
			seen[key] = true
		})
		if count != want {
			t.Errorf("EquivalenceSet(%d) produced %d partitions, want %d (Bell number)", n, count, want)
		}
	}
}

func fmtInts(s []int) string {
	out := ""
	for _, v := range s {
		out += string(rune('a' + v))
	}
	return out
}

func TestInducedSymmetries(t *testing.T) {
	// Symmetry (2,1) over 3 flattened positions: 0,1 in group0, 2 in group1.
	s := New(2, 1)
	var eq Equivalence
	EquivalenceSet(3, func(e Equivalence) {
		// pick the equivalence {{0,2},{1}}
		if e.NumClasses() == 2 && len(e.Class(0)) == 2 && e.Class(0)[0] == 0 && e.Class(0)[1] == 2 {
			eq = e
		}
	})
	induced := eq.InducedSymmetries(s)
	if len(induced) != 2 {
		t.Fatalf("got %d induced symmetries, want 2", len(induced))
	}
	// class {0,2}: 0 is in group0, 2 is in group1 -> (1,1)
	if !Equal(induced[0], New(1, 1)) {
		t.Errorf("induced[0] = %v, want (1,1)", induced[0])
	}
	// class {1}: in group0 -> (1,0)
	if !Equal(induced[1], New(1, 0)) {
		t.Errorf("induced[1] = %v, want (1,0)", induced[1])
	}
}

func TestPermutationApplyInverse(t *testing.T) {
	p := Permutation{permap: []int{2, 0, 1}}
	src := []int{10, 20, 30}
	dst := make([]int, 3)
	p.Apply(src, dst)
	want := []int{30, 10, 20}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("Apply()[%d] = %d, want %d", i, dst[i], want[i])
		}
	}
	inv := p.Inverse()
	back := make([]int, 3)
	inv.Apply(dst, back)
	for i := range src {
		if back[i] != src[i] {
			t.Errorf("Inverse round-trip[%d] = %d, want %d", i, back[i], src[i])
		}
	}
}

func TestFromSortOf(t *testing.T) {
	s := []int{3, 1, 2}
	p := FromSortOf(s)
	sorted := []int{1, 2, 3}
	got := make([]int, 3)
	p.Apply(sorted, got)
	for i := range s {
		if got[i] != s[i] {
			t.Errorf("sorted∘p mismatch at %d: got %d, want %d", i, got[i], s[i])
		}
	}
}

// TestBinomialAgreesWithCombin is a sanity check that gonum's
// combin.Binomial, which supplies the Pascal-triangle coefficients used
// for folded offsets elsewhere in korder, gives C(5,2) = 10. This package
// computes no binomials of its own.
func TestBinomialAgreesWithCombin(t *testing.T) {
	if combin.Binomial(5, 2) != 10 {
		t.Fatalf("sanity check on gonum combin.Binomial failed")
	}
}
