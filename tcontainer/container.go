// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tcontainer implements Container, a map from Symmetry to tensor
// ("C" in the system overview): the uniform way the solver stores and looks
// up a derivative block such as g_{y^i u^j} by its symmetry.
package tcontainer

import (
	"sort"

	"github.com/quantgo/korder/symmetry"
	"github.com/quantgo/korder/tensor"
)

// symKey turns a Sym into a comparable map key.
func symKey(s symmetry.Sym) string {
	b := make([]byte, 0, len(s)*4)
	for _, v := range s {
		b = append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return string(b)
}

// Folded maps Symmetry to *tensor.Folded. It exclusively owns the tensors
// it holds: once inserted, a tensor is released only when Insert replaces
// it or the container itself is discarded.
type Folded struct {
	m    map[string]*tensor.Folded
	syms map[string]symmetry.Sym
}

// NewFolded returns an empty folded container.
func NewFolded() *Folded {
	return &Folded{m: make(map[string]*tensor.Folded), syms: make(map[string]symmetry.Sym)}
}

// Check reports whether a tensor is present for symmetry s.
func (c *Folded) Check(s symmetry.Sym) bool {
	_, ok := c.m[symKey(s)]
	return ok
}

// Get returns the tensor stored for s, panicking if absent.
func (c *Folded) Get(s symmetry.Sym) *tensor.Folded {
	t, ok := c.m[symKey(s)]
	if !ok {
		panic("tcontainer: no tensor for requested symmetry")
	}
	return t
}

// Insert stores t under symmetry s, replacing any previous entry.
func (c *Folded) Insert(s symmetry.Sym, t *tensor.Folded) {
	k := symKey(s)
	c.m[k] = t
	c.syms[k] = s
}

// Symmetries returns the symmetries present, in a stable (sorted-by-dimen,
// then group sizes) order — useful for deterministic iteration in tests
// and diagnostics.
func (c *Folded) Symmetries() []symmetry.Sym {
	out := make([]symmetry.Sym, 0, len(c.syms))
	for _, s := range c.syms {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return lessSym(out[i], out[j]) })
	return out
}

func lessSym(a, b symmetry.Sym) bool {
	if a.Dimen() != b.Dimen() {
		return a.Dimen() < b.Dimen()
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Unfolded maps Symmetry to *tensor.Unfolded, mirroring Folded.
type Unfolded struct {
	m    map[string]*tensor.Unfolded
	syms map[string]symmetry.Sym
}

// NewUnfolded returns an empty unfolded container.
func NewUnfolded() *Unfolded {
	return &Unfolded{m: make(map[string]*tensor.Unfolded), syms: make(map[string]symmetry.Sym)}
}

// Check reports whether a tensor is present for symmetry s.
func (c *Unfolded) Check(s symmetry.Sym) bool {
	_, ok := c.m[symKey(s)]
	return ok
}

// Get returns the tensor stored for s, panicking if absent.
func (c *Unfolded) Get(s symmetry.Sym) *tensor.Unfolded {
	t, ok := c.m[symKey(s)]
	if !ok {
		panic("tcontainer: no tensor for requested symmetry")
	}
	return t
}

// Insert stores t under symmetry s, replacing any previous entry.
func (c *Unfolded) Insert(s symmetry.Sym, t *tensor.Unfolded) {
	k := symKey(s)
	c.m[k] = t
	c.syms[k] = s
}

// Symmetries returns the symmetries present, in a stable order.
func (c *Unfolded) Symmetries() []symmetry.Sym {
	out := make([]symmetry.Sym, 0, len(c.syms))
	for _, s := range c.syms {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return lessSym(out[i], out[j]) })
	return out
}

// FoldAll builds an Unfolded container holding the unfolded copy of every
// tensor in c — used when a solver step prefers matrix-multiply-friendly
// storage for a symmetry it produced in folded form.
func (c *Folded) FoldAll() *Unfolded {
	out := NewUnfolded()
	for k, t := range c.m {
		out.m[k] = t.Unfold()
		out.syms[k] = c.syms[k]
	}
	return out
}

// FoldAll builds a Folded container holding the folded copy of every
// tensor in c.
func (c *Unfolded) FoldAll() *Folded {
	out := NewFolded()
	for k, t := range c.m {
		out.m[k] = t.Fold()
		out.syms[k] = c.syms[k]
	}
	return out
}
