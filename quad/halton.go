// Copyright ©2026 The korder Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quad

// PermutationScheme scrambles a radical-inverse digit c (0 ≤ c < base) of
// the i-th dimension's sequence; used to decorrelate the different
// dimensions of a Halton sequence, which otherwise correlate badly once
// the prime bases grow large.
type PermutationScheme interface {
	Permute(i, base, c int) int
}

// IdentityPermutation leaves every digit unchanged — the plain Halton
// sequence.
type IdentityPermutation struct{}

func (IdentityPermutation) Permute(i, base, c int) int { return c }

// ReversePermutation reflects each digit about the middle of its base,
// the simplest decorrelating scramble.
type ReversePermutation struct{}

func (ReversePermutation) Permute(i, base, c int) int { return base - 1 - c }

// WarnockPermutation cyclically shifts each digit by the dimension index,
// the scrambling family the original library calls the Warnock scheme.
type WarnockPermutation struct{}

func (WarnockPermutation) Permute(i, base, c int) int { return (c + i) % base }

// primes lists the first n primes used as per-dimension Halton bases
// (2, 3, 5, ...; dimension 0 always uses base 2).
func primes(n int) []int {
	out := make([]int, 0, n)
	candidate := 2
	for len(out) < n {
		if isPrime(candidate) {
			out = append(out, candidate)
		}
		candidate++
	}
	return out
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// radicalInverse computes the scrambled base-b radical inverse of num: if
// num = Σ c_j b^j, the result is Σ scheme.Permute(dim,b,c_j) b^{-(j+1)}.
func radicalInverse(num, base, dim int, scheme PermutationScheme) float64 {
	inv := 1.0 / float64(base)
	f := inv
	result := 0.0
	n := num
	for n > 0 {
		c := n % base
		result += float64(scheme.Permute(dim, base, c)) * f
		n /= base
		f *= inv
	}
	return result
}

// Halton returns n points of a dim-dimensional (scrambled) Halton
// sequence over the unit cube [0,1)^dim, with every point weighted 1/n —
// a quasi-Monte-Carlo rule for ∫_{[0,1]^dim} f(x) dx.
func Halton(dim, n int, scheme PermutationScheme) *Rule {
	if dim < 1 {
		panic("quad: dim must be positive")
	}
	if n < 1 {
		panic("quad: n must be positive")
	}
	if scheme == nil {
		scheme = IdentityPermutation{}
	}
	bases := primes(dim)
	points := make([][]float64, n)
	weights := make([]float64, n)
	w := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		p := make([]float64, dim)
		for d := 0; d < dim; d++ {
			p[d] = radicalInverse(i+1, bases[d], d, scheme)
		}
		points[i] = p
		weights[i] = w
	}
	return &Rule{Points: points, Weights: weights}
}

// HaltonNormal returns a Halton rule over R^dim suited to integrating
// against the standard normal density, by pushing the unit-cube Halton
// points through the standard normal inverse CDF in each coordinate — the
// Go equivalent of QMCarloNormalQuadrature, which composes the same
// low-discrepancy cube sequence with a normal quantile transform.
func HaltonNormal(dim, n int, scheme PermutationScheme, invCDF func(p float64) float64) *Rule {
	cube := Halton(dim, n, scheme)
	for _, p := range cube.Points {
		for d := range p {
			p[d] = invCDF(p[d])
		}
	}
	return cube
}
