// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package substmodel computes transition-probability (P) matrices from a
// partition's immutable eigen-decomposition and a branch length, the way
// the kernel's "Rate Matrices" component is specified: one eigen-decomp per
// partition, exponentiated against a branch length and per-rate multiplier
// at every newview/evaluate call.
package substmodel

import (
	"math"

	"github.com/pkg/errors"
)

// Zmin is the floor applied to any branch length before it is logged.
// Branch lengths strictly below Zmin are raised to it; there is no other
// clamping anywhere in the P-matrix builder.
const Zmin = 1.0e-15

// EigenDecomp holds one partition's immutable eigen-decomposition: EIGN is
// the eigenvalue vector, EI the inverse-eigenvector matrix, EV the
// eigenvector matrix (extEV in the source), each States x States except
// EIGN which is length States.
//
// Column/row 0 always carries the eigenvalue-0 (stationary) component:
// EIGN[0] == 0, EI[.][0] is the constant right-eigenvector (never read —
// MakeP/MakeDiagP hardwire it to 1 directly), and EV[.][0] is the model's
// stationary frequency vector, so the eigenvalue-0 term of P(t) spreads
// across every destination state weighted by its frequency rather than
// collapsing onto a single state. Columns/rows 1..States-1 hold one fixed
// orthonormal basis (see spectralDecomp) for every model this package
// builds, whatever its eigenvalues. That basis is the non-stationary
// eigenspace of a model with one rate shared across every off-diagonal
// pair (all non-zero eigenvalues equal); the empirical amino-acid tables
// in aamatrices.go put 19 distinct eigenvalues on this same basis, so the
// generators they describe are not the published JTT/WAG/LG
// exchangeability matrices.
type EigenDecomp struct {
	States int
	EIGN   []float64
	EI     [][]float64 // States x States
	EV     [][]float64 // States x States; "extEV" in newview's core loop
}

// Validate checks the shapes are internally consistent.
func (e *EigenDecomp) Validate() error {
	if e.States <= 0 {
		return errors.Errorf("substmodel: %d states", e.States)
	}
	if len(e.EIGN) != e.States {
		return errors.Errorf("substmodel: EIGN has %d entries, want %d", len(e.EIGN), e.States)
	}
	if len(e.EI) != e.States || len(e.EV) != e.States {
		return errors.Errorf("substmodel: EI/EV row count mismatch with %d states", e.States)
	}
	for i, row := range e.EI {
		if len(row) != e.States {
			return errors.Errorf("substmodel: EI row %d has %d entries, want %d", i, len(row), e.States)
		}
	}
	for i, row := range e.EV {
		if len(row) != e.States {
			return errors.Errorf("substmodel: EV row %d has %d entries, want %d", i, len(row), e.States)
		}
	}
	return nil
}

// clampedLogZ returns log(max(z, Zmin)).
func clampedLogZ(z float64) float64 {
	if z < Zmin {
		z = Zmin
	}
	return math.Log(z)
}

// MakeP fills left and right, each of length R*S*S (row-major: rate, then
// source state j, then destination state k), the stacked transition
// matrices for branch lengths z1 (toward the left/q child) and z2 (toward
// the right/r child), one per rate rates[i] (§4.2).
//
// left[i*S*S + j*S + 0] = 1, left[i*S*S + j*S + k] = d1[k]*EI[j][k] for k>0,
// where d1[k] = exp(rates[i]*EIGN[k]*log(max(z1,Zmin))); right mirrors this
// with z2. When saveMem is true, an extra slot at rate index maxCat is
// filled using a notional rate of 1.0, used for the gap-column shortcut.
func MakeP(z1, z2 float64, rates []float64, e *EigenDecomp, saveMem bool, maxCat int) (left, right []float64) {
	s := e.States
	nrates := len(rates)
	total := nrates
	if saveMem && maxCat+1 > total {
		total = maxCat + 1
	}
	left = make([]float64, total*s*s)
	right = make([]float64, total*s*s)

	lz1 := clampedLogZ(z1)
	lz2 := clampedLogZ(z2)

	fill := func(dst []float64, rate, lz float64, base int) {
		d := make([]float64, s)
		d[0] = 1
		for k := 1; k < s; k++ {
			d[k] = math.Exp(rate * e.EIGN[k] * lz)
		}
		for j := 0; j < s; j++ {
			row := base + j*s
			dst[row+0] = 1
			for k := 1; k < s; k++ {
				dst[row+k] = d[k] * e.EI[j][k]
			}
		}
	}

	for i := 0; i < nrates; i++ {
		fill(left, rates[i], lz1, i*s*s)
		fill(right, rates[i], lz2, i*s*s)
	}
	if saveMem {
		fill(left, 1.0, lz1, maxCat*s*s)
		fill(right, 1.0, lz2, maxCat*s*s)
	}
	return left, right
}

// MakeDiagP fills diag, of length R*S, the diagonal factor used at the
// virtual root (§4.2): diag[i*S+k] = exp(rates[i]*EIGN[k]*log(max(z,Zmin)))
// for k>0, diag[i*S+0] = 1.
func MakeDiagP(z float64, rates []float64, e *EigenDecomp) []float64 {
	s := e.States
	diag := make([]float64, len(rates)*s)
	lz := clampedLogZ(z)
	for i, r := range rates {
		base := i * s
		diag[base] = 1
		for k := 1; k < s; k++ {
			diag[base+k] = math.Exp(r*e.EIGN[k]*lz)
		}
	}
	return diag
}

// helmertBasis returns the s-1 orthonormal vectors (length s each) spanning
// the hyperplane orthogonal to the all-ones vector: vector i (0-indexed) is
// 1/sqrt(n*(n+1)) at positions 0..i (n = i+1), -n/sqrt(n*(n+1)) at position
// i+1, and 0 thereafter. This is the classic Helmert contrast basis; it is
// mutually orthonormal and every vector sums to zero, which is exactly the
// non-stationary eigenspace every equal-rate substitution model in this
// package needs (see EigenDecomp's doc comment).
func helmertBasis(s int) [][]float64 {
	basis := make([][]float64, s-1)
	for i := 0; i < s-1; i++ {
		n := i + 1
		denom := math.Sqrt(float64(n * (n + 1)))
		v := make([]float64, s)
		for j := 0; j <= i; j++ {
			v[j] = 1 / denom
		}
		v[i+1] = -float64(n) / denom
		basis[i] = v
	}
	return basis
}

// uniformFreq returns a length-s vector of 1/s, the stationary distribution
// assumed when a model is built without an explicit frequency vector.
func uniformFreq(s int) []float64 {
	f := make([]float64, s)
	for i := range f {
		f[i] = 1 / float64(s)
	}
	return f
}

// spectralDecomp builds the eigen-decomposition of a reversible, equal-rate
// substitution model from its eigenvalues and stationary frequencies. EI and
// EV share one orthonormal basis (helmertBasis) at columns 1..States-1; EV's
// column 0 is freq (falling back to uniformFreq when freq doesn't match the
// eigenvalue count), giving the eigenvalue-0 term of P(t) genuine cross-state
// weight instead of the identity stand-in's single fixed state. This is what
// NewGTRDecomp and the empirical amino-acid tables in aamatrices.go both
// build on.
func spectralDecomp(eigenvalues []float64, freq []float64) *EigenDecomp {
	s := len(eigenvalues)
	if len(freq) != s {
		freq = uniformFreq(s)
	}
	basis := helmertBasis(s)
	ei := make([][]float64, s)
	ev := make([][]float64, s)
	for j := 0; j < s; j++ {
		ei[j] = make([]float64, s)
		ev[j] = make([]float64, s)
		ei[j][0] = 1
		ev[j][0] = freq[j]
		for i, h := range basis {
			ei[j][i+1] = h[j]
			ev[j][i+1] = h[j]
		}
	}
	eign := make([]float64, s)
	copy(eign, eigenvalues)
	return &EigenDecomp{States: s, EIGN: eign, EI: ei, EV: ev}
}

// LG4Set holds the four independent (EIGN, EI, EV) triples the LG4M/LG4X
// protein models use, one per rate category (§4.2, §9: "LG4 variants
// substitute four distinct (EIGN, EI) pairs indexed by rate category, each
// contributing only to its own rate's rows").
type LG4Set struct {
	Matrices [4]*EigenDecomp
}

// MakeP_LG4 is the LG4 analogue of MakeP: each rate category i uses its own
// eigen-decomposition LG4.Matrices[i] rather than a shared one.
func MakeP_LG4(z1, z2 float64, rates []float64, lg4 *LG4Set) (left, right []float64) {
	if len(rates) != 4 {
		panic("substmodel: LG4 requires exactly 4 rate categories")
	}
	s := lg4.Matrices[0].States
	left = make([]float64, 4*s*s)
	right = make([]float64, 4*s*s)
	lz1 := clampedLogZ(z1)
	lz2 := clampedLogZ(z2)
	for i := 0; i < 4; i++ {
		e := lg4.Matrices[i]
		d1 := make([]float64, s)
		d2 := make([]float64, s)
		d1[0], d2[0] = 1, 1
		for k := 1; k < s; k++ {
			d1[k] = math.Exp(rates[i] * e.EIGN[k] * lz1)
			d2[k] = math.Exp(rates[i] * e.EIGN[k] * lz2)
		}
		for j := 0; j < s; j++ {
			lrow := i*s*s + j*s
			rrow := i*s*s + j*s
			left[lrow] = 1
			right[rrow] = 1
			for k := 1; k < s; k++ {
				left[lrow+k] = d1[k] * e.EI[j][k]
				right[rrow+k] = d2[k] * e.EI[j][k]
			}
		}
	}
	return left, right
}
