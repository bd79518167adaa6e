// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import "math"

// PoMoTipCLV computes one species' PoMo tip conditional-likelihood vector
// at one site (§4.1's PoMo paragraph, §8 scenario 5): the probability of
// the observed multiset of individual base counts under each model state's
// allele-frequency interpretation.
//
// counts holds the observed individual counts of the two alleles of the
// pair diallelicStates[0] (the "active" pair for this call — callers
// invoke PoMoTipCLV once per site with the pair actually observed there
// first in diallelicStates, and every other pair the model supports
// following it, purely so their state slots are correctly zeroed).
// diallelicStates[i] names the two monoallelic state indices (each in
// [0,4), one per nucleotide) that pair i spans. nBins is the number of
// interior allele-frequency bins sampled per pair (§8 scenario 5: "4 bin
// midpoints").
//
// The returned vector has length 4 + len(diallelicStates)*nBins: the four
// monoallelic entries first, then nBins entries per pair in
// diallelicStates order.
//
// When both counts are nonzero (a genuinely polymorphic observation), no
// monoallelic state is compatible with the data, so all four monoallelic
// entries are 0; the active pair's nBins entries hold
// binomial(n, counts[0], p_j) at the nBins interior frequencies p_j =
// j/(nBins+1), j=1..nBins, and every other pair's entries are 0. When one
// count is zero, the corresponding monoallelic entry is 1 and every other
// entry (including the active pair's own bins) is 0 — the observation is
// then monomorphic, not compatible with any polymorphic bin.
func PoMoTipCLV(counts [2]int, diallelicStates [][2]int, nBins int) []float64 {
	out := make([]float64, 4+len(diallelicStates)*nBins)
	n := counts[0] + counts[1]
	active := diallelicStates[0]

	switch {
	case n == 0:
		return out
	case counts[0] == 0:
		out[active[1]] = 1
		return out
	case counts[1] == 0:
		out[active[0]] = 1
		return out
	}

	base := 4 // offset of pair 0's bins
	for j := 1; j <= nBins; j++ {
		p := float64(j) / float64(nBins+1)
		out[base+j-1] = binomialPMF(n, counts[0], p)
	}
	return out
}

// binomialPMF returns P(X=k) for X ~ Binomial(n, p), computed via the log
// binomial coefficient for numerical stability across the site depths PoMo
// inputs realistically see.
func binomialPMF(n, k int, p float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	logCoef := lgamma1p(float64(n)) - lgamma1p(float64(k)) - lgamma1p(float64(n-k))
	logP := float64(k)*math.Log(p) + float64(n-k)*math.Log(1-p)
	return math.Exp(logCoef + logP)
}

// lgamma1p returns ln(Γ(x+1)) = ln(x!).
func lgamma1p(x float64) float64 {
	v, _ := math.Lgamma(x + 1)
	return v
}
