// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import "github.com/evoplk/plk/align/exabin"

// BuildTipVectors constructs the byte-code-to-state-probability-vector
// table a partition's tip bytes decode through (§3 "Tip vector"). It is
// nil for PoMo partitions, which carry tip CLVs instead (§4.1).
//
// Code 0 is the undetermined/gap symbol and decodes to the all-ones
// vector (every state equally compatible, §3's "Gap sidecar" invariant
// relies on this being the uniquely gap-like code). Codes 1..states
// decode to the unambiguous unit vectors. For low-state alphabets
// (Binary, DNA: states ≤ 8) codes beyond states decode as a bitmask over
// the low `states` bits, exactly as ExaML's nucleotide ambiguity codes
// work (`original_source/parser/axml.c`'s `getStates`-style tables) —
// state i (0-indexed) is compatible iff bit i of the code is set. Larger
// alphabets (AA, MULTI_32, CODON_64) have no such single-byte bitmask
// space; any code beyond states for those data types decodes as fully
// ambiguous (all-ones), a deliberate simplification of the empirical
// ambiguity-code tables original_source uses, consistent with the same
// allowance substmodel's AA matrices take (§E.2).
func BuildTipVectors(dataType exabin.DataType, states, maxTipState int) [][]float64 {
	if dataType.IsPoMo() {
		return nil
	}
	n := maxTipState + 1
	if n < states+1 {
		n = states + 1
	}
	table := make([][]float64, n)

	allOnes := func() []float64 {
		v := make([]float64, states)
		for i := range v {
			v[i] = 1
		}
		return v
	}

	table[0] = allOnes()
	for code := 1; code <= states && code < n; code++ {
		v := make([]float64, states)
		v[code-1] = 1
		table[code] = v
	}

	bitmaskCapable := states <= 8
	for code := states + 1; code < n; code++ {
		if bitmaskCapable && code < (1<<uint(states)) {
			v := make([]float64, states)
			any := false
			for bit := 0; bit < states; bit++ {
				if code&(1<<uint(bit)) != 0 {
					v[bit] = 1
					any = true
				}
			}
			if !any {
				v = allOnes()
			}
			table[code] = v
			continue
		}
		table[code] = allOnes()
	}
	return table
}
