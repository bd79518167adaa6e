// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package clv

// wordBits is the number of pattern bits packed per storage word.
const wordBits = 64

// GapSet is the per-(node, partition) gap sidecar bitset (§3 "Gap sidecar"):
// bit i is set iff every descendant tip has the undetermined/gap symbol at
// pattern i. It is the non-circular specialization of
// circular/bitmap.go's Bitmap: a single contiguous row of words plus a
// per-word population count, without the wraparound addressing circular
// buffers need (gap sidecars are indexed by plain pattern position).
type GapSet struct {
	words    []uint64
	wordPops []uint8 // number of set bits per word; mirrors Bitmap.wordPops
	width    int
}

// NewGapSet allocates a GapSet for width patterns, all initially clear.
func NewGapSet(width int) *GapSet {
	nWords := (width + wordBits - 1) / wordBits
	return &GapSet{
		words:    make([]uint64, nWords),
		wordPops: make([]uint8, nWords),
		width:    width,
	}
}

// Width returns the number of patterns this set covers.
func (g *GapSet) Width() int {
	return g.width
}

// Set marks pattern i as an all-gap column.
func (g *GapSet) Set(i int) {
	w, bit := i/wordBits, uint(i%wordBits)
	mask := uint64(1) << bit
	if g.words[w]&mask == 0 {
		g.wordPops[w]++
	}
	g.words[w] |= mask
}

// Clear unmarks pattern i.
func (g *GapSet) Clear(i int) {
	w, bit := i/wordBits, uint(i%wordBits)
	mask := uint64(1) << bit
	if g.words[w]&mask != 0 {
		g.wordPops[w]--
	}
	g.words[w] &^= mask
}

// Get reports whether pattern i is an all-gap column.
func (g *GapSet) Get(i int) bool {
	w, bit := i/wordBits, uint(i%wordBits)
	return g.words[w]&(uint64(1)<<bit) != 0
}

// Count returns the total number of set bits.
func (g *GapSet) Count() int {
	n := 0
	for _, p := range g.wordPops {
		n += int(p)
	}
	return n
}

// And sets g to the bitwise AND of a and b, which must share g's width:
// the invariant "the sidecar bit at i is the AND of the sidecars of the two
// children" (§3).
func (g *GapSet) And(a, b *GapSet) {
	for w := range g.words {
		word := a.words[w] & b.words[w]
		g.words[w] = word
		g.wordPops[w] = uint8(popcount64(word))
	}
}

func popcount64(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

// GapColumn is the single precomputed CLV row (length R*S) substituted for
// every gap-sidecar-marked pattern, shared across all patterns of a node
// rather than recomputed per site (§4.4 "Gap-sidecar shortcut").
type GapColumn struct {
	Row []float64
}
