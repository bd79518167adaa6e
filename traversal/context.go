// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traversal

import (
	"github.com/evoplk/plk/align/exabin"
	"github.com/evoplk/plk/substmodel"
)

// RateHetMode selects the rate-heterogeneity-across-sites model (§6
// "rate_het").
type RateHetMode int

const (
	// PLAIN: a single rate, no heterogeneity.
	PLAIN RateHetMode = iota
	// GAMMA: four discrete Gamma rate categories, averaged at the root.
	GAMMA
	// CAT: one rate per site, chosen per-site from a larger category
	// table via CatSitePattern.
	CAT
)

// PartitionContext is the per-partition, per-call configuration newview
// and Evaluate need: the immutable eigen-decomposition, the rate table,
// the data-type-driven tip encoding, and the §6 configuration flags.
type PartitionContext struct {
	DataType exabin.DataType
	States   int

	RateHet RateHetMode
	// Rates holds the per-category multiplier table passed to
	// substmodel.MakeP/MakeDiagP: length 4 under GAMMA, 1 under PLAIN,
	// or the full CAT category table (every category that appears in
	// CatSitePattern) under CAT.
	Rates []float64
	// CatSitePattern[i] is the category index (into Rates) of local
	// pattern i; only read when RateHet == CAT.
	CatSitePattern []int32
	// StoreR is the number of rate rows stored per pattern in a CLV
	// buffer: len(Rates) under GAMMA, 1 under CAT or PLAIN (§4.4 "Under
	// CAT, left_row/right_row are selected by the per-site category
	// cptr[i] rather than by r").
	StoreR int

	Eigen *substmodel.EigenDecomp

	SaveMemory bool
	MaxCat     int

	// TipVectors maps a tip byte code to its length-States probability
	// vector (§3 "Tip vector"); nil when DataType.IsPoMo().
	TipVectors [][]float64

	// Weights is the local (per-worker) pattern-weight vector (§4.1
	// weights array, sliced to this worker's assignment).
	Weights []int32

	// ExecModel gates whether this partition participates in the
	// current newview/evaluate call (§6 "newview_masked"); width-0
	// partitions are always skipped regardless of this flag.
	ExecModel bool
}

// Width returns the local pattern count.
func (pc *PartitionContext) Width() int {
	return len(pc.Weights)
}

// rateIndex returns the Rates/diag category index to use for local
// pattern i at storage row storeIdx.
func (pc *PartitionContext) rateIndex(storeIdx, i int) int {
	if pc.RateHet == CAT {
		return int(pc.CatSitePattern[i])
	}
	return storeIdx
}
