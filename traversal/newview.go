// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traversal

import (
	"github.com/evoplk/plk/align"
	"github.com/evoplk/plk/clv"
	"github.com/evoplk/plk/substmodel"
	"github.com/grailbio/base/log"
)

// ShapeError reports a dimension mismatch or an unoriented node the
// descriptor builder could not recurse into (§7 "ShapeError").
type ShapeError struct {
	Msg string
}

func (e *ShapeError) Error() string { return "traversal: shape error: " + e.Msg }

// rowSource abstracts the three ways newview/evaluate read a length-S
// input row: a precomputed byte-tip-vector (amortised via ump), a PoMo
// tip CLV (varies per site, no rate dimension), or an inner node's stored
// CLV (varies per site and per stored rate row).
type rowSource struct {
	isByteTip bool
	isPoMoTip bool
	node      int
	tipIndex  int
}

func classifySide(tree *Tree, node int, partitionIsPoMo bool) rowSource {
	n := tree.Nodes[node]
	if !n.IsTip {
		return rowSource{node: node}
	}
	if partitionIsPoMo {
		return rowSource{isPoMoTip: true, tipIndex: n.TipIndex}
	}
	return rowSource{isByteTip: true, tipIndex: n.TipIndex}
}

// matVecCol computes Σⱼ P[rate, j, k] · v[j] for the S×S matrix stored by
// substmodel.MakeP (layout: P[rate*S*S + j*S + k]).
func matVecCol(p []float64, rate, k, s int, v []float64) float64 {
	base := rate * s * s
	sum := 0.0
	for j := 0; j < s; j++ {
		sum += p[base+j*s+k] * v[j]
	}
	return sum
}

// buildUmp precomputes, for every tip code present in tipVectors,
// umpX[k, rate*S+dest] = Σⱼ tipVector[code][j] · P[rate, j, dest] (§4.4
// "this amortises the tip-vector×P product across all patterns that
// share a tip code").
func buildUmp(tipVectors [][]float64, p []float64, numCat, s int) [][]float64 {
	ump := make([][]float64, len(tipVectors))
	for code, v := range tipVectors {
		if v == nil {
			continue
		}
		row := make([]float64, numCat*s)
		for rate := 0; rate < numCat; rate++ {
			for k := 0; k < s; k++ {
				row[rate*s+k] = matVecCol(p, rate, k, s, v)
			}
		}
		ump[code] = row
	}
	return ump
}

// NewView recomputes p's CLV for partition part from its two children's
// already-oriented CLVs (or tip data), per the descriptor entry e and the
// branch lengths carried by tree (§4.4). It is the partition-local body
// the caller fans out over every descriptor entry.
func NewView(e Entry, tree *Tree, part int, pc *PartitionContext, st *align.Store, cs *clv.Store) error {
	s := pc.States
	storeR := pc.StoreR
	width := pc.Width()
	effCase := EffectiveCase(e.Case, pc.DataType.IsPoMo())
	if log.At(log.Debug) {
		log.Debug.Printf("traversal: newview part=%d p=%d q=%d r=%d case=%v width=%d", part, e.P, e.Q, e.R, effCase, width)
	}

	qz := tree.Length(e.Q, part)
	rz := tree.Length(e.R, part)
	left, right := substmodel.MakeP(qz, rz, pc.Rates, pc.Eigen, pc.SaveMemory, pc.MaxCat)

	qSrc := classifySide(tree, e.Q, pc.DataType.IsPoMo())
	rSrc := classifySide(tree, e.R, pc.DataType.IsPoMo())
	qMustBeTip := effCase != InnerInner
	rMustBeTip := effCase == TipTip || effCase == TipTipCLV
	if qMustBeTip && !tree.Nodes[e.Q].IsTip {
		return &ShapeError{Msg: "newview: descriptor expects q to be a tip but node is inner"}
	}
	if rMustBeTip && !tree.Nodes[e.R].IsTip {
		return &ShapeError{Msg: "newview: descriptor expects r to be a tip but node is inner"}
	}

	numCat := len(pc.Rates)
	var umpLeft, umpRight [][]float64
	if qSrc.isByteTip {
		umpLeft = buildUmp(pc.TipVectors, left, numCat, s)
	}
	if rSrc.isByteTip {
		umpRight = buildUmp(pc.TipVectors, right, numCat, s)
	}

	out := cs.GetCLVMut(e.P, part, width, storeR, s)

	var outGaps *clv.GapSet
	var qGaps, rGaps *clv.GapSet
	if pc.SaveMemory {
		outGaps = cs.GapSetFor(e.P, part, width)
		qGaps = gapSetFor(tree, e.Q, part, width, st, cs)
		rGaps = gapSetFor(tree, e.R, part, width, st, cs)
		outGaps.And(qGaps, rGaps)
	}

	gapRow := func() []float64 {
		gc := cs.GapColumnFor(e.P, part, storeR, s)
		for i := range gc.Row {
			gc.Row[i] = 1
		}
		return gc.Row
	}

	localDelta := uint32(0)
	scratch := make([]float64, s)

	for i := 0; i < width; i++ {
		rowOut := out[i*storeR*s : (i+1)*storeR*s]

		if pc.SaveMemory && outGaps.Get(i) {
			copy(rowOut, gapRow())
			continue
		}

		for storeIdx := 0; storeIdx < storeR; storeIdx++ {
			rate := pc.rateIndex(storeIdx, i)
			dst := rowOut[storeIdx*s : (storeIdx+1)*s]

			for k := 0; k < s; k++ {
				aL := sideValue(qSrc, umpLeft, left, rate, storeIdx, k, s, i, st, part, cs, width, storeR)
				aR := sideValue(rSrc, umpRight, right, rate, storeIdx, k, s, i, st, part, cs, width, storeR)
				scratch[k] = aL * aR
			}
			for k := 0; k < s; k++ {
				sum := 0.0
				for j := 0; j < s; j++ {
					sum += pc.Eigen.EV[k][j] * scratch[j]
				}
				dst[k] = sum
			}
		}

		if clv.ScaleRowIfNeeded(rowOut) {
			localDelta += uint32(pc.Weights[i])
		}
	}

	qScaler := cs.Scaler(e.Q, part)
	rScaler := cs.Scaler(e.R, part)
	cs.SetScaler(e.P, part, qScaler+rScaler+localDelta)
	cs.SetOriented(e.P, true)
	return nil
}

// sideValue returns Σⱼ P[rate,j,k]·vl[j] for one side of the core loop,
// using the amortised ump table for byte tips (where vl is independent of
// pattern i), the PoMo tip CLV for PoMo tips, or the child's stored CLV
// row otherwise.
// storeR is the child's stored-rate-row count, always the same as the
// current partition context's (CLV buffers for every node of one
// partition share one StoreR for the lifetime of the traversal).
func sideValue(src rowSource, ump [][]float64, p []float64, rate, storeIdx, k, s, i int, st *align.Store, part int, cs *clv.Store, width, storeR int) float64 {
	switch {
	case src.isByteTip:
		code := st.TipByte(part, src.tipIndex, i)
		return ump[code][rate*s+k]
	case src.isPoMoTip:
		row := st.TipCLV(part, src.tipIndex, i)
		return matVecCol(p, rate, k, s, row)
	default:
		buf := cs.GetCLVMut(src.node, part, width, storeR, s)
		base := (i*storeR + storeIdx) * s
		return matVecCol(p, rate, k, s, buf[base:base+s])
	}
}

func gapSetFor(tree *Tree, node, part, width int, st *align.Store, cs *clv.Store) *clv.GapSet {
	n := tree.Nodes[node]
	if !n.IsTip {
		return cs.GapSetFor(node, part, width)
	}
	gs := clv.NewGapSet(width)
	meta := st.PartitionMeta(part)
	if meta.DataType.IsPoMo() {
		return gs // PoMo tips are never treated as gap columns (simplification).
	}
	for i := 0; i < width; i++ {
		if st.TipByte(part, n.TipIndex, i) == 0 {
			gs.Set(i)
		}
	}
	return gs
}
