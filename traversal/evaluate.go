// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traversal

import (
	"math"

	"github.com/evoplk/plk/align"
	"github.com/evoplk/plk/clv"
	"github.com/evoplk/plk/substmodel"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// termEpsilon floors |term| before taking its log, avoiding -Inf on an
// exact (or underflowed) zero term (§4.5).
const termEpsilon = 1e-300

// Evaluate computes the per-partition log-likelihood at the virtual-root
// branch (p, q) (§4.5). The descriptor must already have been run through
// NewView so that p and q, wherever they are inner nodes, carry oriented
// CLVs; Evaluate itself performs no CLV writes.
//
// (p, q) must be the two endpoints of one existing tree edge — q ==
// tree.Nodes[p].Back and p == tree.Nodes[q].Back — because every other
// node's CLV was computed by ComputeTraversalInfo/NewView oriented away
// from its own Back neighbor (§4.4); Child0/Child1/Back are fixed at
// construction (traversal/node.go), so there is no reorientation step that
// could make a CLV already on the descriptor valid for a different branch.
// A caller asking for a branch other than the baked-in one gets a
// ShapeError rather than a silently wrong log-likelihood.
func Evaluate(p, q int, tree *Tree, part int, pc *PartitionContext, st *align.Store, cs *clv.Store) (float64, error) {
	if tree.Nodes[p].Back != q || tree.Nodes[q].Back != p {
		return 0, &ShapeError{Msg: "evaluate: (p, q) is not an existing tree edge; this topology is not reorientable at query time"}
	}

	s := pc.States
	storeR := pc.StoreR
	width := pc.Width()
	if log.At(log.Debug) {
		log.Debug.Printf("traversal: evaluate part=%d p=%d q=%d width=%d", part, p, q, width)
	}

	qz := tree.Length(q, part)
	diag := substmodel.MakeDiagP(qz, pc.Rates, pc.Eigen)

	pSrc := classifySide(tree, p, pc.DataType.IsPoMo())
	qSrc := classifySide(tree, q, pc.DataType.IsPoMo())

	partialLL := 0.0
	for i := 0; i < width; i++ {
		accum := 0.0
		for storeIdx := 0; storeIdx < storeR; storeIdx++ {
			rate := pc.rateIndex(storeIdx, i)
			diagRow := diag[rate*s : rate*s+s]

			vp := rowAt(pSrc, storeIdx, i, s, storeR, width, part, pc.TipVectors, st, cs)
			vq := rowAt(qSrc, storeIdx, i, s, storeR, width, part, pc.TipVectors, st, cs)

			sum := 0.0
			for k := 0; k < s; k++ {
				sum += vp[k] * vq[k] * diagRow[k]
			}
			accum += sum
		}
		term := accum / float64(storeR)
		absTerm := math.Abs(term)
		if absTerm < termEpsilon {
			absTerm = termEpsilon
		}
		partialLL += float64(pc.Weights[i]) * math.Log(absTerm)
	}

	scalerSum := cs.Scaler(p, part) + cs.Scaler(q, part)
	partialLL += float64(scalerSum) * math.Log(clv.MinLikelihood)

	if partialLL >= 0 {
		return 0, errors.Errorf("traversal: partition %d: partial log-likelihood %v is not negative", part, partialLL)
	}
	return partialLL, nil
}

// rowAt returns the length-S row node side contributes at pattern i,
// storage row storeIdx: a tip vector (byte or PoMo) when the side is a
// tip, the stored CLV row otherwise (§4.5 "If one endpoint is a tip by
// byte... Else both endpoints carry CLVs").
func rowAt(src rowSource, storeIdx, i, s, storeR, width, part int, tipVectors [][]float64, st *align.Store, cs *clv.Store) []float64 {
	switch {
	case src.isByteTip:
		code := st.TipByte(part, src.tipIndex, i)
		return tipVectors[code]
	case src.isPoMoTip:
		return st.TipCLV(part, src.tipIndex, i)
	default:
		buf := cs.GetCLVMut(src.node, part, width, storeR, s)
		base := (i*storeR + storeIdx) * s
		return buf[base : base+s]
	}
}
