// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traversal

import (
	"math"
	"testing"

	"github.com/evoplk/plk/align"
	"github.com/evoplk/plk/align/exabin"
	"github.com/evoplk/plk/clv"
	"github.com/evoplk/plk/substmodel"
	"github.com/evoplk/plk/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dumpP renders a flat S*S*numCat P-matrix (substmodel.MakeP's layout) as a
// per-rate-category matrix string, for logging in a failing test.
func dumpP(p []float64, numCat, s int) string {
	var out string
	for rate := 0; rate < numCat; rate++ {
		m := util.NewMatrix(s, s)
		copy(m.Data, p[rate*s*s:(rate+1)*s*s])
		out += m.String()
	}
	return out
}

// threeTaxonFixture builds the star tree of §8 scenario 2: tip0, tip1
// cherry under inner node X, X's back neighbor is tip2. Two DNA patterns,
// CAT rate heterogeneity, two categories.
func threeTaxonFixture(t *testing.T) (*Tree, *PartitionContext, *align.Store, *clv.Store) {
	t.Helper()
	tree := &Tree{
		Nodes: []Node{
			{IsTip: true, TipIndex: 0, Back: 3},
			{IsTip: true, TipIndex: 1, Back: 3},
			{IsTip: true, TipIndex: 2, Back: 3},
			{IsTip: false, Child0: 0, Child1: 1, Back: 2},
		},
		BranchLength: [][]float64{{0.5}, {0.5}, {0.5}, {0.5}},
	}

	// taxon0: A, G ; taxon1: A, G ; taxon2: C, T (codes A=1 C=2 G=3 T=4).
	data := &exabin.Data{
		Weights: []int32{1, 1},
		Taxa:    []string{"t0", "t1", "t2"},
		Partitions: []exabin.PartitionMeta{
			{States: 4, MaxTipState: 4, Width: 2, DataType: exabin.DNA},
		},
		TipBytes: [][]byte{
			{1, 3, 1, 3, 2, 4},
		},
	}
	store := align.NewStoreFromData(data)

	pc := &PartitionContext{
		DataType:       exabin.DNA,
		States:         4,
		RateHet:        CAT,
		Rates:          []float64{1.0, 2.0},
		CatSitePattern: []int32{0, 1},
		StoreR:         1,
		Eigen:          substmodel.NewGTRDecomp(nil, nil),
		TipVectors:     align.BuildTipVectors(exabin.DNA, 4, 4),
		Weights:        []int32{1, 1},
		ExecModel:      true,
	}

	cs, err := clv.NewStore(1 << 20)
	require.NoError(t, err)
	return tree, pc, store, cs
}

func TestNewViewThenEvaluateIsNegativeAndFinite(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)
	entry := Entry{P: 3, Q: 0, R: 1, Case: TipTip}

	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))
	assert.True(t, cs.IsOriented(3))

	left, right := substmodel.MakeP(tree.Length(0, 0), tree.Length(1, 0), pc.Rates, pc.Eigen, false, 0)
	t.Logf("left P-matrices:%s\nright P-matrices:%s", dumpP(left, len(pc.Rates), pc.States), dumpP(right, len(pc.Rates), pc.States))

	ll, err := Evaluate(3, 2, tree, 0, pc, store, cs)
	require.NoError(t, err)
	assert.Less(t, ll, 0.0)
	assert.False(t, math.IsNaN(ll))
	assert.False(t, math.IsInf(ll, 0))
}

func TestEvaluateRootInvarianceUnderBranchFlip(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)
	entry := Entry{P: 3, Q: 0, R: 1, Case: TipTip}
	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))

	a, err := Evaluate(3, 2, tree, 0, pc, store, cs)
	require.NoError(t, err)
	b, err := Evaluate(2, 3, tree, 0, pc, store, cs)
	require.NoError(t, err)
	assert.InDelta(t, a, b, 1e-9)
}

func TestNewViewIdempotent(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)
	entry := Entry{P: 3, Q: 0, R: 1, Case: TipTip}

	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))
	first := cs.GetCLVMut(3, 0, pc.Width(), pc.StoreR, pc.States)
	firstCopy := append([]float64(nil), first...)
	firstScaler := cs.Scaler(3, 0)

	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))
	second := cs.GetCLVMut(3, 0, pc.Width(), pc.StoreR, pc.States)
	assert.Equal(t, firstCopy, second)
	assert.Equal(t, firstScaler, cs.Scaler(3, 0))
}

func TestNewViewScalerAdditivity(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)

	// Pre-seed Y (node id 1, reused as an inner node for this test) with an
	// already-oriented CLV and a nonzero scaler, then run newview for X
	// (node 3) treating it as X's inner child instead of a tip.
	tree.Nodes[1] = Node{IsTip: false, Child0: 0, Child1: 2}
	buf := cs.GetCLVMut(1, 0, pc.Width(), pc.StoreR, pc.States)
	for i := range buf {
		buf[i] = 0.5
	}
	cs.SetScaler(1, 0, 7)
	cs.SetOriented(1, true)

	entry := Entry{P: 3, Q: 0, R: 1, Case: TipInner}
	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))

	qScaler := cs.Scaler(0, 0) // tip, defaults to 0
	rScaler := cs.Scaler(1, 0)
	delta := cs.Scaler(3, 0) - qScaler - rScaler
	assert.Equal(t, uint32(7), rScaler)
	assert.GreaterOrEqual(t, delta, uint32(0))
	assert.Equal(t, qScaler+rScaler+delta, cs.Scaler(3, 0))
}

func TestNewViewRejectsShapeMismatch(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)
	// TipTip claims both children are tips, but node 1 is made inner here.
	tree.Nodes[1] = Node{IsTip: false, Child0: 0, Child1: 2}
	entry := Entry{P: 3, Q: 0, R: 1, Case: TipTip}
	err := NewView(entry, tree, 0, pc, store, cs)
	require.Error(t, err)
	_, ok := err.(*ShapeError)
	assert.True(t, ok)
}

func TestGapColumnEvaluateIsNegative(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)
	// Make both children all-gap (byte code 0) at every pattern; t2 carries
	// code 2 ("C") rather than code 1 ("A") so the real side of the root
	// pair doesn't land on the eigenvalue-0 slot substmodel.MakeDiagP
	// hardwires to 1 regardless of branch length (see DESIGN.md's
	// "Documented simplifications" — the all-ones gap CLV otherwise makes
	// that index's term exactly 1, masking the branch-length dependence
	// this test wants to see on top of the gap law).
	store = align.NewStoreFromData(&exabin.Data{
		Weights: []int32{1, 1},
		Taxa:    []string{"t0", "t1", "t2"},
		Partitions: []exabin.PartitionMeta{
			{States: 4, MaxTipState: 4, Width: 2, DataType: exabin.DNA},
		},
		TipBytes: [][]byte{
			{0, 0, 0, 0, 2, 2},
		},
	})
	pc.SaveMemory = true
	entry := Entry{P: 3, Q: 0, R: 1, Case: TipTip}
	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))

	ll, err := Evaluate(3, 2, tree, 0, pc, store, cs)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(ll))
	assert.Less(t, ll, 0.0)
}

func TestEvaluateRejectsNonEdge(t *testing.T) {
	tree, pc, store, cs := threeTaxonFixture(t)
	entry := Entry{P: 3, Q: 0, R: 1, Case: TipTip}
	require.NoError(t, NewView(entry, tree, 0, pc, store, cs))

	// Node 0 (tip0) is not node 1's (tip1's) Back neighbor -- both are
	// Back=3 -- so this is not an existing tree edge, and the CLVs NewView
	// computed above were oriented for the (3, 2) branch, not (0, 1).
	_, err := Evaluate(0, 1, tree, 0, pc, store, cs)
	require.Error(t, err)
	_, ok := err.(*ShapeError)
	assert.True(t, ok)
}

func TestDescriptorBaseCasesOnly(t *testing.T) {
	tree, _, _, cs := threeTaxonFixture(t)
	b := &Builder{Tree: tree, Oriented: cs.IsOriented}
	entries := b.ComputeTraversalInfo(3, false)
	require.Len(t, entries, 1)
	assert.Equal(t, TipTip, entries[0].Case)
}

func TestEffectiveCasePromotesUnderPoMo(t *testing.T) {
	assert.Equal(t, TipTipCLV, EffectiveCase(TipTip, true))
	assert.Equal(t, TipInnerCLV, EffectiveCase(TipInner, true))
	assert.Equal(t, InnerInner, EffectiveCase(InnerInner, true))
	assert.Equal(t, TipTip, EffectiveCase(TipTip, false))
}

func TestPartialTraversalSkipsOrientedDescendants(t *testing.T) {
	// tip0, tip1 cherry under Y(4); Y and tip2 under X(5); X's back is tip3.
	tree := &Tree{
		Nodes: []Node{
			{IsTip: true, TipIndex: 0, Back: 4},
			{IsTip: true, TipIndex: 1, Back: 4},
			{IsTip: true, TipIndex: 2, Back: 5},
			{IsTip: true, TipIndex: 3, Back: 5},
			{IsTip: false, Child0: 0, Child1: 1, Back: 5},
			{IsTip: false, Child0: 4, Child1: 2, Back: 3},
		},
	}
	cs, err := clv.NewStore(1 << 20)
	require.NoError(t, err)
	b := &Builder{Tree: tree, Oriented: cs.IsOriented}

	cs.SetOriented(4, true)
	partial := b.ComputeTraversalInfo(5, true)
	require.Len(t, partial, 1)
	assert.Equal(t, 5, partial[0].P)

	cs.SetOriented(4, false)
	full := b.ComputeTraversalInfo(5, true)
	require.Len(t, full, 2)
	assert.Equal(t, 4, full[0].P)
	assert.Equal(t, 5, full[1].P)
}
