// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package plk

import (
	"context"

	"github.com/evoplk/plk/align"
	"github.com/evoplk/plk/align/exabin"
	"github.com/evoplk/plk/clv"
	"github.com/evoplk/plk/reduce"
	"github.com/evoplk/plk/substmodel"
	"github.com/evoplk/plk/traversal"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/multierror"
	"github.com/grailbio/base/traverse"
)

// defaultGammaRates is the classic four-category discrete-Gamma rate
// table used when a caller does not supply one, shape parameter α=1
// (median-rate discretisation); callers needing a fitted α supply their
// own PartitionConfig.Rates (model-parameter optimisation is out of
// scope, §1).
var defaultGammaRates = []float64{0.1458, 0.5131, 1.0708, 2.2703}

// Kernel wires align.Store + substmodel + clv.Store + traversal + reduce
// behind exactly the §6 caller interface.
type Kernel struct {
	store    *align.Store
	tree     *traversal.Tree
	clvs     *clv.Store
	reducer  reduce.AllReducer
	builder  *traversal.Builder
	contexts []*traversal.PartitionContext

	perPartitionLL []float64
	converged      []bool
}

// NewKernel constructs a Kernel for store's alignment and tree's topology,
// per cfg. byteCapacity bounds the CLV arena's total resident bytes
// (§4.3). reducer is the required inter-rank collective collaborator
// (§9); pass reduce.LocalAllReducer{} for a single rank.
func NewKernel(store *align.Store, tree *traversal.Tree, cfg Config, byteCapacity int, reducer reduce.AllReducer) (*Kernel, error) {
	tree.PerPartitionBranchLengths = cfg.PerPartitionBranchLengths

	cs, err := clv.NewStore(byteCapacity)
	if err != nil {
		return nil, err
	}

	n := store.NumPartitions()
	if len(cfg.Partitions) != n {
		return nil, &traversal.ShapeError{Msg: "plk: Config.Partitions length does not match alignment partition count"}
	}

	contexts := make([]*traversal.PartitionContext, n)
	for m := 0; m < n; m++ {
		pc, err := buildPartitionContext(store.PartitionMeta(m), cfg, cfg.Partitions[m])
		if err != nil {
			return nil, err
		}
		contexts[m] = pc
	}

	k := &Kernel{
		store:   store,
		tree:    tree,
		clvs:    cs,
		reducer: reducer,
		builder: &traversal.Builder{
			Tree:     tree,
			Oriented: cs.IsOriented,
		},
		contexts:       contexts,
		perPartitionLL: make([]float64, n),
		converged:      make([]bool, n),
	}
	return k, nil
}

func buildPartitionContext(meta exabin.PartitionMeta, cfg Config, pcfg PartitionConfig) (*traversal.PartitionContext, error) {
	states := int(meta.States)

	if meta.DataType == exabin.AA && (meta.ProtModel == exabin.LG4M || meta.ProtModel == exabin.LG4X) {
		if cfg.SaveMemory {
			return nil, &traversal.ShapeError{Msg: "plk: LG4M/LG4X is incompatible with save_memory"}
		}
	}
	if meta.ProtModel == exabin.ProtModelAuto && cfg.SaveMemory {
		return nil, &traversal.ShapeError{Msg: "plk: AUTO protein model is incompatible with save_memory"}
	}

	eigen, err := eigenDecompFor(meta)
	if err != nil {
		return nil, err
	}

	rates := pcfg.Rates
	storeR := 1
	switch pcfg.RateHet {
	case traversal.GAMMA:
		if rates == nil {
			rates = defaultGammaRates
		}
		storeR = len(rates)
	case traversal.CAT:
		if rates == nil {
			return nil, &traversal.ShapeError{Msg: "plk: CAT rate heterogeneity requires a category table"}
		}
		storeR = 1
	default: // PLAIN
		if rates == nil {
			rates = []float64{1.0}
		}
		storeR = 1
	}

	return &traversal.PartitionContext{
		DataType:       meta.DataType,
		States:         states,
		RateHet:        pcfg.RateHet,
		Rates:          rates,
		CatSitePattern: pcfg.CatSitePattern,
		StoreR:         storeR,
		Eigen:          eigen,
		SaveMemory:     cfg.SaveMemory,
		MaxCat:         cfg.MaxCat,
		TipVectors:     align.BuildTipVectors(meta.DataType, states, int(meta.MaxTipState)),
		Weights:        nil, // filled in by SetWeights once the worker's weight slice is known.
		ExecModel:      true,
	}, nil
}

func eigenDecompFor(meta exabin.PartitionMeta) (*substmodel.EigenDecomp, error) {
	if meta.DataType == exabin.AA {
		e, ok := substmodel.EmpiricalAAMatrices[substmodel.ProtModelID(meta.ProtModel)]
		if !ok {
			return nil, &traversal.ShapeError{Msg: "plk: unsupported protein model for AA partition"}
		}
		return e, nil
	}
	eigenvalues := make([]float64, meta.States)
	for i := 1; i < len(eigenvalues); i++ {
		eigenvalues[i] = -1.0
	}
	return substmodel.NewGTRDecomp(eigenvalues, meta.Frequencies), nil
}

// SetWeights attaches worker-local pattern weights to partition m's
// context; callers must do this for every partition before the first
// NewView/Evaluate call. The slice's length is taken as the partition's
// local width (PartitionContext.Width); align.Store.Weights returns the
// partition's full, unsharded [Lower, Upper) range, not a worker's window.
func (k *Kernel) SetWeights(m int, weights []int32) {
	k.contexts[m].Weights = weights
}

// SetOrientation is the tree-search collaborator's orientation hook (§6
// "the tree-search collaborator flips these when it rearranges the
// topology; the PLK never flips them except after writing a CLV").
func (k *Kernel) SetOrientation(node int, v bool) {
	k.clvs.SetOriented(node, v)
}

// NewView brings node's CLV up to date across every partition (§6
// "newview(node)").
func (k *Kernel) NewView(node int) error {
	return k.newView(node, nil)
}

// NewViewMasked is NewView restricted to partitions where
// partitionConverged[m] is false (§6 "newview_masked(node,
// partition_mask)").
func (k *Kernel) NewViewMasked(node int, partitionConverged []bool) error {
	return k.newView(node, partitionConverged)
}

func (k *Kernel) newView(node int, converged []bool) error {
	entries := k.builder.ComputeTraversalInfo(node, true)
	if log.At(log.Debug) {
		log.Debug.Printf("plk: newview(%d): %d descriptor entries across %d partitions", node, len(entries), len(k.contexts))
	}
	errs := multierror.NewMultiError(len(k.contexts))
	for m, pc := range k.contexts {
		if converged != nil && len(converged) > m && converged[m] {
			continue
		}
		if !pc.ExecModel || pc.Width() == 0 {
			continue
		}
		for _, e := range entries {
			errs.Add(traversal.NewView(e, k.tree, m, pc, k.store, k.clvs))
		}
	}
	return errs.ErrorOrNil()
}

// Evaluate returns the global log-likelihood at the virtual-root branch
// (p, q), mutating CLV orientations along the way (§6 "evaluate"). The
// descriptor is the concatenation of ComputeTraversalInfo(p) and
// ComputeTraversalInfo(q), with no separate entry for the (p, q) pair
// itself; newview runs over all of it — p's own subtree, oriented away
// from q, and q's own subtree, oriented away from p — before Evaluate
// reads both endpoints (§4.5).
// fullTraversal selects whether every inner node is recomputed
// regardless of its current orientation.
func (k *Kernel) Evaluate(ctx context.Context, p, q int, fullTraversal bool) (float64, error) {
	partial := !fullTraversal
	entries := append(k.builder.ComputeTraversalInfo(p, partial), k.builder.ComputeTraversalInfo(q, partial)...)
	if log.At(log.Debug) {
		log.Debug.Printf("plk: evaluate(%d, %d): %d descriptor entries, full=%v", p, q, len(entries), fullTraversal)
	}

	n := len(k.contexts)
	perPartition := make([]float64, n)
	errs := multierror.NewMultiError(n)

	// Each worker goroutine reports its own error into errs rather than
	// through traverse.Each's own return, so a shape mismatch in one
	// partition doesn't hide an unrelated error in another (§9 "the
	// tree-search collaborator needs to know which of its per-worker
	// partitions failed").
	traverse.Each(n, func(m int) error { // nolint: errcheck
		pc := k.contexts[m]
		if !pc.ExecModel || pc.Width() == 0 {
			return nil
		}
		for _, e := range entries {
			if err := traversal.NewView(e, k.tree, m, pc, k.store, k.clvs); err != nil {
				errs.Add(err)
				return nil
			}
		}
		ll, err := traversal.Evaluate(p, q, k.tree, m, pc, k.store, k.clvs)
		if err != nil {
			errs.Add(err)
			return nil
		}
		perPartition[m] = ll
		return nil
	})
	if err := errs.ErrorOrNil(); err != nil {
		return 0, err
	}

	reduced, err := k.reducer.AllReduceSum(ctx, perPartition)
	if err != nil {
		return 0, errors.E(err, "plk: inter-rank reduction")
	}
	k.perPartitionLL = reduced
	return reduce.Total(reduced), nil
}

// PerPartitionLL returns partition m's log-likelihood, valid after
// Evaluate (§6 "per_partition_ll(m)").
func (k *Kernel) PerPartitionLL(m int) float64 {
	return k.perPartitionLL[m]
}
