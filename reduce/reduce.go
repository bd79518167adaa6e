// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package reduce implements the Reduction Layer (§4.6): deterministic
// intra-rank (thread) summation of per-partition partial log-likelihoods,
// followed by the inter-rank collective the (out-of-scope) transport
// collaborator provides.
package reduce

import "context"

// ThreadReduce sums buffers[tid][m] across tid, for every partition m, in
// ascending tid order (§4.6 "sum reduction_buffer[tid] across threads...
// in a deterministic order (sorted by tid)"). Buffers may differ in length:
// the result has the length of the longest buffer, and entries a shorter
// buffer (or a nil buffer, for a thread that did not touch any partition)
// lacks count as zero.
func ThreadReduce(buffers [][]float64) []float64 {
	if len(buffers) == 0 {
		return nil
	}
	n := 0
	for _, b := range buffers {
		if len(b) > n {
			n = len(b)
		}
	}
	out := make([]float64, n)
	for tid := 0; tid < len(buffers); tid++ {
		b := buffers[tid]
		for m := 0; m < len(b); m++ {
			out[m] += b[m]
		}
	}
	return out
}

// AllReducer is the required inter-rank collective collaborator (§9
// DESIGN NOTES: "the kernel does not own the transport"): sum an f64
// vector of length NumberOfModels across every rank, symmetrically —
// every rank ends holding the same summed vector (§4.6).
type AllReducer interface {
	AllReduceSum(ctx context.Context, v []float64) ([]float64, error)
}

// LocalAllReducer is the identity, single-rank AllReducer: it returns its
// input unchanged. It is the only concrete AllReducer this repository
// ships, since an actual MPI/collective transport is, like the
// tree-search driver, an external collaborator no pack example repo
// supplies a library for (§E.5).
type LocalAllReducer struct{}

// AllReduceSum returns a copy of v (a single rank has nothing to reduce
// against).
func (LocalAllReducer) AllReduceSum(ctx context.Context, v []float64) ([]float64, error) {
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

// Total sums a fully-reduced per-partition vector into the scalar
// log-likelihood (§4.6 "The final scalar is Σ_model per_partition_ll[model]").
func Total(perPartitionLL []float64) float64 {
	sum := 0.0
	for _, v := range perPartitionLL {
		sum += v
	}
	return sum
}
