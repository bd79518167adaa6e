// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package traversal implements the Traversal Engine (§4.4-§4.5): building
// the linearised descriptor of inner nodes that must be recomputed to
// answer a query at a virtual-root branch, driving newview bottom-up over
// it, and evaluating the log-likelihood at the root.
//
// Node topology is an arena of fixed-size records indexed by int, per the
// DESIGN NOTES re-architecture guidance (§9): p.next, p.next.next, and
// p.back become index fields rather than a cyclic pointer ring, since a
// node's two children are fixed for the lifetime of a tree computation and
// the virtual root is always one of a node's existing neighbor edges.
package traversal

// Node is one arena record: either a tip (leaf) or an inner node with two
// children. Back is the edge this node currently treats as its parent
// direction; Child0/Child1 are its other two neighbors (the "q" and "r" of
// §4.4 under the node's current orientation).
type Node struct {
	IsTip    bool
	TipIndex int // valid iff IsTip; index into the alignment's taxa.
	Back     int // neighbor index in the parent direction, -1 if none (root placeholder).
	Child0   int // neighbor index "p.next.back", -1 if IsTip.
	Child1   int // neighbor index "p.next.next.back", -1 if IsTip.
}

// Tree is the fixed topology the engine traverses: an arena of Nodes plus,
// per partition, a branch length for every node's Back edge (shared across
// partitions when per-partition lengths are disabled).
type Tree struct {
	Nodes []Node

	// PerPartitionBranchLengths selects whether BranchLength indexes by
	// partition or every partition shares BranchLength[node][0] (§6
	// "per_partition_branch_lengths").
	PerPartitionBranchLengths bool

	// BranchLength[node] is the length of node's Back edge: one entry per
	// partition if PerPartitionBranchLengths, else a single shared entry.
	BranchLength [][]float64
}

// Length returns node's branch length for partition part.
func (t *Tree) Length(node, part int) float64 {
	if t.PerPartitionBranchLengths {
		return t.BranchLength[node][part]
	}
	return t.BranchLength[node][0]
}

// Child returns node's two children under its current orientation: q, r
// such that q = p.next.back, r = p.next.next.back (§4.4). node must be an
// inner node.
//
// The orientation is fixed at construction: Child0/Child1/Back never
// change, so the returned pair is always the same regardless of which
// branch a caller is querying as the virtual root. Evaluate rejects any
// (p, q) pair that isn't node p's actual Back edge rather than trusting a
// CLV built under the wrong orientation; see traversal/evaluate.go.
func (t *Tree) Child(node int) (q, r int) {
	n := t.Nodes[node]
	return n.Child0, n.Child1
}
