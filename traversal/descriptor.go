// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traversal

// TipCase classifies a (p, q, r) triple by whether q and r are tips or
// inner nodes, selecting which newview inner loop to run (§3 "Tip case").
// The descriptor itself is built once per tree and shared across every
// partition (§4.4 "newview runs partition-by-partition" over one shared
// descriptor); the *_CLV promotion for PoMo tips is a per-partition
// property (a partition's data type, not a property of the tree), so it
// is applied by EffectiveCase at newview time, not baked into the
// descriptor here.
type TipCase int

const (
	// TipTip: both children are tips.
	TipTip TipCase = iota
	// TipInner: q is a tip (canonicalised), r is an inner node.
	TipInner
	// InnerInner: both children are inner nodes.
	InnerInner
	// TipTipCLV: both children are PoMo tips, which carry CLVs rather
	// than byte codes (EffectiveCase's promotion of TipTip).
	TipTipCLV
	// TipInnerCLV: q is a PoMo tip, r is inner (EffectiveCase's
	// promotion of TipInner).
	TipInnerCLV
)

func (c TipCase) String() string {
	switch c {
	case TipTip:
		return "TIP_TIP"
	case TipInner:
		return "TIP_INNER"
	case InnerInner:
		return "INNER_INNER"
	case TipTipCLV:
		return "TIP_TIP_CLV"
	case TipInnerCLV:
		return "TIP_INNER_CLV"
	default:
		return "TipCase(?)"
	}
}

// EffectiveCase promotes a base case emitted by the descriptor builder to
// its PoMo variant when the partition being processed carries tip CLVs
// instead of tip bytes (§4.4 "PoMo tips are CLV-bearing... tipCase is
// promoted to TIP_TIP_CLV or TIP_INNER_CLV").
func EffectiveCase(base TipCase, partitionIsPoMo bool) TipCase {
	if !partitionIsPoMo {
		return base
	}
	switch base {
	case TipTip:
		return TipTipCLV
	case TipInner:
		return TipInnerCLV
	default:
		return base
	}
}

// Entry is one record of a traversal descriptor (§3): p is the node to
// update, q and r its two children under p's current orientation.
type Entry struct {
	P, Q, R int
	Case    TipCase
}

// Builder constructs traversal descriptors against a fixed Tree.
type Builder struct {
	Tree *Tree

	// Oriented reports whether node's CLV is already up to date; queried
	// (and never mutated) during descriptor construction. The underlying
	// flag is only ever set by the caller after newview actually
	// recomputes a node (clv.Store.SetOriented).
	Oriented func(node int) bool
}

// ComputeTraversalInfo builds the descriptor that brings p's CLV up to
// date (§4.4 compute_traversal_info). partial selects whether
// already-oriented inner nodes are skipped (true) or every inner node is
// recursed into regardless (false, full traversal).
func (b *Builder) ComputeTraversalInfo(p int, partial bool) []Entry {
	var out []Entry
	b.recurse(p, partial, &out)
	return out
}

func (b *Builder) recurse(p int, partial bool, out *[]Entry) {
	node := b.Tree.Nodes[p]
	if node.IsTip {
		return
	}
	q, r := b.Tree.Child(p)
	qNode, rNode := b.Tree.Nodes[q], b.Tree.Nodes[r]

	switch {
	case qNode.IsTip && rNode.IsTip:
		*out = append(*out, Entry{P: p, Q: q, R: r, Case: TipTip})

	case qNode.IsTip || rNode.IsTip:
		if rNode.IsTip {
			q, r = r, q
		}
		if !b.Oriented(r) || !partial {
			b.recurse(r, partial, out)
		}
		*out = append(*out, Entry{P: p, Q: q, R: r, Case: TipInner})

	default:
		if !b.Oriented(q) || !partial {
			b.recurse(q, partial, out)
		}
		if !b.Oriented(r) || !partial {
			b.recurse(r, partial, out)
		}
		*out = append(*out, Entry{P: p, Q: q, R: r, Case: InnerInner})
	}
}
