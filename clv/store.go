// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package clv

import "math"

// MinLikelihood is the scale-up threshold: roughly 2^(-256*0.5) (§4.4).
var MinLikelihood = math.Pow(2, -256*0.5)

// TwoToThe256 is the scale-up multiplier applied to an entire CLV row when
// every element falls below MinLikelihood.
var TwoToThe256 = math.Pow(2, 256)

// nodePart identifies one (node, partition) CLV slot.
type nodePart struct {
	node, part int
}

// Store owns every inner node's CLV buffers, their scaling counters, their
// orientation flags, and their gap sidecars (§4.3). One Store exists per
// worker; buffers are sized to the worker's local partition widths.
type Store struct {
	arena *Arena

	clv      map[nodePart][]float64
	sizes    map[nodePart]int // width*R*S the buffer was last allocated at
	oriented map[int]bool     // per node only, shared across partitions (§4.3)
	scaler   map[nodePart]uint32
	gapSet   map[nodePart]*GapSet
	gapCol   map[nodePart]*GapColumn
}

// NewStore creates an empty Store backed by an arena with the given byte
// capacity (an upper bound on the total CLV bytes this worker will need
// resident at once).
func NewStore(byteCapacity int) (*Store, error) {
	arena, err := NewArena(byteCapacity)
	if err != nil {
		return nil, err
	}
	return &Store{
		arena:    arena,
		clv:      make(map[nodePart][]float64),
		sizes:    make(map[nodePart]int),
		oriented: make(map[int]bool),
		scaler:   make(map[nodePart]uint32),
		gapSet:   make(map[nodePart]*GapSet),
		gapCol:   make(map[nodePart]*GapColumn),
	}, nil
}

// GetCLVMut returns node's CLV buffer for partition part, of length
// width*r*s, allocating (or reallocating, if the required size changed —
// e.g. under memory-saving mode when the node's gap-set changes) on first
// use (§4.3).
func (s *Store) GetCLVMut(node, part, width, r, states int) []float64 {
	key := nodePart{node, part}
	need := width * r * states
	if buf, ok := s.clv[key]; ok && s.sizes[key] == need {
		return buf
	}
	buf := s.arena.AllocFloat64(need)
	s.clv[key] = buf
	s.sizes[key] = need
	return buf
}

// IsOriented reports whether node's CLV is up to date, in whichever
// direction it currently faces. The flag is shared across every partition
// (§4.3 "set_oriented(node, bool) / is_oriented(node)" takes no partition
// argument — topology orientation is a single per-node bit, not a
// per-partition one; only the scaler and the CLV buffers themselves are
// per-partition).
func (s *Store) IsOriented(node int) bool {
	return s.oriented[node]
}

// SetOriented sets node's orientation flag. The (out-of-scope) tree-search
// collaborator calls this after rearranging the topology around node; the
// PLK itself only ever sets it to true, after writing node's CLV (§6
// "Orientation hooks").
func (s *Store) SetOriented(node int, v bool) {
	s.oriented[node] = v
}

// Scaler returns the current scaler counter for (node, part).
func (s *Store) Scaler(node, part int) uint32 {
	return s.scaler[nodePart{node, part}]
}

// SetScaler sets the scaler counter for (node, part).
func (s *Store) SetScaler(node, part int, v uint32) {
	s.scaler[nodePart{node, part}] = v
}

// GapSetFor returns (allocating if needed) node's gap sidecar for part.
func (s *Store) GapSetFor(node, part, width int) *GapSet {
	key := nodePart{node, part}
	if gs, ok := s.gapSet[key]; ok {
		return gs
	}
	gs := NewGapSet(width)
	s.gapSet[key] = gs
	return gs
}

// GapColumnFor returns (allocating if needed) node's gap column for part.
func (s *Store) GapColumnFor(node, part, r, states int) *GapColumn {
	key := nodePart{node, part}
	if gc, ok := s.gapCol[key]; ok {
		return gc
	}
	gc := &GapColumn{Row: make([]float64, r*states)}
	s.gapCol[key] = gc
	return gc
}

// Close releases the Store's backing arena.
func (s *Store) Close() error {
	return s.arena.Close()
}
