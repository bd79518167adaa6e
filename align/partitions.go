// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"github.com/biogo/store/interval"
	"github.com/evoplk/plk/align/exabin"
	"github.com/pkg/errors"
)

// partInterval adapts one partition's [lower, upper) column range to
// biogo/store/interval's Interval type, so the non-overlap/coverage check
// (§3 "partitions do not overlap; their union covers the full compressed
// pattern range") runs as an interval-tree query instead of the teacher's
// hand-rolled endpoint scan (interval/endpoint_index.go).
type partInterval struct {
	idx        int
	start, end int
}

func (p partInterval) Overlap(b interval.IntRange) bool {
	return p.start < b.End && b.Start < p.end
}
func (p partInterval) ID() uintptr           { return uintptr(p.idx) }
func (p partInterval) Range() interval.IntRange {
	return interval.IntRange{Start: p.start, End: p.end}
}
func (p partInterval) Start() int { return p.start }
func (p partInterval) End() int   { return p.end }

// ValidatePartitions checks that parts' [Lower, Upper) ranges are pairwise
// non-overlapping and that their union covers exactly [0, patternCount).
func ValidatePartitions(parts []exabin.PartitionMeta, patternCount uint64) error {
	t := &interval.Tree{}
	for i, p := range parts {
		if p.Upper <= p.Lower {
			return errors.Errorf("align: partition %d has empty range [%d,%d)", i, p.Lower, p.Upper)
		}
		iv := partInterval{idx: i, start: int(p.Lower), end: int(p.Upper)}
		overlaps := t.Get(iv)
		if len(overlaps) > 0 {
			return errors.Errorf("align: partition %d [%d,%d) overlaps an earlier partition", i, p.Lower, p.Upper)
		}
		if err := t.Insert(iv, true); err != nil {
			return errors.Wrapf(err, "align: inserting partition %d into interval tree", i)
		}
	}
	t.AdjustRanges()

	covered := make([]bool, patternCount)
	for _, p := range parts {
		for i := p.Lower; i < p.Upper; i++ {
			covered[i] = true
		}
	}
	for i, c := range covered {
		if !c {
			return errors.Errorf("align: pattern column %d is not covered by any partition", i)
		}
	}
	return nil
}
