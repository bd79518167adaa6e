// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"github.com/evoplk/plk/align/exabin"
	"github.com/pkg/errors"
)

// AssignColumns splits each partition's [0, width) column range into
// nWorkers contiguous shards and returns worker w's assignment across all
// partitions. The split is as even as possible: the first (width % n)
// workers get one extra column, the same scheme GenerateReadShards uses to
// divide a coordinate range into approximately-equal shards.
//
// Widths gives each partition's full (unsharded) column count, in
// partition order; the returned assignments use the same order.
func AssignColumns(widths []uint64, nWorkers, w int) ([]exabin.PartitionAssignment, error) {
	if nWorkers <= 0 {
		return nil, errors.Errorf("align: nWorkers must be positive, got %d", nWorkers)
	}
	if w < 0 || w >= nWorkers {
		return nil, errors.Errorf("align: worker index %d out of range [0,%d)", w, nWorkers)
	}
	out := make([]exabin.PartitionAssignment, 0, len(widths))
	for i, width := range widths {
		base := width / uint64(nWorkers)
		rem := width % uint64(nWorkers)
		var offset uint64
		for j := 0; j < w; j++ {
			share := base
			if uint64(j) < rem {
				share++
			}
			offset += share
		}
		share := base
		if uint64(w) < rem {
			share++
		}
		out = append(out, exabin.PartitionAssignment{Partition: i, Offset: offset, Width: share})
	}
	return out, nil
}
