// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package align

import (
	"encoding/binary"
	"math"

	"blainsmith.com/go/seahash"
	"github.com/minio/highwayhash"
)

// PartitionChecksum hashes partition part's raw tip data (byte codes, or the
// IEEE-754 bits of its tip CLVs for a PoMo partition) with seahash, the same
// fast non-cryptographic hash cmd/bio-pamtool's checksum command uses to spot
// a corrupted or truncated shard after a worker's slice of the alignment is
// loaded (§4.1).
func (s *Store) PartitionChecksum(part int) uint64 {
	p := s.data.Partitions[part]
	h := seahash.New()
	if p.DataType.IsPoMo() {
		var buf [8]byte
		for _, v := range s.data.TipCLVs[part] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:]) // nolint: errcheck
		}
		return h.Sum64()
	}
	h.Write(s.data.TipBytes[part]) // nolint: errcheck
	return h.Sum64()
}

// patternGroupKey is the zero-seeded highwayhash digest of one site
// pattern's taxon-major byte column, used below to group identical columns
// the way fusion/postprocess.go groups candidates by a composite gene-pair
// key.
type patternGroupKey = [highwayhash.Size]byte

// DeduplicatePatterns groups partition part's distinct site-pattern columns
// and sums their weights, returning the unique columns (taxon-major, one
// byte per taxon) in first-seen order alongside the summed weight for each.
// This is the classic "pattern compression" pass a likelihood kernel runs
// once at load time so identical columns are scored exactly once and
// multiplied by their combined weight, instead of re-evaluating the same CLV
// arithmetic for every repeated column (§4.1, not modeled by the
// distillation but present in the original engine's parser).
func (s *Store) DeduplicatePatterns(part int) (columns [][]byte, weights []int32) {
	p := s.data.Partitions[part]
	width := int(p.Width)
	raw := s.data.TipBytes[part]
	taxa := len(s.data.Taxa)
	partWeights := s.Weights(part)

	var zeroSeed patternGroupKey
	index := make(map[patternGroupKey]int, width)
	col := make([]byte, taxa)
	for pat := 0; pat < width; pat++ {
		for t := 0; t < taxa; t++ {
			col[t] = raw[t*width+pat]
		}
		key := highwayhash.Sum(col, zeroSeed[:])
		if i, ok := index[key]; ok {
			weights[i] += partWeights[pat]
			continue
		}
		index[key] = len(columns)
		columns = append(columns, append([]byte(nil), col...))
		weights = append(weights, partWeights[pat])
	}
	return columns, weights
}
