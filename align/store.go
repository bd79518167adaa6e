// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package align implements the Alignment Store (§4.1, §2): the runtime
// view over one worker's per-partition site data (pattern weights, tip
// sequences or tip CLVs for PoMo) loaded once from the binary alignment
// format (align/exabin) at worker start-up.
package align

import (
	"io"

	"github.com/evoplk/plk/align/exabin"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// ReadSeekCloser is the narrow file interface Load requires, satisfied by
// *os.File and by grailbio/base/file's backend-agnostic ReadSeekCloser, the
// same combinator encoding/pam/pam.go defines for its shard files.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

// Store is the read-only runtime view over one worker's slice of the
// alignment (§4.1 "Exposes read-only views").
type Store struct {
	data *exabin.Data
}

// Load opens path through grailbio/base/file (local or cloud-backed,
// exactly as encoding/pam opens PAM shards) and decodes the worker's column
// assignment out of it (§4.1 "load(path, worker_id, assignment)").
func Load(path string, assignments []exabin.PartitionAssignment) (*Store, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "align: opening %v", path)
	}
	defer f.Close(ctx) // nolint: errcheck

	rs, ok := f.Reader(ctx).(io.ReadSeeker)
	if !ok {
		return nil, errors.Errorf("align: %v does not support seeking, required for partial partition assignments", path)
	}
	data, err := exabin.ReadWorker(rs, assignments)
	if err != nil {
		return nil, err
	}
	if err := ValidatePartitions(data.Partitions, data.Header.PatternCount); err != nil {
		return nil, err
	}
	if pairs := WarnSimilarTaxa(data.Taxa); len(pairs) > 0 {
		vlog.Infof("align: %d suspiciously similar taxon-name pair(s) found in %v", len(pairs), path)
	}
	return &Store{data: data}, nil
}

// NewStoreFromData wraps already-decoded Data (used by tests and by
// callers that load the alignment outside of Load, e.g. from an in-memory
// buffer).
func NewStoreFromData(data *exabin.Data) *Store {
	return &Store{data: data}
}

// PeekPartitions opens path and decodes only its header and per-partition
// metadata, skipping the weights and taxa sections via exabin.SeekSection
// rather than paying to decode them (§5 "work assignment of partition
// columns to workers is fixed at load time"). Callers use the returned
// widths to build the exabin.PartitionAssignment slice Load needs, without
// reading any sequence data up front.
func PeekPartitions(path string) ([]exabin.PartitionMeta, error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "align: opening %v", path)
	}
	defer f.Close(ctx) // nolint: errcheck

	rs, ok := f.Reader(ctx).(io.ReadSeeker)
	if !ok {
		return nil, errors.Errorf("align: %v does not support seeking, required to peek partitions", path)
	}
	_, parts, err := exabin.ReadPartitionMeta(rs)
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// Weights returns the full (unsharded) pattern-weight vector of partition
// part: Data.Weights is never sharded by worker assignment (§4.1), but it is
// one flat slice spanning every partition's compressed pattern columns, so
// this still has to narrow it to part's own [Lower, Upper) range.
func (s *Store) Weights(part int) []int32 {
	p := s.data.Partitions[part]
	return s.data.Weights[p.Lower:p.Upper]
}

// PartitionMeta returns the immutable metadata for partition part.
func (s *Store) PartitionMeta(part int) exabin.PartitionMeta {
	return s.data.Partitions[part]
}

// NumPartitions returns the number of partitions in the alignment.
func (s *Store) NumPartitions() int {
	return len(s.data.Partitions)
}

// TipByte returns the byte code of taxon taxonIdx at local pattern index
// pattern (within this worker's assigned column window) for partition
// part. part must not be a PoMo partition.
func (s *Store) TipByte(part, taxonIdx, pattern int) byte {
	p := s.data.Partitions[part]
	width := int(p.Width)
	return s.data.TipBytes[part][taxonIdx*width+pattern]
}

// TipCLV returns the CLV row (length States) for species speciesIdx at
// local pattern index pattern for PoMo partition part.
func (s *Store) TipCLV(part, speciesIdx, pattern int) []float64 {
	p := s.data.Partitions[part]
	width := int(p.Width)
	states := int(p.States)
	base := (speciesIdx*width + pattern) * states
	return s.data.TipCLVs[part][base : base+states]
}

// Taxa returns the taxon names in file order.
func (s *Store) Taxa() []string {
	return s.data.Taxa
}
