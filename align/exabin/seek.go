// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exabin

import (
	"io"

	"github.com/pkg/errors"
)

// Section identifies one of the five top-to-bottom blocks of an alignment
// file (original_source/examl/byteFile.c's seekPos fall-through: header,
// weights, taxa, partitions, alignment).
type Section int

const (
	SectionHeader Section = iota
	SectionWeights
	SectionTaxa
	SectionPartitions
	SectionAlignment
)

// partitionFixedTailBytes is the byte size of a PartitionMeta's fields
// after States and before its NUL-terminated Name: max_tip_state(4) +
// lower(8) + upper(8) + width(8) + data_type(4) + prot_model(4) +
// prot_freqs(4) + non_gtr(4) + optimize_base_freqs(4), matching
// readPartitionMeta's field order exactly.
const partitionFixedTailBytes = 4 + 8 + 8 + 8 + 4 + 4 + 4 + 4 + 4

// SeekSection positions rs at the start of section and returns the file's
// header, skipping every section before it without decoding it into
// memory: taxon names and partition names/frequencies are passed over via
// their own length prefixes rather than allocated, so a caller that only
// wants (say) partition metadata never pays for the taxa section or the
// alignment body. This is useful for a worker that needs to plan its own
// column assignment from partition widths before it is ready to read any
// sequence data (§4.1, §5).
//
// rs must support io.Seeker directly (not wrapped in a buffering reader);
// SeekSection interleaves reads with relative seeks, the same pattern
// ReadWorker uses for a partial partition assignment.
func SeekSection(rs io.ReadSeeker, section Section) (Header, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Header{}, errors.Wrap(err, "exabin: seek to start")
	}
	cr := &countingReader{r: rs}
	h, err := cr.readHeader()
	if err != nil {
		return h, err
	}
	if section == SectionHeader {
		return h, nil
	}

	weightsBytes := int64(h.PatternCount) * 4
	if section == SectionWeights {
		return h, nil
	}
	if _, err := rs.Seek(weightsBytes, io.SeekCurrent); err != nil {
		return h, errors.Wrap(err, "exabin: skip weights section")
	}

	if section == SectionTaxa {
		return h, nil
	}
	if err := skipTaxa(rs, h.TaxaCount); err != nil {
		return h, err
	}

	if section == SectionPartitions {
		return h, nil
	}
	for i := uint32(0); i < h.PartitionCount; i++ {
		if err := skipPartitionMeta(rs); err != nil {
			return h, errors.Wrapf(err, "partition %d", i)
		}
	}
	return h, nil
}

// ReadPartitionMeta seeks rs directly to the partitions section (skipping
// the weights and taxa sections without decoding them) and decodes just
// the per-partition metadata, leaving rs positioned at the start of the
// alignment body. Callers that only need partition shape to plan a column
// assignment (§5) can use this instead of exabin.ReadFull/ReadWorker's
// full decode.
func ReadPartitionMeta(rs io.ReadSeeker) (Header, []PartitionMeta, error) {
	h, err := SeekSection(rs, SectionPartitions)
	if err != nil {
		return h, nil, err
	}
	cr := &countingReader{r: rs}
	parts := make([]PartitionMeta, h.PartitionCount)
	for i := range parts {
		if parts[i], err = cr.readPartitionMeta(); err != nil {
			return h, nil, errors.Wrapf(err, "partition %d", i)
		}
	}
	return h, parts, nil
}

// skipTaxa passes over n NUL-terminated taxon names without allocating
// their contents, reading only each name's u32 length prefix.
func skipTaxa(rs io.ReadSeeker, n uint32) error {
	cr := &countingReader{r: rs}
	for i := uint32(0); i < n; i++ {
		length, err := cr.readUint32()
		if err != nil {
			return errors.Wrapf(err, "exabin: taxon[%d] length", i)
		}
		if length == 0 {
			return errors.Errorf("exabin: %v: zero-length taxon name", errShape)
		}
		if _, err := rs.Seek(int64(length), io.SeekCurrent); err != nil {
			return errors.Wrapf(err, "exabin: skip taxon[%d]", i)
		}
	}
	return nil
}

// skipPartitionMeta passes over one PartitionMeta block, reading only
// States (needed to size the trailing Frequencies array) and the Name
// length prefix; every other field is skipped by byte count.
func skipPartitionMeta(rs io.ReadSeeker) error {
	cr := &countingReader{r: rs}
	states, err := cr.readInt32()
	if err != nil {
		return errors.Wrap(err, "states")
	}
	if states <= 0 {
		return errors.Errorf("exabin: %v: partition has %d states", errShape, states)
	}
	if _, err := rs.Seek(partitionFixedTailBytes, io.SeekCurrent); err != nil {
		return errors.Wrap(err, "skip fixed fields")
	}
	nameLen, err := (&countingReader{r: rs}).readUint32()
	if err != nil {
		return errors.Wrap(err, "name length")
	}
	if nameLen == 0 {
		return errors.Errorf("exabin: %v: zero-length partition name", errShape)
	}
	if _, err := rs.Seek(int64(nameLen)+int64(states)*8, io.SeekCurrent); err != nil {
		return errors.Wrap(err, "skip name and frequencies")
	}
	return nil
}
