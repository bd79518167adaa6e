// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exabin

import (
	"bufio"
	"io"
	"math"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// errShape is wrapped into errors describing structurally invalid files
// (as opposed to I/O failures or the header compatibility gate).
var errShape = errors.New("invalid alignment shape")

// PartitionAssignment describes the column range, within one partition's
// own [0, upper-lower) column space, that a particular worker owns. Work
// assignment of partition columns to workers is fixed at load time (§5).
type PartitionAssignment struct {
	Partition int    // index into Data.Partitions
	Offset    uint64 // first column this worker owns, relative to the partition
	Width     uint64 // number of columns this worker owns
}

// Data is the decoded contents of an alignment file, narrowed to one
// worker's column assignment.
type Data struct {
	Header     Header
	Weights    []int32 // full pattern_count weights; never sharded (§4.1).
	Taxa       []string
	Partitions []PartitionMeta // Width holds this worker's assigned width, not the file's stored value (see DESIGN.md Open Question 1).
	TipBytes   [][]byte        // len(Partitions); row-major [taxon][pattern]; nil for PoMo partitions.
	TipCLVs    [][]float64     // len(Partitions); row-major [species][pattern][state]; nil for non-PoMo partitions.
}

// countingReader tracks how many bytes have been consumed, so the absolute
// file offset of the alignment section can be computed without relying on
// the underlying reader supporting Tell.
type countingReader struct {
	r   io.Reader
	pos int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

func (c *countingReader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *countingReader) readUint32() (uint32, error) {
	b, err := c.readFull(4)
	if err != nil {
		return 0, err
	}
	return nativeEndian.Uint32(b), nil
}

func (c *countingReader) readInt32() (int32, error) {
	v, err := c.readUint32()
	return int32(v), err
}

func (c *countingReader) readUint64() (uint64, error) {
	b, err := c.readFull(8)
	if err != nil {
		return 0, err
	}
	return nativeEndian.Uint64(b), nil
}

func (c *countingReader) readFloat64() (float64, error) {
	v, err := c.readUint64()
	return math.Float64frombits(v), err
}

func (c *countingReader) readBool() (bool, error) {
	v, err := c.readInt32()
	return v != 0, err
}

// readNulString reads a u32 byte-count (including the trailing NUL) followed
// by that many bytes, and returns the string without the NUL.
func (c *countingReader) readNulString() (string, error) {
	n, err := c.readUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", errors.Errorf("exabin: zero-length NUL-terminated string field")
	}
	b, err := c.readFull(int(n))
	if err != nil {
		return "", err
	}
	return string(b[:n-1]), nil
}

func (c *countingReader) readHeader() (Header, error) {
	var h Header
	var err error
	if h.SizeOfSizeT, err = c.readUint32(); err != nil {
		return h, errors.Wrap(err, "sizeof_size_t")
	}
	if h.Version, err = c.readUint32(); err != nil {
		return h, errors.Wrap(err, "version")
	}
	if h.Magic, err = c.readUint32(); err != nil {
		return h, errors.Wrap(err, "magic")
	}
	if err := h.Validate(); err != nil {
		return h, err
	}
	if h.TaxaCount, err = c.readUint32(); err != nil {
		return h, errors.Wrap(err, "taxa_count")
	}
	if h.PatternCount, err = c.readUint64(); err != nil {
		return h, errors.Wrap(err, "pattern_count")
	}
	if h.PartitionCount, err = c.readUint32(); err != nil {
		return h, errors.Wrap(err, "partition_count")
	}
	if h.Gappiness, err = c.readFloat64(); err != nil {
		return h, errors.Wrap(err, "gappiness")
	}
	return h, nil
}

func (c *countingReader) readWeights(n uint64) ([]int32, error) {
	w := make([]int32, n)
	for i := range w {
		v, err := c.readInt32()
		if err != nil {
			return nil, errors.Wrapf(err, "weight[%d]", i)
		}
		w[i] = v
	}
	return w, nil
}

func (c *countingReader) readTaxa(n uint32) ([]string, error) {
	names := make([]string, n)
	for i := range names {
		s, err := c.readNulString()
		if err != nil {
			return nil, errors.Wrapf(err, "taxon[%d]", i)
		}
		names[i] = s
	}
	return names, nil
}

func (c *countingReader) readPartitionMeta() (PartitionMeta, error) {
	var p PartitionMeta
	var err error
	if p.States, err = c.readInt32(); err != nil {
		return p, errors.Wrap(err, "states")
	}
	if p.States <= 0 {
		return p, errors.Errorf("exabin: %v: partition has %d states", errShape, p.States)
	}
	if p.MaxTipState, err = c.readInt32(); err != nil {
		return p, errors.Wrap(err, "max_tip_state")
	}
	if p.Lower, err = c.readUint64(); err != nil {
		return p, errors.Wrap(err, "lower")
	}
	if p.Upper, err = c.readUint64(); err != nil {
		return p, errors.Wrap(err, "upper")
	}
	if p.Upper < p.Lower {
		return p, errors.Errorf("exabin: %v: partition upper %d < lower %d", errShape, p.Upper, p.Lower)
	}
	// The file's own width field is discarded; ReadWorker recomputes it from
	// the worker's column assignment (DESIGN.md Open Question 1).
	if _, err = c.readUint64(); err != nil {
		return p, errors.Wrap(err, "width")
	}
	var dt int32
	if dt, err = c.readInt32(); err != nil {
		return p, errors.Wrap(err, "data_type")
	}
	p.DataType = DataType(dt)
	var pm, pf int32
	if pm, err = c.readInt32(); err != nil {
		return p, errors.Wrap(err, "prot_model")
	}
	p.ProtModel = ProtModel(pm)
	if pf, err = c.readInt32(); err != nil {
		return p, errors.Wrap(err, "prot_freqs")
	}
	p.ProtFreqs = ProtFreqs(pf)
	if p.NonGTR, err = c.readBool(); err != nil {
		return p, errors.Wrap(err, "non_gtr")
	}
	if p.OptimizeBaseFreqs, err = c.readBool(); err != nil {
		return p, errors.Wrap(err, "optimize_freqs")
	}
	if p.Name, err = c.readNulString(); err != nil {
		return p, errors.Wrap(err, "name")
	}
	p.Frequencies = make([]float64, p.States)
	for i := range p.Frequencies {
		if p.Frequencies[i], err = c.readFloat64(); err != nil {
			return p, errors.Wrapf(err, "frequencies[%d]", i)
		}
	}
	return p, nil
}

// unitSize returns the number of bytes one (taxon, pattern) cell occupies
// on disk for the partition: 1 for byte-coded tips, States*8 for PoMo CLVs.
func unitSize(p PartitionMeta) int64 {
	if p.DataType.IsPoMo() {
		return int64(p.States) * 8
	}
	return 1
}

// ReadWorker decodes an alignment file from rs, narrowed to the column
// ranges in assignments (all belonging to one worker). rs must support
// io.Seeker because non-whole-partition assignments require a seek per
// taxon (§4.1).
func ReadWorker(rs io.ReadSeeker, assignments []PartitionAssignment) (*Data, error) {
	cr := &countingReader{r: bufio.NewReader(rs)}
	h, err := cr.readHeader()
	if err != nil {
		return nil, err
	}
	weights, err := cr.readWeights(h.PatternCount)
	if err != nil {
		return nil, err
	}
	taxa, err := cr.readTaxa(h.TaxaCount)
	if err != nil {
		return nil, err
	}
	parts := make([]PartitionMeta, h.PartitionCount)
	for i := range parts {
		if parts[i], err = cr.readPartitionMeta(); err != nil {
			return nil, errors.Wrapf(err, "partition %d", i)
		}
	}

	// Cumulative byte offset, within the alignment section, of each
	// partition's block. Computed from the FULL (unsharded) per-partition
	// widths so it is correct regardless of which partitions this worker
	// was assigned.
	blockStart := make([]int64, len(parts)+1)
	for i, p := range parts {
		fullWidth := int64(p.Upper - p.Lower)
		blockStart[i+1] = blockStart[i] + int64(h.TaxaCount)*fullWidth*unitSize(p)
	}
	alnSectionStart := cr.pos

	data := &Data{
		Header:     h,
		Weights:    weights,
		Taxa:       taxa,
		Partitions: parts,
		TipBytes:   make([][]byte, len(parts)),
		TipCLVs:    make([][]float64, len(parts)),
	}

	for _, a := range assignments {
		if a.Partition < 0 || a.Partition >= len(parts) {
			return nil, errors.Errorf("exabin: %v: assignment references partition %d, have %d", errShape, a.Partition, len(parts))
		}
		p := &data.Partitions[a.Partition]
		p.Width = a.Width
		fullWidth := p.Upper - p.Lower
		if a.Offset+a.Width > fullWidth {
			return nil, errors.Errorf("exabin: assignment [%d,%d) exceeds partition %d width %d", a.Offset, a.Offset+a.Width, a.Partition, fullWidth)
		}
		us := unitSize(*p)
		whole := a.Offset == 0 && a.Width == fullWidth
		var raw []byte
		if whole {
			pos := alnSectionStart + blockStart[a.Partition]
			if _, err := rs.Seek(pos, io.SeekStart); err != nil {
				return nil, errors.Wrapf(err, "seek partition %d", a.Partition)
			}
			cr2 := &countingReader{r: rs}
			n := int64(h.TaxaCount) * int64(a.Width) * us
			if raw, err = cr2.readFull(int(n)); err != nil {
				return nil, errors.Wrapf(err, "read partition %d", a.Partition)
			}
		} else {
			vlog.VI(1).Infof("exabin: partial assignment for partition %d (offset=%d width=%d/%d); reading per-taxon", a.Partition, a.Offset, a.Width, fullWidth)
			raw = make([]byte, int64(h.TaxaCount)*int64(a.Width)*us)
			rowBytes := int64(a.Width) * us
			for j := uint32(0); j < h.TaxaCount; j++ {
				pos := alnSectionStart + blockStart[a.Partition] + int64(j)*int64(fullWidth)*us + int64(a.Offset)*us
				if _, err := rs.Seek(pos, io.SeekStart); err != nil {
					return nil, errors.Wrapf(err, "seek partition %d taxon %d", a.Partition, j)
				}
				cr2 := &countingReader{r: rs}
				if _, err := io.ReadFull(cr2, raw[int64(j)*rowBytes:int64(j+1)*rowBytes]); err != nil {
					return nil, errors.Wrapf(err, "read partition %d taxon %d", a.Partition, j)
				}
			}
		}
		if p.DataType.IsPoMo() {
			clv := make([]float64, len(raw)/8)
			for i := range clv {
				clv[i] = math.Float64frombits(nativeEndian.Uint64(raw[i*8 : i*8+8]))
			}
			data.TipCLVs[a.Partition] = clv
		} else {
			data.TipBytes[a.Partition] = raw
		}
	}
	return data, nil
}

// ReadFull decodes the entire alignment file with no sharding: every
// partition is assigned in full to a single (notional) worker. Used by
// tests and by callers that do not distribute work across ranks.
func ReadFull(r io.Reader) (*Data, error) {
	// We need Seek only for partial assignments; ReadFull always requests
	// the whole partition, so a ReadSeeker is unnecessary except that
	// ReadWorker's signature requires one. A reader that does not implement
	// io.ReadSeeker is rejected with an error.
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, errors.Errorf("exabin: ReadFull requires an io.ReadSeeker (got %T)", r)
	}
	h, err := peekHeader(rs)
	if err != nil {
		return nil, err
	}
	assignments := make([]PartitionAssignment, h.PartitionCount)
	// A first pass is needed to learn partition widths before we can build
	// "whole partition" assignments; peekHeader only validates the gate, so
	// fall back to decoding metadata twice (header+weights+taxa+partitions
	// are cheap relative to the alignment body).
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	metaOnly, err := readMetaOnly(rs)
	if err != nil {
		return nil, err
	}
	for i, p := range metaOnly.Partitions {
		assignments[i] = PartitionAssignment{Partition: i, Offset: 0, Width: p.Upper - p.Lower}
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return ReadWorker(rs, assignments)
}

func peekHeader(rs io.ReadSeeker) (Header, error) {
	cr := &countingReader{r: rs}
	return cr.readHeader()
}

// readMetaOnly reads header+weights+taxa+partitions and stops, leaving the
// reader positioned at the start of the alignment section.
func readMetaOnly(rs io.Reader) (*Data, error) {
	cr := &countingReader{r: bufio.NewReader(rs)}
	h, err := cr.readHeader()
	if err != nil {
		return nil, err
	}
	if _, err := cr.readWeights(h.PatternCount); err != nil {
		return nil, err
	}
	if _, err := cr.readTaxa(h.TaxaCount); err != nil {
		return nil, err
	}
	parts := make([]PartitionMeta, h.PartitionCount)
	for i := range parts {
		if parts[i], err = cr.readPartitionMeta(); err != nil {
			return nil, err
		}
	}
	return &Data{Header: h, Partitions: parts}, nil
}
