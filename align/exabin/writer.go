// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exabin

import (
	"bufio"
	"io"
	"math"

	"github.com/pkg/errors"
)

// countingWriter mirrors countingReader on the write side.
type countingWriter struct {
	w   io.Writer
	pos int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)
	return n, err
}

func (c *countingWriter) writeUint32(v uint32) error {
	var b [4]byte
	nativeEndian.PutUint32(b[:], v)
	_, err := c.Write(b[:])
	return err
}

func (c *countingWriter) writeInt32(v int32) error {
	return c.writeUint32(uint32(v))
}

func (c *countingWriter) writeUint64(v uint64) error {
	var b [8]byte
	nativeEndian.PutUint64(b[:], v)
	_, err := c.Write(b[:])
	return err
}

func (c *countingWriter) writeFloat64(v float64) error {
	return c.writeUint64(math.Float64bits(v))
}

func (c *countingWriter) writeBool(v bool) error {
	if v {
		return c.writeInt32(1)
	}
	return c.writeInt32(0)
}

// writeNulString writes the length (strlen+1, i.e. including the NUL
// terminator the original format expects) followed by the bytes of s plus
// a trailing NUL, matching the producer's on-disk convention (§4.1).
func (c *countingWriter) writeNulString(s string) error {
	if err := c.writeUint32(uint32(len(s) + 1)); err != nil {
		return err
	}
	if _, err := c.Write([]byte(s)); err != nil {
		return err
	}
	_, err := c.Write([]byte{0})
	return err
}

func (c *countingWriter) writeHeader(h Header) error {
	if err := c.writeUint32(h.SizeOfSizeT); err != nil {
		return errors.Wrap(err, "sizeof_size_t")
	}
	if err := c.writeUint32(h.Version); err != nil {
		return errors.Wrap(err, "version")
	}
	if err := c.writeUint32(h.Magic); err != nil {
		return errors.Wrap(err, "magic")
	}
	if err := c.writeUint32(h.TaxaCount); err != nil {
		return errors.Wrap(err, "taxa_count")
	}
	if err := c.writeUint64(h.PatternCount); err != nil {
		return errors.Wrap(err, "pattern_count")
	}
	if err := c.writeUint32(h.PartitionCount); err != nil {
		return errors.Wrap(err, "partition_count")
	}
	if err := c.writeFloat64(h.Gappiness); err != nil {
		return errors.Wrap(err, "gappiness")
	}
	return nil
}

func (c *countingWriter) writePartitionMeta(p PartitionMeta) error {
	if err := c.writeInt32(p.States); err != nil {
		return errors.Wrap(err, "states")
	}
	if err := c.writeInt32(p.MaxTipState); err != nil {
		return errors.Wrap(err, "max_tip_state")
	}
	if err := c.writeUint64(p.Lower); err != nil {
		return errors.Wrap(err, "lower")
	}
	if err := c.writeUint64(p.Upper); err != nil {
		return errors.Wrap(err, "upper")
	}
	// The width field on disk is never trusted by ReadWorker; write the
	// full (unsharded) partition width here for compatibility with any
	// tool that inspects the file directly.
	if err := c.writeUint64(p.Upper - p.Lower); err != nil {
		return errors.Wrap(err, "width")
	}
	if err := c.writeInt32(int32(p.DataType)); err != nil {
		return errors.Wrap(err, "data_type")
	}
	if err := c.writeInt32(int32(p.ProtModel)); err != nil {
		return errors.Wrap(err, "prot_model")
	}
	if err := c.writeInt32(int32(p.ProtFreqs)); err != nil {
		return errors.Wrap(err, "prot_freqs")
	}
	if err := c.writeBool(p.NonGTR); err != nil {
		return errors.Wrap(err, "non_gtr")
	}
	if err := c.writeBool(p.OptimizeBaseFreqs); err != nil {
		return errors.Wrap(err, "optimize_freqs")
	}
	if err := c.writeNulString(p.Name); err != nil {
		return errors.Wrap(err, "name")
	}
	if len(p.Frequencies) != int(p.States) {
		return errors.Errorf("exabin: partition %q has %d frequencies, want %d", p.Name, len(p.Frequencies), p.States)
	}
	for i, f := range p.Frequencies {
		if err := c.writeFloat64(f); err != nil {
			return errors.Wrapf(err, "frequencies[%d]", i)
		}
	}
	return nil
}

// WriteFull encodes a complete, unsharded alignment to w: every partition's
// tip data in full, taxon-major within each partition (§4.1). d.TipBytes[i]
// or d.TipCLVs[i] must hold the WHOLE partition (length
// TaxaCount*(Upper-Lower) cells), not a worker's shard.
func WriteFull(w io.Writer, d *Data) error {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	h := d.Header
	h.SizeOfSizeT = SizeOfSizeT
	h.Magic = Magic
	h.Version = CurrentVersion
	h.TaxaCount = uint32(len(d.Taxa))
	h.PatternCount = uint64(len(d.Weights))
	h.PartitionCount = uint32(len(d.Partitions))
	if err := cw.writeHeader(h); err != nil {
		return err
	}
	for i, wt := range d.Weights {
		if err := cw.writeInt32(wt); err != nil {
			return errors.Wrapf(err, "weight[%d]", i)
		}
	}
	for i, name := range d.Taxa {
		if err := cw.writeNulString(name); err != nil {
			return errors.Wrapf(err, "taxon[%d]", i)
		}
	}
	for i, p := range d.Partitions {
		if err := cw.writePartitionMeta(p); err != nil {
			return errors.Wrapf(err, "partition %d", i)
		}
	}

	for i, p := range d.Partitions {
		fullWidth := int64(p.Upper - p.Lower)
		wantCells := int64(h.TaxaCount) * fullWidth
		if p.DataType.IsPoMo() {
			clv := d.TipCLVs[i]
			if int64(len(clv)) != wantCells {
				return errors.Errorf("exabin: partition %d has %d CLV cells, want %d", i, len(clv), wantCells)
			}
			for _, v := range clv {
				if err := cw.writeFloat64(v); err != nil {
					return errors.Wrapf(err, "partition %d tip data", i)
				}
			}
		} else {
			raw := d.TipBytes[i]
			if int64(len(raw)) != wantCells {
				return errors.Errorf("exabin: partition %d has %d tip bytes, want %d", i, len(raw), wantCells)
			}
			if _, err := cw.Write(raw); err != nil {
				return errors.Wrapf(err, "partition %d tip data", i)
			}
		}
	}
	return bw.Flush()
}
