// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exabin

// Header is the fixed-size prefix of an alignment file:
//
//	u32 sizeof_size_t | u32 version | u32 magic
//	u32 taxa_count | size_t pattern_count | u32 partition_count | f64 gappiness
//
// The first three fields are the hard compatibility gate (§4.1, §6): a
// reader must check them before trusting anything else in the file.
type Header struct {
	SizeOfSizeT    uint32
	Version        uint32
	Magic          uint32
	TaxaCount      uint32
	PatternCount   uint64
	PartitionCount uint32
	Gappiness      float64
}

// Validate checks the compatibility gate. It must be called before any
// other field of h, or any data following the header, is trusted.
func (h Header) Validate() error {
	if h.SizeOfSizeT != SizeOfSizeT {
		return &FormatMismatchError{Field: "sizeof_size_t", Got: h.SizeOfSizeT, Expected: SizeOfSizeT}
	}
	if h.Magic != Magic {
		return &FormatMismatchError{Field: "magic", Got: h.Magic, Expected: Magic}
	}
	if h.Version != CurrentVersion {
		return &VersionMismatchError{Got: h.Version, Expected: CurrentVersion}
	}
	return nil
}

// PartitionMeta is the immutable per-partition metadata block (§3, §4.1).
type PartitionMeta struct {
	States            int32
	MaxTipState       int32
	Lower, Upper      uint64 // [Lower, Upper) column range in compressed pattern space.
	Width             uint64 // recomputed from the worker assignment at load time; the stored value is ignored (see DESIGN.md Open Question 1).
	DataType          DataType
	ProtModel         ProtModel
	ProtFreqs         ProtFreqs
	NonGTR            bool
	OptimizeBaseFreqs bool
	Name              string
	Frequencies       []float64 // length == States
}

// PatternWidth returns Upper-Lower, the number of patterns this partition
// spans in the full (unsharded) alignment.
func (p PartitionMeta) PatternWidth() uint64 {
	return p.Upper - p.Lower
}
